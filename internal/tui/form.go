package tui

import (
	"errors"
	"fmt"
	"strings"

	"expenses/internal/core"
)

const (
	fieldDescription = iota
	fieldAmount
	fieldCategory
	fieldCount
)

type form struct {
	description string
	amount      string
	category    int
	focus       int
	errors      map[string]string
}

func newForm() form {
	return form{}
}

func formFrom(in core.NewExpense) form {
	f := form{description: in.Description, amount: in.Amount.Decimal().String()}
	for i, c := range core.Categories() {
		if c == in.Category {
			f.category = i
		}
	}
	return f
}

func (f *form) focusNext(step int) {
	f.focus = ((f.focus+step)%fieldCount + fieldCount) % fieldCount
}

func (f *form) cycleCategory(step int) {
	n := len(core.Categories())
	f.category = ((f.category+step)%n + n) % n
}

func (f *form) typeRunes(r []rune) {
	switch f.focus {
	case fieldDescription:
		f.description += string(r)
	case fieldAmount:
		f.amount += string(r)
	}
}

func (f *form) backspace() {
	trim := func(s string) string {
		r := []rune(s)
		if len(r) == 0 {
			return s
		}
		return string(r[:len(r)-1])
	}
	switch f.focus {
	case fieldDescription:
		f.description = trim(f.description)
	case fieldAmount:
		f.amount = trim(f.amount)
	}
}

// expense reads the form. Only the amount can fail here; the rest is left
// to the view pre-check.
func (f *form) expense() (core.NewExpense, error) {
	in := core.NewExpense{
		Description: f.description,
		Category:    core.Categories()[f.category],
	}
	amount, err := core.ParseAmount(f.amount)
	if err != nil {
		issue := core.NewIssue(core.IssueInvalidType, core.FieldAmount, "Amount is required")
		if errors.Is(err, core.ErrAmountOutOfRange) {
			issue = core.NewIssue(core.IssueTooBig, core.FieldAmount, "Amount is out of range.")
		}
		issues := []core.ValidationIssue{issue}
		if len([]rune(f.description)) < core.MinDescriptionLength {
			issues = append(issues, core.NewIssue(core.IssueTooSmall, core.FieldDescription,
				"Description should be at least 3 characters."))
		}
		return core.NewExpense{}, &core.ValidationError{Issues: issues}
	}
	in.Amount = amount
	return in, nil
}

func (f form) render() string {
	var b strings.Builder
	b.WriteString(headerStyle.Render("New expense"))
	b.WriteString("\n")

	label := func(field int, name string) string {
		if f.focus == field {
			return focusStyle.Render("> " + name)
		}
		return "  " + name
	}
	fieldErr := func(key string) string {
		if msg, ok := f.errors[key]; ok {
			return "\n    " + errorStyle.Render(msg)
		}
		return ""
	}

	fmt.Fprintf(&b, "%s: %s%s\n", label(fieldDescription, "Description"), f.description, fieldErr(core.FieldDescription))
	fmt.Fprintf(&b, "%s: %s%s\n", label(fieldAmount, "Amount"), f.amount, fieldErr(core.FieldAmount))
	fmt.Fprintf(&b, "%s: < %s >%s", label(fieldCategory, "Category"), core.Categories()[f.category], fieldErr(core.FieldCategory))
	if msg, ok := f.errors[""]; ok {
		b.WriteString("\n  ")
		b.WriteString(errorStyle.Render(msg))
	}
	return b.String()
}
