package core

import (
	"strings"
	"unicode/utf8"
)

const (
	Groceries     Category = "Groceries"
	Utilities     Category = "Utilities"
	Entertainment Category = "Entertainment"
)

// MinDescriptionLength is the minimum number of characters of a trimmed
// description.
const MinDescriptionLength = 3

type (
	Category string

	// ExpenseRecord is a persisted expense. ID is assigned by the record
	// store; values <= 0 are client placeholders and are never stored.
	ExpenseRecord struct {
		ID          int64    `json:"id"`
		Description string   `json:"description"`
		Amount      Amount   `json:"amount"`
		Category    Category `json:"category"`
	}

	// NewExpense is the input of a create operation.
	NewExpense struct {
		Description string
		Amount      Amount
		Category    Category
	}
)

var categories = []Category{Groceries, Utilities, Entertainment}

// Categories returns the closed category set in display order.
func Categories() []Category {
	out := make([]Category, len(categories))
	copy(out, categories)
	return out
}

func (c Category) IsValid() bool {
	for _, v := range categories {
		if c == v {
			return true
		}
	}
	return false
}

func (c Category) String() string { return string(c) }

// ParseCategory matches s exactly against the category set.
func ParseCategory(s string) (Category, bool) {
	c := Category(s)
	return c, c.IsValid()
}

// IsPlaceholderID reports whether id was assigned locally while a create
// is still pending.
func IsPlaceholderID(id int64) bool {
	return id <= 0
}

// Normalize trims the description. Stored descriptions are always trimmed.
func (e NewExpense) Normalize() NewExpense {
	e.Description = strings.TrimSpace(e.Description)
	return e
}

// Validate checks every field and returns a *ValidationError listing all
// issues, or nil.
func (e NewExpense) Validate() error {
	var issues []ValidationIssue
	issues = append(issues, ValidateDescription(e.Description)...)
	issues = append(issues, ValidateAmount(e.Amount)...)
	issues = append(issues, ValidateCategory(string(e.Category))...)
	if len(issues) == 0 {
		return nil
	}
	return &ValidationError{Issues: issues}
}

// Validate applies the create rules to an already persisted record.
func (r ExpenseRecord) Validate() error {
	return NewExpense{Description: r.Description, Amount: r.Amount, Category: r.Category}.Validate()
}

func ValidateDescription(s string) []ValidationIssue {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return []ValidationIssue{{
			Code:    IssueCustom,
			Path:    issuePath(FieldDescription),
			Message: "Description should not be empty or only whitespace.",
		}}
	}
	if utf8.RuneCountInString(trimmed) < MinDescriptionLength {
		return []ValidationIssue{{
			Code:    IssueTooSmall,
			Path:    issuePath(FieldDescription),
			Message: "Description should be at least 3 characters.",
		}}
	}
	return nil
}

func ValidateCategory(s string) []ValidationIssue {
	if Category(s).IsValid() {
		return nil
	}
	return []ValidationIssue{{
		Code:    IssueInvalidEnumValue,
		Path:    issuePath(FieldCategory),
		Message: "Category should be one of 'Groceries', 'Utilities', or 'Entertainment'.",
	}}
}
