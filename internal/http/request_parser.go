package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"expenses/internal/core"
)

// MaxCreateBodyBytes caps the size of a create request body.
const MaxCreateBodyBytes = 64 << 10

// ParseCreateRequest decodes a create body and checks every field. All
// problems come back together in one *core.ValidationError.
func ParseCreateRequest(w http.ResponseWriter, r *http.Request) (core.NewExpense, error) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxCreateBodyBytes)

	var fields map[string]json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&fields); err != nil || fields == nil {
		msg := "Request body must be a JSON object."
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			msg = "Request body is too large."
		}
		return core.NewExpense{}, &core.ValidationError{
			Issues: []core.ValidationIssue{core.NewIssue(core.IssueInvalidJSON, "", msg)},
		}
	}

	var (
		in     core.NewExpense
		issues []core.ValidationIssue
	)

	if desc, issue, ok := stringField(fields, core.FieldDescription, "Description"); ok {
		in.Description = desc
		issues = append(issues, core.ValidateDescription(desc)...)
	} else {
		issues = append(issues, issue)
	}

	if amount, issue, ok := amountField(fields); ok {
		in.Amount = amount
		issues = append(issues, core.ValidateAmount(amount)...)
	} else {
		issues = append(issues, issue)
	}

	if cat, issue, ok := stringField(fields, core.FieldCategory, "Category"); ok {
		in.Category = core.Category(cat)
		issues = append(issues, core.ValidateCategory(cat)...)
	} else {
		issues = append(issues, issue)
	}

	if len(issues) > 0 {
		return core.NewExpense{}, &core.ValidationError{Issues: issues}
	}
	return in, nil
}

func stringField(fields map[string]json.RawMessage, field, label string) (string, core.ValidationIssue, bool) {
	raw, ok := fields[field]
	if !ok || string(raw) == "null" {
		return "", core.NewIssue(core.IssueInvalidType, field, label+" is required."), false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", core.NewIssue(core.IssueInvalidType, field, label+" should be a string."), false
	}
	return s, core.ValidationIssue{}, true
}

func amountField(fields map[string]json.RawMessage) (core.Amount, core.ValidationIssue, bool) {
	raw, ok := fields[core.FieldAmount]
	if !ok || string(raw) == "null" {
		return core.Amount{}, core.NewIssue(core.IssueInvalidType, core.FieldAmount, "Amount is required."), false
	}
	var a core.Amount
	if err := json.Unmarshal(raw, &a); err != nil {
		if errors.Is(err, core.ErrAmountOutOfRange) {
			return core.Amount{}, core.NewIssue(core.IssueTooBig, core.FieldAmount, "Amount is out of range."), false
		}
		return core.Amount{}, core.NewIssue(core.IssueInvalidType, core.FieldAmount, "Amount should be a number."), false
	}
	return a, core.ValidationIssue{}, true
}

// ParseRecordID reads the {id} path value. Only positive base-10 integers
// name a record.
func ParseRecordID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
