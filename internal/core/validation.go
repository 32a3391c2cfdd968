package core

import "strings"

const (
	FieldDescription = "description"
	FieldAmount      = "amount"
	FieldCategory    = "category"
)

// Issue codes reported to API clients.
const (
	IssueCustom           = "custom"
	IssueTooSmall         = "too_small"
	IssueTooBig           = "too_big"
	IssueNotMultipleOf    = "not_multiple_of"
	IssueInvalidEnumValue = "invalid_enum_value"
	IssueInvalidType      = "invalid_type"
	IssueInvalidJSON      = "invalid_json"
)

// ValidationIssue is a single field-level problem. Path is empty for
// problems with the request as a whole.
type ValidationIssue struct {
	Code    string   `json:"code"`
	Path    []string `json:"path"`
	Message string   `json:"message"`
}

// ValidationError carries every issue found in one input.
type ValidationError struct {
	Issues []ValidationIssue
}

func (e *ValidationError) Error() string {
	msgs := make([]string, 0, len(e.Issues))
	for _, is := range e.Issues {
		if len(is.Path) > 0 {
			msgs = append(msgs, strings.Join(is.Path, ".")+": "+is.Message)
		} else {
			msgs = append(msgs, is.Message)
		}
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}

// FieldMessages returns the first message per field, keyed by field name.
func (e *ValidationError) FieldMessages() map[string]string {
	out := make(map[string]string, len(e.Issues))
	for _, is := range e.Issues {
		key := ""
		if len(is.Path) > 0 {
			key = is.Path[0]
		}
		if _, ok := out[key]; !ok {
			out[key] = is.Message
		}
	}
	return out
}

func issuePath(field string) []string {
	if field == "" {
		return []string{}
	}
	return []string{field}
}

// NewIssue builds an issue for a single field.
func NewIssue(code, field, message string) ValidationIssue {
	return ValidationIssue{Code: code, Path: issuePath(field), Message: message}
}
