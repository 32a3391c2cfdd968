// Package http serves the expense record API.
//
// Every JSON body is an envelope: {"data": ...} on success and
// {"error": ...} on failure, where error is either a message or a list of
// validation issues.
package http

import (
	"encoding/json"
	"net/http"

	"expenses/internal/core"
)

// Messages returned in error envelopes.
const (
	MsgNotFound     = "Expense was not found"
	MsgCreateFailed = "Failed to create expense"
	MsgListFailed   = "Failed to list expenses"
	MsgDeleteFailed = "Failed to delete expense"
	MsgRateLimited  = "Rate limit exceeded. Please try again later."
)

type envelope struct {
	Data  any `json:"data,omitempty"`
	Error any `json:"error,omitempty"`
}

// JSONResponseBuilder provides a fluent API for building envelope
// responses.
type JSONResponseBuilder struct {
	statusCode int
	headers    map[string]string
	body       envelope
}

// NewJSONResponse creates a new response builder with default 200 status.
func NewJSONResponse() *JSONResponseBuilder {
	return &JSONResponseBuilder{
		statusCode: http.StatusOK,
		headers:    make(map[string]string),
	}
}

func (b *JSONResponseBuilder) Status(code int) *JSONResponseBuilder {
	b.statusCode = code
	return b
}

func (b *JSONResponseBuilder) Header(name, value string) *JSONResponseBuilder {
	b.headers[name] = value
	return b
}

// Data sets the success payload. A nil record slice is sent as [].
func (b *JSONResponseBuilder) Data(v any) *JSONResponseBuilder {
	if recs, ok := v.([]core.ExpenseRecord); ok && recs == nil {
		v = []core.ExpenseRecord{}
	}
	b.body.Data = v
	return b
}

// Error sets the failure payload.
func (b *JSONResponseBuilder) Error(v any) *JSONResponseBuilder {
	b.body.Error = v
	return b
}

// Write sends the built response to the http.ResponseWriter.
func (b *JSONResponseBuilder) Write(w http.ResponseWriter) {
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")

	payload, err := json.Marshal(b.body)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"Failed to encode response"}`))
		return
	}
	w.WriteHeader(b.statusCode)
	_, _ = w.Write(append(payload, '\n'))
}

// DataResponse creates a success envelope.
func DataResponse(statusCode int, v any) *JSONResponseBuilder {
	return NewJSONResponse().Status(statusCode).Data(v)
}

// ErrorResponse creates an error envelope with a plain message.
func ErrorResponse(statusCode int, message string) *JSONResponseBuilder {
	return NewJSONResponse().Status(statusCode).Error(message)
}

// ValidationErrorResponse creates a 400 envelope listing every issue.
func ValidationErrorResponse(ve *core.ValidationError) *JSONResponseBuilder {
	issues := ve.Issues
	if issues == nil {
		issues = []core.ValidationIssue{}
	}
	return NewJSONResponse().Status(http.StatusBadRequest).Error(issues)
}

// NotFoundError creates the 404 envelope for a missing record.
func NotFoundError() *JSONResponseBuilder {
	return ErrorResponse(http.StatusNotFound, MsgNotFound)
}

// InternalServerError creates a 500 envelope.
func InternalServerError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusInternalServerError, message)
}

// TooManyRequestsError creates the 429 envelope.
func TooManyRequestsError() *JSONResponseBuilder {
	return ErrorResponse(http.StatusTooManyRequests, MsgRateLimited)
}
