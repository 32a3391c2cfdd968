package http

import (
	"errors"
	"net/http"

	"expenses/internal/core"
	applog "expenses/internal/log"
	"expenses/internal/ports"
)

func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	recs, err := s.store.List(ctx)
	if err != nil {
		s.events.LogError(ctx, "Failed to list expenses", err, applog.OpList,
			applog.NewFields().WithErrorType(applog.ErrorTypeDatabase))
		InternalServerError(MsgListFailed).Write(w)
		return
	}
	DataResponse(http.StatusOK, recs).Write(w)
}

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	in, err := ParseCreateRequest(w, r)
	if err != nil {
		s.writeCreateError(w, r, err)
		return
	}

	rec, err := s.store.Create(ctx, in)
	if err != nil {
		s.writeCreateError(w, r, err)
		return
	}
	DataResponse(http.StatusCreated, rec).Write(w)
}

func (s *Server) writeCreateError(w http.ResponseWriter, r *http.Request, err error) {
	var ve *core.ValidationError
	if errors.As(err, &ve) {
		applog.FromContext(r.Context()).InfoContext(r.Context(), "Rejected invalid expense",
			applog.FieldOperation, applog.OpValidate,
			applog.FieldErrorType, applog.ErrorTypeValidation,
			applog.FieldError, ve.Error())
		ValidationErrorResponse(ve).Write(w)
		return
	}
	s.events.LogError(r.Context(), "Failed to create expense", err, applog.OpCreate,
		applog.NewFields().WithErrorType(applog.ErrorTypeDatabase))
	InternalServerError(MsgCreateFailed).Write(w)
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, ok := ParseRecordID(r)
	if !ok {
		NotFoundError().Write(w)
		return
	}

	rec, err := s.store.Delete(ctx, id)
	switch {
	case errors.Is(err, ports.ErrNotFound):
		NotFoundError().Write(w)
	case err != nil:
		s.events.LogError(ctx, "Failed to delete expense", err, applog.OpDelete,
			applog.NewFields().WithErrorType(applog.ErrorTypeDatabase))
		InternalServerError(MsgDeleteFailed).Write(w)
	default:
		DataResponse(http.StatusOK, rec).Write(w)
	}
}
