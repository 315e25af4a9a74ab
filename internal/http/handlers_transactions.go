package http

import (
	"errors"
	"net/http"

	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/storage"
)

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	t, err := ParseCreateTransaction(r)
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}

	created, err := s.transactions.Create(r.Context(), t)
	if err != nil {
		if isValidationError(err) {
			BadRequestError(validationMessage(err).Error()).Write(w)
			return
		}
		s.transactionFailure(w, r, log.OpCreate, t.UserID, err)
		return
	}

	NewJSONResponse().Status(http.StatusCreated).Body(created).Write(w)
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := ParseTransactionID(r)
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}

	if _, err := s.transactions.Delete(r.Context(), id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			NotFoundError(MsgTransactionNotFound).Write(w)
			return
		}
		s.transactionFailure(w, r, log.OpDelete, "", err)
		return
	}

	OK(w, map[string]string{"message": "Transaction deleted successfully"})
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("userId")
	items, err := s.transactions.ListByUser(r.Context(), userID)
	if err != nil {
		s.transactionFailure(w, r, log.OpList, userID, err)
		return
	}
	OK(w, items)
}

func (s *Server) handleListFestival(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("userId")
	items, err := s.transactions.ListByFestival(r.Context(), userID, r.PathValue("festival"))
	if err != nil {
		s.transactionFailure(w, r, log.OpList, userID, err)
		return
	}
	OK(w, items)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("userId")
	summary, err := s.transactions.Summary(r.Context(), userID)
	if err != nil {
		s.transactionFailure(w, r, log.OpSummary, userID, err)
		return
	}
	OK(w, summary)
}

func (s *Server) handleFestivalSummary(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("userId")
	summary, err := s.transactions.FestivalSummary(r.Context(), userID, r.PathValue("festival"))
	if err != nil {
		s.transactionFailure(w, r, log.OpSummary, userID, err)
		return
	}
	OK(w, summary)
}

func (s *Server) transactionFailure(w http.ResponseWriter, r *http.Request, op, userID string, err error) {
	fields := log.NewFields().WithOperation(op).WithError(err)
	if userID != "" {
		fields[log.FieldUserID] = userID
	}
	s.requestLogger(r, log.ComponentTransaction).ErrorContext(r.Context(), "Transaction request failed", fields.ToSlice()...)
	InternalServerError().Write(w)
}

func isValidationError(err error) bool {
	return errors.Is(err, core.ErrEmptyUserID) ||
		errors.Is(err, core.ErrEmptyTitle) ||
		errors.Is(err, core.ErrEmptyCategory) ||
		errors.Is(err, core.ErrInvalidAmount) ||
		errors.Is(err, core.ErrInvalidDate)
}
