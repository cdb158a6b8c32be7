package expense

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/finadmin/expense-authorization/internal/auth"
	"github.com/finadmin/expense-authorization/internal/transport"
	"github.com/finadmin/expense-authorization/pkg/logger"
	"github.com/go-chi/chi"
)

type ServiceAPI interface {
	CreateExpense(dto CreateExpenseDTO, caller *auth.User) (*Expense, error)
	Submit(ctx context.Context, expenseID int64, caller *auth.User) (*Expense, error)
	Approve(ctx context.Context, expenseID int64, caller *auth.User, observedLevel int) (*Expense, error)
	Reject(ctx context.Context, expenseID int64, caller *auth.User, observedLevel int, reason string) (*Expense, error)
	Resubmit(ctx context.Context, expenseID int64, caller *auth.User) (*Expense, error)
	Cancel(ctx context.Context, expenseID int64, caller *auth.User) (*Expense, error)
	QueueForPayment(ctx context.Context, expenseID int64, caller *auth.User) (*Expense, error)
	MarkPaid(ctx context.Context, expenseID int64, caller *auth.User) (*Expense, error)
	RecordRemainder(ctx context.Context, expenseID int64, caller *auth.User, dto RemainderDTO) (*Expense, error)
	ConfirmRefund(ctx context.Context, expenseID int64, caller *auth.User) (*Expense, error)
	GetExpense(expenseID int64, caller *auth.User, checker auth.PermissionChecker) (*Expense, error)
	GetHistory(expenseID int64, caller *auth.User, checker auth.PermissionChecker) (*HistoryResponse, error)
	ListForSubmitter(caller *auth.User, limit, offset int) ([]*Expense, error)
	ListPendingForAuthorizer(caller *auth.User, limit, offset int) ([]*Expense, error)
}

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
	Checker auth.PermissionChecker
}

func NewHandler(service ServiceAPI, checker auth.PermissionChecker) *Handler {
	lg := logger.LoggerWrapper()
	if lg == nil {
		lg = slog.Default()
	}
	return &Handler{
		BaseHandler: transport.NewBaseHandler(lg),
		Service:     service,
		Checker:     checker,
	}
}

func (h *Handler) CreateExpense(w http.ResponseWriter, r *http.Request) {
	user, ok := h.caller(w, r, "CreateExpense")
	if !ok {
		return
	}

	var dto CreateExpenseDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.Logger.Error("CreateExpense: invalid request body", "error", err)
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	exp, err := h.Service.CreateExpense(dto, user)
	if err != nil {
		h.Logger.Error("CreateExpense: service error", "error", err, "person_id", user.PersonID)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusCreated, exp)
}

func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	h.simpleTransition(w, r, "Submit", h.Service.Submit)
}

func (h *Handler) Approve(w http.ResponseWriter, r *http.Request) {
	user, ok := h.caller(w, r, "Approve")
	if !ok {
		return
	}
	expenseID, ok := h.expenseIDFromURL(w, r)
	if !ok {
		return
	}

	var dto DecisionDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.Logger.Error("Approve: invalid request body", "error", err)
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	exp, err := h.Service.Approve(r.Context(), expenseID, user, dto.ObservedLevel)
	if err != nil {
		h.Logger.Error("Approve: service error",
			"error", err,
			"expense_id", expenseID,
			"person_id", user.PersonID,
			"observed_level", dto.ObservedLevel)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, exp)
}

func (h *Handler) Reject(w http.ResponseWriter, r *http.Request) {
	user, ok := h.caller(w, r, "Reject")
	if !ok {
		return
	}
	expenseID, ok := h.expenseIDFromURL(w, r)
	if !ok {
		return
	}

	var dto RejectDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.Logger.Error("Reject: invalid request body", "error", err)
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	exp, err := h.Service.Reject(r.Context(), expenseID, user, dto.ObservedLevel, dto.Reason)
	if err != nil {
		h.Logger.Error("Reject: service error",
			"error", err,
			"expense_id", expenseID,
			"person_id", user.PersonID,
			"observed_level", dto.ObservedLevel)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, exp)
}

func (h *Handler) Resubmit(w http.ResponseWriter, r *http.Request) {
	h.simpleTransition(w, r, "Resubmit", h.Service.Resubmit)
}

func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	h.simpleTransition(w, r, "Cancel", h.Service.Cancel)
}

func (h *Handler) QueueForPayment(w http.ResponseWriter, r *http.Request) {
	h.simpleTransition(w, r, "QueueForPayment", h.Service.QueueForPayment)
}

func (h *Handler) MarkPaid(w http.ResponseWriter, r *http.Request) {
	h.simpleTransition(w, r, "MarkPaid", h.Service.MarkPaid)
}

func (h *Handler) RecordRemainder(w http.ResponseWriter, r *http.Request) {
	user, ok := h.caller(w, r, "RecordRemainder")
	if !ok {
		return
	}
	expenseID, ok := h.expenseIDFromURL(w, r)
	if !ok {
		return
	}

	var dto RemainderDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.Logger.Error("RecordRemainder: invalid request body", "error", err)
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	exp, err := h.Service.RecordRemainder(r.Context(), expenseID, user, dto)
	if err != nil {
		h.Logger.Error("RecordRemainder: service error", "error", err, "expense_id", expenseID)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, exp)
}

func (h *Handler) ConfirmRefund(w http.ResponseWriter, r *http.Request) {
	h.simpleTransition(w, r, "ConfirmRefund", h.Service.ConfirmRefund)
}

func (h *Handler) GetExpense(w http.ResponseWriter, r *http.Request) {
	user, ok := h.caller(w, r, "GetExpense")
	if !ok {
		return
	}
	expenseID, ok := h.expenseIDFromURL(w, r)
	if !ok {
		return
	}

	exp, err := h.Service.GetExpense(expenseID, user, h.Checker)
	if err != nil {
		h.Logger.Error("GetExpense: service error", "error", err, "expense_id", expenseID)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, exp)
}

func (h *Handler) GetHistory(w http.ResponseWriter, r *http.Request) {
	user, ok := h.caller(w, r, "GetHistory")
	if !ok {
		return
	}
	expenseID, ok := h.expenseIDFromURL(w, r)
	if !ok {
		return
	}

	history, err := h.Service.GetHistory(expenseID, user, h.Checker)
	if err != nil {
		h.Logger.Error("GetHistory: service error", "error", err, "expense_id", expenseID)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, history)
}

func (h *Handler) ListMine(w http.ResponseWriter, r *http.Request) {
	user, ok := h.caller(w, r, "ListMine")
	if !ok {
		return
	}

	limit, offset := h.pagination(r)
	expenses, err := h.Service.ListForSubmitter(user, limit, offset)
	if err != nil {
		h.Logger.Error("ListMine: service error", "error", err, "person_id", user.PersonID)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"expenses": expenses,
		"limit":    limit,
		"offset":   offset,
	})
}

// Inbox lists expenses waiting on the caller right now.
func (h *Handler) Inbox(w http.ResponseWriter, r *http.Request) {
	user, ok := h.caller(w, r, "Inbox")
	if !ok {
		return
	}

	limit, offset := h.pagination(r)
	expenses, err := h.Service.ListPendingForAuthorizer(user, limit, offset)
	if err != nil {
		h.Logger.Error("Inbox: service error", "error", err, "person_id", user.PersonID)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"expenses": expenses,
		"limit":    limit,
		"offset":   offset,
	})
}

func (h *Handler) simpleTransition(w http.ResponseWriter, r *http.Request, op string, fn func(ctx context.Context, expenseID int64, caller *auth.User) (*Expense, error)) {
	user, ok := h.caller(w, r, op)
	if !ok {
		return
	}
	expenseID, ok := h.expenseIDFromURL(w, r)
	if !ok {
		return
	}

	exp, err := fn(r.Context(), expenseID, user)
	if err != nil {
		h.Logger.Error(op+": service error", "error", err, "expense_id", expenseID, "person_id", user.PersonID)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, exp)
}

func (h *Handler) caller(w http.ResponseWriter, r *http.Request, op string) (*auth.User, bool) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok || user == nil {
		h.Logger.Error(op + ": user not found in context")
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return nil, false
	}
	return user, true
}

func (h *Handler) expenseIDFromURL(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "expenseID"), 10, 64)
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid expense id")
		return 0, false
	}
	return id, true
}

func (h *Handler) pagination(r *http.Request) (int, int) {
	limit := 20
	offset := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 && parsed <= 100 {
			limit = parsed
		}
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed >= 0 {
			offset = parsed
		}
	}
	return limit, offset
}
