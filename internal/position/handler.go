package position

import (
	"log/slog"
	"net/http"

	"github.com/finadmin/expense-authorization/internal/auth"
	"github.com/finadmin/expense-authorization/internal/transport"
	"github.com/finadmin/expense-authorization/pkg/logger"
)

type ServiceAPI interface {
	ListPositions(companyID int64, authorizersOnly bool) ([]PositionResponse, error)
}

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
}

func NewHandler(service ServiceAPI) *Handler {
	lg := logger.LoggerWrapper()
	if lg == nil {
		lg = slog.Default()
	}
	return &Handler{
		BaseHandler: transport.NewBaseHandler(lg),
		Service:     service,
	}
}

func (h *Handler) ListPositions(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok || user == nil {
		h.Logger.Error("ListPositions: user not found in context")
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	authorizersOnly := r.URL.Query().Get("can_authorize") == "true"

	positions, err := h.Service.ListPositions(user.CompanyID, authorizersOnly)
	if err != nil {
		h.Logger.Error("ListPositions: service error", "error", err, "company_id", user.CompanyID)
		h.HandleServiceError(w, err)
		return
	}

	if positions == nil {
		positions = []PositionResponse{}
	}

	h.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"positions": positions,
	})
}
