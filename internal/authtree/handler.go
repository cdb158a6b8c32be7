package authtree

import (
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
	GetTree(companyID, positionID int64, kind Kind) (*Tree, error)
	GetOrCreate(companyID, positionID int64, kind Kind) (*Tree, error)
	ReplaceLevels(companyID, positionID int64, kind Kind, dto ReplaceLevelsDTO) (*Tree, error)
	ListTrees(companyID int64) ([]*Tree, error)
	IsAuthorizerForAnyTree(personID string, companyID int64) (bool, error)
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

// GetTree returns the tree for a position and kind, creating an empty one on
// first access so the editor always has something to render.
func (h *Handler) GetTree(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok || user == nil {
		h.Logger.Error("GetTree: user not found in context")
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	positionID, kind, ok := h.treeIdentityFromURL(w, r)
	if !ok {
		return
	}

	tree, err := h.Service.GetOrCreate(user.CompanyID, positionID, kind)
	if err != nil {
		h.Logger.Error("GetTree: service error",
			"error", err,
			"position_id", positionID,
			"kind", kind)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, tree.ToResponse())
}

// ReplaceLevels swaps the whole level set of a tree in one atomic edit.
func (h *Handler) ReplaceLevels(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok || user == nil {
		h.Logger.Error("ReplaceLevels: user not found in context")
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	positionID, kind, ok := h.treeIdentityFromURL(w, r)
	if !ok {
		return
	}

	var dto ReplaceLevelsDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.Logger.Error("ReplaceLevels: invalid request body", "error", err)
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	tree, err := h.Service.ReplaceLevels(user.CompanyID, positionID, kind, dto)
	if err != nil {
		h.Logger.Error("ReplaceLevels: service error",
			"error", err,
			"position_id", positionID,
			"kind", kind)
		h.HandleServiceError(w, err)
		return
	}

	h.Logger.Info("ReplaceLevels: tree updated",
		"tree_id", tree.ID,
		"position_id", positionID,
		"kind", kind,
		"level_count", len(tree.Levels))

	h.WriteJSON(w, http.StatusOK, tree.ToResponse())
}

// ListTrees returns every configured tree for the caller's company.
func (h *Handler) ListTrees(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok || user == nil {
		h.Logger.Error("ListTrees: user not found in context")
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	trees, err := h.Service.ListTrees(user.CompanyID)
	if err != nil {
		h.Logger.Error("ListTrees: service error", "error", err, "company_id", user.CompanyID)
		h.HandleServiceError(w, err)
		return
	}

	responses := make([]TreeResponse, len(trees))
	for i, tree := range trees {
		responses[i] = tree.ToResponse()
	}

	h.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"trees": responses,
	})
}

// Membership reports whether the caller sits on any tree of their company,
// used by the front-end to decide whether to show the authorization inbox.
func (h *Handler) Membership(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok || user == nil {
		h.Logger.Error("Membership: user not found in context")
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	isAuthorizer, err := h.Service.IsAuthorizerForAnyTree(user.PersonID, user.CompanyID)
	if err != nil {
		h.Logger.Error("Membership: service error", "error", err, "person_id", user.PersonID)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, map[string]bool{
		"is_authorizer": isAuthorizer,
	})
}

func (h *Handler) treeIdentityFromURL(w http.ResponseWriter, r *http.Request) (int64, Kind, bool) {
	positionID, err := strconv.ParseInt(chi.URLParam(r, "positionID"), 10, 64)
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid position id")
		return 0, "", false
	}

	kind, ok := ParseKind(chi.URLParam(r, "kind"))
	if !ok {
		h.WriteError(w, http.StatusBadRequest, "invalid expense kind")
		return 0, "", false
	}

	return positionID, kind, true
}
