package auth

import (
	"context"
	"log/slog"
	"net/http"
)

type PermissionAuthorizer interface {
	CanConfigureTreesCtx(ctx context.Context, userPermissions []string) (bool, error)
	CanSubmitExpensesCtx(ctx context.Context, userPermissions []string) (bool, error)
	CanDecideExpensesCtx(ctx context.Context, userPermissions []string) (bool, error)
	CanManagePaymentsCtx(ctx context.Context, userPermissions []string) (bool, error)
	IsAdminCtx(ctx context.Context, userPermissions []string) (bool, error)
}

type RBACAuthorization struct {
	authorizer PermissionAuthorizer
	logger     *slog.Logger
}

func NewRBACAuthorization(authorizer PermissionAuthorizer, logger *slog.Logger) *RBACAuthorization {
	return &RBACAuthorization{
		authorizer: authorizer,
		logger:     logger,
	}
}

func (ra *RBACAuthorization) require(check func(ctx context.Context, perms []string) (bool, error), denial string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, ok := UserFromContext(r.Context())
			if !ok || user == nil {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			allowed, err := check(r.Context(), user.Permissions)
			if err != nil {
				ra.logger.ErrorContext(r.Context(), "authorization check failed", "error", err, "user_id", user.ID)
				http.Error(w, "Internal server error", http.StatusInternalServerError)
				return
			}

			if !allowed {
				ra.logger.WarnContext(r.Context(), denial,
					"user_id", user.ID,
					"user_permissions", user.Permissions)
				http.Error(w, "Forbidden: insufficient permissions", http.StatusForbidden)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func (ra *RBACAuthorization) RequireConfigureTrees() func(http.Handler) http.Handler {
	return ra.require(ra.authorizer.CanConfigureTreesCtx, "access denied: cannot configure authorization trees")
}

func (ra *RBACAuthorization) RequireSubmitExpenses() func(http.Handler) http.Handler {
	return ra.require(ra.authorizer.CanSubmitExpensesCtx, "access denied: cannot submit expenses")
}

func (ra *RBACAuthorization) RequireDecideExpenses() func(http.Handler) http.Handler {
	return ra.require(ra.authorizer.CanDecideExpensesCtx, "access denied: cannot decide expenses")
}

func (ra *RBACAuthorization) RequireManagePayments() func(http.Handler) http.Handler {
	return ra.require(ra.authorizer.CanManagePaymentsCtx, "access denied: cannot manage payments")
}

func (ra *RBACAuthorization) RequireAdmin() func(http.Handler) http.Handler {
	return ra.require(ra.authorizer.IsAdminCtx, "access denied: admin permissions required")
}
