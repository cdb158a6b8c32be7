package middleware

import (
	"net/http"
	"strings"

	"github.com/finadmin/expense-authorization/internal/auth"
	"github.com/finadmin/expense-authorization/pkg/logger"
)

// Authenticate resolves the Bearer token into a typed caller and stores it in
// the request context. Requests without a valid session are rejected here so
// handlers never see an anonymous context.
func Authenticate(authService *auth.Service) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if !strings.HasPrefix(header, "Bearer ") {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			user, err := authService.ResolveUser(strings.TrimPrefix(header, "Bearer "))
			if err != nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			ctx := auth.ContextWithUser(r.Context(), user)
			ctx = logger.With(ctx, "userID", user.ID, "companyID", user.CompanyID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
