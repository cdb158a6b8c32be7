package rest

import (
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/finadmin/expense-authorization/internal/auth"
	"github.com/finadmin/expense-authorization/internal/authtree"
	"github.com/finadmin/expense-authorization/internal/expense"
	"github.com/finadmin/expense-authorization/internal/position"
	"github.com/finadmin/expense-authorization/internal/transport/middleware"
	"github.com/finadmin/expense-authorization/internal/transport/swagger"
	"github.com/go-chi/chi"
)

// RegisterAllRoutes wires the HTTP surface. Everything under /api/v1 except
// health requires a session; the write endpoints additionally carry the
// matching capability guard.
func RegisterAllRoutes(
	router *chi.Mux,
	db *sql.DB,
	authService *auth.Service,
	rbac *auth.RBACAuthorization,
	treeHandler *authtree.Handler,
	expenseHandler *expense.Handler,
	positionHandler *position.Handler,
	logger *slog.Logger,
) {
	healthHandler := NewHealthHandler(db)

	router.Use(middleware.CORS)
	router.Use(middleware.RequestID)
	router.Use(middleware.RecoveryMiddleware(logger))
	router.Use(middleware.LoggingMiddleware(logger))

	// OpenAPI spec and Swagger UI live outside the API prefix
	router.Get("/openapi.yml", func(w http.ResponseWriter, r *http.Request) {
		http.ServeFile(w, r, "./api/openapi.yml")
	})
	router.Handle("/swagger/*", swagger.Handler())

	router.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", healthHandler.healthCheckHandler)
		r.Get("/ping", healthHandler.pingHandler)

		r.Group(func(pr chi.Router) {
			pr.Use(middleware.Authenticate(authService))

			pr.Get("/positions", positionHandler.ListPositions)

			pr.Route("/authorization-trees", func(tr chi.Router) {
				tr.Get("/", treeHandler.ListTrees)
				tr.Get("/membership", treeHandler.Membership)
				tr.Get("/{positionID}/{kind}", treeHandler.GetTree)

				tr.Group(func(cr chi.Router) {
					cr.Use(rbac.RequireConfigureTrees())
					cr.Put("/{positionID}/{kind}", treeHandler.ReplaceLevels)
				})
			})

			pr.Route("/expenses", func(er chi.Router) {
				er.Get("/", expenseHandler.ListMine)
				er.Get("/inbox", expenseHandler.Inbox)
				er.Get("/{expenseID}", expenseHandler.GetExpense)
				er.Get("/{expenseID}/history", expenseHandler.GetHistory)

				er.Group(func(sr chi.Router) {
					sr.Use(rbac.RequireSubmitExpenses())
					sr.Post("/", expenseHandler.CreateExpense)
					sr.Post("/{expenseID}/submit", expenseHandler.Submit)
					sr.Post("/{expenseID}/resubmit", expenseHandler.Resubmit)
					sr.Post("/{expenseID}/cancel", expenseHandler.Cancel)
				})

				er.Group(func(dr chi.Router) {
					dr.Use(rbac.RequireDecideExpenses())
					dr.Post("/{expenseID}/approve", expenseHandler.Approve)
					dr.Post("/{expenseID}/reject", expenseHandler.Reject)
				})

				er.Group(func(mr chi.Router) {
					mr.Use(rbac.RequireManagePayments())
					mr.Post("/{expenseID}/queue-payment", expenseHandler.QueueForPayment)
					mr.Post("/{expenseID}/mark-paid", expenseHandler.MarkPaid)
					mr.Post("/{expenseID}/remainder", expenseHandler.RecordRemainder)
					mr.Post("/{expenseID}/confirm-refund", expenseHandler.ConfirmRefund)
				})
			})
		})
	})
}
