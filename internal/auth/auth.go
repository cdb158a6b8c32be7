package auth

import (
	"context"
)

type ctxKey string

const ContextUserKey ctxKey = "user"

// User is the typed caller resolved from the session token: who is acting and
// under which company context. PersonID is the identity the authorization
// trees reference; Permissions are coarse capabilities granted by the
// identity service.
type User struct {
	ID          string   `json:"id"`
	PersonID    string   `json:"person_id"`
	Name        string   `json:"name"`
	CompanyID   int64    `json:"company_id"`
	Permissions []string `json:"permissions"`
}

func UserFromContext(ctx context.Context) (*User, bool) {
	u, ok := ctx.Value(ContextUserKey).(*User)
	return u, ok
}

func ContextWithUser(ctx context.Context, u *User) context.Context {
	return context.WithValue(ctx, ContextUserKey, u)
}
