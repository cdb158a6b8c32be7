package auth

import "context"

// PermissionChecker exposes the capabilities this service cares about as
// typed questions instead of claim-string lookups scattered through call
// sites. The engine and middleware depend on this interface, never on the
// underlying permission names.
type PermissionChecker interface {
	CanConfigureTrees(userPermissions []string) bool
	CanSubmitExpenses(userPermissions []string) bool
	CanDecideExpenses(userPermissions []string) bool
	CanManagePayments(userPermissions []string) bool
	HasAnyPermission(userPermissions []string, requiredPermissions []string) bool
	IsAdmin(userPermissions []string) bool
}

type DefaultPermissionChecker struct{}

func NewPermissionChecker() *DefaultPermissionChecker {
	return &DefaultPermissionChecker{}
}

func (c *DefaultPermissionChecker) CanConfigureTreesCtx(ctx context.Context, userPermissions []string) (bool, error) {
	return c.CanConfigureTrees(userPermissions), nil
}

func (c *DefaultPermissionChecker) CanSubmitExpensesCtx(ctx context.Context, userPermissions []string) (bool, error) {
	return c.CanSubmitExpenses(userPermissions), nil
}

func (c *DefaultPermissionChecker) CanDecideExpensesCtx(ctx context.Context, userPermissions []string) (bool, error) {
	return c.CanDecideExpenses(userPermissions), nil
}

func (c *DefaultPermissionChecker) CanManagePaymentsCtx(ctx context.Context, userPermissions []string) (bool, error) {
	return c.CanManagePayments(userPermissions), nil
}

func (c *DefaultPermissionChecker) IsAdminCtx(ctx context.Context, userPermissions []string) (bool, error) {
	return c.IsAdmin(userPermissions), nil
}

func (c *DefaultPermissionChecker) CanConfigureTrees(userPermissions []string) bool {
	return c.HasAnyPermission(userPermissions, []string{"configure_trees", "admin"})
}

func (c *DefaultPermissionChecker) CanSubmitExpenses(userPermissions []string) bool {
	return c.HasAnyPermission(userPermissions, []string{"submit_expenses", "admin"})
}

func (c *DefaultPermissionChecker) CanDecideExpenses(userPermissions []string) bool {
	return c.HasAnyPermission(userPermissions, []string{"decide_expenses", "admin"})
}

func (c *DefaultPermissionChecker) CanManagePayments(userPermissions []string) bool {
	return c.HasAnyPermission(userPermissions, []string{"manage_payments", "admin"})
}

func (c *DefaultPermissionChecker) HasAnyPermission(userPermissions []string, requiredPermissions []string) bool {
	for _, userPerm := range userPermissions {
		for _, requiredPerm := range requiredPermissions {
			if userPerm == requiredPerm {
				return true
			}
		}
	}
	return false
}

func (c *DefaultPermissionChecker) IsAdmin(userPermissions []string) bool {
	return c.HasAnyPermission(userPermissions, []string{"admin"})
}
