package authorization

import (
	"context"
	"errors"
)

const (
	RoleAdmin  = "admin"
	RoleOwner  = "owner"
	RoleSystem = "system"
)

const (
	ObjectPlan       = "plan"
	ObjectCommission = "commission"
	ObjectAuditLog   = "audit_log"
	ObjectOrder      = "order"
)

const (
	ActionPlanView   = "plan.view"
	ActionPlanCreate = "plan.create"

	// ActionAnalyticsView is limited to the caller's own stores.
	ActionAnalyticsView    = "commission.analytics.view"
	ActionAnalyticsViewAll = "commission.analytics.view_all"

	ActionAuditLogView = "audit_log.view"

	ActionOrderSettle = "order.settle"
)

var (
	ErrUnauthorized  = errors.New("unauthorized")
	ErrInvalidToken  = errors.New("invalid_token")
	ErrForbidden     = errors.New("forbidden")
	ErrInvalidActor  = errors.New("invalid_actor")
	ErrInvalidObject = errors.New("invalid_object")
	ErrInvalidAction = errors.New("invalid_action")
	ErrNotConfigured = errors.New("auth_not_configured")
	ErrUnknownRole   = errors.New("unknown_role")
)

// Principal is the authenticated caller.
type Principal struct {
	Subject string
	Role    string
}

func (p Principal) IsZero() bool { return p.Subject == "" }

type Service interface {
	Authorize(ctx context.Context, principal Principal, object string, action string) error
	Can(ctx context.Context, principal Principal, object string, action string) (bool, error)
}

type principalKey struct{}

func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	if ctx == nil {
		return Principal{}, false
	}
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok && !p.IsZero()
}
