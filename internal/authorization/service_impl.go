package authorization

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"strings"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	gormadapter "github.com/casbin/gorm-adapter/v3"
	auditdomain "github.com/smallbiznis/popstore/internal/audit/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

//go:embed model.conf
var modelText string

type Params struct {
	fx.In

	Log      *zap.Logger
	Enforcer *casbin.SyncedEnforcer
	AuditSvc auditdomain.Service `optional:"true"`
}

type ServiceImpl struct {
	log      *zap.Logger
	enforcer *casbin.SyncedEnforcer
	auditSvc auditdomain.Service
}

func NewEnforcer(db *gorm.DB) (*casbin.SyncedEnforcer, error) {
	adapter, err := gormadapter.NewAdapterByDB(db)
	if err != nil {
		return nil, err
	}
	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, err
	}
	enforcer, err := casbin.NewSyncedEnforcer(m, adapter)
	if err != nil {
		return nil, err
	}
	enforcer.EnableAutoSave(true)
	enforcer.EnableAutoBuildRoleLinks(true)
	if err := enforcer.LoadPolicy(); err != nil {
		return nil, err
	}
	if err := seedPolicies(enforcer); err != nil {
		return nil, err
	}
	if err := enforcer.BuildRoleLinks(); err != nil {
		return nil, err
	}
	return enforcer, nil
}

func NewService(p Params) Service {
	return &ServiceImpl{
		log:      p.Log.Named("authorization.service"),
		enforcer: p.Enforcer,
		auditSvc: p.AuditSvc,
	}
}

func (s *ServiceImpl) Authorize(ctx context.Context, principal Principal, object string, action string) error {
	allowed, err := s.Can(ctx, principal, object, action)
	if err != nil {
		if errors.Is(err, ErrUnknownRole) {
			s.auditDenied(ctx, principal, object, action)
			return ErrForbidden
		}
		return err
	}
	if !allowed {
		s.auditDenied(ctx, principal, object, action)
		return ErrForbidden
	}
	if shouldAuditGrant(action) {
		s.auditGranted(ctx, principal, object, action)
	}
	return nil
}

// Can evaluates the policy without writing an audit entry.
func (s *ServiceImpl) Can(ctx context.Context, principal Principal, object string, action string) (bool, error) {
	subject := strings.TrimSpace(principal.Subject)
	if subject == "" {
		return false, ErrUnauthorized
	}
	object = strings.TrimSpace(object)
	if object == "" {
		return false, ErrInvalidObject
	}
	action = strings.TrimSpace(action)
	if action == "" {
		return false, ErrInvalidAction
	}

	role, err := roleName(principal.Role)
	if err != nil {
		return false, err
	}
	actor := actorKey(principal)
	if err := s.ensureGrouping(actor, role); err != nil {
		return false, err
	}
	return s.enforcer.Enforce(actor, object, action)
}

func roleName(role string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(role)) {
	case RoleAdmin:
		return "role:admin", nil
	case RoleOwner:
		return "role:owner", nil
	case RoleSystem:
		return "role:system", nil
	default:
		return "", ErrUnknownRole
	}
}

func actorKey(p Principal) string {
	if strings.EqualFold(p.Role, RoleSystem) {
		return "system"
	}
	return "user:" + strings.TrimSpace(p.Subject)
}

// ensureGrouping keeps exactly one role link per actor so a role change in
// a newer token replaces the stored one.
func (s *ServiceImpl) ensureGrouping(actor string, role string) error {
	existing, err := s.enforcer.GetFilteredGroupingPolicy(0, actor)
	if err != nil {
		return err
	}
	for _, rule := range existing {
		if len(rule) < 2 || rule[1] == role {
			continue
		}
		params := make([]interface{}, 0, len(rule))
		for _, value := range rule {
			params = append(params, value)
		}
		if _, err := s.enforcer.RemoveGroupingPolicy(params...); err != nil {
			return err
		}
	}

	has, err := s.enforcer.HasGroupingPolicy(actor, role)
	if err != nil {
		return err
	}
	if has {
		return nil
	}
	_, err = s.enforcer.AddGroupingPolicy(actor, role)
	return err
}

func (s *ServiceImpl) auditDenied(ctx context.Context, p Principal, object string, action string) {
	s.audit(ctx, p, "authorization.denied", object, action)
}

func (s *ServiceImpl) auditGranted(ctx context.Context, p Principal, object string, action string) {
	s.audit(ctx, p, "authorization.granted", object, action)
}

func (s *ServiceImpl) audit(ctx context.Context, p Principal, event string, object string, action string) {
	if s.auditSvc == nil {
		return
	}
	actorType := actorTypeFor(p.Role)
	actorID := strings.TrimSpace(p.Subject)
	targetID := "capability"
	err := s.auditSvc.AuditLog(ctx, nil, actorType, &actorID, event, "authorization", &targetID, map[string]any{
		"object":  object,
		"action":  action,
		"role":    p.Role,
		"subject": fmt.Sprintf("%s:%s", actorType, actorID),
	})
	if err != nil {
		s.log.Warn("failed to write authorization audit log", zap.Error(err))
	}
}

func actorTypeFor(role string) string {
	switch strings.ToLower(strings.TrimSpace(role)) {
	case RoleAdmin:
		return string(auditdomain.ActorTypeAdmin)
	case RoleSystem:
		return string(auditdomain.ActorTypeSystem)
	default:
		return string(auditdomain.ActorTypeOwner)
	}
}

func shouldAuditGrant(action string) bool {
	switch action {
	case ActionPlanCreate, ActionOrderSettle:
		return true
	default:
		return false
	}
}

func seedPolicies(enforcer *casbin.SyncedEnforcer) error {
	policies := [][]string{
		// Store owners see their own numbers.
		{"role:owner", ObjectPlan, ActionPlanView},
		{"role:owner", ObjectCommission, ActionAnalyticsView},

		{"role:admin", ObjectPlan, ActionPlanView},
		{"role:admin", ObjectPlan, ActionPlanCreate},
		{"role:admin", ObjectCommission, ActionAnalyticsView},
		{"role:admin", ObjectCommission, ActionAnalyticsViewAll},
		{"role:admin", ObjectAuditLog, ActionAuditLogView},
		{"role:admin", ObjectOrder, ActionOrderSettle},

		// Operator tooling.
		{"role:system", ObjectPlan, ActionPlanCreate},
		{"role:system", ObjectOrder, ActionOrderSettle},
	}

	for _, policy := range policies {
		if _, err := enforcer.AddPolicy(policy); err != nil {
			return err
		}
	}
	return nil
}
