package permission

import (
	"fmt"
	"sync"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"

	"github.com/corates/billing/internal/shared/authorization"
	"github.com/corates/billing/internal/shared/logger"
)

const rbacModel = `
[request_definition]
r = sub, obj, act

[policy_definition]
p = sub, obj, act

[role_definition]
g = _, _

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = g(r.sub, p.sub) && keyMatch(r.obj, p.obj) && (r.act == p.act || p.act == "*")
`

// Resources guarded on the admin surface.
const (
	ResourceBilling       = "billing:view"
	ResourceSubscriptions = "billing:subscriptions"
	ResourceGrants        = "billing:grants"
	ResourceReconcile     = "billing:reconcile"
	ResourceLedger        = "billing:ledger"
	ResourcePlans         = "billing:plans"
)

const (
	ActionRead  = "read"
	ActionWrite = "write"
)

var _ authorization.PermissionChecker = (*Enforcer)(nil)

// Enforcer is an in-memory casbin RBAC enforcer. Policies are static and
// loaded at construction.
type Enforcer struct {
	enforcer *casbin.Enforcer
	mu       sync.RWMutex
	logger   logger.Interface
}

func NewEnforcer(log logger.Interface) (*Enforcer, error) {
	m, err := model.NewModelFromString(rbacModel)
	if err != nil {
		return nil, fmt.Errorf("failed to parse casbin model: %w", err)
	}

	enforcer, err := casbin.NewEnforcer(m)
	if err != nil {
		return nil, fmt.Errorf("failed to create casbin enforcer: %w", err)
	}

	e := &Enforcer{
		enforcer: enforcer,
		logger:   log,
	}
	if err := e.initBillingPolicies(); err != nil {
		return nil, err
	}
	return e, nil
}

// initBillingPolicies grants admins everything under billing.
func (e *Enforcer) initBillingPolicies() error {
	policies := [][]string{
		{authorization.RoleAdmin.String(), "billing:*", "*"},
	}

	for _, policy := range policies {
		if _, err := e.enforcer.AddPolicy(policy); err != nil {
			e.logger.Errorw("failed to add billing permission policy",
				"error", err,
				"role", policy[0],
				"resource", policy[1],
				"action", policy[2])
			return fmt.Errorf("failed to add policy [%s, %s, %s]: %w",
				policy[0], policy[1], policy[2], err)
		}
	}

	e.logger.Infow("billing permissions initialized", "policies", len(policies))
	return nil
}

func (e *Enforcer) Enforce(subject, resource, action string) (bool, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	allowed, err := e.enforcer.Enforce(subject, resource, action)
	if err != nil {
		e.logger.Errorw("permission check failed", "error", err, "subject", subject, "resource", resource, "action", action)
		return false, fmt.Errorf("permission check failed: %w", err)
	}

	return allowed, nil
}

// AddRoleInheritance makes role inherit every permission of parent.
func (e *Enforcer) AddRoleInheritance(role, parent string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, err := e.enforcer.AddGroupingPolicy(role, parent); err != nil {
		e.logger.Errorw("failed to add role inheritance", "error", err, "role", role, "parent", parent)
		return fmt.Errorf("failed to add role inheritance: %w", err)
	}
	return nil
}
