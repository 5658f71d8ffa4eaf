package cache

import (
	"time"

	plandomain "github.com/smallbiznis/popstore/internal/plan/domain"
)

const (
	defaultPlanTTL     = 10 * time.Minute
	defaultPlanListTTL = time.Minute
)

// PlanCache stores plan lookups. Plans are immutable so entries never go stale,
// the list TTL only bounds how long a newly created plan stays invisible.
type PlanCache interface {
	GetPlan(id string) (plandomain.Plan, bool)
	SetPlan(plan plandomain.Plan)
	GetList(activeOnly bool) ([]plandomain.Plan, bool)
	SetList(activeOnly bool, plans []plandomain.Plan)
	InvalidateLists()
}

type planCache struct {
	plans   Cache[string, plandomain.Plan]
	lists   Cache[string, []plandomain.Plan]
	planTTL time.Duration
	listTTL time.Duration
}

func NewPlanCache() PlanCache {
	return &planCache{
		plans:   NewTTLCache[string, plandomain.Plan](),
		lists:   NewTTLCache[string, []plandomain.Plan](),
		planTTL: defaultPlanTTL,
		listTTL: defaultPlanListTTL,
	}
}

func (c *planCache) GetPlan(id string) (plandomain.Plan, bool) {
	return c.plans.Get(cacheKey("plan", id))
}

func (c *planCache) SetPlan(plan plandomain.Plan) {
	if plan.ID == 0 {
		return
	}
	c.plans.Set(cacheKey("plan", plan.ID.String()), plan, c.planTTL)
}

func (c *planCache) GetList(activeOnly bool) ([]plandomain.Plan, bool) {
	return c.lists.Get(listKey(activeOnly))
}

func (c *planCache) SetList(activeOnly bool, plans []plandomain.Plan) {
	c.lists.Set(listKey(activeOnly), plans, c.listTTL)
}

func (c *planCache) InvalidateLists() {
	c.lists.Purge()
}

func listKey(activeOnly bool) string {
	if activeOnly {
		return cacheKey("plans", "active")
	}
	return cacheKey("plans", "all")
}
