// Package billing holds the plan catalog and the pure access resolution over
// subscription and grant records.
package billing

import "sort"

// Unlimited is the quota sentinel that always passes.
const Unlimited = -1

// Well-known quota and entitlement keys.
const (
	QuotaProjectsMax          = "projects.max"
	QuotaCollaboratorsOrgMax  = "collaborators.org.max"
	EntitlementProjectCreate  = "project.create"
	EntitlementProjectExport  = "project.export"
	EntitlementOrgInvite      = "org.invite"
	EntitlementProjectArchive = "project.archive"
)

// Plan is one row of the catalog. Values returned from the catalog are copies.
type Plan struct {
	ID           string           `yaml:"id" json:"id"`
	Name         string           `yaml:"name" json:"name"`
	Quotas       map[string]int64 `yaml:"quotas" json:"quotas"`
	Entitlements map[string]bool  `yaml:"entitlements" json:"entitlements"`
}

// QuotaLimit returns the limit for key; unknown keys have limit 0.
func (p Plan) QuotaLimit(key string) int64 {
	return p.Quotas[key]
}

func (p Plan) HasEntitlement(key string) bool {
	return p.Entitlements[key]
}

// IsUnlimited reports whether key carries the Unlimited sentinel.
func (p Plan) IsUnlimited(key string) bool {
	return p.Quotas[key] == Unlimited
}

func (p Plan) clone() Plan {
	out := Plan{ID: p.ID, Name: p.Name}
	out.Quotas = make(map[string]int64, len(p.Quotas))
	for k, v := range p.Quotas {
		out.Quotas[k] = v
	}
	out.Entitlements = make(map[string]bool, len(p.Entitlements))
	for k, v := range p.Entitlements {
		out.Entitlements[k] = v
	}
	return out
}

// EntitlementKeys returns the granted entitlement keys, sorted.
func (p Plan) EntitlementKeys() []string {
	keys := make([]string, 0, len(p.Entitlements))
	for k, ok := range p.Entitlements {
		if ok {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}
