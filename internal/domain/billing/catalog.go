package billing

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/corates/billing/internal/domain/grant"
)

//go:embed default_catalog.yaml
var defaultCatalogYAML []byte

var (
	ErrUnknownPlan    = errors.New("unknown plan")
	ErrInvalidCatalog = errors.New("invalid plan catalog")
)

// CatalogSpec is the serialized form of a catalog.
type CatalogSpec struct {
	Version     string            `yaml:"version"`
	DefaultPlan string            `yaml:"default_plan"`
	GrantPlans  map[string]string `yaml:"grant_plans"`
	Plans       []Plan            `yaml:"plans"`
}

// Catalog is the immutable, versioned plan table. It has no setters; a new
// version means a new Catalog.
type Catalog struct {
	version     string
	defaultPlan string
	grantPlans  map[grant.Type]string
	plans       map[string]Plan
}

// NewCatalog validates spec and copies it into a Catalog.
func NewCatalog(spec CatalogSpec) (*Catalog, error) {
	if strings.TrimSpace(spec.Version) == "" {
		return nil, fmt.Errorf("%w: version is required", ErrInvalidCatalog)
	}
	c := &Catalog{
		version:     spec.Version,
		defaultPlan: spec.DefaultPlan,
		grantPlans:  make(map[grant.Type]string, len(spec.GrantPlans)),
		plans:       make(map[string]Plan, len(spec.Plans)),
	}
	for _, p := range spec.Plans {
		if p.ID == "" {
			return nil, fmt.Errorf("%w: plan without id", ErrInvalidCatalog)
		}
		if _, dup := c.plans[p.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate plan %q", ErrInvalidCatalog, p.ID)
		}
		for key, limit := range p.Quotas {
			if limit < Unlimited {
				return nil, fmt.Errorf("%w: plan %q quota %q is %d", ErrInvalidCatalog, p.ID, key, limit)
			}
		}
		c.plans[p.ID] = p.clone()
	}
	if _, ok := c.plans[c.defaultPlan]; !ok {
		return nil, fmt.Errorf("%w: default plan %q not defined", ErrInvalidCatalog, c.defaultPlan)
	}
	for rawType, planID := range spec.GrantPlans {
		t := grant.Type(rawType)
		if !t.IsValid() {
			return nil, fmt.Errorf("%w: unknown grant type %q", ErrInvalidCatalog, rawType)
		}
		if _, ok := c.plans[planID]; !ok {
			return nil, fmt.Errorf("%w: grant plan %q not defined", ErrInvalidCatalog, planID)
		}
		c.grantPlans[t] = planID
	}
	return c, nil
}

// ParseCatalog decodes a YAML catalog.
func ParseCatalog(data []byte) (*Catalog, error) {
	var spec CatalogSpec
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCatalog, err)
	}
	return NewCatalog(spec)
}

// LoadCatalog reads the catalog at path, or the built-in one when path is empty.
func LoadCatalog(path string) (*Catalog, error) {
	if path == "" {
		return DefaultCatalog()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog %s: %w", path, err)
	}
	return ParseCatalog(data)
}

// DefaultCatalog returns the built-in catalog.
func DefaultCatalog() (*Catalog, error) {
	return ParseCatalog(defaultCatalogYAML)
}

func (c *Catalog) Version() string { return c.version }

// Plan returns a copy of the plan with id.
func (c *Catalog) Plan(id string) (Plan, bool) {
	p, ok := c.plans[id]
	if !ok {
		return Plan{}, false
	}
	return p.clone(), true
}

// DefaultPlan is the zero-access plan used when nothing else applies.
func (c *Catalog) DefaultPlan() Plan {
	return c.plans[c.defaultPlan].clone()
}

// PlanForGrant maps a grant type to its plan.
func (c *Catalog) PlanForGrant(t grant.Type) (Plan, bool) {
	id, ok := c.grantPlans[t]
	if !ok {
		return Plan{}, false
	}
	return c.Plan(id)
}

// HasPlan reports whether id is a catalog plan.
func (c *Catalog) HasPlan(id string) bool {
	_, ok := c.plans[id]
	return ok
}

// Plans lists copies of all plans ordered by id.
func (c *Catalog) Plans() []Plan {
	out := make([]Plan, 0, len(c.plans))
	for _, p := range c.plans {
		out = append(out, p.clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
