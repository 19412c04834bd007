package grant

import (
	"fmt"
	"strings"
	"time"

	"github.com/corates/billing/internal/shared/biztime"
	"github.com/corates/billing/internal/shared/id"
)

// Type identifies what kind of manual access window a grant is.
type Type string

const (
	TypeTrial         Type = "trial"
	TypeSingleProject Type = "single_project"
)

func (t Type) IsValid() bool {
	return t == TypeTrial || t == TypeSingleProject
}

// State is the explicit lifecycle of a grant. Grants are revoked, never removed.
type State string

const (
	StateActive  State = "active"
	StateRevoked State = "revoked"
)

const (
	TrialDuration       = 14 * 24 * time.Hour
	SingleProjectMonths = 6
)

// Grant is an administrator-issued, time-bounded access window.
type Grant struct {
	id        string
	orgID     string
	grantType Type
	state     State
	startsAt  time.Time
	expiresAt time.Time
	createdAt time.Time
	updatedAt time.Time
	revokedAt *time.Time
	metadata  map[string]interface{}
}

// NewGrant builds an active grant covering [startsAt, expiresAt).
func NewGrant(orgID string, grantType Type, startsAt, expiresAt time.Time, metadata map[string]interface{}, now time.Time) (*Grant, error) {
	orgID = strings.TrimSpace(orgID)
	if orgID == "" {
		return nil, ErrOrgRequired
	}
	if !grantType.IsValid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidType, grantType)
	}
	if !expiresAt.After(startsAt) {
		return nil, ErrInvalidWindow
	}
	if metadata == nil {
		metadata = make(map[string]interface{})
	}

	now = now.UTC()
	return &Grant{
		id:        id.NewGrantID(),
		orgID:     orgID,
		grantType: grantType,
		state:     StateActive,
		startsAt:  startsAt.UTC(),
		expiresAt: expiresAt.UTC(),
		createdAt: now,
		updatedAt: now,
		metadata:  metadata,
	}, nil
}

// NewTrialGrant starts a trial at now.
func NewTrialGrant(orgID string, metadata map[string]interface{}, now time.Time) (*Grant, error) {
	return NewGrant(orgID, TypeTrial, now, now.Add(TrialDuration), metadata, now)
}

// NewSingleProjectGrant starts a single-project window at now.
func NewSingleProjectGrant(orgID string, metadata map[string]interface{}, now time.Time) (*Grant, error) {
	return NewGrant(orgID, TypeSingleProject, now, now.AddDate(0, SingleProjectMonths, 0), metadata, now)
}

// Snapshot is the full persisted state of a grant.
type Snapshot struct {
	ID        string
	OrgID     string
	Type      Type
	State     State
	StartsAt  time.Time
	ExpiresAt time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
	RevokedAt *time.Time
	Metadata  map[string]interface{}
}

// ReconstructGrant rebuilds a grant from persistence.
func ReconstructGrant(s Snapshot) (*Grant, error) {
	if s.ID == "" {
		return nil, fmt.Errorf("grant ID cannot be empty")
	}
	if !s.Type.IsValid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidType, s.Type)
	}
	state := s.State
	if state == "" {
		state = StateActive
	}
	// A stamped revokedAt always wins over a stale state column.
	if s.RevokedAt != nil {
		state = StateRevoked
	}
	if s.Metadata == nil {
		s.Metadata = make(map[string]interface{})
	}
	return &Grant{
		id:        s.ID,
		orgID:     s.OrgID,
		grantType: s.Type,
		state:     state,
		startsAt:  s.StartsAt,
		expiresAt: s.ExpiresAt,
		createdAt: s.CreatedAt,
		updatedAt: s.UpdatedAt,
		revokedAt: s.RevokedAt,
		metadata:  s.Metadata,
	}, nil
}

func (g *Grant) ID() string { return g.id }
func (g *Grant) OrgID() string { return g.orgID }
func (g *Grant) Type() Type { return g.grantType }
func (g *Grant) State() State { return g.state }
func (g *Grant) StartsAt() time.Time { return g.startsAt }
func (g *Grant) ExpiresAt() time.Time { return g.expiresAt }
func (g *Grant) CreatedAt() time.Time { return g.createdAt }
func (g *Grant) UpdatedAt() time.Time { return g.updatedAt }
func (g *Grant) RevokedAt() *time.Time { return g.revokedAt }
func (g *Grant) Metadata() map[string]interface{} { return g.metadata }

func (g *Grant) IsRevoked() bool {
	return g.state == StateRevoked
}

// TrialKey is the value of the unique trial_key column: the org id for trial
// grants, nil otherwise. It stays set after revocation so a trial can never
// be issued twice.
func (g *Grant) TrialKey() *string {
	if g.grantType != TypeTrial {
		return nil
	}
	k := g.orgID
	return &k
}

// SingleProjectKey is the value of the unique single_project_key column: the
// org id while a single_project grant is unrevoked, nil otherwise. Revoking
// the grant frees the key for a new one.
func (g *Grant) SingleProjectKey() *string {
	if g.grantType != TypeSingleProject || g.IsRevoked() {
		return nil
	}
	k := g.orgID
	return &k
}

// CoversAt reports whether the grant is unrevoked and now lies in [startsAt, expiresAt).
func (g *Grant) CoversAt(now time.Time) bool {
	if g.IsRevoked() {
		return false
	}
	return !now.Before(g.startsAt) && now.Before(g.expiresAt)
}

// Extend pushes expiresAt to max(now, expiresAt) plus the single-project term.
// The result is never earlier than the current expiry.
func (g *Grant) Extend(now time.Time) error {
	if g.grantType != TypeSingleProject {
		return ErrNotExtendable
	}
	if g.IsRevoked() {
		return ErrGrantRevoked
	}
	now = now.UTC()
	g.expiresAt = biztime.LaterOf(now, g.expiresAt).AddDate(0, SingleProjectMonths, 0)
	g.updatedAt = now
	return nil
}

// Revoke soft-deletes the grant.
func (g *Grant) Revoke(now time.Time) error {
	if g.IsRevoked() {
		return ErrGrantRevoked
	}
	now = now.UTC()
	g.state = StateRevoked
	g.revokedAt = &now
	g.updatedAt = now
	return nil
}

// UpdateParams is an admin edit; nil fields are unchanged.
type UpdateParams struct {
	StartsAt  *time.Time
	ExpiresAt *time.Time
	Metadata  map[string]interface{}
}

// Update edits the window or metadata of an unrevoked grant.
func (g *Grant) Update(p UpdateParams, now time.Time) error {
	if g.IsRevoked() {
		return ErrGrantRevoked
	}
	starts, expires := g.startsAt, g.expiresAt
	if p.StartsAt != nil {
		starts = p.StartsAt.UTC()
	}
	if p.ExpiresAt != nil {
		expires = p.ExpiresAt.UTC()
	}
	if !expires.After(starts) {
		return ErrInvalidWindow
	}
	g.startsAt = starts
	g.expiresAt = expires
	if p.Metadata != nil {
		g.metadata = p.Metadata
	}
	g.updatedAt = now.UTC()
	return nil
}
