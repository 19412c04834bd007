package usecases

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corates/billing/internal/application/billing/testutil"
	"github.com/corates/billing/internal/domain/grant"
	"github.com/corates/billing/internal/shared/errors"
)

func TestGrantTrial_OncePerOrgEver(t *testing.T) {
	tests := []struct {
		name  string
		after func(t *testing.T, f *fixture, first string)
	}{
		{name: "while active", after: func(*testing.T, *fixture, string) {}},
		{
			name: "after expiry",
			after: func(_ *testing.T, f *fixture, _ string) {
				f.clock.now = testNow.Add(grant.TrialDuration + 24*time.Hour)
			},
		},
		{
			name: "after revoke",
			after: func(t *testing.T, f *fixture, first string) {
				revoke := NewRevokeGrantUseCase(f.grants, f.notifier, f.clock, f.logger)
				_, err := revoke.Execute(context.Background(), RevokeGrantCommand{OrgID: "org_1", GrantID: first})
				require.NoError(t, err)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			uc := NewGrantTrialUseCase(f.grants, f.notifier, f.clock, f.logger)

			first, err := uc.Execute(context.Background(), GrantTrialCommand{OrgID: "org_1"})
			require.NoError(t, err)
			assert.Equal(t, testNow.Add(grant.TrialDuration), first.ExpiresAt)

			tt.after(t, f, first.ID)

			_, err = uc.Execute(context.Background(), GrantTrialCommand{OrgID: "org_1"})
			require.Error(t, err)
			assert.True(t, errors.IsConflictError(err))
			assert.Equal(t, 409, errors.GetAppError(err).Code)
			assert.Equal(t, 1, f.grants.Count("org_1"))

			_, err = uc.Execute(context.Background(), GrantTrialCommand{OrgID: "org_2"})
			assert.NoError(t, err)
		})
	}
}

func TestGrantSingleProject_ExtensionIsMonotonic(t *testing.T) {
	tests := []struct {
		name       string
		existing   *time.Time
		revoked    bool
		wantExpiry time.Time
		extended   bool
	}{
		{
			name:       "no grant creates six months from now",
			wantExpiry: testNow.AddDate(0, 6, 0),
		},
		{
			name:       "live grant extends from its expiry",
			existing:   timePtr(testNow.AddDate(0, 2, 0)),
			wantExpiry: testNow.AddDate(0, 2, 0).AddDate(0, 6, 0),
			extended:   true,
		},
		{
			name:       "lapsed grant extends from now",
			existing:   timePtr(testNow.Add(-72 * time.Hour)),
			wantExpiry: testNow.AddDate(0, 6, 0),
			extended:   true,
		},
		{
			name:       "revoked grant is not reused",
			existing:   timePtr(testNow.AddDate(0, 2, 0)),
			revoked:    true,
			wantExpiry: testNow.AddDate(0, 6, 0),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			var existing *grant.Grant
			if tt.existing != nil {
				existing = seedGrant(t, f, "org_1", grant.TypeSingleProject, tt.existing.AddDate(0, -6, 0), *tt.existing)
				if tt.revoked {
					require.NoError(t, existing.Revoke(testNow.Add(-time.Hour)))
					require.NoError(t, f.grants.Update(context.Background(), existing))
				}
			}
			uc := NewGrantSingleProjectUseCase(f.grants, f.tx, f.notifier, f.clock, f.logger)

			res, err := uc.Execute(context.Background(), GrantSingleProjectCommand{OrgID: "org_1"})
			require.NoError(t, err)
			assert.Equal(t, tt.extended, res.Extended)
			assert.Equal(t, tt.wantExpiry, res.Grant.ExpiresAt)
			if tt.extended {
				assert.Equal(t, existing.ID(), res.Grant.ID)
				assert.False(t, res.Grant.ExpiresAt.Before(*tt.existing))
			}
			assert.Equal(t, 1, f.tx.Calls)

			active, err := f.grants.FindActiveByType(context.Background(), "org_1", grant.TypeSingleProject)
			require.NoError(t, err)
			assert.Equal(t, res.Grant.ID, active.ID())
		})
	}
}

// racingGrantRepo commits a rival single_project grant between the first
// lookup and the insert, the way a concurrent request would.
type racingGrantRepo struct {
	*testutil.MockGrantRepository
	t     *testing.T
	rival *grant.Grant
}

func (r *racingGrantRepo) FindActiveByType(ctx context.Context, orgID string, typ grant.Type) (*grant.Grant, error) {
	if r.rival == nil {
		g, err := grant.NewSingleProjectGrant(orgID, nil, testNow)
		require.NoError(r.t, err)
		require.NoError(r.t, r.MockGrantRepository.Create(ctx, g))
		r.rival = g
		return nil, grant.ErrGrantNotFound
	}
	return r.MockGrantRepository.FindActiveByType(ctx, orgID, typ)
}

func TestGrantSingleProject_LostInsertExtendsWinner(t *testing.T) {
	f := newFixture(t)
	repo := &racingGrantRepo{MockGrantRepository: f.grants, t: t}
	uc := NewGrantSingleProjectUseCase(repo, f.tx, f.notifier, f.clock, f.logger)

	res, err := uc.Execute(context.Background(), GrantSingleProjectCommand{OrgID: "org_1"})
	require.NoError(t, err)
	require.NotNil(t, repo.rival)
	assert.True(t, res.Extended)
	assert.Equal(t, repo.rival.ID(), res.Grant.ID)
	assert.Equal(t, testNow.AddDate(0, 2*grant.SingleProjectMonths, 0), res.Grant.ExpiresAt)
	assert.Equal(t, 2, f.tx.Calls)
	assert.Equal(t, 1, f.grants.Count("org_1"))
}

func TestGrantSingleProject_HeldKeyIsConflict(t *testing.T) {
	f := newFixture(t)
	seedGrant(t, f, "org_1", grant.TypeSingleProject, testNow, testNow.AddDate(0, grant.SingleProjectMonths, 0))

	g, err := grant.NewSingleProjectGrant("org_1", nil, testNow)
	require.NoError(t, err)
	err = f.grants.Create(context.Background(), g)
	require.ErrorIs(t, err, grant.ErrSingleProjectHeld)

	appErr := toAppError(err, "grant.create")
	assert.True(t, errors.IsConflictError(appErr))
	assert.Equal(t, 1, f.grants.Count("org_1"))
}

func timePtr(t time.Time) *time.Time { return &t }

func TestCreateGrant(t *testing.T) {
	f := newFixture(t)
	txUC := NewCreateGrantUseCase(f.grants, f.tx, f.notifier, f.clock, f.logger)

	starts := testNow.Add(24 * time.Hour)
	expires := starts.Add(10 * 24 * time.Hour)
	out, err := txUC.Execute(context.Background(), CreateGrantCommand{
		OrgID:     "org_1",
		Type:      "single_project",
		StartsAt:  &starts,
		ExpiresAt: &expires,
		Metadata:  map[string]interface{}{"ticket": "SUP-12"},
	})
	require.NoError(t, err)
	assert.Equal(t, starts, out.StartsAt)
	assert.Equal(t, expires, out.ExpiresAt)
	assert.Equal(t, "SUP-12", out.Metadata["ticket"])

	// A second explicit window would stack grants.
	_, err = txUC.Execute(context.Background(), CreateGrantCommand{OrgID: "org_1", Type: "single_project", StartsAt: &starts, ExpiresAt: &expires})
	assert.True(t, errors.IsConflictError(err))

	// Without a window the live grant is extended.
	extended, err := txUC.Execute(context.Background(), CreateGrantCommand{OrgID: "org_1", Type: "single_project"})
	require.NoError(t, err)
	assert.Equal(t, out.ID, extended.ID)
	assert.Equal(t, expires.AddDate(0, 6, 0), extended.ExpiresAt)

	_, err = txUC.Execute(context.Background(), CreateGrantCommand{OrgID: "org_1", Type: "lifetime"})
	assert.True(t, errors.IsValidationError(err))

	_, err = txUC.Execute(context.Background(), CreateGrantCommand{OrgID: "org_1", Type: "trial", StartsAt: &expires, ExpiresAt: &starts})
	require.Error(t, err)
	assert.Equal(t, "expiresAt", errors.GetAppError(err).Field)

	trial, err := txUC.Execute(context.Background(), CreateGrantCommand{OrgID: "org_1", Type: "trial"})
	require.NoError(t, err)
	assert.Equal(t, testNow.Add(grant.TrialDuration), trial.ExpiresAt)

	_, err = txUC.Execute(context.Background(), CreateGrantCommand{OrgID: "org_1", Type: "trial"})
	assert.True(t, errors.IsConflictError(err))
}

func TestUpdateAndRevokeGrant(t *testing.T) {
	f := newFixture(t)
	g := seedGrant(t, f, "org_1", grant.TypeTrial, testNow, testNow.Add(grant.TrialDuration))
	update := NewUpdateGrantUseCase(f.grants, f.notifier, f.clock, f.logger)
	revoke := NewRevokeGrantUseCase(f.grants, f.notifier, f.clock, f.logger)

	newExpiry := testNow.Add(30 * 24 * time.Hour)
	out, err := update.Execute(context.Background(), UpdateGrantCommand{OrgID: "org_1", GrantID: g.ID(), ExpiresAt: &newExpiry})
	require.NoError(t, err)
	assert.Equal(t, newExpiry, out.ExpiresAt)

	badExpiry := testNow.Add(-time.Hour)
	_, err = update.Execute(context.Background(), UpdateGrantCommand{OrgID: "org_1", GrantID: g.ID(), ExpiresAt: &badExpiry})
	assert.True(t, errors.IsValidationError(err))

	_, err = revoke.Execute(context.Background(), RevokeGrantCommand{OrgID: "org_2", GrantID: g.ID()})
	assert.True(t, errors.IsNotFoundError(err))

	revoked, err := revoke.Execute(context.Background(), RevokeGrantCommand{OrgID: "org_1", GrantID: g.ID()})
	require.NoError(t, err)
	assert.Equal(t, "revoked", revoked.State)
	require.NotNil(t, revoked.RevokedAt)

	_, err = revoke.Execute(context.Background(), RevokeGrantCommand{OrgID: "org_1", GrantID: g.ID()})
	assert.True(t, errors.IsConflictError(err))

	_, err = update.Execute(context.Background(), UpdateGrantCommand{OrgID: "org_1", GrantID: g.ID(), ExpiresAt: &newExpiry})
	assert.True(t, errors.IsConflictError(err))

	// Revoked grants stay readable.
	stored, err := f.grants.GetByID(context.Background(), g.ID())
	require.NoError(t, err)
	assert.True(t, stored.IsRevoked())
}
