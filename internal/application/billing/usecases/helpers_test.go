package usecases

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/corates/billing/internal/application/billing/testutil"
	"github.com/corates/billing/internal/domain/billing"
	"github.com/corates/billing/internal/shared/biztime"
)

var testNow = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

type fixture struct {
	subs     *testutil.MockSubscriptionRepository
	grants   *testutil.MockGrantRepository
	sink     *testutil.RecordingSink
	notifier *ChangeNotifier
	catalog  *billing.Catalog
	clock    *mutableClock
	logger   *testutil.MockLogger
	tx       *testutil.MockTxRunner
}

// mutableClock lets a test move time between calls.
type mutableClock struct{ now time.Time }

func (c *mutableClock) Now() time.Time { return c.now }

var _ biztime.Clock = (*mutableClock)(nil)

func newFixture(t *testing.T) *fixture {
	t.Helper()
	catalog, err := billing.DefaultCatalog()
	require.NoError(t, err)
	log := testutil.NewMockLogger()
	sink := testutil.NewRecordingSink()
	return &fixture{
		subs:     testutil.NewMockSubscriptionRepository(),
		grants:   testutil.NewMockGrantRepository(),
		sink:     sink,
		notifier: NewChangeNotifier(log, NamedSink{Name: "recording", Sink: sink}),
		catalog:  catalog,
		clock:    &mutableClock{now: testNow},
		logger:   log,
		tx:       &testutil.MockTxRunner{},
	}
}

func (f *fixture) resolver() *ResolveAccessUseCase {
	return NewResolveAccessUseCase(f.subs, f.grants, billing.NewResolver(f.catalog, billing.Policy{}), f.clock, f.logger)
}
