package goroutine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corates/billing/internal/shared/logger"
)

func TestSafeGo_RecoversAndCallsHook(t *testing.T) {
	got := make(chan string, 1)
	SetPanicHook(func(name string, recovered interface{}) {
		got <- name
	})
	t.Cleanup(func() { SetPanicHook(nil) })

	SafeGo(logger.NewNopLogger(), "exploding", func() {
		panic("boom")
	})

	select {
	case name := <-got:
		assert.Equal(t, "exploding", name)
	case <-time.After(time.Second):
		t.Fatal("panic hook not called")
	}
}

func TestSafeGoWithTimeout_ContextHasDeadline(t *testing.T) {
	done := make(chan bool, 1)

	SafeGoWithTimeout(logger.NewNopLogger(), "bounded", 50*time.Millisecond, func(ctx context.Context) {
		_, hasDeadline := ctx.Deadline()
		<-ctx.Done()
		done <- hasDeadline
	})

	select {
	case hasDeadline := <-done:
		require.True(t, hasDeadline)
	case <-time.After(time.Second):
		t.Fatal("timeout context never fired")
	}
}
