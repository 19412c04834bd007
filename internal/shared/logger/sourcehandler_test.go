package logger

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func TestSourceHandler(t *testing.T) {
	tests := []struct {
		name             string
		level            slog.Level
		minLevel         slog.Level
		shouldHaveSource bool
	}{
		{name: "info below warn threshold", level: slog.LevelInfo, minLevel: slog.LevelWarn, shouldHaveSource: false},
		{name: "warn at threshold", level: slog.LevelWarn, minLevel: slog.LevelWarn, shouldHaveSource: true},
		{name: "error above threshold", level: slog.LevelError, minLevel: slog.LevelWarn, shouldHaveSource: true},
		{name: "info with debug threshold", level: slog.LevelInfo, minLevel: slog.LevelDebug, shouldHaveSource: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			base := slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
			l := slog.New(NewSourceHandler(base, tt.minLevel))

			l.Log(context.Background(), tt.level, "ledger entry recorded")

			hasSource := strings.Contains(buf.String(), "source=")
			if hasSource != tt.shouldHaveSource {
				t.Errorf("expected source=%v, got %v. Output: %s", tt.shouldHaveSource, hasSource, buf.String())
			}
		})
	}
}

func TestSourceHandlerKeepsAttrsAndGroups(t *testing.T) {
	var buf bytes.Buffer
	base := slog.NewTextHandler(&buf, nil)
	l := slog.New(NewSourceHandler(base, slog.LevelError)).With("org_id", "org_1").WithGroup("scan")

	l.Info("finding", "type", "processing_lag")

	out := buf.String()
	if strings.Contains(out, "source=") {
		t.Errorf("expected no source for INFO. Output: %s", out)
	}
	if !strings.Contains(out, "org_id=org_1") || !strings.Contains(out, "scan.type=processing_lag") {
		t.Errorf("expected attrs and group to survive. Output: %s", out)
	}
}

func TestSourceHandlerEnabledFollowsBase(t *testing.T) {
	base := slog.NewTextHandler(&bytes.Buffer{}, &slog.HandlerOptions{Level: slog.LevelInfo})
	h := NewSourceHandler(base, slog.LevelError)

	if h.Enabled(context.Background(), slog.LevelDebug) {
		t.Error("expected DEBUG level to be disabled")
	}
	if !h.Enabled(context.Background(), slog.LevelInfo) {
		t.Error("expected INFO level to be enabled")
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"WARNING": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"bogus":   slog.LevelInfo,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}
