package logger

import (
	"context"
	"testing"
)

func TestInit(t *testing.T) {
	if err := Init(); err != nil {
		t.Fatalf("failed to initialize logger: %v", err)
	}
	defer func() {
		if err := Sync(); err != nil {
			t.Errorf("failed to sync logger: %v", err)
		}
	}()

	if Get() == nil {
		t.Fatal("logger is nil after initialization")
	}
}

func TestBasicLogging(t *testing.T) {
	if err := Init(); err != nil {
		t.Fatalf("failed to initialize logger: %v", err)
	}

	ctx := context.Background()
	l := Get()
	l.Info(ctx, "queue entry accepted", String("userId", "u-1"), Int("answers", 5))
	l.Debug(ctx, "pairing sweep", Int("pool", 3))
	l.Warn(ctx, "boost expired", String("userId", "u-2"))
	l.Error(ctx, "delivery failed", Error(nil))

	named := l.Named("gateway")
	if named == nil {
		t.Fatal("named logger is nil")
	}
	named.Info(ctx, "connection opened", String("userId", "u-3"))
}

func TestSetLevelString(t *testing.T) {
	if err := Init(); err != nil {
		t.Fatalf("failed to initialize logger: %v", err)
	}

	for _, lvl := range []string{"debug", "info", "warn", "warning", "error", ""} {
		if err := SetLevelString(lvl); err != nil {
			t.Errorf("unexpected error for level %q: %v", lvl, err)
		}
	}
	if err := SetLevelString("loud"); err == nil {
		t.Error("expected error for unknown level")
	}
}
