package main

import (
	"context"
	"testing"
	"time"
)

func TestUpdateSystemMetricsStops(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		defer close(done)
		updateSystemMetrics(ctx)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("metrics updater did not stop on context cancel")
	}
}
