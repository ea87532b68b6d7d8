package cli

import (
	"context"
	"testing"
	"time"
)

func TestSpinner_StartStop(t *testing.T) {
	s := newSpinner("Reducing system...")
	s.Start()
	time.Sleep(100 * time.Millisecond)
	s.Stop()
}

func TestSpinner_ContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	s := newSpinnerWithContext(ctx, "Reducing system...")
	s.Start()
	cancel()

	// Give the animation goroutine time to notice.
	time.Sleep(100 * time.Millisecond)

	if !s.Cancelled() {
		t.Error("spinner should report cancellation after its context is cancelled")
	}
}

func TestSpinner_ContextTimeout(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	s := newSpinnerWithContext(ctx, "Rendering graph...")
	s.Start()
	time.Sleep(100 * time.Millisecond)

	if !s.Cancelled() {
		t.Error("spinner should report cancellation after its context times out")
	}
}

func TestSpinner_StopIsIdempotent(t *testing.T) {
	s := newSpinner("Reducing system...")
	s.Start()

	s.Stop()
	s.Stop()
	s.Stop()
}

func TestSpinner_StopWithMessages(t *testing.T) {
	s := newSpinner("Reducing system...")
	s.Start()
	time.Sleep(50 * time.Millisecond)
	s.StopWithSuccess("Reduced 4 equations")

	s = newSpinner("Rendering graph...")
	s.Start()
	time.Sleep(50 * time.Millisecond)
	s.StopWithError("Render failed")
}
