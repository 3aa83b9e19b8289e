package ratelimit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestNewPacer_Disabled(t *testing.T) {
	p := NewPacer(0, 1, zerolog.Nop())
	if p != nil {
		t.Fatal("Expected nil pacer for rate 0")
	}

	// A nil pacer never blocks.
	if err := p.Wait(context.Background()); err != nil {
		t.Errorf("Wait() on nil pacer = %v", err)
	}
	if p.Limit() != 0 {
		t.Errorf("Limit() = %v, want 0", p.Limit())
	}
}

func TestPacer_Spacing(t *testing.T) {
	p := NewPacer(20, 1, zerolog.Nop()) // one request every 50ms
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < 3; i++ {
		if err := p.Wait(ctx); err != nil {
			t.Fatalf("Wait() error: %v", err)
		}
	}
	elapsed := time.Since(start)

	// First request is free, the next two wait ~50ms each.
	if elapsed < 80*time.Millisecond {
		t.Errorf("Expected pacing of at least 80ms, got %v", elapsed)
	}
}

func TestPacer_ContextCancelled(t *testing.T) {
	p := NewPacer(0.1, 1, zerolog.Nop()) // one request every 10s
	if err := p.Wait(context.Background()); err != nil {
		t.Fatalf("First Wait() error: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := p.Wait(ctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Expected deadline exceeded, got %v", err)
	}
}

func TestPacer_Burst(t *testing.T) {
	p := NewPacer(1, 3, zerolog.Nop())
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < 3; i++ {
		if err := p.Wait(ctx); err != nil {
			t.Fatalf("Wait() error: %v", err)
		}
	}
	if elapsed := time.Since(start); elapsed > 100*time.Millisecond {
		t.Errorf("Burst of 3 should not wait, took %v", elapsed)
	}
}
