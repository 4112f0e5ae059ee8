package pong

import (
	"math"
	"testing"
)

func TestInterpolator_FirstSnapshotSnaps(t *testing.T) {
	ip := NewInterpolator(DefaultConfig())
	ip.Observe(BallSample{Known: true, X: 42, Y: 17, Vx: 3, ReceivedAtMs: 1000})
	if x, y := ip.Position(); x != 42 || y != 17 {
		t.Fatalf("expected exact snap to (42,17), got (%v,%v)", x, y)
	}
}

func TestInterpolator_UnknownSampleIgnored(t *testing.T) {
	cfg := DefaultConfig()
	ip := NewInterpolator(cfg)
	ip.Observe(BallSample{X: 1, Y: 1})
	if _, ok := ip.Snapshot(); ok {
		t.Fatalf("unknown ball must not be recorded")
	}
	if x, y := ip.Step(100); x != cfg.centerX() || y != cfg.centerY() {
		t.Fatalf("expected centered ball, got (%v,%v)", x, y)
	}
}

func TestInterpolator_EasesTowardTarget(t *testing.T) {
	ip := NewInterpolator(DefaultConfig())
	ip.Observe(BallSample{Known: true, X: 100, Y: 100, ReceivedAtMs: 0})
	ip.Observe(BallSample{Known: true, X: 110, Y: 100, ReceivedAtMs: 50})

	x, y := ip.Step(50)
	if math.Abs(x-103.5) > 1e-9 || y != 100 {
		t.Fatalf("expected 35%% of the way to 110, got (%v,%v)", x, y)
	}
	x, _ = ip.Step(50)
	if math.Abs(x-(103.5+6.5*0.35)) > 1e-9 {
		t.Fatalf("expected second step to ease further, got %v", x)
	}
}

func TestInterpolator_LargeJumpSnaps(t *testing.T) {
	ip := NewInterpolator(DefaultConfig())
	ip.Observe(BallSample{Known: true, X: 10, Y: 10})
	ip.Observe(BallSample{Known: true, X: 200, Y: 120})
	if x, y := ip.Position(); x != 200 || y != 120 {
		t.Fatalf("expected snap on serve reset, got (%v,%v)", x, y)
	}
}

func TestInterpolator_PredictionIsBounded(t *testing.T) {
	cfg := DefaultConfig()
	ip := NewInterpolator(cfg)
	ip.Observe(BallSample{Known: true, X: 100, Y: 100, Vx: 1, ReceivedAtMs: 0})

	// 250ms horizon at 60 ticks per second is 15 ticks.
	x, _ := ip.Predict(10_000)
	if math.Abs(x-115) > 1e-4 {
		t.Fatalf("expected extrapolation capped at 15 ticks, got %v", x)
	}
	if x, _ := ip.Predict(-5); x != 100 {
		t.Fatalf("samples from the future must not move backwards, got %v", x)
	}
}

func TestInterpolator_PredictReflectsOffWalls(t *testing.T) {
	cfg := DefaultConfig()
	ip := NewInterpolator(cfg)
	ip.Observe(BallSample{Known: true, X: 100, Y: 240, Vy: 3, ReceivedAtMs: 0})

	_, y := ip.Predict(250)
	limit := cfg.FieldHeight - cfg.BallSize
	if y < 0 || y > limit {
		t.Fatalf("predicted y %v outside [0,%v]", y, limit)
	}
	if math.Abs(y-(2*limit-285)) > 1e-4 {
		t.Fatalf("expected reflected y %v, got %v", 2*limit-285, y)
	}
}

func TestInterpolator_Reset(t *testing.T) {
	cfg := DefaultConfig()
	ip := NewInterpolator(cfg)
	ip.Observe(BallSample{Known: true, X: 5, Y: 5})
	ip.Reset()
	if x, y := ip.Position(); x != cfg.centerX() || y != cfg.centerY() {
		t.Fatalf("expected centered after reset, got (%v,%v)", x, y)
	}
	ip.Observe(BallSample{Known: true, X: 150, Y: 90})
	if x, y := ip.Position(); x != 150 || y != 90 {
		t.Fatalf("expected snap after reset, got (%v,%v)", x, y)
	}
}
