package pong

import (
	"math"
	"time"
)

// Interpolator smooths the ball for peers that do not simulate it. It
// dead-reckons from the last snapshot and eases the display position toward
// the prediction a fixed fraction per tick.
type Interpolator struct {
	cfg Config

	src  BallSample
	have bool

	x, y float64
}

func NewInterpolator(cfg Config) *Interpolator {
	ip := &Interpolator{cfg: cfg}
	ip.Reset()
	return ip
}

// Reset forgets the snapshot and centers the display ball.
func (ip *Interpolator) Reset() {
	ip.src = BallSample{}
	ip.have = false
	ip.x, ip.y = ip.cfg.centerX(), ip.cfg.centerY()
}

// Observe records a snapshot. The first one, and any that lands further
// than SnapDistance from the display (a serve reset), is shown as is.
func (ip *Interpolator) Observe(s BallSample) {
	if !s.Known {
		return
	}
	jump := math.Hypot(s.X-ip.x, s.Y-ip.y) > ip.cfg.SnapDistance
	ip.src = s
	if !ip.have || jump {
		ip.x, ip.y = s.X, s.Y
	}
	ip.have = true
}

// Step advances the display position toward the dead-reckoned target.
func (ip *Interpolator) Step(nowMs int64) (x, y float64) {
	if !ip.have {
		return ip.x, ip.y
	}
	tx, ty := ip.Predict(nowMs)
	k := ip.cfg.Smoothing
	ip.x += (tx - ip.x) * k
	ip.y += (ty - ip.y) * k
	return ip.x, ip.y
}

// Predict extrapolates the snapshot to nowMs, reflecting off the top and
// bottom walls. Extrapolation stops at PredictionHorizon.
func (ip *Interpolator) Predict(nowMs int64) (x, y float64) {
	elapsed := nowMs - ip.src.ReceivedAtMs
	if elapsed < 0 {
		elapsed = 0
	}
	if horizon := ip.cfg.PredictionHorizon.Milliseconds(); elapsed > horizon {
		elapsed = horizon
	}
	ticks := ip.cfg.ticks(time.Duration(elapsed) * time.Millisecond)
	x = ip.src.X + ip.src.Vx*ticks
	y = reflect(ip.src.Y+ip.src.Vy*ticks, ip.cfg.FieldHeight-ip.cfg.BallSize)
	return x, y
}

// Position returns the current display position.
func (ip *Interpolator) Position() (x, y float64) { return ip.x, ip.y }

// Snapshot returns the last observed sample.
func (ip *Interpolator) Snapshot() (BallSample, bool) { return ip.src, ip.have }

// reflect folds v into [0, limit] as a ball bouncing between two walls.
func reflect(v, limit float64) float64 {
	if limit <= 0 {
		return 0
	}
	period := 2 * limit
	v = math.Mod(v, period)
	if v < 0 {
		v += period
	}
	if v > limit {
		v = period - v
	}
	return v
}
