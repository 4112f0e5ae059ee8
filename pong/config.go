package pong

import (
	"fmt"
	"math"
	"time"
)

// Config holds playfield geometry, physics tuning and the peer cadences.
// Distances are playfield blocks; speeds are blocks per simulation tick.
type Config struct {
	// Playfield
	FieldWidth    float64
	FieldHeight   float64
	PaddleWidth   float64
	PaddleHeight  float64
	PaddleOffsetX float64
	BallSize      float64

	// Motion
	PaddleSpeed    float64
	ServeSpeed     float64
	MaxBallSpeed   float64
	SpeedUp        float64
	MaxBounceAngle float64 // radians
	MaxServeAngle  float64 // radians
	MinServeVy     float64
	WinScore       int

	// Cadences
	TickInterval            time.Duration
	AuthorityInterval       time.Duration
	AuthorityTimeout        time.Duration
	MoveInterval            time.Duration
	ActiveBroadcastInterval time.Duration
	IdleBroadcastInterval   time.Duration
	ServeDelay              time.Duration
	GoalDelay               time.Duration

	// Interpolation
	Smoothing         float64
	PredictionHorizon time.Duration
	SnapDistance      float64

	// HistoryLimit bounds the history window requested from the transport.
	HistoryLimit int

	// RNG seed for serve angles (0 => time-based)
	Seed int64
}

// DefaultConfig returns the Atari-derived constants used by the web client.
func DefaultConfig() Config {
	return Config{
		FieldWidth:    375,
		FieldHeight:   246,
		PaddleWidth:   4,
		PaddleHeight:  15,
		PaddleOffsetX: 20,
		BallSize:      4,

		PaddleSpeed:    5,
		ServeSpeed:     3,
		MaxBallSpeed:   9,
		SpeedUp:        1.03,
		MaxBounceAngle: 75 * math.Pi / 180,
		MaxServeAngle:  30 * math.Pi / 180,
		MinServeVy:     0.5,
		WinScore:       10,

		TickInterval:            time.Second / 60,
		AuthorityInterval:       100 * time.Millisecond,
		AuthorityTimeout:        250 * time.Millisecond,
		MoveInterval:            50 * time.Millisecond,
		ActiveBroadcastInterval: time.Second / 30,
		IdleBroadcastInterval:   100 * time.Millisecond,
		ServeDelay:              700 * time.Millisecond,
		GoalDelay:               900 * time.Millisecond,

		Smoothing:         0.35,
		PredictionHorizon: 250 * time.Millisecond,
		SnapDistance:      60,

		HistoryLimit: 10,
	}
}

// Validate reports the first inconsistent setting.
func (c Config) Validate() error {
	if c.FieldWidth <= 0 || c.FieldHeight <= 0 {
		return InvalidConfigError(fmt.Sprintf("field must be positive: %vx%v", c.FieldWidth, c.FieldHeight))
	}
	if c.PaddleWidth <= 0 || c.PaddleHeight <= 0 || c.BallSize <= 0 {
		return InvalidConfigError("paddle and ball sizes must be > 0")
	}
	if c.BallSize >= c.FieldHeight || c.PaddleHeight >= c.FieldHeight {
		return InvalidConfigError("paddle and ball must fit the field height")
	}
	if 2*(c.PaddleOffsetX+c.PaddleWidth) >= c.FieldWidth {
		return InvalidConfigError("paddles overlap horizontally")
	}
	if c.ServeSpeed <= 0 || c.MaxBallSpeed < c.ServeSpeed {
		return InvalidConfigError(fmt.Sprintf("invalid speeds: serve=%v max=%v", c.ServeSpeed, c.MaxBallSpeed))
	}
	if c.SpeedUp < 1 {
		return InvalidConfigError("SpeedUp must be >= 1")
	}
	if c.MaxBounceAngle <= 0 || c.MaxBounceAngle >= math.Pi/2 {
		return InvalidConfigError("MaxBounceAngle must be in (0, pi/2)")
	}
	if c.MaxServeAngle < 0 || c.MaxServeAngle >= math.Pi/2 {
		return InvalidConfigError("MaxServeAngle must be in [0, pi/2)")
	}
	if c.MinServeVy <= 0 || c.MinServeVy >= c.ServeSpeed {
		return InvalidConfigError("MinServeVy must be in (0, ServeSpeed)")
	}
	if c.WinScore <= 0 {
		return InvalidConfigError("WinScore must be > 0")
	}
	if c.TickInterval <= 0 || c.AuthorityInterval <= 0 || c.MoveInterval <= 0 ||
		c.ActiveBroadcastInterval <= 0 || c.IdleBroadcastInterval <= 0 {
		return InvalidConfigError("intervals must be > 0")
	}
	if c.AuthorityTimeout < c.AuthorityInterval {
		return InvalidConfigError("AuthorityTimeout must be >= AuthorityInterval")
	}
	if c.IdleBroadcastInterval >= c.AuthorityTimeout {
		return InvalidConfigError("IdleBroadcastInterval must be shorter than AuthorityTimeout")
	}
	if c.ServeDelay < 0 || c.GoalDelay < 0 || c.PredictionHorizon < 0 {
		return InvalidConfigError("delays must be >= 0")
	}
	if c.Smoothing <= 0 || c.Smoothing > 1 {
		return InvalidConfigError("Smoothing must be in (0, 1]")
	}
	if c.HistoryLimit <= 0 {
		return InvalidConfigError("HistoryLimit must be > 0")
	}
	return nil
}

// ticks converts a duration into simulation ticks.
func (c Config) ticks(d time.Duration) float64 {
	return float64(d) / float64(c.TickInterval)
}

func (c Config) centerX() float64 { return c.FieldWidth/2 - c.BallSize/2 }
func (c Config) centerY() float64 { return c.FieldHeight/2 - c.BallSize/2 }

// paddleX returns the left edge of the paddle for s.
func (c Config) paddleX(s Slot) float64 {
	if s == SlotSecond {
		return c.FieldWidth - c.PaddleOffsetX - c.PaddleWidth
	}
	return c.PaddleOffsetX
}
