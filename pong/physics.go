package pong

import (
	"math"
	"math/rand"
	"time"
)

// BallPhase is the state of the authoritative ball simulation.
type BallPhase byte

const (
	BallIdle    BallPhase = 0 // no round in progress
	BallServing BallPhase = 1 // centered, waiting for the serve delay
	BallActive  BallPhase = 2 // in play
	BallOver    BallPhase = 3 // win score reached, waiting for the round to end
)

var BallPhaseDictionary = map[BallPhase]string{
	BallIdle:    "idle",
	BallServing: "serving",
	BallActive:  "active",
	BallOver:    "over",
}

func (p BallPhase) String() string { return BallPhaseDictionary[p] }

// BallState is the locally simulated ball. X and Y are the top-left corner.
type BallState struct {
	X, Y   float64
	Vx, Vy float64
	Active bool
}

// StepResult reports what happened during one simulation tick.
type StepResult struct {
	Served bool
	Goal   *GoalIntent
}

// BallEngine simulates the ball while the local peer holds authority.
// It is not safe for concurrent use; the match actor owns it.
type BallEngine struct {
	cfg Config
	rng *rand.Rand

	ball      BallState
	phase     BallPhase
	serveAtMs int64

	lastBroadcastMs int64
	broadcasted     bool
}

func NewBallEngine(cfg Config) *BallEngine {
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	e := &BallEngine{
		cfg: cfg,
		rng: rand.New(rand.NewSource(seed)),
	}
	e.Reset()
	return e
}

// Reset centers the ball and returns to idle. Called on round transitions.
func (e *BallEngine) Reset() {
	e.phase = BallIdle
	e.serveAtMs = 0
	e.ball = e.centered()
}

func (e *BallEngine) Ball() BallState  { return e.ball }
func (e *BallEngine) Phase() BallPhase { return e.phase }

// Sample returns the ball as it is broadcast to other peers.
func (e *BallEngine) Sample(nowMs int64) BallSample {
	return BallSample{
		Known:        true,
		X:            e.ball.X,
		Y:            e.ball.Y,
		Vx:           e.ball.Vx,
		Vy:           e.ball.Vy,
		ReceivedAtMs: nowMs,
	}
}

// Seed takes over the ball when authority is gained. The last ball seen on
// the event stream continues from where it was, so a silent failover does
// not visibly reset the rally.
func (e *BallEngine) Seed(s SessionState, nowMs int64) {
	if !s.RoundActive {
		e.Reset()
		return
	}
	if !s.Ball.Known {
		e.ball = e.centered()
		e.phase = BallServing
		e.serveAtMs = nowMs + e.cfg.ServeDelay.Milliseconds()
		return
	}
	b := BallState{X: s.Ball.X, Y: s.Ball.Y, Vx: s.Ball.Vx, Vy: s.Ball.Vy, Active: true}
	if b.Vx == 0 {
		b.Vx = ServeDirection(s.TotalScore()) * e.cfg.ServeSpeed
		if b.Vy == 0 {
			b.Vy = e.cfg.MinServeVy
		}
	}
	e.ball = b
	e.phase = BallActive
}

// Step advances the simulation by one tick.
func (e *BallEngine) Step(s SessionState, nowMs int64) StepResult {
	if !s.RoundActive {
		if e.phase != BallIdle {
			e.Reset()
		}
		return StepResult{}
	}
	switch e.phase {
	case BallIdle:
		e.phase = BallServing
		e.serveAtMs = nowMs + e.cfg.ServeDelay.Milliseconds()
	case BallServing:
		if nowMs >= e.serveAtMs {
			e.serve(s.TotalScore())
			return StepResult{Served: true}
		}
	case BallActive:
		return e.advance(s, nowMs)
	}
	return StepResult{}
}

// BroadcastDue reports whether the ball should be sent now: about 30 Hz in
// play, 10 Hz otherwise so the claim stays fresh through serve delays.
func (e *BallEngine) BroadcastDue(nowMs int64) bool {
	interval := e.cfg.IdleBroadcastInterval
	if e.phase == BallActive {
		interval = e.cfg.ActiveBroadcastInterval
	}
	return !e.broadcasted || nowMs-e.lastBroadcastMs >= interval.Milliseconds()
}

// MarkBroadcast records that the ball went out, whichever intent carried it.
func (e *BallEngine) MarkBroadcast(nowMs int64) {
	e.lastBroadcastMs = nowMs
	e.broadcasted = true
}

func (e *BallEngine) advance(s SessionState, nowMs int64) StepResult {
	c := e.cfg
	b := &e.ball
	prevX := b.X
	b.X += b.Vx
	b.Y += b.Vy

	if b.Y < 0 {
		b.Y = 0
		b.Vy = math.Abs(b.Vy)
	} else if b.Y+c.BallSize > c.FieldHeight {
		b.Y = c.FieldHeight - c.BallSize
		b.Vy = -math.Abs(b.Vy)
	}

	if !e.bounce(SlotFirst, s.PaddleY.First, prevX) {
		e.bounce(SlotSecond, s.PaddleY.Second, prevX)
	}

	scorer := SlotNone
	switch {
	case b.X+c.BallSize < 0:
		scorer = SlotSecond
	case b.X > c.FieldWidth:
		scorer = SlotFirst
	}
	if scorer == SlotNone {
		return StepResult{}
	}

	e.ball = e.centered()
	if s.Score.Get(scorer)+1 >= c.WinScore {
		e.phase = BallOver
	} else {
		e.phase = BallServing
		e.serveAtMs = nowMs + c.GoalDelay.Milliseconds()
	}
	return StepResult{Goal: &GoalIntent{ScoredBy: scorer, ClientTsMs: nowMs}}
}

// bounce reflects the ball off the paddle of slot. It only fires while the
// ball moves toward that paddle so one contact cannot bounce twice.
func (e *BallEngine) bounce(slot Slot, paddleY, prevX float64) bool {
	c := e.cfg
	b := &e.ball
	px := c.paddleX(slot)
	face := px + c.PaddleWidth
	dir := 1.0
	if slot == SlotSecond {
		face = px
		dir = -1
		if b.Vx <= 0 {
			return false
		}
	} else if b.Vx >= 0 {
		return false
	}

	vertical := b.Y < paddleY+c.PaddleHeight && b.Y+c.BallSize > paddleY
	if !vertical {
		return false
	}
	overlap := b.X < px+c.PaddleWidth && b.X+c.BallSize > px
	// Fast balls can jump across the paddle in one tick.
	crossed := (slot == SlotFirst && prevX >= face && b.X < face) ||
		(slot == SlotSecond && prevX+c.BallSize <= face && b.X+c.BallSize > face)
	if !overlap && !crossed {
		return false
	}

	speed := math.Min(math.Hypot(b.Vx, b.Vy)*c.SpeedUp, c.MaxBallSpeed)
	angle := c.BounceAngle(b.Y, paddleY)
	b.Vx = dir * speed * math.Cos(angle)
	b.Vy = speed * math.Sin(angle)
	if slot == SlotFirst {
		b.X = face
	} else {
		b.X = face - c.BallSize
	}
	return true
}

func (e *BallEngine) serve(totalScore int) {
	c := e.cfg
	angle := (e.rng.Float64()*2 - 1) * c.MaxServeAngle
	vy := c.ServeSpeed * math.Sin(angle)
	if math.Abs(vy) < c.MinServeVy {
		if vy < 0 {
			vy = -c.MinServeVy
		} else {
			vy = c.MinServeVy
		}
	}
	vx := math.Sqrt(c.ServeSpeed*c.ServeSpeed - vy*vy)
	e.ball = e.centered()
	e.ball.Vx = ServeDirection(totalScore) * vx
	e.ball.Vy = vy
	e.ball.Active = true
	e.phase = BallActive
}

func (e *BallEngine) centered() BallState {
	return BallState{X: e.cfg.centerX(), Y: e.cfg.centerY()}
}

// ServeDirection is +1 (toward second) on an even total score and -1 on an
// odd one, so the serve side flips after every goal.
func ServeDirection(totalScore int) float64 {
	if totalScore%2 == 0 {
		return 1
	}
	return -1
}

// BounceAngle maps where the ball hit the paddle to an outgoing angle:
// zero at the paddle center, MaxBounceAngle at either end and beyond.
func (c Config) BounceAngle(ballY, paddleY float64) float64 {
	half := c.PaddleHeight / 2
	rel := ((ballY + c.BallSize/2) - (paddleY + half)) / half
	rel = math.Max(-1, math.Min(1, rel))
	return rel * c.MaxBounceAngle
}
