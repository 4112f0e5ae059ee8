package pong

// Control is the held direction state maintained by the input device.
type Control struct {
	Up   bool
	Down bool
}

// Delta returns the signed paddle step for the held keys.
func (c Control) Delta(speed float64) float64 {
	dy := 0.0
	if c.Up {
		dy -= speed
	}
	if c.Down {
		dy += speed
	}
	return dy
}

// PaddleController turns held controls into move intents, at most one per
// MoveInterval regardless of how often it is sampled.
type PaddleController struct {
	cfg        Config
	lastSentMs int64
	sent       bool
}

func NewPaddleController(cfg Config) *PaddleController {
	return &PaddleController{cfg: cfg}
}

// Sample returns the move intent to send now, if any. ball is attached when
// the caller holds ball authority; moves double as the ball sync channel.
func (p *PaddleController) Sample(ctrl Control, s SessionState, ball *BallSample, nowMs int64) (MoveIntent, bool) {
	if s.Spectating() {
		return MoveIntent{}, false
	}
	if p.sent && nowMs-p.lastSentMs < p.cfg.MoveInterval.Milliseconds() {
		return MoveIntent{}, false
	}
	dy := ctrl.Delta(p.cfg.PaddleSpeed)
	if dy == 0 {
		return MoveIntent{}, false
	}
	p.lastSentMs = nowMs
	p.sent = true
	intent := MoveIntent{Dy: dy, ClientTsMs: nowMs}
	if ball != nil {
		b := *ball
		intent.Ball = &b
	}
	return intent, true
}
