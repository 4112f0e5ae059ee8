package match

import "pong-lite/pong"

// Frame is an immutable render view of the match. A new Frame is published
// after every tick and state change.
type Frame struct {
	Seq  uint64
	AtMs int64

	Mode      pong.Mode
	Local     pong.Slot
	Authority pong.Slot
	// Holding is true when this peer simulates the ball.
	Holding bool

	Occupied pong.PerSlot[bool]
	Score    pong.PerSlot[int]
	PaddleY  pong.PerSlot[float64]

	BallX, BallY float64
	// BallVisible is false while nobody has reported a ball this round.
	BallVisible bool
}

// Spectating reports whether the frame is shown to a peer without a slot.
func (f *Frame) Spectating() bool { return f.Mode == pong.ModeSpectating }

func (m *Match) publishFrame(now int64) {
	m.frameSeq++
	s := m.state
	election := m.tracker.Last()
	f := &Frame{
		Seq:       m.frameSeq,
		AtMs:      now,
		Mode:      s.Mode(),
		Local:     s.Local,
		Authority: election.Holder,
		Holding:   m.tracker.Holding(),
		Occupied:  s.Occupied,
		Score:     s.Score,
		PaddleY:   s.PaddleY,
	}
	if f.Holding && s.RoundActive {
		b := m.engine.Ball()
		f.BallX, f.BallY = b.X, b.Y
		f.BallVisible = true
	} else {
		f.BallX, f.BallY = m.interp.Position()
		_, f.BallVisible = m.interp.Snapshot()
	}
	m.frame.Store(f)
}
