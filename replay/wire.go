package replay

import "pong-lite/pong"

// WireTimeline is the browser viewer's view of a rebuilt tape.
type WireTimeline struct {
	TapeVersion int        `json:"tapeVersion"`
	MatchID     string     `json:"matchId"`
	Steps       []WireStep `json:"steps"`
}

type WireStep struct {
	Seq           uint64  `json:"seq"`
	Type          string  `json:"type"`
	Mode          string  `json:"mode"`
	FirstTaken    bool    `json:"firstTaken"`
	SecondTaken   bool    `json:"secondTaken"`
	RoundActive   bool    `json:"roundActive"`
	FirstScore    int     `json:"firstScore"`
	SecondScore   int     `json:"secondScore"`
	FirstPaddleY  float64 `json:"firstPaddleY"`
	SecondPaddleY float64 `json:"secondPaddleY"`
	BallKnown     bool    `json:"ballKnown"`
	BallX         float64 `json:"ballX"`
	BallY         float64 `json:"ballY"`
	Authority     string  `json:"authority"`
}

func ToWireTimeline(tape *Tape, steps []Step) *WireTimeline {
	if tape == nil {
		return nil
	}
	out := &WireTimeline{
		TapeVersion: tape.TapeVersion,
		MatchID:     tape.MatchID,
		Steps:       make([]WireStep, 0, len(steps)),
	}
	for _, st := range steps {
		out.Steps = append(out.Steps, toWireStep(st))
	}
	return out
}

func toWireStep(st Step) WireStep {
	s := st.State
	return WireStep{
		Seq:           st.Seq,
		Type:          st.Type,
		Mode:          s.Mode().String(),
		FirstTaken:    s.Occupied.First,
		SecondTaken:   s.Occupied.Second,
		RoundActive:   s.RoundActive,
		FirstScore:    s.Score.First,
		SecondScore:   s.Score.Second,
		FirstPaddleY:  s.PaddleY.First,
		SecondPaddleY: s.PaddleY.Second,
		BallKnown:     s.Ball.Known,
		BallX:         s.Ball.X,
		BallY:         s.Ball.Y,
		Authority:     s.Authority.Slot.String(),
	}
}

// StatusSnapshot returns the recorded status as a reconciler snapshot.
func (t *Tape) StatusSnapshot() *pong.Status {
	if t == nil || t.Status == nil {
		return nil
	}
	s := t.Status.Status()
	return &s
}
