package replay

import (
	"fmt"

	"pong-lite/pong"
	"pong-lite/wire"
)

// GenerateTape plays a scripted match between two tracking bots. The ball is
// simulated by the real engine on the first seat, and every publication the
// backend would make is recorded and folded through the reconciler. The same
// spec always yields the same tape.
func GenerateTape(spec MatchSpec) (*Tape, error) {
	ns, err := normalizeSpec(spec)
	if err != nil {
		return nil, err
	}
	cfg := ns.cfg

	engine := pong.NewBallEngine(cfg)
	builder := newTapeBuilder(ns.matchID)
	state := pong.NewSessionState()
	state.Local = pong.SlotFirst

	emit := func(e pong.Event, nowMs int64) error {
		if err := builder.push(e, nowMs); err != nil {
			return &ReplayError{StepIndex: int32(len(builder.events)), Reason: "encode_failed", Message: err.Error()}
		}
		state = pong.ApplyLiveEvent(e, state)
		return nil
	}

	for _, e := range []pong.Event{
		pong.PlayerJoined{Slot: pong.SlotFirst},
		pong.PlayerJoined{Slot: pong.SlotSecond},
		pong.RoundStarted{},
	} {
		if err := emit(e, 0); err != nil {
			return nil, err
		}
	}

	lastMove := pong.PerSlot[int64]{First: -1 << 31, Second: -1 << 31}
	moveMs := cfg.MoveInterval.Milliseconds()

	for tick := 0; tick < ns.maxTicks && state.RoundActive; tick++ {
		now := tickTime(tick, cfg)

		res := engine.Step(state, now)
		if res.Goal != nil {
			score := state.Score
			score.Set(res.Goal.ScoredBy, score.Get(res.Goal.ScoredBy)+1)
			goal := pong.Goal{ScoredBy: res.Goal.ScoredBy, FirstScore: score.First, SecondScore: score.Second}
			if err := emit(goal, now); err != nil {
				return nil, err
			}
			if score.Get(res.Goal.ScoredBy) >= cfg.WinScore {
				if err := emit(pong.RoundEnded{}, now); err != nil {
					return nil, err
				}
				break
			}
		}

		ball := engine.Ball()
		for _, slot := range pong.Slots {
			dy := 0.0
			if now-lastMove.Get(slot) >= moveMs {
				dy = ns.bots.Get(slot).step(slot, ball, state.PaddleY.Get(slot), cfg)
			}
			carry := slot == pong.SlotFirst && engine.BroadcastDue(now)
			if dy == 0 && !carry {
				continue
			}
			if dy != 0 {
				lastMove.Set(slot, now)
			}
			y := clampPaddle(state.PaddleY.Get(slot)+dy, cfg)
			m := pong.Moved{Slot: slot, PaddleY: pong.Float(y), ClientTsMs: now, ReceivedAtMs: now}
			if carry {
				b := engine.Sample(now)
				m.BallX, m.BallY = pong.Float(b.X), pong.Float(b.Y)
				m.BallVx, m.BallVy = pong.Float(b.Vx), pong.Float(b.Vy)
				engine.MarkBroadcast(now)
			}
			if err := emit(m, now); err != nil {
				return nil, err
			}
		}
	}

	return &Tape{
		TapeVersion: TapeVersion,
		MatchID:     builder.matchID,
		Events:      builder.events,
		Status:      statusOf(state),
	}, nil
}

// statusOf renders what the status endpoint would report for s.
func statusOf(s pong.SessionState) *wire.StatusResponse {
	first, second := s.Occupied.First, s.Occupied.Second
	started := s.RoundActive
	fs, ss := s.Score.First, s.Score.Second
	fy, sy := s.PaddleY.First, s.PaddleY.Second
	return &wire.StatusResponse{
		FirstTaken:    &first,
		SecondTaken:   &second,
		GameStarted:   &started,
		FirstScore:    &fs,
		SecondScore:   &ss,
		FirstPaddleY:  &fy,
		SecondPaddleY: &sy,
	}
}

type tapeBuilder struct {
	matchID string
	seq     uint64
	events  []Event
}

func newTapeBuilder(matchID string) *tapeBuilder {
	return &tapeBuilder{
		matchID: matchID,
		events:  make([]Event, 0, 256),
	}
}

func (b *tapeBuilder) push(e pong.Event, nowMs int64) error {
	raw, err := wire.Encode(e)
	if err != nil {
		return fmt.Errorf("encode %s: %w", e.Type(), err)
	}
	b.seq++
	b.events = append(b.events, Event{
		Seq:          b.seq,
		Type:         e.Type().String(),
		Payload:      raw,
		ReceivedAtMs: nowMs,
	})
	return nil
}
