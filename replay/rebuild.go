package replay

import (
	"fmt"

	"pong-lite/pong"
	"pong-lite/wire"
)

// Events decodes the tape in order. Sequence numbers must increase.
func Events(tape *Tape) ([]pong.Event, error) {
	if tape == nil {
		return nil, &ReplayError{StepIndex: -1, Reason: "nil_tape", Message: "tape is nil"}
	}
	if tape.TapeVersion != TapeVersion {
		return nil, &ReplayError{StepIndex: -1, Reason: "unsupported_version", Message: fmt.Sprintf("tape version %d", tape.TapeVersion)}
	}
	out := make([]pong.Event, 0, len(tape.Events))
	var prev uint64
	for i, te := range tape.Events {
		if i > 0 && te.Seq <= prev {
			return nil, &ReplayError{
				StepIndex: int32(i),
				Reason:    "out_of_order",
				Message:   fmt.Sprintf("seq %d after %d", te.Seq, prev),
			}
		}
		prev = te.Seq
		e, err := wire.Decode(te.Payload, te.ReceivedAtMs)
		if err != nil {
			return nil, &ReplayError{StepIndex: int32(i), Reason: "decode_failed", Message: err.Error()}
		}
		out = append(out, e)
	}
	return out, nil
}

// Rebuild folds the whole tape as a peer that saw every event would.
func Rebuild(tape *Tape) (pong.SessionState, error) {
	events, err := Events(tape)
	if err != nil {
		return pong.SessionState{}, err
	}
	return pong.ApplyHistory(events), nil
}

// RebuildWindow folds only the last n events, as a late joiner with a
// bounded history would, then overlays status when given.
func RebuildWindow(tape *Tape, n int, status *pong.Status) (pong.SessionState, error) {
	events, err := Events(tape)
	if err != nil {
		return pong.SessionState{}, err
	}
	if n >= 0 && n < len(events) {
		events = events[len(events)-n:]
	}
	s := pong.ApplyHistory(events)
	if status != nil {
		s = pong.ReconcileWithSnapshot(*status, s)
	}
	return s, nil
}

// Step is the state after one tape event.
type Step struct {
	Seq   uint64
	Type  string
	State pong.SessionState
}

// Timeline folds the tape and keeps every intermediate state.
func Timeline(tape *Tape) ([]Step, error) {
	events, err := Events(tape)
	if err != nil {
		return nil, err
	}
	steps := make([]Step, 0, len(events))
	s := pong.Replay(pong.NewSessionState(), nil)
	for i, e := range events {
		s = pong.ApplyLiveEvent(e, s)
		steps = append(steps, Step{Seq: tape.Events[i].Seq, Type: tape.Events[i].Type, State: s})
	}
	return steps, nil
}
