//go:build js && wasm

package main

import (
	"encoding/json"
	"errors"
	"syscall/js"

	"pong-lite/replay"
)

// initRequest carries either a spec to generate from or a recorded tape.
type initRequest struct {
	Spec *replay.MatchSpec `json:"spec,omitempty"`
	Tape *replay.Tape      `json:"tape,omitempty"`
}

type initResponse struct {
	OK       bool                 `json:"ok"`
	Timeline *replay.WireTimeline `json:"timeline,omitempty"`
	Error    *replay.ReplayError  `json:"error,omitempty"`
}

func main() {
	js.Global().Set("__replayInit", js.FuncOf(func(this js.Value, args []js.Value) any {
		if len(args) < 1 {
			return mustJSON(initResponse{
				OK:    false,
				Error: &replay.ReplayError{StepIndex: -1, Reason: "invalid_request", Message: "missing request payload"},
			})
		}
		return mustJSON(handleInit(args[0].String()))
	}))

	select {}
}

func handleInit(raw string) initResponse {
	var req initRequest
	if err := json.Unmarshal([]byte(raw), &req); err != nil {
		return failure("invalid_json", err)
	}

	tape := req.Tape
	if tape == nil {
		spec := replay.MatchSpec{}
		if req.Spec != nil {
			spec = *req.Spec
		}
		generated, err := replay.GenerateTape(spec)
		if err != nil {
			return failure("tape_generation_failed", err)
		}
		tape = generated
	}

	steps, err := replay.Timeline(tape)
	if err != nil {
		return failure("rebuild_failed", err)
	}
	return initResponse{
		OK:       true,
		Timeline: replay.ToWireTimeline(tape, steps),
	}
}

func failure(reason string, err error) initResponse {
	var replayErr *replay.ReplayError
	if errors.As(err, &replayErr) {
		return initResponse{OK: false, Error: replayErr}
	}
	return initResponse{
		OK:    false,
		Error: &replay.ReplayError{StepIndex: -1, Reason: reason, Message: err.Error()},
	}
}

func mustJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		fallback := initResponse{
			OK:    false,
			Error: &replay.ReplayError{StepIndex: -1, Reason: "marshal_failed", Message: err.Error()},
		}
		b2, _ := json.Marshal(fallback)
		return string(b2)
	}
	return string(b)
}
