package journal

import (
	"context"
	"encoding/json"
	"fmt"

	"pong-lite/replay"
)

// ToTape converts a match's entries into a replay tape.
func ToTape(matchID string, entries []Entry) *replay.Tape {
	tape := &replay.Tape{
		TapeVersion: replay.TapeVersion,
		MatchID:     matchID,
		Events:      make([]replay.Event, 0, len(entries)),
	}
	for _, e := range entries {
		tape.Events = append(tape.Events, replay.Event{
			Seq:          e.Seq,
			Type:         e.EventType,
			Payload:      json.RawMessage(e.Payload),
			ReceivedAtMs: e.ReceivedAtMs,
		})
	}
	return tape
}

// LoadTape reads a recorded match from store as a tape.
func LoadTape(ctx context.Context, store Store, matchID string) (*replay.Tape, error) {
	entries, err := store.Load(ctx, matchID)
	if err != nil {
		return nil, fmt.Errorf("load match %s: %w", matchID, err)
	}
	return ToTape(matchID, entries), nil
}
