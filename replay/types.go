package replay

import (
	"encoding/json"

	"pong-lite/wire"
)

const TapeVersion = 1

// MatchSpec describes a scripted match for GenerateTape.
type MatchSpec struct {
	MatchID  string       `json:"match_id,omitempty"`
	Seed     int64        `json:"seed,omitempty"`
	WinScore int          `json:"win_score,omitempty"`
	MaxTicks int          `json:"max_ticks,omitempty"`
	Paddles  []PaddleSpec `json:"paddles,omitempty"`
}

// PaddleSpec configures the tracking bot playing one place. Skill scales
// the paddle step; 1 moves at full paddle speed.
type PaddleSpec struct {
	Place    string  `json:"place"`
	Skill    float64 `json:"skill"`
	Deadzone float64 `json:"deadzone,omitempty"`
}

// Tape is an ordered recording of lobby publications as one peer received
// them.
type Tape struct {
	TapeVersion int     `json:"tape_version"`
	MatchID     string  `json:"match_id"`
	Events      []Event `json:"events"`

	// Status is the backend status at the end of the recording, if known.
	Status *wire.StatusResponse `json:"status,omitempty"`
}

// Event is one publication. Payload is the raw wire envelope.
type Event struct {
	Seq          uint64          `json:"seq"`
	Type         string          `json:"type"`
	Payload      json.RawMessage `json:"payload"`
	ReceivedAtMs int64           `json:"received_at_ms"`
}
