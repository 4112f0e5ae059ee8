// Package wire holds the JSON formats spoken with the pong backend: public
// lobby publications, private per-player publications, RPC payloads and the
// status snapshot.
package wire

import "encoding/json"

const (
	// PublicChannel carries the lobby event stream.
	PublicChannel = "pong_public:lobby"

	MethodMove = "pong.move"
	MethodGoal = "pong.goal"

	// TypeEnemyMove is the only private event type.
	TypeEnemyMove = "enemy_move"
)

// Envelope is one public publication.
type Envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// EventData is the union of all public event payload fields. Pointers are
// nil when the field was absent.
type EventData struct {
	Place       string   `json:"place,omitempty"`
	PaddleY     *float64 `json:"paddle_y,omitempty"`
	BallX       *float64 `json:"ball_x,omitempty"`
	BallY       *float64 `json:"ball_y,omitempty"`
	BallVx      *float64 `json:"ball_vx,omitempty"`
	BallVy      *float64 `json:"ball_vy,omitempty"`
	ClientTsMs  *int64   `json:"client_ts_ms,omitempty"`
	ScoredBy    string   `json:"scored_by,omitempty"`
	FirstScore  *int     `json:"first_score,omitempty"`
	SecondScore *int     `json:"second_score,omitempty"`
}

// PrivateEnvelope is a publication on a player's private channel.
type PrivateEnvelope struct {
	Type         string   `json:"type"`
	EnemyPaddleY *float64 `json:"enemy_paddle_y,omitempty"`
}

// MoveRequest is the pong.move RPC payload. Ball fields are sent only by
// the ball authority.
type MoveRequest struct {
	Dy         float64  `json:"dy"`
	ClientTsMs int64    `json:"client_ts_ms"`
	BallX      *float64 `json:"ball_x,omitempty"`
	BallY      *float64 `json:"ball_y,omitempty"`
	BallVx     *float64 `json:"ball_vx,omitempty"`
	BallVy     *float64 `json:"ball_vy,omitempty"`
}

// GoalRequest is the pong.goal RPC payload.
type GoalRequest struct {
	ScoredBy   string `json:"scored_by"`
	ClientTsMs int64  `json:"client_ts_ms"`
}

// StatusResponse is the body of GET /v1/games/status.
type StatusResponse struct {
	FirstTaken    *bool    `json:"first_taken,omitempty"`
	SecondTaken   *bool    `json:"second_taken,omitempty"`
	GameStarted   *bool    `json:"game_started,omitempty"`
	FirstScore    *int     `json:"first_score,omitempty"`
	SecondScore   *int     `json:"second_score,omitempty"`
	FirstPaddleY  *float64 `json:"first_paddle_y,omitempty"`
	SecondPaddleY *float64 `json:"second_paddle_y,omitempty"`
}
