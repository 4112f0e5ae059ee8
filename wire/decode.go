package wire

import (
	"encoding/json"
	"fmt"

	"pong-lite/pong"
)

var typeByName = func() map[string]pong.EventType {
	m := make(map[string]pong.EventType, len(pong.EventTypeDictionary))
	for t, name := range pong.EventTypeDictionary {
		m[name] = t
	}
	return m
}()

// Decode parses a public publication. receivedAtMs is the local receipt
// time, which becomes the authority claim time of a move carrying the ball.
func Decode(raw []byte, receivedAtMs int64) (pong.Event, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}
	t, ok := typeByName[env.Type]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, env.Type)
	}

	var data EventData
	if len(env.Data) > 0 && string(env.Data) != "null" {
		if err := json.Unmarshal(env.Data, &data); err != nil {
			return nil, fmt.Errorf("decode %s data: %w", env.Type, err)
		}
	}

	switch t {
	case pong.EventPlayerJoined:
		slot, err := place(data.Place)
		if err != nil {
			return nil, err
		}
		return pong.PlayerJoined{Slot: slot}, nil
	case pong.EventPlayerLeft:
		slot, err := place(data.Place)
		if err != nil {
			return nil, err
		}
		return pong.PlayerLeft{Slot: slot}, nil
	case pong.EventRoundStarted:
		return pong.RoundStarted{}, nil
	case pong.EventRoundEnded:
		return pong.RoundEnded{}, nil
	case pong.EventMoved:
		slot, err := place(data.Place)
		if err != nil {
			return nil, err
		}
		m := pong.Moved{
			Slot:         slot,
			PaddleY:      data.PaddleY,
			BallX:        data.BallX,
			BallY:        data.BallY,
			BallVx:       data.BallVx,
			BallVy:       data.BallVy,
			ReceivedAtMs: receivedAtMs,
		}
		if data.ClientTsMs != nil {
			m.ClientTsMs = *data.ClientTsMs
		}
		return m, nil
	case pong.EventGoal:
		if data.FirstScore == nil || data.SecondScore == nil {
			return nil, fmt.Errorf("%w: goal scores", ErrMissingField)
		}
		g := pong.Goal{FirstScore: *data.FirstScore, SecondScore: *data.SecondScore}
		if data.ScoredBy != "" {
			slot, err := pong.ParseSlot(data.ScoredBy)
			if err != nil {
				return nil, fmt.Errorf("scored_by %q: %w", data.ScoredBy, err)
			}
			g.ScoredBy = slot
		}
		return g, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownType, env.Type)
}

// DecodePrivate parses a private publication for the peer seated at local.
// An enemy_move becomes a Moved of the opponent's slot.
func DecodePrivate(raw []byte, local pong.Slot, receivedAtMs int64) (pong.Event, error) {
	var env PrivateEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("decode private envelope: %w", err)
	}
	if env.Type != TypeEnemyMove {
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, env.Type)
	}
	if !local.Valid() {
		return nil, pong.ErrInvalidSlot
	}
	if env.EnemyPaddleY == nil {
		return nil, fmt.Errorf("%w: enemy_paddle_y", ErrMissingField)
	}
	return pong.Moved{
		Slot:         local.Opponent(),
		PaddleY:      env.EnemyPaddleY,
		ReceivedAtMs: receivedAtMs,
	}, nil
}

// DecodeStatus parses a status snapshot. Absent fields stay nil.
func DecodeStatus(raw []byte) (pong.Status, error) {
	var r StatusResponse
	if err := json.Unmarshal(raw, &r); err != nil {
		return pong.Status{}, fmt.Errorf("decode status: %w", err)
	}
	return r.Status(), nil
}

// Status converts the response into the reconciler's snapshot.
func (r StatusResponse) Status() pong.Status {
	return pong.Status{
		FirstTaken:    r.FirstTaken,
		SecondTaken:   r.SecondTaken,
		RoundActive:   r.GameStarted,
		FirstScore:    r.FirstScore,
		SecondScore:   r.SecondScore,
		FirstPaddleY:  r.FirstPaddleY,
		SecondPaddleY: r.SecondPaddleY,
	}
}

func place(name string) (pong.Slot, error) {
	if name == "" {
		return pong.SlotNone, fmt.Errorf("%w: place", ErrMissingField)
	}
	slot, err := pong.ParseSlot(name)
	if err != nil {
		return pong.SlotNone, fmt.Errorf("place %q: %w", name, err)
	}
	return slot, nil
}
