package wire

import (
	"encoding/json"
	"fmt"

	"pong-lite/pong"
)

// Encode renders an event as the backend would publish it. Moved loses its
// receipt stamp, which is local to the receiving peer.
func Encode(e pong.Event) ([]byte, error) {
	if e == nil {
		return nil, fmt.Errorf("%w: nil event", ErrUnknownType)
	}
	var enc encoder
	pong.Dispatch(e, &enc)
	env := Envelope{Type: e.Type().String()}
	if enc.data != nil {
		data, err := json.Marshal(enc.data)
		if err != nil {
			return nil, err
		}
		env.Data = data
	}
	return json.Marshal(env)
}

// EncodeMove renders a move intent as the pong.move RPC payload.
func EncodeMove(m pong.MoveIntent) ([]byte, error) {
	req := MoveRequest{Dy: m.Dy, ClientTsMs: m.ClientTsMs}
	if b := m.Ball; b != nil && b.Known {
		req.BallX = pong.Float(b.X)
		req.BallY = pong.Float(b.Y)
		req.BallVx = pong.Float(b.Vx)
		req.BallVy = pong.Float(b.Vy)
	}
	return json.Marshal(req)
}

// EncodeGoal renders a goal intent as the pong.goal RPC payload.
func EncodeGoal(g pong.GoalIntent) ([]byte, error) {
	if !g.ScoredBy.Valid() {
		return nil, pong.ErrInvalidSlot
	}
	return json.Marshal(GoalRequest{ScoredBy: g.ScoredBy.String(), ClientTsMs: g.ClientTsMs})
}

// EncodeStatus renders a snapshot as the status endpoint returns it.
func EncodeStatus(s pong.Status) ([]byte, error) {
	return json.Marshal(StatusResponse{
		FirstTaken:    s.FirstTaken,
		SecondTaken:   s.SecondTaken,
		GameStarted:   s.RoundActive,
		FirstScore:    s.FirstScore,
		SecondScore:   s.SecondScore,
		FirstPaddleY:  s.FirstPaddleY,
		SecondPaddleY: s.SecondPaddleY,
	})
}

// EncodeEnemyMove renders the private paddle update sent to the opponent.
func EncodeEnemyMove(paddleY float64) ([]byte, error) {
	return json.Marshal(PrivateEnvelope{Type: TypeEnemyMove, EnemyPaddleY: pong.Float(paddleY)})
}

type encoder struct {
	data *EventData
}

func (c *encoder) OnPlayerJoined(e pong.PlayerJoined) {
	c.data = &EventData{Place: e.Slot.String()}
}

func (c *encoder) OnPlayerLeft(e pong.PlayerLeft) {
	c.data = &EventData{Place: e.Slot.String()}
}

func (c *encoder) OnRoundStarted(pong.RoundStarted) {}

func (c *encoder) OnRoundEnded(pong.RoundEnded) {}

func (c *encoder) OnMoved(e pong.Moved) {
	d := &EventData{
		Place:   e.Slot.String(),
		PaddleY: e.PaddleY,
		BallX:   e.BallX,
		BallY:   e.BallY,
		BallVx:  e.BallVx,
		BallVy:  e.BallVy,
	}
	if e.ClientTsMs != 0 {
		ts := e.ClientTsMs
		d.ClientTsMs = &ts
	}
	c.data = d
}

func (c *encoder) OnGoal(e pong.Goal) {
	first, second := e.FirstScore, e.SecondScore
	d := &EventData{FirstScore: &first, SecondScore: &second}
	if e.ScoredBy.Valid() {
		d.ScoredBy = e.ScoredBy.String()
	}
	c.data = d
}
