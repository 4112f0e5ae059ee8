package wire

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"pong-lite/pong"
)

func TestDecode_Publications(t *testing.T) {
	cases := []struct {
		raw  string
		want pong.Event
	}{
		{`{"type":"player_joined","data":{"place":"first"}}`, pong.PlayerJoined{Slot: pong.SlotFirst}},
		{`{"type":"player_left","data":{"place":"second"}}`, pong.PlayerLeft{Slot: pong.SlotSecond}},
		{`{"type":"game_started"}`, pong.RoundStarted{}},
		{`{"type":"game_ended","data":{}}`, pong.RoundEnded{}},
		{`{"type":"goal","data":{"scored_by":"first","first_score":3,"second_score":1}}`,
			pong.Goal{ScoredBy: pong.SlotFirst, FirstScore: 3, SecondScore: 1}},
		{`{"type":"move","data":{"place":"second","paddle_y":120,"client_ts_ms":77}}`,
			pong.Moved{Slot: pong.SlotSecond, PaddleY: pong.Float(120), ClientTsMs: 77, ReceivedAtMs: 500}},
		{`{"type":"move","data":{"place":"first","paddle_y":10,"ball_x":5,"ball_y":6,"ball_vx":-3,"ball_vy":0}}`,
			pong.Moved{Slot: pong.SlotFirst, PaddleY: pong.Float(10), BallX: pong.Float(5), BallY: pong.Float(6),
				BallVx: pong.Float(-3), BallVy: pong.Float(0), ReceivedAtMs: 500}},
	}
	for _, c := range cases {
		got, err := Decode([]byte(c.raw), 500)
		if err != nil {
			t.Fatalf("%s: %v", c.raw, err)
		}
		if diff := cmp.Diff(c.want, got); diff != "" {
			t.Fatalf("%s (-want +got):\n%s", c.raw, diff)
		}
	}
}

func TestDecode_AbsentBallVelocityStaysNil(t *testing.T) {
	e, err := Decode([]byte(`{"type":"move","data":{"place":"first","ball_x":1,"ball_y":2}}`), 0)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	m := e.(pong.Moved)
	if !m.CarriesBall() || m.BallVx != nil || m.BallVy != nil || m.PaddleY != nil {
		t.Fatalf("unexpected move %+v", m)
	}
}

func TestDecode_Errors(t *testing.T) {
	cases := []struct {
		raw  string
		want error
	}{
		{`{"type":"serve"}`, ErrUnknownType},
		{`{"type":"move","data":{"paddle_y":3}}`, ErrMissingField},
		{`{"type":"player_joined"}`, ErrMissingField},
		{`{"type":"goal","data":{"first_score":1}}`, ErrMissingField},
		{`{"type":"player_left","data":{"place":"third"}}`, pong.ErrInvalidSlot},
	}
	for _, c := range cases {
		if _, err := Decode([]byte(c.raw), 0); !errors.Is(err, c.want) {
			t.Fatalf("%s: expected %v, got %v", c.raw, c.want, err)
		}
	}
	if _, err := Decode([]byte(`not json`), 0); err == nil {
		t.Fatalf("expected error for malformed payload")
	}
}

func TestEncode_RoundTrip(t *testing.T) {
	events := []pong.Event{
		pong.PlayerJoined{Slot: pong.SlotSecond},
		pong.PlayerLeft{Slot: pong.SlotFirst},
		pong.RoundStarted{},
		pong.RoundEnded{},
		pong.Moved{Slot: pong.SlotFirst, PaddleY: pong.Float(33), BallX: pong.Float(1), BallY: pong.Float(2), BallVx: pong.Float(0), ClientTsMs: 9, ReceivedAtMs: 42},
		pong.Goal{ScoredBy: pong.SlotSecond, FirstScore: 0, SecondScore: 4},
	}
	for _, e := range events {
		raw, err := Encode(e)
		if err != nil {
			t.Fatalf("encode %s: %v", e.Type(), err)
		}
		got, err := Decode(raw, 42)
		if err != nil {
			t.Fatalf("decode %s: %v", raw, err)
		}
		if diff := cmp.Diff(e, got); diff != "" {
			t.Fatalf("%s round trip (-want +got):\n%s", e.Type(), diff)
		}
	}
}

func TestDecodePrivate_EnemyMove(t *testing.T) {
	raw, err := EncodeEnemyMove(88)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	e, err := DecodePrivate(raw, pong.SlotFirst, 10)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	want := pong.Moved{Slot: pong.SlotSecond, PaddleY: pong.Float(88), ReceivedAtMs: 10}
	if diff := cmp.Diff(want, e); diff != "" {
		t.Fatalf("(-want +got):\n%s", diff)
	}

	if _, err := DecodePrivate(raw, pong.SlotNone, 0); !errors.Is(err, pong.ErrInvalidSlot) {
		t.Fatalf("spectator private event: expected ErrInvalidSlot, got %v", err)
	}
	if _, err := DecodePrivate([]byte(`{"type":"enemy_move"}`), pong.SlotSecond, 0); !errors.Is(err, ErrMissingField) {
		t.Fatalf("expected ErrMissingField, got %v", err)
	}
	if _, err := DecodePrivate([]byte(`{"type":"chat"}`), pong.SlotSecond, 0); !errors.Is(err, ErrUnknownType) {
		t.Fatalf("expected ErrUnknownType, got %v", err)
	}
}

func TestEncodeMove(t *testing.T) {
	raw, err := EncodeMove(pong.MoveIntent{Dy: -5, ClientTsMs: 100})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if string(raw) != `{"dy":-5,"client_ts_ms":100}` {
		t.Fatalf("unexpected payload %s", raw)
	}

	raw, err = EncodeMove(pong.MoveIntent{Dy: 0, ClientTsMs: 1, Ball: &pong.BallSample{Known: true, X: 1, Y: 2, Vx: 3, Vy: 0}})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	var req MoveRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if req.BallVy == nil || *req.BallVy != 0 || req.BallX == nil || *req.BallX != 1 {
		t.Fatalf("expected ball fields including zero velocity, got %s", raw)
	}
}

func TestEncodeGoal(t *testing.T) {
	raw, err := EncodeGoal(pong.GoalIntent{ScoredBy: pong.SlotSecond, ClientTsMs: 3})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if string(raw) != `{"scored_by":"second","client_ts_ms":3}` {
		t.Fatalf("unexpected payload %s", raw)
	}
	if _, err := EncodeGoal(pong.GoalIntent{}); !errors.Is(err, pong.ErrInvalidSlot) {
		t.Fatalf("expected ErrInvalidSlot, got %v", err)
	}
}

func TestDecodeStatus_AbsentFields(t *testing.T) {
	s, err := DecodeStatus([]byte(`{"game_started":true,"first_score":2}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if s.RoundActive == nil || !*s.RoundActive || s.FirstScore == nil || *s.FirstScore != 2 {
		t.Fatalf("present fields lost: %+v", s)
	}
	if s.FirstTaken != nil || s.SecondTaken != nil || s.SecondScore != nil || s.FirstPaddleY != nil {
		t.Fatalf("absent fields must stay nil: %+v", s)
	}

	raw, err := EncodeStatus(s)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	back, err := DecodeStatus(raw)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if diff := cmp.Diff(s, back); diff != "" {
		t.Fatalf("status round trip (-want +got):\n%s", diff)
	}
}
