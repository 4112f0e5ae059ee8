package transport

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"pong-lite/pong"
)

type recordingSink struct {
	events []pong.Event
}

func (s *recordingSink) Deliver(e pong.Event) error {
	s.events = append(s.events, e)
	return nil
}

func newTestClient(t *testing.T) (*Client, *recordingSink) {
	t.Helper()
	c, err := New(Config{URL: "ws://127.0.0.1:1/connection/websocket"}, nil)
	if err != nil {
		t.Fatalf("New err: %v", err)
	}
	c.now = func() int64 { return 1234 }
	sink := &recordingSink{}
	c.Bind(sink, nil)
	t.Cleanup(c.Close)
	return c, sink
}

func TestDecodeHistory_ReversesAndSkipsGarbage(t *testing.T) {
	newestFirst := [][]byte{
		[]byte(`{"type":"move","data":{"place":"first","paddle_y":80,"ball_x":10,"ball_y":20}}`),
		[]byte(`{"type":"goal","data":{"first_score":1,"second_score":0}}`),
		[]byte(`{"type":"teleport"}`),
		[]byte(`{"type":"game_started"}`),
		[]byte(`{"type":"player_joined","data":{"place":"first"}}`),
	}
	got := decodeHistory(newestFirst, 5)
	want := []pong.Event{
		pong.PlayerJoined{Slot: pong.SlotFirst},
		pong.RoundStarted{},
		pong.Goal{FirstScore: 1},
		pong.Moved{Slot: pong.SlotFirst, PaddleY: pong.Float(80), BallX: pong.Float(10), BallY: pong.Float(20), ReceivedAtMs: 5},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("unexpected history (-want +got):\n%s", diff)
	}
}

func TestClient_PublicationsReachSink(t *testing.T) {
	c, sink := newTestClient(t)
	c.handlePublic([]byte(`{"type":"move","data":{"place":"second","paddle_y":40}}`))
	c.handlePublic([]byte(`not json`))

	want := []pong.Event{pong.Moved{Slot: pong.SlotSecond, PaddleY: pong.Float(40), ReceivedAtMs: 1234}}
	if diff := cmp.Diff(want, sink.events); diff != "" {
		t.Fatalf("(-want +got):\n%s", diff)
	}
}

func TestClient_PrivateEnemyMoveTargetsOpponent(t *testing.T) {
	c, sink := newTestClient(t)

	// Before joining there is no slot to resolve the opponent from.
	c.handlePrivate([]byte(`{"type":"enemy_move","enemy_paddle_y":12}`))
	if len(sink.events) != 0 {
		t.Fatalf("expected private event to be skipped, got %+v", sink.events)
	}

	c.local = pong.SlotSecond
	c.handlePrivate([]byte(`{"type":"enemy_move","enemy_paddle_y":12}`))
	want := []pong.Event{pong.Moved{Slot: pong.SlotFirst, PaddleY: pong.Float(12), ReceivedAtMs: 1234}}
	if diff := cmp.Diff(want, sink.events); diff != "" {
		t.Fatalf("(-want +got):\n%s", diff)
	}
}

func TestClient_Guards(t *testing.T) {
	if _, err := New(Config{}, nil); err == nil {
		t.Fatalf("expected error for empty url")
	}
	c, err := New(Config{URL: "ws://127.0.0.1:1/connection/websocket"}, nil)
	if err != nil {
		t.Fatalf("New err: %v", err)
	}
	defer c.Close()
	if err := c.Connect(context.Background()); !errors.Is(err, ErrNotBound) {
		t.Fatalf("expected ErrNotBound, got %v", err)
	}
	if err := c.Authenticate(context.Background(), pong.SlotNone, Credentials{}); !errors.Is(err, pong.ErrInvalidSlot) {
		t.Fatalf("expected ErrInvalidSlot, got %v", err)
	}
	if _, err := c.Status(context.Background()); err != nil {
		t.Fatalf("status without source should be empty, got %v", err)
	}
}

func TestClient_EverySubscriptionResyncs(t *testing.T) {
	c, err := New(Config{URL: "ws://127.0.0.1:1/connection/websocket"}, nil)
	if err != nil {
		t.Fatalf("New err: %v", err)
	}
	defer c.Close()
	resyncs := 0
	c.Bind(&recordingSink{}, func() { resyncs++ })

	// A fetch started before the first subscription cannot read history,
	// so the first subscription must resync too.
	c.handleSubscribed()
	if resyncs != 1 {
		t.Fatalf("expected first subscription to resync, got %d", resyncs)
	}
	c.handleSubscribed()
	if resyncs != 2 {
		t.Fatalf("expected resubscription to resync, got %d", resyncs)
	}
}

func TestClient_HistoryBeforeConnectFails(t *testing.T) {
	c, _ := newTestClient(t)
	if _, err := c.History(context.Background(), 10); err == nil {
		t.Fatalf("expected history to fail before subscribing")
	}
}
