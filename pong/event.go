package pong

// EventType is the discriminator carried on the wire.
type EventType byte

const (
	EventPlayerJoined EventType = 1
	EventPlayerLeft   EventType = 2
	EventRoundStarted EventType = 3
	EventRoundEnded   EventType = 4
	EventMoved        EventType = 5
	EventGoal         EventType = 6
)

var EventTypeDictionary = map[EventType]string{
	EventPlayerJoined: "player_joined",
	EventPlayerLeft:   "player_left",
	EventRoundStarted: "game_started",
	EventRoundEnded:   "game_ended",
	EventMoved:        "move",
	EventGoal:         "goal",
}

func (t EventType) String() string { return EventTypeDictionary[t] }

// Event is the closed set of lobby events. The unexported dispatch method
// keeps the set sealed to this package; EventHandler has one method per
// variant so a new variant breaks every handler at compile time.
type Event interface {
	Type() EventType
	dispatch(h EventHandler)
}

// EventHandler visits every Event variant.
type EventHandler interface {
	OnPlayerJoined(PlayerJoined)
	OnPlayerLeft(PlayerLeft)
	OnRoundStarted(RoundStarted)
	OnRoundEnded(RoundEnded)
	OnMoved(Moved)
	OnGoal(Goal)
}

// Dispatch calls the handler method matching e.
func Dispatch(e Event, h EventHandler) {
	if e == nil {
		return
	}
	e.dispatch(h)
}

type PlayerJoined struct {
	Slot Slot
}

type PlayerLeft struct {
	Slot Slot
}

type RoundStarted struct{}

// RoundEnded is the game-ended signal; it resets the lobby.
type RoundEnded struct{}

// Moved carries a paddle update and, from the ball authority, the ball.
// Nil fields were absent on the wire.
type Moved struct {
	Slot         Slot
	PaddleY      *float64
	BallX        *float64
	BallY        *float64
	BallVx       *float64
	BallVy       *float64
	ClientTsMs   int64
	ReceivedAtMs int64
}

// CarriesBall reports whether the move includes a ball position.
func (m Moved) CarriesBall() bool { return m.BallX != nil && m.BallY != nil }

// Goal carries the backend's score totals after a goal.
type Goal struct {
	ScoredBy    Slot
	FirstScore  int
	SecondScore int
}

func (PlayerJoined) Type() EventType { return EventPlayerJoined }
func (PlayerLeft) Type() EventType   { return EventPlayerLeft }
func (RoundStarted) Type() EventType { return EventRoundStarted }
func (RoundEnded) Type() EventType   { return EventRoundEnded }
func (Moved) Type() EventType        { return EventMoved }
func (Goal) Type() EventType         { return EventGoal }

func (e PlayerJoined) dispatch(h EventHandler) { h.OnPlayerJoined(e) }
func (e PlayerLeft) dispatch(h EventHandler)   { h.OnPlayerLeft(e) }
func (e RoundStarted) dispatch(h EventHandler) { h.OnRoundStarted(e) }
func (e RoundEnded) dispatch(h EventHandler)   { h.OnRoundEnded(e) }
func (e Moved) dispatch(h EventHandler)        { h.OnMoved(e) }
func (e Goal) dispatch(h EventHandler)         { h.OnGoal(e) }

// Float returns a pointer to v, for building optional event fields.
func Float(v float64) *float64 { return &v }
