package pong

// Slot identifies one of the two player places at the table.
type Slot byte

const (
	SlotNone   Slot = 0
	SlotFirst  Slot = 1
	SlotSecond Slot = 2
)

var SlotDictionary = map[Slot]string{
	SlotNone:   "none",
	SlotFirst:  "first",
	SlotSecond: "second",
}

// Slots lists the playable slots in tie-break order.
var Slots = [2]Slot{SlotFirst, SlotSecond}

func (s Slot) String() string {
	if name, ok := SlotDictionary[s]; ok {
		return name
	}
	return "unknown"
}

func (s Slot) Valid() bool { return s == SlotFirst || s == SlotSecond }

// Opponent returns the other playable slot, or SlotNone for SlotNone.
func (s Slot) Opponent() Slot {
	switch s {
	case SlotFirst:
		return SlotSecond
	case SlotSecond:
		return SlotFirst
	default:
		return SlotNone
	}
}

// ParseSlot maps the wire place name to a Slot.
func ParseSlot(name string) (Slot, error) {
	switch name {
	case "first":
		return SlotFirst, nil
	case "second":
		return SlotSecond, nil
	default:
		return SlotNone, ErrInvalidSlot
	}
}

// PerSlot holds one value for each playable slot.
type PerSlot[T any] struct {
	First  T
	Second T
}

func (p PerSlot[T]) Get(s Slot) T {
	if s == SlotSecond {
		return p.Second
	}
	return p.First
}

// Set stores v for s. SlotNone is ignored.
func (p *PerSlot[T]) Set(s Slot, v T) {
	switch s {
	case SlotFirst:
		p.First = v
	case SlotSecond:
		p.Second = v
	}
}

// Mode mirrors the screens of the game client.
type Mode byte

const (
	ModeConnecting Mode = 0
	ModeLobby      Mode = 1
	ModePlaying    Mode = 2
	ModeSpectating Mode = 3
)

var ModeDictionary = map[Mode]string{
	ModeConnecting: "connecting",
	ModeLobby:      "lobby",
	ModePlaying:    "playing",
	ModeSpectating: "spectating",
}

func (m Mode) String() string { return ModeDictionary[m] }

// BallSample is a ball position/velocity as observed on the event stream.
type BallSample struct {
	Known        bool
	X, Y         float64
	Vx, Vy       float64
	ReceivedAtMs int64
}

// AuthorityClaim records who last broadcast ball state and when.
type AuthorityClaim struct {
	Slot        Slot
	ClaimedAtMs int64
}

// Status is a point-in-time lobby summary fetched from the backend.
// Nil fields were absent from the payload and must not overwrite state.
type Status struct {
	FirstTaken    *bool
	SecondTaken   *bool
	RoundActive   *bool
	FirstScore    *int
	SecondScore   *int
	FirstPaddleY  *float64
	SecondPaddleY *float64
}

// MoveIntent is an outbound paddle move. Ball is set only when the sender
// holds ball authority.
type MoveIntent struct {
	Dy         float64
	ClientTsMs int64
	Ball       *BallSample
}

// GoalIntent reports a locally simulated goal to the backend.
type GoalIntent struct {
	ScoredBy   Slot
	ClientTsMs int64
}
