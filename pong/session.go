package pong

// SessionState is the lobby, score and position view shared by every
// subsystem of a peer. It is a plain value: the reconciler returns a new
// state instead of mutating the caller's copy.
type SessionState struct {
	Occupied    PerSlot[bool]
	RoundActive bool
	Score       PerSlot[int]
	PaddleY     PerSlot[float64]
	Ball        BallSample
	Authority   AuthorityClaim
	Local       Slot

	// Synced is set once history has been folded.
	Synced bool
	// Seq counts applied events.
	Seq uint64
}

// NewSessionState returns the state of a freshly connected peer.
func NewSessionState() SessionState {
	return SessionState{
		PaddleY: PerSlot[float64]{First: DefaultPaddleY, Second: DefaultPaddleY},
	}
}

// DefaultPaddleY is the resting paddle position, restored when a game ends.
const DefaultPaddleY = 115

// Mode derives the client screen from the state.
func (s SessionState) Mode() Mode {
	switch {
	case !s.Synced:
		return ModeConnecting
	case !s.RoundActive:
		return ModeLobby
	case s.Local.Valid():
		return ModePlaying
	default:
		return ModeSpectating
	}
}

// Spectating reports whether the local peer has no slot.
func (s SessionState) Spectating() bool { return !s.Local.Valid() }

// Present reports whether slot is taken, counting the local slot as taken
// even before its join event arrives.
func (s SessionState) Present(slot Slot) bool {
	return slot.Valid() && (s.Occupied.Get(slot) || s.Local == slot)
}

// TotalScore is the sum of both scores; its parity picks the serve side.
func (s SessionState) TotalScore() int { return s.Score.First + s.Score.Second }
