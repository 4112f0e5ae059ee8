package pong

import "time"

// Election is the outcome of one authority evaluation.
type Election struct {
	// Holder is the slot expected to simulate the ball, SlotNone if nobody.
	Holder Slot
	// Local is true when Holder is the local peer's slot.
	Local bool
	// Claimed is true when Holder comes from a fresh claim rather than the
	// default rule.
	Claimed bool
}

// AuthorityCoordinator decides which peer simulates the ball. The default
// ClaimElector converges through expiring claims; a server-assigned or
// lock-based variant can be swapped in without touching the physics or
// interpolation code.
type AuthorityCoordinator interface {
	Elect(s SessionState, nowMs int64) Election
}

// ClaimElector elects from the last ball claim on the event stream.
type ClaimElector struct {
	Timeout time.Duration
}

func NewClaimElector(cfg Config) ClaimElector {
	return ClaimElector{Timeout: cfg.AuthorityTimeout}
}

func (c ClaimElector) Elect(s SessionState, nowMs int64) Election {
	holder, claimed := c.holder(s, nowMs)
	return Election{
		Holder:  holder,
		Local:   s.Local.Valid() && holder == s.Local,
		Claimed: claimed,
	}
}

func (c ClaimElector) holder(s SessionState, nowMs int64) (Slot, bool) {
	claim := s.Authority
	if claim.Slot.Valid() && nowMs-claim.ClaimedAtMs <= c.Timeout.Milliseconds() {
		return claim.Slot, true
	}
	// An expired holder yields to the other present slot.
	if claim.Slot.Valid() && s.Present(claim.Slot.Opponent()) {
		return claim.Slot.Opponent(), false
	}
	for _, slot := range Slots {
		if s.Present(slot) {
			return slot, false
		}
	}
	return SlotNone, false
}

// Transition describes how local authority changed between evaluations.
type Transition byte

const (
	TransitionNone   Transition = 0
	TransitionGained Transition = 1
	TransitionLost   Transition = 2
)

var TransitionDictionary = map[Transition]string{
	TransitionNone:   "none",
	TransitionGained: "gained",
	TransitionLost:   "lost",
}

func (t Transition) String() string { return TransitionDictionary[t] }

// AuthorityTracker remembers the previous election so callers can seed the
// engine exactly once when authority is gained.
type AuthorityTracker struct {
	coordinator AuthorityCoordinator
	last        Election
}

func NewAuthorityTracker(c AuthorityCoordinator) *AuthorityTracker {
	return &AuthorityTracker{coordinator: c}
}

// Update runs an election and reports the local transition.
func (t *AuthorityTracker) Update(s SessionState, nowMs int64) (Election, Transition) {
	e := t.coordinator.Elect(s, nowMs)
	if s.Spectating() {
		e.Local = false
	}
	prev := t.last
	t.last = e
	switch {
	case e.Local && !prev.Local:
		return e, TransitionGained
	case !e.Local && prev.Local:
		return e, TransitionLost
	default:
		return e, TransitionNone
	}
}

// Holding reports the result of the last election.
func (t *AuthorityTracker) Holding() bool { return t.last.Local }

// Last returns the last election.
func (t *AuthorityTracker) Last() Election { return t.last }
