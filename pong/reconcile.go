package pong

// ApplyHistory folds a chronological history window onto a fresh state.
// The fold only reads the events, so replaying the same window always
// yields the same state.
func ApplyHistory(events []Event) SessionState {
	return Replay(NewSessionState(), events)
}

// Replay folds events onto base and marks the result synced. The runtime
// uses it to keep its local slot across a history refresh.
func Replay(base SessionState, events []Event) SessionState {
	s := base
	f := fold{s: &s}
	for _, e := range events {
		f.apply(e)
	}
	s.Synced = true
	return s
}

// ApplyLiveEvent applies one inbound event in arrival order.
func ApplyLiveEvent(e Event, s SessionState) SessionState {
	next := s
	fold{s: &next}.apply(e)
	return next
}

// ReconcileWithSnapshot overlays a status snapshot. Round flag, occupancy
// and scores are taken from the snapshot whenever present because a bounded
// history window can miss the round start; ball and authority stay as the
// events left them.
func ReconcileWithSnapshot(snap Status, s SessionState) SessionState {
	next := s
	if snap.RoundActive != nil {
		next.RoundActive = *snap.RoundActive
	}
	if snap.FirstTaken != nil {
		next.Occupied.First = *snap.FirstTaken
	}
	if snap.SecondTaken != nil {
		next.Occupied.Second = *snap.SecondTaken
	}
	if snap.FirstScore != nil && *snap.FirstScore >= 0 {
		next.Score.First = *snap.FirstScore
	}
	if snap.SecondScore != nil && *snap.SecondScore >= 0 {
		next.Score.Second = *snap.SecondScore
	}
	if snap.FirstPaddleY != nil {
		next.PaddleY.First = *snap.FirstPaddleY
	}
	if snap.SecondPaddleY != nil {
		next.PaddleY.Second = *snap.SecondPaddleY
	}
	return next
}

// fold applies the per-event rules shared by history and live paths.
type fold struct {
	s *SessionState
}

func (f fold) apply(e Event) {
	if e == nil {
		return
	}
	Dispatch(e, f)
	f.s.Seq++
}

func (f fold) OnPlayerJoined(e PlayerJoined) {
	f.s.Occupied.Set(e.Slot, true)
}

func (f fold) OnPlayerLeft(e PlayerLeft) {
	if !e.Slot.Valid() {
		return
	}
	f.s.Occupied.Set(e.Slot, false)
	// Two active slots are required for a round.
	f.s.RoundActive = false
	if f.s.Local == e.Slot {
		f.s.Local = SlotNone
		f.s.Authority = AuthorityClaim{}
	}
	if f.s.Authority.Slot == e.Slot {
		f.s.Authority = AuthorityClaim{}
	}
}

func (f fold) OnRoundStarted(RoundStarted) {
	f.s.RoundActive = true
	f.s.Ball = BallSample{}
}

func (f fold) OnRoundEnded(RoundEnded) {
	f.s.RoundActive = false
	f.s.Occupied = PerSlot[bool]{}
	f.s.Score = PerSlot[int]{}
	f.s.PaddleY = PerSlot[float64]{First: DefaultPaddleY, Second: DefaultPaddleY}
	f.s.Ball = BallSample{}
	f.s.Authority = AuthorityClaim{}
	f.s.Local = SlotNone
}

func (f fold) OnMoved(e Moved) {
	if !e.Slot.Valid() {
		return
	}
	if e.PaddleY != nil {
		f.s.PaddleY.Set(e.Slot, *e.PaddleY)
	}
	if !e.CarriesBall() {
		return
	}
	b := f.s.Ball
	b.Known = true
	b.X, b.Y = *e.BallX, *e.BallY
	if e.BallVx != nil {
		b.Vx = *e.BallVx
	}
	if e.BallVy != nil {
		b.Vy = *e.BallVy
	}
	b.ReceivedAtMs = e.ReceivedAtMs
	f.s.Ball = b
	f.s.Authority = AuthorityClaim{Slot: e.Slot, ClaimedAtMs: e.ReceivedAtMs}
}

func (f fold) OnGoal(e Goal) {
	if e.FirstScore < 0 || e.SecondScore < 0 {
		return
	}
	// Totals overwrite: both scorers may report the same goal.
	f.s.Score = PerSlot[int]{First: e.FirstScore, Second: e.SecondScore}
}
