package match

import (
	"context"
	"errors"
	"math"
	"sync"
	"time"

	"pong-lite/pong"
)

// memoryBus stands in for the backend and the pub/sub server: it applies
// RPCs the way the backend does and fans publications out to every match.
type memoryBus struct {
	cfg pong.Config

	mu         sync.Mutex
	log        []pong.Event
	taken      pong.PerSlot[bool]
	started    bool
	score      pong.PerSlot[int]
	paddles    pong.PerSlot[float64]
	subs       []*Match
	historyErr error
	goals      int
	moves      []sentMove

	// historyGate, when set, holds every History call until closed.
	historyGate chan struct{}
	// historyFailures fails that many History calls before serving any.
	historyFailures int
}

type sentMove struct {
	slot pong.Slot
	move pong.MoveIntent
}

var errNotSubscribed = errors.New("history: not subscribed")

func newMemoryBus(cfg pong.Config) *memoryBus {
	return &memoryBus{
		cfg:     cfg,
		paddles: pong.PerSlot[float64]{First: pong.DefaultPaddleY, Second: pong.DefaultPaddleY},
	}
}

type busPeer struct {
	bus *memoryBus

	mu   sync.Mutex
	slot pong.Slot
}

func (b *memoryBus) attach(m *Match) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs = append(b.subs, m)
}

// publishLocked appends e to the channel history and delivers it, stamping
// moves with the receipt time.
func (b *memoryBus) publishLocked(e pong.Event) {
	b.log = append(b.log, e)
	for _, m := range b.subs {
		out := e
		if mv, ok := e.(pong.Moved); ok {
			mv.ReceivedAtMs = time.Now().UnixMilli()
			out = mv
		}
		_ = m.Deliver(out)
	}
}

func (b *memoryBus) join(p *busPeer, m *Match, slot pong.Slot) {
	b.mu.Lock()
	b.taken.Set(slot, true)
	b.publishLocked(pong.PlayerJoined{Slot: slot})
	b.mu.Unlock()

	p.mu.Lock()
	p.slot = slot
	p.mu.Unlock()
	_ = m.SetLocal(slot)
}

func (b *memoryBus) start() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.started = true
	b.publishLocked(pong.RoundStarted{})
}

func (b *memoryBus) paddle(slot pong.Slot) float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.paddles.Get(slot)
}

// park places slot's paddle at y and publishes it like a move.
func (b *memoryBus) park(slot pong.Slot, y float64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.paddles.Set(slot, y)
	b.publishLocked(pong.Moved{Slot: slot, PaddleY: pong.Float(y)})
}

func (b *memoryBus) movesFrom(slot pong.Slot) []pong.MoveIntent {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []pong.MoveIntent
	for _, m := range b.moves {
		if m.slot == slot {
			out = append(out, m.move)
		}
	}
	return out
}

func (b *memoryBus) scores() pong.PerSlot[int] {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.score
}

func (b *memoryBus) goalCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.goals
}

func (p *busPeer) History(ctx context.Context, limit int) ([]pong.Event, error) {
	b := p.bus
	if b.historyGate != nil {
		select {
		case <-b.historyGate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.historyFailures > 0 {
		b.historyFailures--
		return nil, errNotSubscribed
	}
	if b.historyErr != nil {
		return nil, b.historyErr
	}
	events := b.log
	if len(events) > limit {
		events = events[len(events)-limit:]
	}
	return append([]pong.Event(nil), events...), nil
}

func (p *busPeer) Status(ctx context.Context) (pong.Status, error) {
	b := p.bus
	b.mu.Lock()
	defer b.mu.Unlock()
	first, second, started := b.taken.First, b.taken.Second, b.started
	fs, ss := b.score.First, b.score.Second
	return pong.Status{
		FirstTaken:  &first,
		SecondTaken: &second,
		RoundActive: &started,
		FirstScore:  &fs,
		SecondScore: &ss,
	}, nil
}

func (p *busPeer) SendMove(ctx context.Context, mv pong.MoveIntent) error {
	p.mu.Lock()
	slot := p.slot
	p.mu.Unlock()
	if !slot.Valid() {
		return pong.ErrInvalidSlot
	}

	b := p.bus
	b.mu.Lock()
	defer b.mu.Unlock()
	b.moves = append(b.moves, sentMove{slot: slot, move: mv})
	y := math.Max(0, math.Min(b.cfg.FieldHeight-b.cfg.PaddleHeight, b.paddles.Get(slot)+mv.Dy))
	b.paddles.Set(slot, y)
	e := pong.Moved{Slot: slot, PaddleY: pong.Float(y), ClientTsMs: mv.ClientTsMs}
	if mv.Ball != nil {
		e.BallX, e.BallY = pong.Float(mv.Ball.X), pong.Float(mv.Ball.Y)
		e.BallVx, e.BallVy = pong.Float(mv.Ball.Vx), pong.Float(mv.Ball.Vy)
	}
	b.publishLocked(e)
	return nil
}

func (p *busPeer) ReportGoal(ctx context.Context, g pong.GoalIntent) error {
	if !g.ScoredBy.Valid() {
		return errors.New("bad scorer")
	}
	b := p.bus
	b.mu.Lock()
	defer b.mu.Unlock()
	b.goals++
	b.score.Set(g.ScoredBy, b.score.Get(g.ScoredBy)+1)
	b.publishLocked(pong.Goal{ScoredBy: g.ScoredBy, FirstScore: b.score.First, SecondScore: b.score.Second})
	return nil
}
