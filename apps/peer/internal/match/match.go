package match

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"pong-lite/pong"
)

// Transport is what the match needs from the pub/sub backend. Live events
// are not pulled; the adapter pushes them with Deliver.
type Transport interface {
	// History returns up to limit recent lobby events, oldest first.
	History(ctx context.Context, limit int) ([]pong.Event, error)
	Status(ctx context.Context) (pong.Status, error)
	SendMove(ctx context.Context, m pong.MoveIntent) error
	ReportGoal(ctx context.Context, g pong.GoalIntent) error
}

// Config contains runtime settings for a match.
type Config struct {
	Game pong.Config
	// Coordinator elects the ball authority. Nil means the claim elector.
	Coordinator pong.AuthorityCoordinator
	OutboxSize  int
	RPCTimeout  time.Duration
	// Now returns wall time in milliseconds. Nil means time.Now.
	Now func() int64
}

// EventInfo is passed to event hooks after an inbound event is applied.
type EventInfo struct {
	MatchID      string
	Event        pong.Event
	Seq          uint64
	ReceivedAtMs int64
	// History is true for events folded from a history fetch.
	History bool
	// Fetch counts history fetches from 1; zero for live events.
	Fetch int
}

// EventHook observes applied events. Hooks run on the actor goroutine and
// must not block.
type EventHook func(info EventInfo)

var ErrStopped = errors.New("match stopped")

const (
	defaultOutboxSize = 64
	defaultRPCTimeout = 2 * time.Second
	commandBuffer     = 256
)

type commandType int

const (
	commandDeliver commandType = iota
	commandHistory
	commandStatus
	commandSetLocal
	commandControl
	commandResync
)

type command struct {
	Type    commandType
	Event   pong.Event
	Events  []pong.Event
	Status  pong.Status
	Slot    pong.Slot
	Control pong.Control
	Err     error
}

type outboundType int

const (
	outboundMove outboundType = iota
	outboundGoal
)

type outbound struct {
	Type outboundType
	Move pong.MoveIntent
	Goal pong.GoalIntent
}

// Match is the peer-side state container. One goroutine, started by Run,
// owns the session state, the ball engine, the interpolator and the paddle
// controller; everything else talks to it through commands.
type Match struct {
	ID string

	cfg       Config
	transport Transport
	commands  chan command
	outbox    chan outbound
	frame     atomic.Pointer[Frame]
	stopping  chan struct{}
	done      chan struct{}
	stopOnce  sync.Once

	mu    sync.Mutex
	hooks []EventHook

	// Owned by the actor goroutine.
	state    pong.SessionState
	fetching bool
	refetch  bool
	pending  []pong.Event
	status   *pong.Status
	engine   *pong.BallEngine
	interp   *pong.Interpolator
	paddle   *pong.PaddleController
	tracker  *pong.AuthorityTracker
	control  pong.Control
	frameSeq uint64
	fetches  int
}

// New creates a match. It does not start until Run is called.
func New(id string, cfg Config, transport Transport) (*Match, error) {
	if transport == nil {
		return nil, fmt.Errorf("match %s: nil transport", id)
	}
	if err := cfg.Game.Validate(); err != nil {
		return nil, fmt.Errorf("match %s: %w", id, err)
	}
	if cfg.Coordinator == nil {
		cfg.Coordinator = pong.NewClaimElector(cfg.Game)
	}
	if cfg.OutboxSize <= 0 {
		cfg.OutboxSize = defaultOutboxSize
	}
	if cfg.RPCTimeout <= 0 {
		cfg.RPCTimeout = defaultRPCTimeout
	}
	if cfg.Now == nil {
		cfg.Now = func() int64 { return time.Now().UnixMilli() }
	}

	m := &Match{
		ID:        id,
		cfg:       cfg,
		transport: transport,
		commands:  make(chan command, commandBuffer),
		outbox:    make(chan outbound, cfg.OutboxSize),
		stopping:  make(chan struct{}),
		done:      make(chan struct{}),
		state:     pong.NewSessionState(),
		engine:    pong.NewBallEngine(cfg.Game),
		interp:    pong.NewInterpolator(cfg.Game),
		paddle:    pong.NewPaddleController(cfg.Game),
		tracker:   pong.NewAuthorityTracker(cfg.Coordinator),
	}
	m.publishFrame(cfg.Now())
	return m, nil
}

// AddEventHook registers a hook. Call before Run.
func (m *Match) AddEventHook(hook EventHook) {
	if hook == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hooks = append(m.hooks, hook)
}

// Run drives the match until ctx is cancelled. Every timer and goroutine it
// starts has exited when it returns.
func (m *Match) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	var wg sync.WaitGroup
	defer func() {
		m.stopOnce.Do(func() {
			// Reject commands before waiting, so a publisher blocked on a
			// full queue cannot hold up the sender goroutine.
			close(m.stopping)
			cancel()
			wg.Wait()
			close(m.done)
		})
		log.Printf("[Match %s] Actor stopped", m.ID)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		m.sendLoop(ctx)
	}()
	m.startFetch(ctx, &wg)

	frameTicker := time.NewTicker(m.cfg.Game.TickInterval)
	defer frameTicker.Stop()
	authorityTicker := time.NewTicker(m.cfg.Game.AuthorityInterval)
	defer authorityTicker.Stop()

	log.Printf("[Match %s] Started (history=%d tick=%s)", m.ID, m.cfg.Game.HistoryLimit, m.cfg.Game.TickInterval)
	for {
		select {
		case c := <-m.commands:
			m.handleCommand(ctx, c, &wg)
		case <-frameTicker.C:
			m.tick(m.cfg.Now())
		case <-authorityTicker.C:
			m.evaluateAuthority(m.cfg.Now())
			m.publishFrame(m.cfg.Now())
		case <-ctx.Done():
			return nil
		}
	}
}

// Deliver hands a live event to the actor in arrival order.
func (m *Match) Deliver(e pong.Event) error {
	if e == nil {
		return nil
	}
	return m.submit(command{Type: commandDeliver, Event: e})
}

// SetLocal records the slot granted by the lobby join, or SlotNone after
// leaving.
func (m *Match) SetLocal(slot pong.Slot) error {
	if slot != pong.SlotNone && !slot.Valid() {
		return pong.ErrInvalidSlot
	}
	return m.submit(command{Type: commandSetLocal, Slot: slot})
}

// SetControl replaces the held input state.
func (m *Match) SetControl(ctrl pong.Control) error {
	return m.submit(command{Type: commandControl, Control: ctrl})
}

// Resync refetches history and status, e.g. after the transport reconnects.
func (m *Match) Resync() error {
	return m.submit(command{Type: commandResync})
}

// Frame returns the latest render view. Never nil.
func (m *Match) Frame() *Frame {
	return m.frame.Load()
}

// Done is closed once Run has returned.
func (m *Match) Done() <-chan struct{} { return m.done }

func (m *Match) submit(c command) error {
	select {
	case <-m.stopping:
		return ErrStopped
	default:
	}
	select {
	case m.commands <- c:
		return nil
	case <-m.stopping:
		return ErrStopped
	}
}

func (m *Match) handleCommand(ctx context.Context, c command, wg *sync.WaitGroup) {
	now := m.cfg.Now()
	switch c.Type {
	case commandDeliver:
		if m.fetching {
			m.pending = append(m.pending, c.Event)
			return
		}
		m.applyLive(c.Event, now)
	case commandHistory:
		m.handleHistory(c.Events, c.Err, now)
		if m.refetch {
			m.refetch = false
			m.startFetch(ctx, wg)
		}
	case commandStatus:
		m.handleStatus(c.Status, c.Err, now)
	case commandSetLocal:
		prev := m.state
		m.state.Local = c.Slot
		log.Printf("[Match %s] Local slot %s -> %s", m.ID, prev.Local, c.Slot)
		m.afterChange(prev, now)
	case commandControl:
		m.control = c.Control
	case commandResync:
		// A fetch already in flight may have been issued before the
		// subscription existed; fetch again once it lands.
		if m.fetching {
			m.refetch = true
			return
		}
		m.startFetch(ctx, wg)
	default:
		log.Printf("[Match %s] Unknown command type: %d", m.ID, c.Type)
	}
}

// startFetch asks for history and status in the background. Live events
// arriving meanwhile are buffered and applied after the history fold.
func (m *Match) startFetch(ctx context.Context, wg *sync.WaitGroup) {
	m.fetching = true
	m.pending = m.pending[:0]
	m.status = nil
	limit := m.cfg.Game.HistoryLimit

	wg.Add(2)
	go func() {
		defer wg.Done()
		events, err := m.transport.History(ctx, limit)
		m.post(ctx, command{Type: commandHistory, Events: events, Err: err})
	}()
	go func() {
		defer wg.Done()
		status, err := m.transport.Status(ctx)
		m.post(ctx, command{Type: commandStatus, Status: status, Err: err})
	}()
}

func (m *Match) post(ctx context.Context, c command) {
	select {
	case m.commands <- c:
	case <-ctx.Done():
	}
}

func (m *Match) handleHistory(events []pong.Event, err error, now int64) {
	if err != nil {
		// Without history the peer starts from an empty lobby.
		log.Printf("[Match %s] History fetch failed: %v", m.ID, err)
		events = nil
	}
	prev := m.state
	base := pong.NewSessionState()
	base.Local = prev.Local
	next := pong.Replay(base, events)
	if m.status != nil {
		next = pong.ReconcileWithSnapshot(*m.status, next)
	}
	next.Seq += prev.Seq
	m.state = next
	m.fetching = false
	m.fetches++
	log.Printf("[Match %s] History applied (events=%d mode=%s)", m.ID, len(events), next.Mode())

	for i, e := range events {
		m.runHooks(EventInfo{Event: e, Seq: prev.Seq + uint64(i) + 1, History: true, Fetch: m.fetches}, now)
	}
	m.afterChange(prev, now)

	pending := m.pending
	m.pending = nil
	for _, e := range pending {
		m.applyLive(e, now)
	}
}

func (m *Match) handleStatus(status pong.Status, err error, now int64) {
	if err != nil {
		log.Printf("[Match %s] Status fetch failed: %v", m.ID, err)
		return
	}
	m.status = &status
	if m.fetching {
		return
	}
	prev := m.state
	m.state = pong.ReconcileWithSnapshot(status, m.state)
	m.afterChange(prev, now)
}

func (m *Match) applyLive(e pong.Event, now int64) {
	prev := m.state
	m.state = pong.ApplyLiveEvent(e, m.state)
	if prev.Local.Valid() && !m.state.Local.Valid() {
		log.Printf("[Match %s] Local slot %s cleared by %s", m.ID, prev.Local, e.Type())
	}
	m.runHooks(EventInfo{Event: e, Seq: m.state.Seq}, now)
	m.afterChange(prev, now)
}

// afterChange resets per-round simulation on round transitions, feeds the
// interpolator, and re-runs the election.
func (m *Match) afterChange(prev pong.SessionState, now int64) {
	if prev.RoundActive != m.state.RoundActive {
		m.engine.Reset()
		m.interp.Reset()
		log.Printf("[Match %s] Round active=%v (score %d:%d)", m.ID, m.state.RoundActive, m.state.Score.First, m.state.Score.Second)
	}
	if m.state.Ball != prev.Ball && !m.tracker.Holding() {
		m.interp.Observe(m.state.Ball)
	}
	m.evaluateAuthority(now)
	m.publishFrame(now)
}

func (m *Match) evaluateAuthority(now int64) {
	election, transition := m.tracker.Update(m.state, now)
	switch transition {
	case pong.TransitionGained:
		m.engine.Seed(m.state, now)
		log.Printf("[Match %s] Authority gained (slot=%s claimed=%v phase=%s)", m.ID, election.Holder, election.Claimed, m.engine.Phase())
	case pong.TransitionLost:
		// Continue the display from the simulated ball until the new
		// holder's snapshots arrive.
		m.interp.Reset()
		m.interp.Observe(m.engine.Sample(now))
		log.Printf("[Match %s] Authority lost to %s", m.ID, election.Holder)
	}
}

// tick runs once per simulation frame.
func (m *Match) tick(now int64) {
	holding := m.tracker.Holding() && m.state.RoundActive
	var ball *pong.BallSample
	if holding {
		res := m.engine.Step(m.state, now)
		if res.Goal != nil {
			log.Printf("[Match %s] Goal for %s", m.ID, res.Goal.ScoredBy)
			m.enqueue(outbound{Type: outboundGoal, Goal: *res.Goal})
		}
		// Every move from the holder carries the ball.
		b := m.engine.Sample(now)
		ball = &b
	} else {
		m.interp.Step(now)
	}

	sent := false
	if m.state.Mode() == pong.ModePlaying {
		if intent, ok := m.paddle.Sample(m.control, m.state, ball, now); ok {
			m.enqueue(outbound{Type: outboundMove, Move: intent})
			sent = true
		}
	}
	if holding {
		if !sent && m.engine.BroadcastDue(now) {
			m.enqueue(outbound{Type: outboundMove, Move: pong.MoveIntent{ClientTsMs: now, Ball: ball}})
			sent = true
		}
		if sent {
			m.engine.MarkBroadcast(now)
		}
	}
	m.publishFrame(now)
}

func (m *Match) enqueue(o outbound) {
	select {
	case m.outbox <- o:
	default:
		log.Printf("[Match %s] Outbox full, dropping %s", m.ID, o.kind())
	}
}

func (m *Match) sendLoop(ctx context.Context) {
	for {
		select {
		case o := <-m.outbox:
			rctx, cancel := context.WithTimeout(ctx, m.cfg.RPCTimeout)
			var err error
			switch o.Type {
			case outboundMove:
				err = m.transport.SendMove(rctx, o.Move)
			case outboundGoal:
				err = m.transport.ReportGoal(rctx, o.Goal)
			}
			cancel()
			if err != nil && ctx.Err() == nil {
				log.Printf("[Match %s] %s failed: %v", m.ID, o.kind(), err)
			}
		case <-ctx.Done():
			return
		}
	}
}

func (m *Match) runHooks(info EventInfo, now int64) {
	m.mu.Lock()
	hooks := m.hooks
	m.mu.Unlock()
	if len(hooks) == 0 {
		return
	}
	info.MatchID = m.ID
	info.ReceivedAtMs = now
	if mv, ok := info.Event.(pong.Moved); ok && mv.ReceivedAtMs != 0 {
		info.ReceivedAtMs = mv.ReceivedAtMs
	}
	for _, hook := range hooks {
		hook(info)
	}
}

func (o outbound) kind() string {
	if o.Type == outboundGoal {
		return "goal"
	}
	return "move"
}
