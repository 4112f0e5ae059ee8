package transport

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/centrifugal/centrifuge-go"

	"pong-lite/pong"
	"pong-lite/wire"
)

// Sink receives decoded live events. *match.Match satisfies it.
type Sink interface {
	Deliver(e pong.Event) error
}

// StatusSource fetches the lobby status snapshot; the backend serves it
// over REST rather than the pub/sub connection.
type StatusSource interface {
	Status(ctx context.Context) (pong.Status, error)
}

// Credentials are issued by the lobby join call.
type Credentials struct {
	PrivateChannel  string
	ConnectionToken string
	SubscribeToken  string
}

type Config struct {
	URL           string
	PublicChannel string
	Name          string
}

var ErrNotBound = errors.New("transport: no sink bound")

// Client adapts a Centrifugo connection to the match runtime: the public
// lobby channel feeds Deliver, history and RPCs go over the same
// connection, and joined players also get their private channel.
type Client struct {
	cfg    Config
	client *centrifuge.Client
	status StatusSource
	now    func() int64

	mu       sync.Mutex
	sink     Sink
	onResync func()
	public   *centrifuge.Subscription
	private  *centrifuge.Subscription
	local    pong.Slot
	subCount int
}

func New(cfg Config, status StatusSource) (*Client, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("transport: empty url")
	}
	if cfg.PublicChannel == "" {
		cfg.PublicChannel = wire.PublicChannel
	}
	if cfg.Name == "" {
		cfg.Name = "pong-peer"
	}
	c := &Client{
		cfg:    cfg,
		status: status,
		now:    func() int64 { return time.Now().UnixMilli() },
	}
	c.client = centrifuge.NewJsonClient(cfg.URL, centrifuge.Config{
		Name:             cfg.Name,
		ReadTimeout:      5 * time.Second,
		WriteTimeout:     5 * time.Second,
		HandshakeTimeout: 5 * time.Second,
	})
	c.client.OnConnected(func(e centrifuge.ConnectedEvent) {
		log.Printf("[Transport] Connected (client=%s)", e.ClientID)
	})
	c.client.OnDisconnected(func(e centrifuge.DisconnectedEvent) {
		log.Printf("[Transport] Disconnected: %d %s", e.Code, e.Reason)
	})
	c.client.OnError(func(e centrifuge.ErrorEvent) {
		log.Printf("[Transport] Client error: %v", e.Error)
	})
	return c, nil
}

// Bind sets the event sink and the callback run whenever the public channel
// is subscribed, including the first time. Call before Connect.
func (c *Client) Bind(sink Sink, onResync func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sink = sink
	c.onResync = onResync
}

// Connect dials anonymously and subscribes to the public channel.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.sink == nil {
		c.mu.Unlock()
		return ErrNotBound
	}
	sub, err := c.client.NewSubscription(c.cfg.PublicChannel)
	if err != nil {
		c.mu.Unlock()
		return fmt.Errorf("subscribe %s: %w", c.cfg.PublicChannel, err)
	}
	c.public = sub
	c.mu.Unlock()

	sub.OnSubscribed(func(centrifuge.SubscribedEvent) {
		c.handleSubscribed()
	})
	sub.OnPublication(func(e centrifuge.PublicationEvent) {
		c.handlePublic(e.Data)
	})
	sub.OnError(func(e centrifuge.SubscriptionErrorEvent) {
		log.Printf("[Transport] Subscription %s error: %v", c.cfg.PublicChannel, e.Error)
	})

	if err := c.client.Connect(); err != nil {
		return fmt.Errorf("connect %s: %w", c.cfg.URL, err)
	}
	if err := sub.Subscribe(); err != nil {
		return fmt.Errorf("subscribe %s: %w", c.cfg.PublicChannel, err)
	}
	return nil
}

// History returns up to limit recent lobby events, oldest first. The
// server returns them newest first. Undecodable publications are skipped.
func (c *Client) History(ctx context.Context, limit int) ([]pong.Event, error) {
	c.mu.Lock()
	sub := c.public
	c.mu.Unlock()
	if sub == nil {
		return nil, fmt.Errorf("history: not subscribed")
	}
	res, err := sub.History(ctx, centrifuge.WithHistoryLimit(int32(limit)), centrifuge.WithHistoryReverse(true))
	if err != nil {
		return nil, fmt.Errorf("history %s: %w", c.cfg.PublicChannel, err)
	}
	payloads := make([][]byte, 0, len(res.Publications))
	for _, p := range res.Publications {
		payloads = append(payloads, p.Data)
	}
	return decodeHistory(payloads, c.now()), nil
}

func (c *Client) Status(ctx context.Context) (pong.Status, error) {
	if c.status == nil {
		return pong.Status{}, nil
	}
	return c.status.Status(ctx)
}

func (c *Client) SendMove(ctx context.Context, m pong.MoveIntent) error {
	raw, err := wire.EncodeMove(m)
	if err != nil {
		return err
	}
	if _, err := c.client.RPC(ctx, wire.MethodMove, raw); err != nil {
		return fmt.Errorf("%s: %w", wire.MethodMove, err)
	}
	return nil
}

func (c *Client) ReportGoal(ctx context.Context, g pong.GoalIntent) error {
	raw, err := wire.EncodeGoal(g)
	if err != nil {
		return err
	}
	if _, err := c.client.RPC(ctx, wire.MethodGoal, raw); err != nil {
		return fmt.Errorf("%s: %w", wire.MethodGoal, err)
	}
	return nil
}

// Authenticate reconnects with the player's connection token and subscribes
// to the private channel granted by the join call.
func (c *Client) Authenticate(ctx context.Context, slot pong.Slot, creds Credentials) error {
	if !slot.Valid() {
		return pong.ErrInvalidSlot
	}
	c.dropPrivate()

	if err := c.client.Disconnect(); err != nil {
		log.Printf("[Transport] Disconnect before auth: %v", err)
	}
	c.client.SetToken(creds.ConnectionToken)

	sub, err := c.client.NewSubscription(creds.PrivateChannel, centrifuge.SubscriptionConfig{
		Token: creds.SubscribeToken,
	})
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", creds.PrivateChannel, err)
	}
	sub.OnPublication(func(e centrifuge.PublicationEvent) {
		c.handlePrivate(e.Data)
	})
	sub.OnSubscribed(func(centrifuge.SubscribedEvent) {
		log.Printf("[Transport] Subscribed to private channel %s", creds.PrivateChannel)
	})

	c.mu.Lock()
	c.private = sub
	c.local = slot
	c.mu.Unlock()

	if err := sub.Subscribe(); err != nil {
		return fmt.Errorf("subscribe %s: %w", creds.PrivateChannel, err)
	}
	if err := c.client.Connect(); err != nil {
		return fmt.Errorf("reconnect with token: %w", err)
	}
	return nil
}

// Anonymous drops the private channel and reconnects without a token, as
// after leaving or when the game ends.
func (c *Client) Anonymous(ctx context.Context) error {
	c.dropPrivate()
	if err := c.client.Disconnect(); err != nil {
		log.Printf("[Transport] Disconnect before anonymous: %v", err)
	}
	c.client.SetToken("")
	if err := c.client.Connect(); err != nil {
		return fmt.Errorf("reconnect anonymously: %w", err)
	}
	return nil
}

func (c *Client) Close() {
	c.client.Close()
}

func (c *Client) dropPrivate() {
	c.mu.Lock()
	sub := c.private
	c.private = nil
	c.local = pong.SlotNone
	c.mu.Unlock()
	if sub == nil {
		return
	}
	if err := sub.Unsubscribe(); err != nil {
		log.Printf("[Transport] Unsubscribe %s: %v", sub.Channel, err)
	}
	if err := c.client.RemoveSubscription(sub); err != nil {
		log.Printf("[Transport] Remove subscription %s: %v", sub.Channel, err)
	}
}

// handleSubscribed runs on every public subscription, the first one
// included. History is only readable once subscribed.
func (c *Client) handleSubscribed() {
	c.mu.Lock()
	c.subCount++
	n := c.subCount
	resync := c.onResync
	c.mu.Unlock()
	log.Printf("[Transport] Subscribed to %s (count=%d)", c.cfg.PublicChannel, n)
	if resync != nil {
		resync()
	}
}

func (c *Client) handlePublic(data []byte) {
	e, err := wire.Decode(data, c.now())
	if err != nil {
		log.Printf("[Transport] Skipping publication: %v", err)
		return
	}
	c.deliver(e)
}

func (c *Client) handlePrivate(data []byte) {
	c.mu.Lock()
	local := c.local
	c.mu.Unlock()
	e, err := wire.DecodePrivate(data, local, c.now())
	if err != nil {
		log.Printf("[Transport] Skipping private publication: %v", err)
		return
	}
	c.deliver(e)
}

func (c *Client) deliver(e pong.Event) {
	c.mu.Lock()
	sink := c.sink
	c.mu.Unlock()
	if sink == nil {
		return
	}
	if err := sink.Deliver(e); err != nil {
		log.Printf("[Transport] Deliver %s: %v", e.Type(), err)
	}
}

// decodeHistory turns a newest-first page into chronological events, all
// stamped with the fetch time.
func decodeHistory(newestFirst [][]byte, receivedAtMs int64) []pong.Event {
	events := make([]pong.Event, 0, len(newestFirst))
	for i := len(newestFirst) - 1; i >= 0; i-- {
		e, err := wire.Decode(newestFirst[i], receivedAtMs)
		if err != nil {
			log.Printf("[Transport] Skipping history entry: %v", err)
			continue
		}
		events = append(events, e)
	}
	return events
}
