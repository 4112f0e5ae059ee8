package journal

import (
	"context"
	"log"
	"sync/atomic"
	"time"

	"pong-lite/apps/peer/internal/match"
	"pong-lite/wire"
)

const (
	defaultQueueSize = 1024
	maxBatch         = 64
	writeTimeout     = 3 * time.Second
)

// Recorder writes applied events to a Store off the match goroutine. Its
// Hook never blocks; entries are dropped and counted when the queue is full.
type Recorder struct {
	store   Store
	queue   chan Entry
	dropped atomic.Int64
	written atomic.Int64
}

func NewRecorder(store Store, queueSize int) *Recorder {
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}
	return &Recorder{store: store, queue: make(chan Entry, queueSize)}
}

// Hook is a match.EventHook. Events from history refetches after the first
// are skipped: they repeat what the journal already holds.
func (r *Recorder) Hook(info match.EventInfo) {
	if info.History && info.Fetch > 1 {
		return
	}
	payload, err := wire.Encode(info.Event)
	if err != nil {
		log.Printf("[Journal] encode failed: match=%s seq=%d err=%v", info.MatchID, info.Seq, err)
		return
	}
	entry := Entry{
		MatchID:      info.MatchID,
		Seq:          info.Seq,
		EventType:    info.Event.Type().String(),
		Payload:      payload,
		ReceivedAtMs: info.ReceivedAtMs,
		FromHistory:  info.History,
	}
	select {
	case r.queue <- entry:
	default:
		if n := r.dropped.Add(1); n == 1 || n%100 == 0 {
			log.Printf("[Journal] queue full, dropped %d entries (match=%s)", n, info.MatchID)
		}
	}
}

// Run drains the queue until ctx is cancelled, then flushes what is left.
func (r *Recorder) Run(ctx context.Context) error {
	for {
		select {
		case e := <-r.queue:
			r.write(r.collect(e))
		case <-ctx.Done():
			r.flush()
			return nil
		}
	}
}

func (r *Recorder) Dropped() int64 { return r.dropped.Load() }
func (r *Recorder) Written() int64 { return r.written.Load() }

func (r *Recorder) collect(first Entry) []Entry {
	batch := []Entry{first}
	for len(batch) < maxBatch {
		select {
		case e := <-r.queue:
			batch = append(batch, e)
		default:
			return batch
		}
	}
	return batch
}

func (r *Recorder) flush() {
	for {
		select {
		case e := <-r.queue:
			r.write(r.collect(e))
		default:
			return
		}
	}
}

// write runs detached from Run's context so a shutdown does not abort the
// final batches.
func (r *Recorder) write(batch []Entry) {
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()
	if err := r.store.Append(ctx, batch); err != nil {
		log.Printf("[Journal] append failed: entries=%d first=%s/%d err=%v", len(batch), batch[0].MatchID, batch[0].Seq, err)
		return
	}
	r.written.Add(int64(len(batch)))
}
