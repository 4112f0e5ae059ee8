package journal

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"pong-lite/apps/peer/internal/match"
	"pong-lite/pong"
	"pong-lite/replay"
)

func openSQLite(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func entriesFromTape(tape *replay.Tape) []Entry {
	out := make([]Entry, 0, len(tape.Events))
	for _, e := range tape.Events {
		out = append(out, Entry{
			MatchID:      tape.MatchID,
			Seq:          e.Seq,
			EventType:    e.Type,
			Payload:      []byte(e.Payload),
			ReceivedAtMs: e.ReceivedAtMs,
		})
	}
	return out
}

func sampleTape(t *testing.T) *replay.Tape {
	t.Helper()
	tape, err := replay.GenerateTape(replay.MatchSpec{MatchID: "journal_match", Seed: 5, WinScore: 2, MaxTicks: 1800})
	if err != nil {
		t.Fatalf("generate tape: %v", err)
	}
	return tape
}

func TestSQLiteStore_AppendLoadRoundTrip(t *testing.T) {
	store := openSQLite(t)
	ctx := context.Background()
	tape := sampleTape(t)

	if err := store.Append(ctx, entriesFromTape(tape)); err != nil {
		t.Fatalf("append: %v", err)
	}
	loaded, err := LoadTape(ctx, store, tape.MatchID)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if diff := cmp.Diff(tape.Events, loaded.Events); diff != "" {
		t.Fatalf("loaded events differ (-want +got):\n%s", diff)
	}

	want, err := replay.Rebuild(tape)
	if err != nil {
		t.Fatalf("rebuild original: %v", err)
	}
	got, err := replay.Rebuild(loaded)
	if err != nil {
		t.Fatalf("rebuild loaded: %v", err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("rebuilt state differs (-want +got):\n%s", diff)
	}
}

func TestSQLiteStore_DuplicateSeqIsSkipped(t *testing.T) {
	store := openSQLite(t)
	ctx := context.Background()
	first := Entry{MatchID: "m1", Seq: 1, EventType: "player_joined", Payload: []byte(`{"type":"player_joined","data":{"place":"first"}}`), ReceivedAtMs: 10}
	again := first
	again.Payload = []byte(`{"type":"player_joined","data":{"place":"second"}}`)

	if err := store.Append(ctx, []Entry{first}); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := store.Append(ctx, []Entry{again}); err != nil {
		t.Fatalf("append duplicate: %v", err)
	}
	entries, err := store.Load(ctx, "m1")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(entries) != 1 || string(entries[0].Payload) != string(first.Payload) {
		t.Fatalf("expected the first write to win, got %+v", entries)
	}
}

func TestSQLiteStore_LoadMissing(t *testing.T) {
	store := openSQLite(t)
	if _, err := store.Load(context.Background(), "nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := LoadTape(context.Background(), store, "nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected wrapped ErrNotFound, got %v", err)
	}
}

func TestStores_RecentOrdersByLastActivity(t *testing.T) {
	stores := map[string]Store{
		"sqlite": openSQLite(t),
		"memory": NewMemoryStore(),
	}
	for name, store := range stores {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			entries := []Entry{
				{MatchID: "old", Seq: 1, EventType: "game_started", Payload: []byte(`{}`), ReceivedAtMs: 100},
				{MatchID: "old", Seq: 2, EventType: "game_ended", Payload: []byte(`{}`), ReceivedAtMs: 200},
				{MatchID: "new", Seq: 1, EventType: "game_started", Payload: []byte(`{}`), ReceivedAtMs: 300},
			}
			if err := store.Append(ctx, entries); err != nil {
				t.Fatalf("append: %v", err)
			}
			got, err := store.Recent(ctx, 10)
			if err != nil {
				t.Fatalf("recent: %v", err)
			}
			want := []Summary{
				{MatchID: "new", Events: 1, FirstAtMs: 300, LastAtMs: 300},
				{MatchID: "old", Events: 2, FirstAtMs: 100, LastAtMs: 200},
			}
			if diff := cmp.Diff(want, got); diff != "" {
				t.Fatalf("unexpected summaries (-want +got):\n%s", diff)
			}
			if got, _ := store.Recent(ctx, 1); len(got) != 1 || got[0].MatchID != "new" {
				t.Fatalf("limit not applied: %+v", got)
			}
		})
	}
}

func TestMemoryStore_KeepsSeqOrder(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	_ = store.Append(ctx, []Entry{{MatchID: "m", Seq: 3}, {MatchID: "m", Seq: 1}, {MatchID: "m", Seq: 2}, {MatchID: "m", Seq: 1}})
	entries, err := store.Load(ctx, "m")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(entries) != 3 || entries[0].Seq != 1 || entries[2].Seq != 3 {
		t.Fatalf("unexpected order %+v", entries)
	}
	if err := store.Append(ctx, []Entry{{Seq: 1}}); !errors.Is(err, ErrEmptyMatch) {
		t.Fatalf("expected ErrEmptyMatch, got %v", err)
	}
}

func TestRecorder_WritesLiveAndFirstHistory(t *testing.T) {
	store := NewMemoryStore()
	rec := NewRecorder(store, 16)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = rec.Run(ctx)
	}()

	rec.Hook(match.EventInfo{MatchID: "m", Seq: 1, Event: pong.PlayerJoined{Slot: pong.SlotFirst}, ReceivedAtMs: 10, History: true, Fetch: 1})
	rec.Hook(match.EventInfo{MatchID: "m", Seq: 2, Event: pong.RoundStarted{}, ReceivedAtMs: 20})
	rec.Hook(match.EventInfo{MatchID: "m", Seq: 3, Event: pong.PlayerJoined{Slot: pong.SlotFirst}, ReceivedAtMs: 30, History: true, Fetch: 2})
	rec.Hook(match.EventInfo{MatchID: "m", Seq: 4, Event: pong.Goal{ScoredBy: pong.SlotFirst, FirstScore: 1}, ReceivedAtMs: 40})

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("recorder did not stop")
	}

	entries, err := store.Load(context.Background(), "m")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	var seqs []uint64
	for _, e := range entries {
		seqs = append(seqs, e.Seq)
	}
	if diff := cmp.Diff([]uint64{1, 2, 4}, seqs); diff != "" {
		t.Fatalf("unexpected recorded seqs (-want +got):\n%s", diff)
	}
	if !entries[0].FromHistory || entries[1].FromHistory {
		t.Fatalf("history flags not kept: %+v", entries)
	}
	if entries[2].EventType != "goal" {
		t.Fatalf("expected goal entry, got %q", entries[2].EventType)
	}
	if rec.Written() != 3 || rec.Dropped() != 0 {
		t.Fatalf("unexpected counters written=%d dropped=%d", rec.Written(), rec.Dropped())
	}

	state, err := replay.Rebuild(ToTape("m", entries))
	if err != nil {
		t.Fatalf("rebuild: %v", err)
	}
	if state.Score.First != 1 || !state.RoundActive {
		t.Fatalf("unexpected rebuilt state %+v", state)
	}
}

func TestRecorder_DropsWhenQueueFull(t *testing.T) {
	rec := NewRecorder(NewMemoryStore(), 1)
	for i := 1; i <= 3; i++ {
		rec.Hook(match.EventInfo{MatchID: "m", Seq: uint64(i), Event: pong.RoundStarted{}})
	}
	if rec.Dropped() != 2 {
		t.Fatalf("expected 2 drops, got %d", rec.Dropped())
	}
}

func TestOpen_Modes(t *testing.T) {
	for raw, want := range map[string]string{"": ModeOff, "none": ModeOff, "mem": ModeMemory, "SQLite": ModeLocal, "db": ModePostgres} {
		if got := NormalizeMode(raw); got != want {
			t.Fatalf("NormalizeMode(%q) = %q, want %q", raw, got, want)
		}
	}

	store, mode, err := Open(Options{Mode: "memory"})
	if err != nil || mode != ModeMemory {
		t.Fatalf("open memory: mode=%s err=%v", mode, err)
	}
	if _, ok := store.(*MemoryStore); !ok {
		t.Fatalf("expected *MemoryStore, got %T", store)
	}

	store, _, err = Open(Options{Mode: "local", Path: ":memory:"})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	_ = store.Close()

	if _, _, err := Open(Options{Mode: "redis"}); !errors.Is(err, ErrInvalidMode) {
		t.Fatalf("expected ErrInvalidMode, got %v", err)
	}

	store, _, _ = Open(Options{})
	if _, err := store.Load(context.Background(), "m"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("off store must report ErrNotFound, got %v", err)
	}
}
