package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"pong-lite/apps/peer/internal/config"
	"pong-lite/apps/peer/internal/journal"
	"pong-lite/apps/peer/internal/lobby"
	"pong-lite/apps/peer/internal/match"
	"pong-lite/apps/peer/internal/transport"
	"pong-lite/apps/peer/internal/view"
	"pong-lite/pong"
)

func main() {
	envFile := flag.String("env", ".env", "dotenv file to load before reading the environment")
	place := flag.String("place", "", "join as first or second; empty to spectate")
	userFlag := flag.String("user", "", "user id sent as bearer token (default: USER_ID or random)")
	viewAddr := flag.String("view", "", "renderer listen address (default: VIEW_ADDR)")
	journalMode := flag.String("journal", "", "journal mode: off, memory, local, postgres (default: JOURNAL_MODE)")
	flag.Parse()

	cfg, err := config.Load(*envFile)
	if err != nil {
		log.Fatalf("[Peer] Failed to load config: %v", err)
	}
	if *userFlag != "" {
		cfg.UserID = *userFlag
	}
	if cfg.UserID == "" {
		cfg.UserID = lobby.NewUserID()
	}
	if *viewAddr != "" {
		cfg.ViewAddr = *viewAddr
	}
	if *journalMode != "" {
		cfg.JournalMode = *journalMode
	}

	slot := pong.SlotNone
	if *place != "" {
		if slot, err = pong.ParseSlot(*place); err != nil {
			log.Fatalf("[Peer] Invalid -place %q: %v", *place, err)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := run(ctx, cfg, slot); err != nil {
		log.Fatalf("[Peer] %v", err)
	}
}

func run(ctx context.Context, cfg config.Peer, slot pong.Slot) error {
	lobbyClient, err := lobby.New(cfg.BackendURL, cfg.UserID, nil)
	if err != nil {
		return err
	}
	tr, err := transport.New(transport.Config{
		URL:           cfg.CentrifugoURL,
		PublicChannel: cfg.PublicChannel,
		Name:          cfg.UserID,
	}, lobbyClient)
	if err != nil {
		return err
	}
	defer tr.Close()

	game := pong.DefaultConfig()
	game.HistoryLimit = cfg.HistoryLimit
	matchID := "lobby_" + uuid.NewString()
	m, err := match.New(matchID, match.Config{Game: game}, tr)
	if err != nil {
		return err
	}

	store, mode, err := journal.Open(journal.Options{Mode: cfg.JournalMode, DSN: cfg.JournalDSN, Path: cfg.JournalPath})
	if err != nil {
		return err
	}
	defer store.Close()
	recorder := journal.NewRecorder(store, 0)
	m.AddEventHook(recorder.Hook)

	var joined atomic.Bool
	// The lobby resets on game end and on our own leave; drop back to an
	// anonymous connection like a fresh spectator.
	m.AddEventHook(func(info match.EventInfo) {
		if info.History || !joined.Load() {
			return
		}
		left, ok := info.Event.(pong.PlayerLeft)
		_, ended := info.Event.(pong.RoundEnded)
		if !ended && !(ok && left.Slot == slot) {
			return
		}
		joined.Store(false)
		go func() {
			if err := tr.Anonymous(ctx); err != nil {
				log.Printf("[Peer] Anonymous reconnect failed: %v", err)
			}
		}()
	})
	tr.Bind(m, func() {
		if err := m.Resync(); err != nil {
			log.Printf("[Peer] Resync failed: %v", err)
		}
	})

	hub := view.NewHub(m, m, cfg.ViewInterval)
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	hub.RegisterRoutes(mux)
	srv := &http.Server{Addr: cfg.ViewAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	log.Printf("[Peer] User: %s", cfg.UserID)
	log.Printf("[Peer] Journal mode: %s", mode)
	log.Printf("[Peer] Match: %s", matchID)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return m.Run(gctx) })
	g.Go(func() error { return recorder.Run(gctx) })
	g.Go(func() error { return hub.Run(gctx) })
	g.Go(func() error {
		log.Printf("[Peer] Renderer feed on %s", cfg.ViewAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	g.Go(func() error {
		if err := tr.Connect(gctx); err != nil {
			return err
		}
		if !slot.Valid() {
			return nil
		}
		creds, err := lobbyClient.Join(gctx, slot)
		if err != nil {
			// Stay on as a spectator.
			log.Printf("[Peer] Join as %s failed: %v", slot, err)
			return nil
		}
		if err := m.SetLocal(slot); err != nil {
			return err
		}
		joined.Store(true)
		return tr.Authenticate(gctx, slot, creds)
	})

	err = g.Wait()
	if joined.Load() {
		leaveCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if lerr := lobbyClient.Leave(leaveCtx); lerr != nil {
			log.Printf("[Peer] Leave failed: %v", lerr)
		}
	}
	log.Printf("[Peer] Stopped (journal written=%d dropped=%d)", recorder.Written(), recorder.Dropped())
	return err
}
