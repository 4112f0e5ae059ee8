package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"pong-lite/wire"
)

const (
	defaultCentrifugoURL = "ws://localhost:8000/connection/websocket"
	defaultBackendURL    = "http://localhost:8080"
	defaultViewAddr      = "127.0.0.1:8090"
	defaultHistoryLimit  = 10
	defaultViewInterval  = time.Second / 60
)

// Peer is the runtime configuration of one peer process.
type Peer struct {
	CentrifugoURL string
	BackendURL    string
	PublicChannel string
	HistoryLimit  int
	// UserID is empty when the peer should pick an anonymous one.
	UserID string

	ViewAddr     string
	ViewInterval time.Duration

	JournalMode string
	JournalDSN  string
	JournalPath string
}

// LoadDotEnv loads files (".env" when none are given) into the process
// environment. Variables already set win. Missing files are skipped.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, file := range files {
		if err := godotenv.Load(file); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("load %s: %w", file, err)
		}
		log.Printf("[Config] Loaded environment from %s", file)
	}
	return nil
}

// FromEnv reads the peer configuration from the environment.
func FromEnv() Peer {
	return Peer{
		CentrifugoURL: envOrDefault("CENTRIFUGO_URL", defaultCentrifugoURL),
		BackendURL:    envOrDefault("BACKEND_URL", defaultBackendURL),
		PublicChannel: envOrDefault("PUBLIC_CHANNEL", wire.PublicChannel),
		HistoryLimit:  envIntOrDefault("HISTORY_LIMIT", defaultHistoryLimit),
		UserID:        strings.TrimSpace(os.Getenv("USER_ID")),
		ViewAddr:      envOrDefault("VIEW_ADDR", defaultViewAddr),
		ViewInterval:  envDurationOrDefault("VIEW_INTERVAL", defaultViewInterval),
		JournalMode:   envOrDefault("JOURNAL_MODE", "off"),
		JournalDSN:    firstEnv("JOURNAL_DATABASE_DSN", "DATABASE_URL"),
		JournalPath:   firstEnv("JOURNAL_LOCAL_DATABASE_PATH", "LOCAL_DATABASE_PATH"),
	}
}

// Load is LoadDotEnv followed by FromEnv.
func Load(files ...string) (Peer, error) {
	if err := LoadDotEnv(files...); err != nil {
		return Peer{}, err
	}
	return FromEnv(), nil
}

func envOrDefault(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func envIntOrDefault(key string, fallback int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}

func envDurationOrDefault(key string, fallback time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

func firstEnv(keys ...string) string {
	for _, key := range keys {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			return v
		}
	}
	return ""
}
