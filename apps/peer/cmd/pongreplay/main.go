package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/invopop/jsonschema"

	"pong-lite/apps/peer/internal/config"
	"pong-lite/apps/peer/internal/journal"
	"pong-lite/pong"
	"pong-lite/replay"
)

type options struct {
	specPath  string
	seed      int64
	winScore  int
	maxTicks  int
	tapePath  string
	matchID   string
	list      bool
	window    int
	timeline  bool
	outPath   string
	outFormat string
	schema    bool
	envFile   string
}

// summary is what pongreplay prints for a rebuilt tape.
type summary struct {
	MatchID     string          `json:"match_id"`
	Events      int             `json:"events"`
	Mode        string          `json:"mode"`
	RoundActive bool            `json:"round_active"`
	Occupied    map[string]bool `json:"occupied"`
	Score       map[string]int  `json:"score"`
	Authority   string          `json:"authority"`
	Window      int             `json:"window,omitempty"`
}

func main() {
	var opts options
	flag.StringVar(&opts.specPath, "spec", "", "generate a tape from a match spec JSON file")
	flag.Int64Var(&opts.seed, "seed", 0, "generate a tape with default bots and this seed")
	flag.IntVar(&opts.winScore, "win", 0, "win score for generated tapes")
	flag.IntVar(&opts.maxTicks, "ticks", 0, "tick limit for generated tapes")
	flag.StringVar(&opts.tapePath, "tape", "", "read a tape file (.json or .msgpack)")
	flag.StringVar(&opts.matchID, "match", "", "load a recorded match from the journal")
	flag.BoolVar(&opts.list, "list", false, "list recent journal matches")
	flag.IntVar(&opts.window, "window", 0, "rebuild only the last N events, as a late joiner would")
	flag.BoolVar(&opts.timeline, "timeline", false, "print every intermediate state")
	flag.StringVar(&opts.outPath, "out", "", "write the tape to this file")
	flag.StringVar(&opts.outFormat, "format", "", "tape format for -out: json or msgpack (default: from extension)")
	flag.BoolVar(&opts.schema, "schema", false, "print the JSON schema of tapes and match specs")
	flag.StringVar(&opts.envFile, "env", ".env", "dotenv file for the journal settings")
	flag.Parse()

	if err := run(opts, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "pongreplay: %v\n", err)
		os.Exit(1)
	}
}

func run(opts options, w io.Writer) error {
	if opts.schema {
		return writeJSON(w, buildSchemas())
	}
	if opts.list {
		return listMatches(opts, w)
	}

	tape, err := loadTape(opts)
	if err != nil {
		return err
	}
	if opts.outPath != "" {
		if err := writeTape(opts.outPath, opts.outFormat, tape); err != nil {
			return err
		}
	}
	if opts.timeline {
		steps, err := replay.Timeline(tape)
		if err != nil {
			return err
		}
		return writeJSON(w, replay.ToWireTimeline(tape, steps))
	}

	sum, err := summarize(tape, opts.window)
	if err != nil {
		return err
	}
	return writeJSON(w, sum)
}

func loadTape(opts options) (*replay.Tape, error) {
	switch {
	case opts.tapePath != "":
		return readTape(opts.tapePath)
	case opts.matchID != "":
		store, err := openJournal(opts.envFile)
		if err != nil {
			return nil, err
		}
		defer store.Close()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return journal.LoadTape(ctx, store, opts.matchID)
	case opts.specPath != "":
		raw, err := os.ReadFile(opts.specPath)
		if err != nil {
			return nil, err
		}
		var spec replay.MatchSpec
		if err := json.Unmarshal(raw, &spec); err != nil {
			return nil, fmt.Errorf("parse spec %s: %w", opts.specPath, err)
		}
		return replay.GenerateTape(spec)
	default:
		return replay.GenerateTape(replay.MatchSpec{Seed: opts.seed, WinScore: opts.winScore, MaxTicks: opts.maxTicks})
	}
}

func summarize(tape *replay.Tape, window int) (summary, error) {
	var (
		state pong.SessionState
		err   error
	)
	if window > 0 {
		state, err = replay.RebuildWindow(tape, window, tape.StatusSnapshot())
	} else {
		state, err = replay.Rebuild(tape)
	}
	if err != nil {
		return summary{}, err
	}
	return summary{
		MatchID:     tape.MatchID,
		Events:      len(tape.Events),
		Mode:        state.Mode().String(),
		RoundActive: state.RoundActive,
		Occupied:    map[string]bool{"first": state.Occupied.First, "second": state.Occupied.Second},
		Score:       map[string]int{"first": state.Score.First, "second": state.Score.Second},
		Authority:   state.Authority.Slot.String(),
		Window:      window,
	}, nil
}

func listMatches(opts options, w io.Writer) error {
	store, err := openJournal(opts.envFile)
	if err != nil {
		return err
	}
	defer store.Close()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	items, err := store.Recent(ctx, 0)
	if err != nil {
		return err
	}
	return writeJSON(w, items)
}

func openJournal(envFile string) (journal.Store, error) {
	cfg, err := config.Load(envFile)
	if err != nil {
		return nil, err
	}
	mode := journal.NormalizeMode(cfg.JournalMode)
	if mode == journal.ModeOff || mode == journal.ModeMemory {
		return nil, fmt.Errorf("journal mode %q keeps nothing to read; set JOURNAL_MODE=local or postgres", mode)
	}
	store, _, err := journal.Open(journal.Options{Mode: mode, DSN: cfg.JournalDSN, Path: cfg.JournalPath})
	return store, err
}

func formatFor(path, explicit string) (replay.Format, error) {
	if explicit != "" {
		return replay.ParseFormat(explicit)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".msgpack", ".mp":
		return replay.FormatMsgpack, nil
	default:
		return replay.FormatJSON, nil
	}
}

func readTape(path string) (*replay.Tape, error) {
	format, err := formatFor(path, "")
	if err != nil {
		return nil, err
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return replay.DecodeTape(raw, format)
}

func writeTape(path, explicit string, tape *replay.Tape) error {
	format, err := formatFor(path, explicit)
	if err != nil {
		return err
	}
	raw, err := replay.EncodeTape(tape, format)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create tape directory: %w", err)
		}
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return fmt.Errorf("write temp tape: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replace tape: %w", err)
	}
	return nil
}

func buildSchemas() map[string]*jsonschema.Schema {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties:  true,
		RequiredFromJSONSchemaTags: true,
		DoNotReference:             true,
	}
	tape := reflector.Reflect(new(replay.Tape))
	tape.Title = "pong-lite tape"
	tape.Description = "Ordered lobby publications recorded or generated for replay"
	spec := reflector.Reflect(new(replay.MatchSpec))
	spec.Title = "pong-lite match spec"
	spec.Description = "Input of tape generation: seed, win score and bot paddles"
	return map[string]*jsonschema.Schema{"tape": tape, "match_spec": spec}
}

func writeJSON(w io.Writer, v any) error {
	if v == nil {
		return errors.New("nothing to write")
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
