package main

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"pong-lite/replay"
)

func runJSON(t *testing.T, opts options, v any) {
	t.Helper()
	var buf bytes.Buffer
	if err := run(opts, &buf); err != nil {
		t.Fatalf("run(%+v): %v", opts, err)
	}
	if err := json.Unmarshal(buf.Bytes(), v); err != nil {
		t.Fatalf("decode output: %v\n%s", err, buf.String())
	}
}

func TestRun_GeneratedTapeRoundTripsThroughMsgpack(t *testing.T) {
	out := filepath.Join(t.TempDir(), "tapes", "seed7.msgpack")

	var generated summary
	runJSON(t, options{seed: 7, winScore: 2, maxTicks: 3600, outPath: out}, &generated)
	if generated.Events == 0 || generated.MatchID == "" {
		t.Fatalf("unexpected summary %+v", generated)
	}

	var reread summary
	runJSON(t, options{tapePath: out}, &reread)
	if diff := cmp.Diff(generated, reread); diff != "" {
		t.Fatalf("msgpack tape rebuilt differently (-want +got):\n%s", diff)
	}
}

func TestRun_Timeline(t *testing.T) {
	var timeline replay.WireTimeline
	runJSON(t, options{seed: 3, winScore: 1, maxTicks: 1200, timeline: true}, &timeline)
	if timeline.TapeVersion != replay.TapeVersion || len(timeline.Steps) < 3 {
		t.Fatalf("unexpected timeline header: version=%d steps=%d", timeline.TapeVersion, len(timeline.Steps))
	}
	if timeline.Steps[2].Type != "game_started" || !timeline.Steps[2].RoundActive {
		t.Fatalf("expected third step to start the round, got %+v", timeline.Steps[2])
	}
}

func TestRun_Schema(t *testing.T) {
	var buf bytes.Buffer
	if err := run(options{schema: true}, &buf); err != nil {
		t.Fatalf("schema: %v", err)
	}
	for _, want := range []string{"pong-lite tape", "pong-lite match spec", "received_at_ms", "paddles"} {
		if !strings.Contains(buf.String(), want) {
			t.Fatalf("schema output missing %q", want)
		}
	}
}

func TestFormatFor(t *testing.T) {
	cases := []struct {
		path, explicit string
		want           replay.Format
	}{
		{"a.json", "", replay.FormatJSON},
		{"a.MSGPACK", "", replay.FormatMsgpack},
		{"a.bin", "msgpack", replay.FormatMsgpack},
		{"noext", "", replay.FormatJSON},
	}
	for _, tc := range cases {
		got, err := formatFor(tc.path, tc.explicit)
		if err != nil || got != tc.want {
			t.Fatalf("formatFor(%q, %q) = %q, %v; want %q", tc.path, tc.explicit, got, err, tc.want)
		}
	}
	if _, err := formatFor("a.json", "xml"); err == nil {
		t.Fatalf("expected unknown format error")
	}
}
