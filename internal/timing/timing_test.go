package timing

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func TestJSONLWritten(t *testing.T) {
	path := filepath.Join(t.TempDir(), "timing.jsonl")
	start := time.Now()
	tr, err := New(start, path)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	tr.Begin("dump")(nil)
	tr.Pair(`\gate.a`, `\gold.b`, "proven", start, 5*time.Millisecond)
	tr.Begin("resolve")(errors.New("no signal"))
	if err := tr.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read timing file: %v", err)
	}
	lines := bytes.Split(bytes.TrimSpace(raw), []byte("\n"))
	if len(lines) != 3 {
		t.Fatalf("expected 3 events, got %d", len(lines))
	}

	var events []Event
	for _, line := range lines {
		var ev Event
		if err := json.Unmarshal(line, &ev); err != nil {
			t.Fatalf("parse timing event: %v", err)
		}
		events = append(events, ev)
	}
	if ev := events[0]; ev.Stage != "dump" || ev.Outcome != OutcomeOK || ev.Gate != "" {
		t.Fatalf("unexpected stage event: %+v", ev)
	}
	if ev := events[1]; ev.Stage != "pair" || ev.Gate != `\gate.a` || ev.Gold != `\gold.b` || ev.Outcome != "proven" || ev.TookMS != 5 {
		t.Fatalf("unexpected pair event: %+v", ev)
	}
	if ev := events[2]; ev.Outcome != OutcomeError {
		t.Fatalf("failed stage should record an error outcome: %+v", ev)
	}
	if bytes.Contains(lines[0], []byte(`"gate"`)) {
		t.Fatalf("stage events should omit pair fields: %s", lines[0])
	}
}

func TestTotalsSumConcurrentPairs(t *testing.T) {
	tr, err := New(time.Now(), filepath.Join(t.TempDir(), "timing.jsonl"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer tr.Close()

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tr.Pair(`\gate.a`, `\gold.b`, "not_proven", time.Now(), 10*time.Millisecond)
		}()
	}
	wg.Wait()

	if got := tr.Totals()["pair"]; got != 40*time.Millisecond {
		t.Fatalf("pair total = %v, want 40ms", got)
	}
	if n := len(tr.Events()); n != 4 {
		t.Fatalf("expected 4 events, got %d", n)
	}
}

func TestDisabledRecorder(t *testing.T) {
	tr, err := New(time.Now(), "")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	tr.Begin("dump")(nil)
	tr.Pair("a", "b", "proven", time.Now(), time.Millisecond)
	if tr.Enabled() || len(tr.Events()) != 0 || tr.Totals() != nil {
		t.Fatalf("disabled recorder should record nothing")
	}
	if err := tr.Close(); err != nil {
		t.Fatalf("nil Close: %v", err)
	}
}

func TestResolvePath(t *testing.T) {
	t.Setenv(PathEnv, "/tmp/env.jsonl")
	if got := ResolvePath("flag.jsonl"); got != "flag.jsonl" {
		t.Fatalf("flag should win, got %s", got)
	}
	if got := ResolvePath(""); got != "/tmp/env.jsonl" {
		t.Fatalf("env fallback failed, got %s", got)
	}
}
