// Package timing writes one JSON line per pipeline stage or proven pair.
package timing

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"
)

// PathEnv enables timing output when the CLI flag is absent.
const PathEnv = "SIGTRACE_TIMING_JSONL"

// Stage outcomes. Pair events carry the proof verdict instead.
const (
	OutcomeOK    = "ok"
	OutcomeError = "error"
)

// Event is one timed span. AtMS is the offset from the recorder's start.
// Gate and Gold are set only on pair events.
type Event struct {
	Stage   string  `json:"stage"`
	Gate    string  `json:"gate,omitempty"`
	Gold    string  `json:"gold,omitempty"`
	Outcome string  `json:"outcome"`
	AtMS    float64 `json:"at_ms"`
	TookMS  float64 `json:"took_ms"`
}

// Recorder collects events. A nil or disabled Recorder accepts every call
// and records nothing.
type Recorder struct {
	start time.Time

	mu     sync.Mutex
	events []Event
	totals map[string]time.Duration
	file   *os.File
	buf    *bufio.Writer
	enc    *json.Encoder
	err    error
}

// New opens path for writing. An empty path gives a disabled recorder.
func New(start time.Time, path string) (*Recorder, error) {
	if path == "" {
		return nil, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create timing file: %w", err)
	}
	buf := bufio.NewWriter(f)
	return &Recorder{
		start:  start,
		totals: make(map[string]time.Duration),
		file:   f,
		buf:    buf,
		enc:    json.NewEncoder(buf),
	}, nil
}

// ResolvePath returns the flag value, or the environment override.
func ResolvePath(flag string) string {
	if flag != "" {
		return flag
	}
	return os.Getenv(PathEnv)
}

// Enabled reports whether events are being written.
func (tr *Recorder) Enabled() bool {
	return tr != nil
}

// Begin starts timing stage. The returned func records it with an outcome
// derived from err; calling it more than once records more than once.
func (tr *Recorder) Begin(stage string) func(err error) {
	if tr == nil {
		return func(error) {}
	}
	start := time.Now()
	return func(err error) {
		outcome := OutcomeOK
		if err != nil {
			outcome = OutcomeError
		}
		tr.add(Event{Stage: stage, Outcome: outcome}, start, time.Since(start))
	}
}

// Pair records one proof between a gate and a gold wire. verdict is the
// proof outcome, e.g. "proven" or "timeout".
func (tr *Recorder) Pair(gate, gold, verdict string, start time.Time, took time.Duration) {
	if tr == nil {
		return
	}
	tr.add(Event{Stage: "pair", Gate: gate, Gold: gold, Outcome: verdict}, start, took)
}

func (tr *Recorder) add(ev Event, start time.Time, took time.Duration) {
	ev.AtMS = millis(start.Sub(tr.start))
	ev.TookMS = millis(took)

	tr.mu.Lock()
	defer tr.mu.Unlock()
	tr.events = append(tr.events, ev)
	tr.totals[ev.Stage] += took
	if tr.err == nil {
		tr.err = tr.enc.Encode(ev)
	}
}

// Events returns a copy of everything recorded so far.
func (tr *Recorder) Events() []Event {
	if tr == nil {
		return nil
	}
	tr.mu.Lock()
	defer tr.mu.Unlock()
	return append([]Event(nil), tr.events...)
}

// Totals sums the time spent in each stage. Pair proofs that ran
// concurrently add up to more than the wall clock.
func (tr *Recorder) Totals() map[string]time.Duration {
	if tr == nil {
		return nil
	}
	tr.mu.Lock()
	defer tr.mu.Unlock()
	out := make(map[string]time.Duration, len(tr.totals))
	for k, v := range tr.totals {
		out[k] = v
	}
	return out
}

// Close flushes buffered events and closes the file. It reports the first
// write error seen while recording.
func (tr *Recorder) Close() error {
	if tr == nil {
		return nil
	}
	tr.mu.Lock()
	defer tr.mu.Unlock()
	return errors.Join(tr.err, tr.buf.Flush(), tr.file.Close())
}

func millis(d time.Duration) float64 {
	return float64(d.Nanoseconds()) / 1e6
}
