// Package candidates prunes the gold side of a catalogue to the signals
// worth proving against a target.
package candidates

import (
	"strings"

	"github.com/robert-at-pretension-io/sigtrace/internal/design"
)

// Reason explains why a signal is not a candidate.
type Reason string

const (
	ReasonClockReset    Reason = "clock or reset"
	ReasonPort          Reason = "I/O port"
	ReasonStateConvert  Reason = "clk2fflogic bookkeeping"
	ReasonMiter         Reason = "miter infrastructure"
	ReasonMuxLowering   Reason = "process mux lowering"
	ReasonInternal      Reason = "backend internal"
	ReasonNextState     Reason = "next-state temporary"
	ReasonWidthMismatch Reason = "width mismatch"
)

var miterPrefixes = []string{`\in_`, `\trigger`, `\gold_`, `\gate_`}

// Excluded reports whether sig is never a candidate, whatever the target width.
func Excluded(sig design.Signal) (Reason, bool) {
	name := sig.Name
	display := sig.DisplayName()

	switch {
	case display == "clock" || display == "reset":
		return ReasonClockReset, true
	case strings.HasPrefix(display, "io_") || sig.Kind == design.KindPort:
		return ReasonPort, true
	case strings.Contains(name, "clk2fflogic"):
		return ReasonStateConvert, true
	case hasAnyPrefix(name, miterPrefixes):
		return ReasonMiter, true
	case strings.Contains(name, "$procmux$"):
		return ReasonMuxLowering, true
	case strings.Contains(name, "rtlil.cc"):
		return ReasonInternal, true
	case strings.Contains(name, `$0\`):
		return ReasonNextState, true
	}
	return "", false
}

// Filter returns the signals that are not excluded and have exactly width
// bits, preserving input order. It never modifies signals.
func Filter(signals []design.Signal, width int) []design.Signal {
	var out []design.Signal
	for _, sig := range signals {
		if _, skip := Excluded(sig); skip {
			continue
		}
		if sig.Width != width {
			continue
		}
		out = append(out, sig)
	}
	return out
}

// Explain returns the reason each rejected signal was dropped, keyed by name.
func Explain(signals []design.Signal, width int) map[string]Reason {
	reasons := make(map[string]Reason)
	for _, sig := range signals {
		if r, skip := Excluded(sig); skip {
			reasons[sig.Name] = r
		} else if sig.Width != width {
			reasons[sig.Name] = ReasonWidthMismatch
		}
	}
	return reasons
}

// Without drops every signal whose name is in names, keeping order.
func Without(signals []design.Signal, names map[string]bool) []design.Signal {
	if len(names) == 0 {
		return signals
	}
	var out []design.Signal
	for _, sig := range signals {
		if !names[sig.Name] {
			out = append(out, sig)
		}
	}
	return out
}

func hasAnyPrefix(s string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}
