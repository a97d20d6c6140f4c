package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/robert-at-pretension-io/sigtrace/internal/prover"
	"github.com/robert-at-pretension-io/sigtrace/internal/resolve"
)

var rule = strings.Repeat("=", 70)

// Describe returns the human name of a strategy.
func Describe(s prover.Strategy) string {
	depth := s.Depth
	if depth < 1 {
		depth = prover.DefaultDepth
	}
	if s.Mode == prover.Bounded {
		return fmt.Sprintf("bounded BMC (-seq %d)", depth)
	}
	return "unbounded k-induction (-tempinduct)"
}

// Render writes the report as a text table.
func Render(w io.Writer, r Report) error {
	ew := &errWriter{w: w}

	ew.printf("%s\nSignal Correspondence Tracer\n%s\n\n", rule, rule)
	ew.printf("  Gold (unoptimized): %s\n", r.Gold)
	ew.printf("  Gate (optimized):   %s\n", r.Gate)
	ew.printf("  Module:             %s\n", r.Module)
	ew.printf("  Proof method:       %s\n", Describe(r.Strategy))

	ew.printf("\n%s\nResults\n%s\n\n", rule, rule)
	if r.Target.Expression != "" {
		ew.printf("  Target: %s:%s (%s)\n", r.Gate, r.Target.Location, r.Target.Expression)
	} else {
		ew.printf("  Target: %s:%s\n", r.Gate, r.Target.Location)
	}
	ew.printf("  Yosys wire: %s (width %d)\n", r.Target.Wire, r.Target.Width)
	if n := len(r.Target.Alternatives); n > 0 {
		ew.printf("  Note: %d other signals share this location; kept the first (%s): %s\n",
			n, r.Target.Policy, strings.Join(r.Target.Alternatives, ", "))
	}

	if len(r.Rows) == 0 {
		ew.printf("\n  No equivalent signals found.\n")
	} else {
		ew.printf("\n  Equivalent signals in %s:\n\n", r.Gold)
		ew.printf("  %-25s %-6s %s\n", "Signal", "Width", "Chisel Source")
		ew.printf("  %s %s %s\n", strings.Repeat("─", 25), strings.Repeat("─", 5), strings.Repeat("─", 40))
		for _, row := range r.Rows {
			src := row.Source
			if row.Ambiguous {
				src += " (ambiguous)"
			}
			ew.printf("  %-25s %-6d %s\n", row.Candidate, row.Width, src)
			if row.Excerpt != "" {
				ew.printf("  %-25s %-6s   %s\n", "", "", row.Excerpt)
			}
		}
	}

	ew.printf("\n  Proved: %d/%d equivalent, %d not equivalent\n", r.Summary.Proven, r.Summary.Total, r.Summary.Failed())
	ew.printf("%s\n", rule)
	return ew.err
}

// RenderJSON writes the report as indented JSON.
func RenderJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// RenderResolutionError lists the gate signals a caller could have meant.
func RenderResolutionError(w io.Writer, err *resolve.ResolutionError) error {
	ew := &errWriter{w: w}
	ew.printf("  Error: no signal found at location %s\n", err.Location)
	ew.printf("  Available gate signals:\n")
	for _, e := range err.Catalogue {
		ew.printf("    %-25s width=%d  src=%s\n", e.Name, e.Width, e.Src)
	}
	return ew.err
}

// ResolutionFailure is the JSON form of a resolution error.
type ResolutionFailure struct {
	Error     string          `json:"error"`
	Location  string          `json:"location"`
	Key       string          `json:"key"`
	Available []resolve.Entry `json:"available"`
}

// NewResolutionFailure lists the same signals RenderResolutionError prints.
func NewResolutionFailure(err *resolve.ResolutionError) ResolutionFailure {
	available := err.Catalogue
	if available == nil {
		available = []resolve.Entry{}
	}
	return ResolutionFailure{
		Error:     err.Error(),
		Location:  err.Location.String(),
		Key:       err.Key,
		Available: available,
	}
}

type errWriter struct {
	w   io.Writer
	err error
}

func (e *errWriter) printf(format string, args ...any) {
	if e.err != nil {
		return
	}
	_, e.err = fmt.Fprintf(e.w, format, args...)
}
