package discovery

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/robert-at-pretension-io/sigtrace/internal/prover"
)

// Correspondence is one proven pair in a discovery report.
type Correspondence struct {
	Gate     string `json:"gate"`
	GateSrc  string `json:"gate_src,omitempty"`
	Gold     string `json:"gold"`
	Width    int    `json:"width"`
	GateWire string `json:"gate_wire"`
	GoldWire string `json:"gold_wire"`
}

// Report summarises a discovery run.
type Report struct {
	Gold            string           `json:"gold"`
	Gate            string           `json:"gate"`
	Module          string           `json:"module"`
	Strategy        prover.Strategy  `json:"strategy"`
	Correspondences []Correspondence `json:"correspondences"`
	Failures        []Failure        `json:"failures,omitempty"`
	Summary         Summary          `json:"summary"`
}

// Failure is a pair whose run did not produce a verdict.
type Failure struct {
	Gate   string `json:"gate"`
	Gold   string `json:"gold"`
	Reason string `json:"reason"`
}

// Summary counts pairs.
type Summary struct {
	Proven int `json:"proven"`
	Total  int `json:"total"`
	Errors int `json:"errors"`
}

// NewReport collects proven pairs and failures from outcomes.
func NewReport(gold, gate, module string, strategy prover.Strategy, outcomes []Outcome) Report {
	r := Report{
		Gold:            gold,
		Gate:            gate,
		Module:          module,
		Strategy:        strategy,
		Correspondences: []Correspondence{},
		Summary:         Summary{Total: len(outcomes)},
	}
	for _, o := range outcomes {
		switch {
		case o.Proven:
			r.Summary.Proven++
			r.Correspondences = append(r.Correspondences, Correspondence{
				Gate:     o.Pair.Gate.DisplayName(),
				GateSrc:  o.Pair.Gate.ShortSrc(),
				Gold:     o.Pair.Gold.DisplayName(),
				Width:    o.Pair.Gate.Width,
				GateWire: o.Pair.Gate.Name,
				GoldWire: o.Pair.Gold.Name,
			})
		case o.Reason != "":
			r.Summary.Errors++
			r.Failures = append(r.Failures, Failure{
				Gate:   o.Pair.Gate.DisplayName(),
				Gold:   o.Pair.Gold.DisplayName(),
				Reason: o.Reason,
			})
		}
	}
	return r
}

// Render writes the correspondence table.
func Render(w io.Writer, r Report) error {
	var b strings.Builder
	rule := strings.Repeat("=", 70)
	fmt.Fprintf(&b, "%s\nSignal Correspondences: %s\n%s\n\n", rule, r.Module, rule)
	if len(r.Correspondences) == 0 {
		b.WriteString("  No correspondences found.\n")
	} else {
		fmt.Fprintf(&b, "  %-25s %-25s %-6s %s\n", "Gate", "Gold", "Width", "Gate Src")
		fmt.Fprintf(&b, "  %s %s %s %s\n", strings.Repeat("─", 25), strings.Repeat("─", 25), strings.Repeat("─", 5), strings.Repeat("─", 12))
		for _, c := range r.Correspondences {
			fmt.Fprintf(&b, "  %-25s %-25s %-6d %s\n", c.Gate, c.Gold, c.Width, c.GateSrc)
		}
	}
	for _, f := range r.Failures {
		fmt.Fprintf(&b, "  ! %s vs %s: %s\n", f.Gate, f.Gold, f.Reason)
	}
	fmt.Fprintf(&b, "\n  Proved: %d/%d pairs, %d unresolved\n%s\n", r.Summary.Proven, r.Summary.Total, r.Summary.Errors, rule)
	_, err := io.WriteString(w, b.String())
	return err
}

// RenderJSON writes the report as indented JSON.
func RenderJSON(w io.Writer, r Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}
