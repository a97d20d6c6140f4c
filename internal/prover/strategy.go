// Package prover turns a target and its candidates into one ordered batch of
// equivalence queries and reads the verdicts back in the same order.
package prover

import (
	"fmt"
	"strings"

	"github.com/robert-at-pretension-io/sigtrace/internal/design"
	"github.com/robert-at-pretension-io/sigtrace/internal/miter"
)

// Mode selects the proof strategy.
type Mode string

const (
	// Bounded checks agreement over a fixed number of cycles from reset.
	Bounded Mode = "bounded"
	// Induction proves the miter trigger unreachable, then proves agreement
	// under that invariant for all time.
	Induction Mode = "induction"
)

// DefaultDepth is the unroll depth used by both strategies.
const DefaultDepth = 2

// Strategy is a proof mode and its depth.
type Strategy struct {
	Mode  Mode `json:"mode"`
	Depth int  `json:"depth"`
}

// DefaultStrategy is unbounded induction at DefaultDepth.
func DefaultStrategy() Strategy {
	return Strategy{Mode: Induction, Depth: DefaultDepth}
}

// ParseMode accepts "bounded" or "induction".
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case Bounded:
		return Bounded, nil
	case Induction, "":
		return Induction, nil
	}
	return "", fmt.Errorf("unknown proof mode %q (want %q or %q)", s, Bounded, Induction)
}

func (s Strategy) depth() int {
	if s.Depth < 1 {
		return DefaultDepth
	}
	return s.Depth
}

// Query asks whether Candidate equals Target on every checked cycle.
type Query struct {
	Target    design.Signal
	Candidate design.Signal
	Strategy  Strategy
}

// Command renders the backend command for q.
func (q Query) Command() string {
	if q.Strategy.Mode == Bounded {
		return fmt.Sprintf("sat -prove %s %s -set-init-zero -seq %d %s",
			q.Candidate.Name, q.Target.Name, q.Strategy.depth(), miter.Top)
	}
	return fmt.Sprintf("sat -tempinduct -prove %s 0 -prove %s %s -set-init-zero -seq %d %s",
		miter.TriggerSignal, q.Candidate.Name, q.Target.Name, q.Strategy.depth(), miter.Top)
}

// Result is the verdict for one query.
type Result struct {
	Query  Query  `json:"-"`
	Proven bool   `json:"proven"`
	Reason string `json:"reason,omitempty"`
}
