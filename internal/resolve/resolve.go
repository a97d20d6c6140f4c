// Package resolve maps a requested gate location to the catalogued signal
// whose provenance names exactly that span.
package resolve

import (
	"fmt"
	"strings"

	"github.com/robert-at-pretension-io/sigtrace/internal/design"
)

// TieBreak names how a location matching several signals is settled.
type TieBreak string

// TieBreakFirstInScanOrder keeps the first match in catalogue order. The
// other matches are returned as alternatives, never discarded.
const TieBreakFirstInScanOrder TieBreak = "first-in-scan-order"

// Policy is the tie-break applied by Resolve.
const Policy = TieBreakFirstInScanOrder

// Resolution is the outcome of a successful lookup.
type Resolution struct {
	Key          string          `json:"key"`
	Signal       design.Signal   `json:"signal"`
	Alternatives []design.Signal `json:"alternatives,omitempty"`
	Policy       TieBreak        `json:"policy"`
}

// Ambiguous reports whether more than one signal matched.
func (r Resolution) Ambiguous() bool {
	return len(r.Alternatives) > 0
}

// Entry is one line of the diagnostic catalogue shown when resolution fails.
type Entry struct {
	Name  string `json:"name"`
	Width int    `json:"width"`
	Src   string `json:"src"`
}

// ResolutionError reports a location that matched no gate signal.
type ResolutionError struct {
	Location  design.Location
	Key       string
	Catalogue []Entry
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("no gate signal found at %s (looked for src %q; %d signals with provenance available)",
		e.Location, e.Key, len(e.Catalogue))
}

// Resolve finds the gate signal whose src attribute contains the provenance
// key for loc in the file at gateAbs.
func Resolve(cat design.Catalogue, loc design.Location, gateAbs string) (Resolution, error) {
	key := loc.ProvenanceKey(gateAbs)

	var matches []design.Signal
	for _, sig := range cat.Gate {
		if sig.Src != "" && strings.Contains(sig.Src, key) {
			matches = append(matches, sig)
		}
	}
	if len(matches) == 0 {
		return Resolution{}, &ResolutionError{
			Location:  loc,
			Key:       key,
			Catalogue: Diagnostics(cat),
		}
	}
	return Resolution{
		Key:          key,
		Signal:       matches[0],
		Alternatives: matches[1:],
		Policy:       Policy,
	}, nil
}

// Diagnostics lists the gate signals that carry provenance, in catalogue order.
func Diagnostics(cat design.Catalogue) []Entry {
	var entries []Entry
	for _, sig := range cat.Attributed(design.Gate) {
		entries = append(entries, Entry{
			Name:  sig.DisplayName(),
			Width: sig.Width,
			Src:   sig.ShortSrc(),
		})
	}
	return entries
}
