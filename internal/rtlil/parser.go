// Package rtlil reconstructs the signal catalogue of a comparison circuit
// from the backend's textual RTLIL dump.
package rtlil

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/robert-at-pretension-io/sigtrace/internal/design"
)

// SidePaths are the absolute paths the backend recorded for each design.
type SidePaths struct {
	Gold string
	Gate string
}

// PathPrecedence is the order in which sides are tried when a wire has no
// origin tag and is classified by the file in its src attribute.
var PathPrecedence = [...]design.Side{design.Gold, design.Gate}

func (p SidePaths) path(side design.Side) string {
	if side == design.Gold {
		return p.Gold
	}
	return p.Gate
}

// Parse reads a dump and returns the catalogue of gold and gate wires in
// dump order.
func Parse(r io.Reader, paths SidePaths) (design.Catalogue, error) {
	var (
		cat  design.Catalogue
		st   state
		seen = map[design.Side]map[string]bool{design.Gold: {}, design.Gate: {}}
	)

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		var ev event
		st, ev = step(st, scanner.Text())
		if ev.wire == nil {
			continue
		}
		sig, ok := classify(*ev.wire, paths)
		if !ok {
			cat.Unattributed++
			continue
		}
		if seen[sig.Side][sig.Name] {
			continue
		}
		seen[sig.Side][sig.Name] = true
		if sig.Side == design.Gold {
			cat.Gold = append(cat.Gold, sig)
		} else {
			cat.Gate = append(cat.Gate, sig)
		}
	}
	if err := scanner.Err(); err != nil {
		return design.Catalogue{}, fmt.Errorf("reading dump: %w", err)
	}
	return cat, nil
}

// classify assigns a side to a declared wire. An origin tag wins; otherwise
// the src attribute must point into one of the two input files.
func classify(w wireDecl, paths SidePaths) (design.Signal, bool) {
	sig := design.Signal{
		Name:  w.name,
		Width: w.width,
		Src:   w.src,
		Kind:  design.KindWire,
	}
	switch {
	case w.port:
		sig.Kind = design.KindPort
	case w.register:
		sig.Kind = design.KindRegister
	}

	for _, side := range PathPrecedence {
		if rest, ok := strings.CutPrefix(w.hdlname, string(side)+" "); ok {
			sig.Side = side
			sig.OriginalName = strings.ReplaceAll(rest, " ", ".")
			return sig, true
		}
	}
	if w.src == "" {
		return design.Signal{}, false
	}
	for _, side := range PathPrecedence {
		if srcPointsInto(w.src, paths.path(side)) {
			sig.Side = side
			return sig, true
		}
	}
	return design.Signal{}, false
}

// srcPointsInto reports whether any span of src names file.
func srcPointsInto(src, file string) bool {
	if file == "" {
		return false
	}
	for _, part := range strings.Split(src, "|") {
		if strings.HasPrefix(strings.TrimSpace(part), file+":") {
			return true
		}
	}
	return false
}
