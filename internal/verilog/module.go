// Package verilog answers the few structural questions the tracer asks of a
// Verilog file without parsing its grammar: which modules it declares and
// what text sits at a given span.
package verilog

import (
	"fmt"
	"strings"

	"github.com/robert-at-pretension-io/sigtrace/internal/design"
)

// ModuleNotFoundError reports a design with no usable module.
type ModuleNotFoundError struct {
	File   string
	Module string // empty when auto-detection found nothing
}

func (e *ModuleNotFoundError) Error() string {
	if e.Module == "" {
		return fmt.Sprintf("no module declaration found in %s (specify one with --module)", e.File)
	}
	return fmt.Sprintf("module %s not found in %s", e.Module, e.File)
}

// Modules lists every declared module name in file order.
func Modules(snap *design.Snapshot) []string {
	var names []string
	for _, line := range snap.Lines() {
		if m := matchModule(line); m != nil {
			names = append(names, m[0])
		}
	}
	return names
}

// DetectPrimaryModule returns the first declared module name.
func DetectPrimaryModule(snap *design.Snapshot) (string, error) {
	for _, line := range snap.Lines() {
		if m := matchModule(line); m != nil {
			return m[0], nil
		}
	}
	return "", &ModuleNotFoundError{File: snap.Path}
}

// ListOtherModules returns every declared module except target. These are
// deleted before elaboration so two designs can share one session.
func ListOtherModules(snap *design.Snapshot, target string) []string {
	var others []string
	for _, name := range Modules(snap) {
		if name != target {
			others = append(others, name)
		}
	}
	return others
}

// CountModule returns how many times name is declared.
func CountModule(snap *design.Snapshot, name string) int {
	n := 0
	for _, m := range Modules(snap) {
		if m == name {
			n++
		}
	}
	return n
}

// ExpressionText returns the text of line between 1-based inclusive columns,
// right-trimmed. Columns past the end of the line are clamped.
func ExpressionText(snap *design.Snapshot, line, startCol, endCol int) (string, bool) {
	text, ok := snap.Line(line)
	if !ok || startCol < 1 || startCol > len(text) {
		return "", false
	}
	end := endCol
	if end > len(text) {
		end = len(text)
	}
	if end < startCol {
		return "", false
	}
	return strings.TrimRight(text[startCol-1:end], " \t"), true
}
