// Package provenance reads the source-location annotations a hardware
// compiler leaves in generated Verilog, e.g.
//
//	wire [7:0] mulRes = a * b; // @[src/Fifo.scala:46:20]
//	assign x = y; // src/Fifo.scala:25:{24,57}, :26:7
//
// A location string may name several (line, column) pairs. Every pair is
// kept: a fused location is the compiler telling us the signal is ambiguous.
package provenance

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/robert-at-pretension-io/sigtrace/internal/design"
)

var (
	// Pattern: @[<location>]
	bracketPattern = regexp.MustCompile(`@\[([^\]]+)\]`)

	// Pattern: // <file>.<ext>:<line>...
	commentPattern = regexp.MustCompile(`//\s*([^\s:@\[]+\.\w+:\d+.*)$`)

	// Pattern: [<file>.<ext>]:<line>:<col> or [<file>.<ext>]:<line>:{<col>,<col>}
	refPattern = regexp.MustCompile(`([^\s,:{}@\[\]]+\.\w+)?:(\d+):(\d+|\{\s*\d+(?:\s*,\s*\d+)*\s*\})`)
)

// Position is one (line, column) pair of a location string.
type Position struct {
	Line int `json:"line"`
	Col  int `json:"col"`
}

// Ref is a Position together with the file it belongs to.
type Ref struct {
	File string `json:"file"`
	Line int    `json:"line"`
	Col  int    `json:"col"`
}

// ExtractAnnotation returns the location string carried by line. The
// bracketed form wins over a trailing comment.
func ExtractAnnotation(line string) (string, bool) {
	if m := bracketPattern.FindStringSubmatch(line); m != nil {
		return strings.TrimSpace(m[1]), true
	}
	if m := commentPattern.FindStringSubmatch(line); m != nil {
		return strings.TrimSpace(m[1]), true
	}
	return "", false
}

// Parse scans a location string for file-qualified refs in textual order.
// Refs may be separated by commas or spaces; text that is not a ref is
// skipped. A ref without a file inherits the file of the previous ref.
func Parse(s string) []Ref {
	var refs []Ref
	file := ""
	for _, m := range refPattern.FindAllStringSubmatch(s, -1) {
		if m[1] != "" {
			file = m[1]
		}
		line, err := strconv.Atoi(m[2])
		if err != nil {
			continue
		}
		for _, col := range parseColumns(m[3]) {
			refs = append(refs, Ref{File: file, Line: line, Col: col})
		}
	}
	return refs
}

// ParseLocationList returns every (line, column) pair of s, expanding
// grouped columns into one pair each.
func ParseLocationList(s string) []Position {
	refs := Parse(s)
	out := make([]Position, 0, len(refs))
	for _, r := range refs {
		out = append(out, Position{Line: r.Line, Col: r.Col})
	}
	return out
}

// Ambiguous reports whether a location string names more than one pair.
func Ambiguous(refs []Ref) bool {
	return len(refs) > 1
}

// Render writes refs back in the compiler's format. Consecutive refs on the
// same file and line share one `{c1,c2}` group, so Parse(Render(r)) == r.
func Render(refs []Ref) string {
	return render(refs, func(f string) string { return f })
}

// Short renders refs with each file reduced to its base name.
func Short(refs []Ref) string {
	return render(refs, filepath.Base)
}

func render(refs []Ref, fileName func(string) string) string {
	var parts []string
	prevFile := ""
	for i := 0; i < len(refs); {
		j := i + 1
		for j < len(refs) && refs[j].File == refs[i].File && refs[j].Line == refs[i].Line {
			j++
		}
		var b strings.Builder
		if i == 0 || refs[i].File != prevFile {
			b.WriteString(fileName(refs[i].File))
		}
		fmt.Fprintf(&b, ":%d:", refs[i].Line)
		b.WriteString(formatColumns(refs[i:j]))
		parts = append(parts, b.String())
		prevFile = refs[i].File
		i = j
	}
	return strings.Join(parts, ", ")
}

// LineGroup collects every column that points at one source line.
type LineGroup struct {
	File string `json:"file"`
	Line int    `json:"line"`
	Cols []int  `json:"cols"`
}

// GroupByLine groups refs by (file, line) in order of first appearance.
func GroupByLine(refs []Ref) []LineGroup {
	var groups []LineGroup
	index := make(map[string]int)
	for _, r := range refs {
		key := fmt.Sprintf("%s\x00%d", r.File, r.Line)
		if i, ok := index[key]; ok {
			groups[i].Cols = append(groups[i].Cols, r.Col)
			continue
		}
		index[key] = len(groups)
		groups = append(groups, LineGroup{File: r.File, Line: r.Line, Cols: []int{r.Col}})
	}
	return groups
}

// FormatGroups renders groups as "Fifo.scala:46:{20,31}, :47:3".
func FormatGroups(groups []LineGroup) string {
	var parts []string
	prevFile := ""
	for i, g := range groups {
		var b strings.Builder
		if i == 0 || g.File != prevFile {
			b.WriteString(filepath.Base(g.File))
		}
		fmt.Fprintf(&b, ":%d:", g.Line)
		if len(g.Cols) == 1 {
			b.WriteString(strconv.Itoa(g.Cols[0]))
		} else {
			cols := make([]string, len(g.Cols))
			for k, c := range g.Cols {
				cols[k] = strconv.Itoa(c)
			}
			b.WriteString("{" + strings.Join(cols, ",") + "}")
		}
		parts = append(parts, b.String())
		prevFile = g.File
	}
	return strings.Join(parts, ", ")
}

// FindForSignal returns the location string on the first declaration or
// continuous assignment of name in snap.
func FindForSignal(snap *design.Snapshot, name string) (string, bool) {
	quoted := regexp.QuoteMeta(name)
	decl := regexp.MustCompile(`\b(?:wire|reg|logic)\b.*(?:^|[^\w$])` + quoted + `(?:[^\w$]|$)`)
	assign := regexp.MustCompile(`\bassign\s+` + quoted + `(?:[^\w$]|$)`)
	for _, line := range snap.Lines() {
		if !strings.Contains(line, "//") {
			continue
		}
		code := line[:strings.Index(line, "//")]
		if !decl.MatchString(code) && !assign.MatchString(code) {
			continue
		}
		if loc, ok := ExtractAnnotation(line); ok {
			return loc, true
		}
	}
	return "", false
}

func parseColumns(s string) []int {
	s = strings.TrimSuffix(strings.TrimPrefix(s, "{"), "}")
	var cols []int
	for _, c := range strings.Split(s, ",") {
		n, err := strconv.Atoi(strings.TrimSpace(c))
		if err == nil {
			cols = append(cols, n)
		}
	}
	return cols
}

func formatColumns(refs []Ref) string {
	if len(refs) == 1 {
		return strconv.Itoa(refs[0].Col)
	}
	cols := make([]string, len(refs))
	for i, r := range refs {
		cols[i] = strconv.Itoa(r.Col)
	}
	return "{" + strings.Join(cols, ",") + "}"
}
