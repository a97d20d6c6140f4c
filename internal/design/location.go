package design

import (
	"fmt"
	"regexp"
	"strconv"
)

// Location names a column span on one line of a source file. Columns are
// 1-based, matching the backend's src attributes.
type Location struct {
	File     string `json:"file,omitempty"`
	Line     int    `json:"line"`
	StartCol int    `json:"start_col"`
	EndCol   int    `json:"end_col"`
}

var locationPattern = regexp.MustCompile(`^(\d+)\.(\d+)-(\d+)$`)

// ParseLocation parses the CLI form "<line>.<startCol>-<endCol>", e.g. "21.23-39".
func ParseLocation(s string) (Location, error) {
	m := locationPattern.FindStringSubmatch(s)
	if m == nil {
		return Location{}, fmt.Errorf("invalid location %q: expected <line>.<startcol>-<endcol> (e.g. 21.23-39)", s)
	}
	line, _ := strconv.Atoi(m[1])
	start, _ := strconv.Atoi(m[2])
	end, _ := strconv.Atoi(m[3])
	if line < 1 || start < 1 || end < start {
		return Location{}, fmt.Errorf("invalid location %q: line and columns must be positive and ordered", s)
	}
	return Location{Line: line, StartCol: start, EndCol: end}, nil
}

// String renders the CLI form.
func (l Location) String() string {
	return fmt.Sprintf("%d.%d-%d", l.Line, l.StartCol, l.EndCol)
}

// ProvenanceKey renders the exact src text the backend emits for this span
// in the file at absPath.
func (l Location) ProvenanceKey(absPath string) string {
	return fmt.Sprintf("%s:%d.%d-%d.%d", absPath, l.Line, l.StartCol, l.Line, l.EndCol)
}
