// Package design holds the data model shared by every stage of a trace:
// catalogued signals, requested gate locations and file snapshots.
package design

import (
	"fmt"
	"strconv"
	"strings"
)

// Side names which of the two designs a signal came from.
type Side string

const (
	// Gold is the unoptimized reference design.
	Gold Side = "gold"
	// Gate is the optimized design being traced.
	Gate Side = "gate"
)

// Kind classifies a catalogued signal.
type Kind string

const (
	KindPort     Kind = "port"
	KindWire     Kind = "wire"
	KindRegister Kind = "register"
)

// Signal is one wire of the elaborated comparison circuit.
type Signal struct {
	// Name is the wire name exactly as the backend dumps it, e.g. `\gold.mulRes`.
	Name string `json:"name"`

	// Width is the bit count (always positive).
	Width int `json:"width"`

	// Src is the raw src attribute: zero or more `path:l1.c1-l2.c2` spans joined by `|`.
	Src string `json:"src,omitempty"`

	// OriginalName is set when the backend tagged the wire with its origin.
	OriginalName string `json:"original_name,omitempty"`

	Side Side `json:"side"`
	Kind Kind `json:"kind"`
}

// DisplayName returns the name a user would recognise from the HDL source.
func (s Signal) DisplayName() string {
	if s.OriginalName != "" {
		return s.OriginalName
	}
	return strings.TrimPrefix(s.Name, `\`)
}

// HasProvenance reports whether the backend attached any source span.
func (s Signal) HasProvenance() bool {
	return strings.TrimSpace(s.Src) != ""
}

// ShortSrc returns the text after the last colon of the src attribute,
// e.g. "21.23-21.39". Signals without provenance return "".
func (s Signal) ShortSrc() string {
	if s.Src == "" {
		return ""
	}
	if i := strings.LastIndex(s.Src, ":"); i >= 0 {
		return s.Src[i+1:]
	}
	return s.Src
}

// Span is one parsed entry of a src attribute.
type Span struct {
	File      string
	StartLine int
	StartCol  int
	EndLine   int
	EndCol    int
}

// Spans parses the src attribute. Entries that do not follow the
// `path:l1.c1-l2.c2` shape are returned with only File set.
func (s Signal) Spans() []Span {
	if s.Src == "" {
		return nil
	}
	var spans []Span
	for _, part := range strings.Split(s.Src, "|") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		spans = append(spans, parseSpan(part))
	}
	return spans
}

func parseSpan(part string) Span {
	i := strings.LastIndex(part, ":")
	if i < 0 {
		return Span{File: part}
	}
	sp := Span{File: part[:i]}
	start, end, ok := strings.Cut(part[i+1:], "-")
	if !ok {
		return Span{File: part}
	}
	var err1, err2 error
	sp.StartLine, sp.StartCol, err1 = lineCol(start)
	sp.EndLine, sp.EndCol, err2 = lineCol(end)
	if err1 != nil || err2 != nil {
		return Span{File: part}
	}
	return sp
}

func lineCol(s string) (int, int, error) {
	l, c, ok := strings.Cut(s, ".")
	if !ok {
		return 0, 0, fmt.Errorf("missing column in %q", s)
	}
	line, err := strconv.Atoi(l)
	if err != nil {
		return 0, 0, err
	}
	col, err := strconv.Atoi(c)
	if err != nil {
		return 0, 0, err
	}
	return line, col, nil
}
