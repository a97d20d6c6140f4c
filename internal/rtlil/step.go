package rtlil

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/robert-at-pretension-io/sigtrace/internal/miter"
)

var (
	// Pattern: attribute \src "<spans>"
	srcAttrPattern = regexp.MustCompile(`^attribute\s+\\src\s+"([^"]*)"`)

	// Pattern: attribute \hdlname "<role> <name>..."
	hdlnameAttrPattern = regexp.MustCompile(`^attribute\s+\\hdlname\s+"([^"]*)"`)

	// Pattern: attribute \sigtrace_register <value>
	registerAttrPattern = regexp.MustCompile(`^attribute\s+\\` + regexp.QuoteMeta(miter.RegisterAttribute) + `\s`)
)

// state is everything the parser carries from one line to the next.
// Attributes accumulate until the next declaration consumes them.
type state struct {
	src      string
	hdlname  string
	register bool
}

// wireDecl is one wire declaration with the attributes that preceded it.
type wireDecl struct {
	name     string
	width    int
	port     bool
	register bool
	src      string
	hdlname  string
}

// event is what a single line contributes to the catalogue.
type event struct {
	wire *wireDecl
}

// step advances the parser by one line. It never looks at anything but its
// arguments, so any prefix of a dump can be replayed from a zero state.
func step(st state, raw string) (state, event) {
	line := strings.TrimSpace(raw)

	if m := srcAttrPattern.FindStringSubmatch(line); m != nil {
		st.src = m[1]
		return st, event{}
	}
	if m := hdlnameAttrPattern.FindStringSubmatch(line); m != nil {
		st.hdlname = m[1]
		return st, event{}
	}
	if registerAttrPattern.MatchString(line) {
		st.register = true
		return st, event{}
	}
	if strings.HasPrefix(line, "attribute") {
		return st, event{}
	}

	// Everything below consumes or discards the pending attributes.
	pending := st
	st = state{}

	fields := strings.Fields(line)
	if len(fields) == 0 || fields[0] != "wire" {
		return st, event{}
	}
	w, ok := parseWire(fields[1:])
	if !ok {
		return st, event{}
	}
	w.src, w.hdlname, w.register = pending.src, pending.hdlname, pending.register
	return st, event{wire: &w}
}

// parseWire reads the option list and name of a wire declaration.
func parseWire(fields []string) (wireDecl, bool) {
	w := wireDecl{width: 1}
	for i := 0; i < len(fields); i++ {
		switch fields[i] {
		case "width", "offset", "input", "output", "inout":
			if i+1 >= len(fields) {
				return wireDecl{}, false
			}
			n, err := strconv.Atoi(fields[i+1])
			if err != nil {
				return wireDecl{}, false
			}
			switch fields[i] {
			case "width":
				w.width = n
			case "input", "output", "inout":
				w.port = true
			}
			i++
		case "upto", "signed":
		default:
			if i != len(fields)-1 {
				return wireDecl{}, false
			}
			w.name = fields[i]
		}
	}
	if w.name == "" || w.width < 1 {
		return wireDecl{}, false
	}
	return w, true
}
