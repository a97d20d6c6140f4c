package verilog

import (
	"regexp"
)

var (
	// Pattern: module <name>
	modulePattern = regexp.MustCompile(`^\s*module\s+(\w+)`)

	// Pattern: identifier accepted as a module name in a backend script
	identifierPattern = regexp.MustCompile(`^[A-Za-z_]\w*$`)
)

// matchModule returns [name] if line declares a module
func matchModule(line string) []string {
	if m := modulePattern.FindStringSubmatch(line); m != nil {
		return []string{m[1]}
	}
	return nil
}

// ValidModuleName reports whether name can be spliced into a backend script.
func ValidModuleName(name string) bool {
	return identifierPattern.MatchString(name)
}
