package prover

import (
	"bufio"
	"fmt"
	"strings"
)

// Marker substrings the backend prints once per finished proof.
const (
	SuccessMarker = "SUCCESS!"
	FailMarker    = "FAIL!"
)

// IntegrityError reports a marker stream that does not line up with the
// submitted queries. No alignment is guessed.
type IntegrityError struct {
	Want int
	Got  int
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("backend returned %d proof markers for %d queries", e.Got, e.Want)
}

// Markers returns the verdicts in output order. A line counts once; success
// is checked first.
func Markers(output string) []bool {
	var verdicts []bool
	scanner := bufio.NewScanner(strings.NewReader(output))
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case strings.Contains(line, SuccessMarker):
			verdicts = append(verdicts, true)
		case strings.Contains(line, FailMarker):
			verdicts = append(verdicts, false)
		}
	}
	return verdicts
}

// Interpret zips the markers in output onto queries by position.
func Interpret(output string, queries []Query) ([]Result, error) {
	verdicts := Markers(output)
	if len(verdicts) != len(queries) {
		return nil, &IntegrityError{Want: len(queries), Got: len(verdicts)}
	}
	results := make([]Result, len(queries))
	for i, q := range queries {
		results[i] = Result{Query: q, Proven: verdicts[i]}
	}
	return results, nil
}
