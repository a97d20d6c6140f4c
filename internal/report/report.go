// Package report joins proof verdicts back to source provenance and renders
// the correspondence table.
package report

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/robert-at-pretension-io/sigtrace/internal/design"
	"github.com/robert-at-pretension-io/sigtrace/internal/provenance"
	"github.com/robert-at-pretension-io/sigtrace/internal/prover"
	"github.com/robert-at-pretension-io/sigtrace/internal/resolve"
	"github.com/robert-at-pretension-io/sigtrace/internal/source"
)

// NoSource marks a proven signal with no annotation in the gold design.
const NoSource = "N/A"

// Report is the outcome of tracing one gate location.
type Report struct {
	Gold     string          `json:"gold"`
	Gate     string          `json:"gate"`
	Module   string          `json:"module"`
	Strategy prover.Strategy `json:"strategy"`
	Target   Target          `json:"target"`
	Rows     []Row           `json:"rows"`
	Summary  Summary         `json:"summary"`
}

// Target describes the resolved gate signal.
type Target struct {
	Location     string   `json:"location"`
	Expression   string   `json:"expression,omitempty"`
	Wire         string   `json:"wire"`
	Width        int      `json:"width"`
	Name         string   `json:"name"`
	Src          string   `json:"src,omitempty"`
	Policy       string   `json:"policy"`
	Alternatives []string `json:"alternatives,omitempty"`
}

// Row is one proven gold signal.
type Row struct {
	Candidate  string                 `json:"candidate"`
	Wire       string                 `json:"wire"`
	Width      int                    `json:"width"`
	Kind       design.Kind            `json:"kind"`
	Source     string                 `json:"source"`
	Annotation string                 `json:"annotation,omitempty"`
	Groups     []provenance.LineGroup `json:"groups,omitempty"`
	Ambiguous  bool                   `json:"ambiguous,omitempty"`
	Excerpt    string                 `json:"excerpt,omitempty"`
}

// Summary counts the verdicts of one batch.
type Summary struct {
	Proven int `json:"proven"`
	Total  int `json:"total"`
}

// Failed returns the number of candidates that did not prove.
func (s Summary) Failed() int {
	return s.Total - s.Proven
}

// Input carries everything Build joins together.
type Input struct {
	GoldPath   string
	GatePath   string
	Module     string
	Strategy   prover.Strategy
	Location   design.Location
	Expression string
	Resolution resolve.Resolution
	Results    []prover.Result

	// Gold is searched for each proven signal's annotation.
	Gold *design.Snapshot

	// Excerpter adds Scala excerpts when set.
	Excerpter *source.Excerpter
}

// Build assembles the report for in. Only proven results become rows.
func Build(ctx context.Context, in Input) Report {
	sig := in.Resolution.Signal
	r := Report{
		Gold:     in.GoldPath,
		Gate:     in.GatePath,
		Module:   in.Module,
		Strategy: in.Strategy,
		Target: Target{
			Location:   in.Location.String(),
			Expression: in.Expression,
			Wire:       sig.Name,
			Width:      sig.Width,
			Name:       sig.DisplayName(),
			Src:        sig.ShortSrc(),
			Policy:     string(in.Resolution.Policy),
		},
		Rows:    []Row{},
		Summary: Summary{Total: len(in.Results)},
	}
	for _, alt := range in.Resolution.Alternatives {
		r.Target.Alternatives = append(r.Target.Alternatives, alt.Name)
	}

	for _, res := range in.Results {
		if !res.Proven {
			continue
		}
		r.Summary.Proven++
		r.Rows = append(r.Rows, buildRow(ctx, in, res.Query.Candidate))
	}
	return r
}

func buildRow(ctx context.Context, in Input, cand design.Signal) Row {
	row := Row{
		Candidate: cand.DisplayName(),
		Wire:      cand.Name,
		Width:     cand.Width,
		Kind:      cand.Kind,
		Source:    NoSource,
	}
	if in.Gold == nil {
		return row
	}
	annotation, ok := provenance.FindForSignal(in.Gold, cand.DisplayName())
	if !ok {
		return row
	}
	row.Annotation = annotation

	refs := provenance.Parse(annotation)
	if len(refs) == 0 {
		row.Source = shortPath(annotation)
		return row
	}
	row.Groups = provenance.GroupByLine(refs)
	row.Source = provenance.FormatGroups(row.Groups)
	row.Ambiguous = provenance.Ambiguous(refs)

	if in.Excerpter != nil {
		if ex, err := in.Excerpter.Excerpt(ctx, refs[0]); err == nil {
			row.Excerpt = ex.Text
		}
	}
	return row
}

// shortPath keeps the text after the last path separator.
func shortPath(s string) string {
	if i := strings.LastIndex(s, "/"); i >= 0 {
		return s[i+1:]
	}
	return filepath.Base(s)
}
