package policy

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/open-policy-agent/opa/v1/rego"

	"github.com/robert-at-pretension-io/sigtrace/internal/design"
)

// Query is the rule every candidate policy defines: a set of wire names to drop.
const Query = "data.sigtrace.candidates.excluded"

// Engine evaluates rego candidate policies.
type Engine struct {
	query rego.PreparedEvalQuery
	files []string
}

// Input is the document a policy sees as `input`.
type Input struct {
	Target     Signal   `json:"target"`
	Candidates []Signal `json:"candidates"`
}

// Signal is the policy view of a catalogued signal.
type Signal struct {
	Name    string `json:"name"`
	Display string `json:"display"`
	Width   int    `json:"width"`
	Kind    string `json:"kind"`
	Src     string `json:"src,omitempty"`
}

// New creates a policy engine, loading every .rego file in policyDir.
func New(policyDir string) (*Engine, error) {
	files, err := filepath.Glob(filepath.Join(policyDir, "*.rego"))
	if err != nil {
		return nil, fmt.Errorf("finding policy files: %w", err)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no policy files found in %s", policyDir)
	}
	sort.Strings(files)

	var opts []func(*rego.Rego)
	for _, f := range files {
		content, err := os.ReadFile(f)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", f, err)
		}
		opts = append(opts, rego.Module(f, string(content)))
	}
	opts = append(opts, rego.Query(Query))

	query, err := rego.New(opts...).PrepareForEval(context.Background())
	if err != nil {
		return nil, fmt.Errorf("preparing candidate query: %w", err)
	}
	return &Engine{query: query, files: files}, nil
}

// Files lists the loaded policy modules.
func (e *Engine) Files() []string {
	return e.files
}

// NewInput builds the policy input for a target and its candidates.
func NewInput(target design.Signal, candidates []design.Signal) Input {
	in := Input{Target: view(target), Candidates: make([]Signal, 0, len(candidates))}
	for _, c := range candidates {
		in.Candidates = append(in.Candidates, view(c))
	}
	return in
}

func view(s design.Signal) Signal {
	return Signal{
		Name:    s.Name,
		Display: s.DisplayName(),
		Width:   s.Width,
		Kind:    string(s.Kind),
		Src:     s.Src,
	}
}

// Excluded returns the wire names the policies drop. An undefined rule
// excludes nothing.
func (e *Engine) Excluded(ctx context.Context, input Input) (map[string]bool, error) {
	inputMap, err := structToMap(input)
	if err != nil {
		return nil, fmt.Errorf("converting input: %w", err)
	}

	rs, err := e.query.Eval(ctx, rego.EvalInput(inputMap))
	if err != nil {
		return nil, fmt.Errorf("evaluating candidate policy: %w", err)
	}

	excluded := map[string]bool{}
	if len(rs) == 0 || len(rs[0].Expressions) == 0 {
		return excluded, nil
	}
	names, ok := rs[0].Expressions[0].Value.([]interface{})
	if !ok {
		return nil, fmt.Errorf("%s must be a set of strings, got %T", Query, rs[0].Expressions[0].Value)
	}
	for _, n := range names {
		if s, ok := n.(string); ok {
			excluded[s] = true
		}
	}
	return excluded, nil
}

func structToMap(v interface{}) (map[string]interface{}, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var result map[string]interface{}
	err = json.Unmarshal(data, &result)
	return result, err
}
