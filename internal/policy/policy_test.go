package policy

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robert-at-pretension-io/sigtrace/internal/design"
)

func goldSignals() []design.Signal {
	return []design.Signal{
		{Name: `\gold.mulRes`, OriginalName: "mulRes", Width: 8, Kind: design.KindWire},
		{Name: `\gold._T_3`, OriginalName: "_T_3", Width: 8, Kind: design.KindWire},
		{Name: `\gold.r`, OriginalName: "r", Width: 8, Kind: design.KindRegister},
	}
}

func TestShippedPolicy(t *testing.T) {
	engine, err := New(filepath.Join("..", "..", "policies"))
	require.NoError(t, err)

	wire := design.Signal{Name: `\gate.mulRes`, Width: 8, Kind: design.KindWire}
	got, err := engine.Excluded(context.Background(), NewInput(wire, goldSignals()))
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{`\gold._T_3`: true}, got)

	reg := design.Signal{Name: `\gate.r`, Width: 8, Kind: design.KindRegister}
	got, err = engine.Excluded(context.Background(), NewInput(reg, goldSignals()))
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{`\gold._T_3`: true, `\gold.mulRes`: true}, got)
}

func TestPolicyWithoutRuleExcludesNothing(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "empty.rego"), []byte("package sigtrace.candidates\n\nunused := true\n"), 0o644))

	engine, err := New(dir)
	require.NoError(t, err)
	got, err := engine.Excluded(context.Background(), NewInput(design.Signal{}, goldSignals()))
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestNewRequiresPolicies(t *testing.T) {
	_, err := New(t.TempDir())
	assert.Error(t, err)
}

func TestNewRejectsBrokenModule(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.rego"), []byte("package sigtrace.candidates\n\nexcluded contains x if {"), 0o644))
	_, err := New(dir)
	assert.Error(t, err)
}
