package resolve

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robert-at-pretension-io/sigtrace/internal/design"
)

const gateAbs = "/w/optimized.sv"

func catalogue() design.Catalogue {
	return design.Catalogue{
		Gate: []design.Signal{
			{Name: `\gate.io_out`, Width: 8, Side: design.Gate, Kind: design.KindPort},
			{Name: `\gate.mulRes`, Width: 8, Src: gateAbs + ":21.23-21.39", OriginalName: "mulRes", Side: design.Gate},
			{Name: `\gate._GEN_0`, Width: 8, Src: gateAbs + ":9.3-9.8|" + gateAbs + ":21.23-21.39", Side: design.Gate},
			{Name: `\gate.count`, Width: 4, Src: gateAbs + ":30.3-30.20", OriginalName: "count", Side: design.Gate},
		},
	}
}

func TestResolveFirstMatchWins(t *testing.T) {
	res, err := Resolve(catalogue(), design.Location{Line: 21, StartCol: 23, EndCol: 39}, gateAbs)
	require.NoError(t, err)

	assert.Equal(t, `\gate.mulRes`, res.Signal.Name)
	assert.Equal(t, TieBreakFirstInScanOrder, res.Policy)
	require.True(t, res.Ambiguous())
	assert.Equal(t, `\gate._GEN_0`, res.Alternatives[0].Name)
	assert.Equal(t, "/w/optimized.sv:21.23-21.39", res.Key)
}

func TestResolveNoMatch(t *testing.T) {
	_, err := Resolve(catalogue(), design.Location{Line: 99, StartCol: 1, EndCol: 4}, gateAbs)

	var rerr *ResolutionError
	require.True(t, errors.As(err, &rerr), "got %v", err)
	require.NotEmpty(t, rerr.Catalogue)

	// Ports without provenance are not offered as diagnostics.
	assert.Equal(t, []Entry{
		{Name: "mulRes", Width: 8, Src: "21.23-21.39"},
		{Name: "gate._GEN_0", Width: 8, Src: "21.23-21.39"},
		{Name: "count", Width: 4, Src: "30.3-30.20"},
	}, rerr.Catalogue)
}

func TestResolveIgnoresOtherFiles(t *testing.T) {
	cat := design.Catalogue{Gate: []design.Signal{
		{Name: `\gate.x`, Width: 1, Src: "/elsewhere/optimized.sv:21.23-21.39", Side: design.Gate},
	}}
	_, err := Resolve(cat, design.Location{Line: 21, StartCol: 23, EndCol: 39}, gateAbs)
	var rerr *ResolutionError
	assert.True(t, errors.As(err, &rerr))
}
