// Package miter builds the backend script that turns a gold and a gate
// design into one comparison circuit ("miter").
//
// Each design is reduced to its target module, renamed to its role, flattened
// and has its clocked state rewritten into explicit current/next-state
// relations (clk2fflogic) because the prover reasons over acyclic logic.
// The two are then composed so their matched outputs can be compared.
package miter

import (
	"fmt"
	"strings"

	"github.com/robert-at-pretension-io/sigtrace/internal/design"
	"github.com/robert-at-pretension-io/sigtrace/internal/verilog"
)

// Name of the composed top module in every generated script.
const Top = "miter"

// TriggerSignal is the miter output that fires when the designs disagree.
const TriggerSignal = "trigger"

// RegisterAttribute marks wires driven by a flip-flop in the elaborated
// design. It survives flattening and shows up on the wire in the dump.
const RegisterAttribute = "sigtrace_register"

// AmbiguousTopError reports a design that still declares the target module
// more than once after sibling modules are removed.
type AmbiguousTopError struct {
	File   string
	Module string
	Count  int
}

func (e *AmbiguousTopError) Error() string {
	return fmt.Sprintf("%s declares module %s %d times; cannot pick a single top", e.File, e.Module, e.Count)
}

// Circuit is a ready-to-run comparison circuit description.
type Circuit struct {
	Module  string
	GoldAbs string
	GateAbs string

	goldOthers []string
	gateOthers []string
}

// Build validates both designs and prepares the circuit for module.
func Build(gold, gate *design.Snapshot, module string) (*Circuit, error) {
	if !verilog.ValidModuleName(module) {
		return nil, fmt.Errorf("invalid module name %q", module)
	}
	for _, snap := range []*design.Snapshot{gold, gate} {
		switch n := verilog.CountModule(snap, module); {
		case n == 0:
			return nil, &verilog.ModuleNotFoundError{File: snap.Path, Module: module}
		case n > 1:
			return nil, &AmbiguousTopError{File: snap.Path, Module: module, Count: n}
		}
	}
	return &Circuit{
		Module:     module,
		GoldAbs:    gold.AbsPath,
		GateAbs:    gate.AbsPath,
		goldOthers: verilog.ListOtherModules(gold, module),
		gateOthers: verilog.ListOtherModules(gate, module),
	}, nil
}

// Script returns the setup commands that leave the miter as the only module.
func (c *Circuit) Script() string {
	var b strings.Builder
	c.writeSide(&b, string(design.Gold), c.GoldAbs, c.goldOthers)
	b.WriteString("design -stash gold\n\n")
	c.writeSide(&b, string(design.Gate), c.GateAbs, c.gateOthers)
	b.WriteString("\n")
	b.WriteString("design -copy-from gold -as gold gold\n")
	fmt.Fprintf(&b, "miter -equiv -flatten -make_outputs gold gate %s\n", Top)
	fmt.Fprintf(&b, "hierarchy -top %s\n", Top)
	return b.String()
}

// DumpScript returns Script followed by a dump of the miter module.
func (c *Circuit) DumpScript() string {
	return c.Script() + fmt.Sprintf("dump %s\n", Top)
}

func (c *Circuit) writeSide(b *strings.Builder, role, path string, others []string) {
	fmt.Fprintf(b, "read_verilog -formal %s\n", path)
	for _, m := range others {
		fmt.Fprintf(b, "delete %s\n", m)
	}
	fmt.Fprintf(b, "prep -flatten -top %s\n", c.Module)
	fmt.Fprintf(b, "rename -top %s\n", role)
	// clk2fflogic moves every register behind generated wires, so tag the
	// user-named flip-flop outputs while they are still visible.
	fmt.Fprintf(b, "setattr -set %s 1 t:*ff* %%co:+[Q] w:* %%i\n", RegisterAttribute)
	b.WriteString("clk2fflogic\n")
}
