package miter

import (
	"errors"
	"strings"
	"testing"

	"github.com/robert-at-pretension-io/sigtrace/internal/design"
	"github.com/robert-at-pretension-io/sigtrace/internal/verilog"
)

const goldSrc = `module Helper(input a, output b);
  assign b = a;
endmodule
module Fifo(input clock, input [7:0] io_a, output [7:0] io_out);
  wire [7:0] mulRes = io_a * io_a; // @[src/Fifo.scala:46:20]
  assign io_out = mulRes;
endmodule
`

const gateSrc = `module Fifo(input clock, input [7:0] io_a, output [7:0] io_out);
  assign io_out = io_a * io_a;
endmodule
`

func snaps(gold, gate string) (*design.Snapshot, *design.Snapshot) {
	return design.NewSnapshot("unoptimized.sv", "/w/unoptimized.sv", []byte(gold)),
		design.NewSnapshot("optimized.sv", "/w/optimized.sv", []byte(gate))
}

func TestScriptShape(t *testing.T) {
	gold, gate := snaps(goldSrc, gateSrc)
	c, err := Build(gold, gate, "Fifo")
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	want := `read_verilog -formal /w/unoptimized.sv
delete Helper
prep -flatten -top Fifo
rename -top gold
setattr -set sigtrace_register 1 t:*ff* %co:+[Q] w:* %i
clk2fflogic
design -stash gold

read_verilog -formal /w/optimized.sv
prep -flatten -top Fifo
rename -top gate
setattr -set sigtrace_register 1 t:*ff* %co:+[Q] w:* %i
clk2fflogic

design -copy-from gold -as gold gold
miter -equiv -flatten -make_outputs gold gate miter
hierarchy -top miter
`
	if got := c.Script(); got != want {
		t.Fatalf("unexpected script:\n%s\nwant:\n%s", got, want)
	}
	if !strings.HasSuffix(c.DumpScript(), "hierarchy -top miter\ndump miter\n") {
		t.Fatalf("dump script should end with dump command:\n%s", c.DumpScript())
	}
}

func TestBuildFailsWithoutTarget(t *testing.T) {
	gold, gate := snaps(goldSrc, "module Other(); endmodule\n")
	_, err := Build(gold, gate, "Fifo")
	var notFound *verilog.ModuleNotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("expected ModuleNotFoundError, got %v", err)
	}
	if notFound.File != "optimized.sv" {
		t.Fatalf("error should name the gate file, got %s", notFound.File)
	}
}

func TestBuildFailsOnDuplicateTop(t *testing.T) {
	gold, gate := snaps(goldSrc, gateSrc+gateSrc)
	_, err := Build(gold, gate, "Fifo")
	var dup *AmbiguousTopError
	if !errors.As(err, &dup) {
		t.Fatalf("expected AmbiguousTopError, got %v", err)
	}
	if dup.Count != 2 {
		t.Fatalf("expected count 2, got %d", dup.Count)
	}
}

func TestBuildRejectsScriptInjection(t *testing.T) {
	gold, gate := snaps(goldSrc, gateSrc)
	if _, err := Build(gold, gate, "Fifo\nshell rm"); err == nil {
		t.Fatalf("expected invalid module name to be rejected")
	}
}
