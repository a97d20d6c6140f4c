package verilog

import (
	"errors"
	"reflect"
	"testing"

	"github.com/robert-at-pretension-io/sigtrace/internal/design"
)

const twoModules = `// Generated by CIRCT
module Helper(
  input  [7:0] a,
  output [7:0] b
);
  assign b = a;
endmodule

module Fifo(
  input        clock,
  input  [7:0] io_a,
  input  [7:0] io_b,
  output [7:0] io_out
);
  wire [7:0] mulRes = io_a * io_b; // @[src/Fifo.scala:46:20]
  Helper h (.a(mulRes), .b(io_out));
endmodule
`

func snap(content string) *design.Snapshot {
	return design.NewSnapshot("test.sv", "/abs/test.sv", []byte(content))
}

func TestDetectPrimaryModule(t *testing.T) {
	name, err := DetectPrimaryModule(snap(twoModules))
	if err != nil {
		t.Fatalf("DetectPrimaryModule: %v", err)
	}
	if name != "Helper" {
		t.Fatalf("expected first module Helper, got %s", name)
	}

	_, err = DetectPrimaryModule(snap("// nothing here\n"))
	var notFound *ModuleNotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("expected ModuleNotFoundError, got %v", err)
	}
}

func TestListOtherModules(t *testing.T) {
	got := ListOtherModules(snap(twoModules), "Fifo")
	if !reflect.DeepEqual(got, []string{"Helper"}) {
		t.Fatalf("unexpected other modules %v", got)
	}
	if got := ListOtherModules(snap(twoModules), "Missing"); len(got) != 2 {
		t.Fatalf("expected both modules when target is absent, got %v", got)
	}
	if CountModule(snap(twoModules), "Fifo") != 1 {
		t.Fatalf("expected exactly one Fifo")
	}
}

func TestExpressionText(t *testing.T) {
	s := snap(twoModules)
	// line 15: "  wire [7:0] mulRes = io_a * io_b; // ..."
	got, ok := ExpressionText(s, 15, 14, 19)
	if !ok || got != "mulRes" {
		t.Fatalf("ExpressionText = %q, %v", got, ok)
	}
	if _, ok := ExpressionText(s, 999, 1, 2); ok {
		t.Fatalf("expected out of range line to fail")
	}
	if _, ok := ExpressionText(s, 15, 500, 600); ok {
		t.Fatalf("expected out of range column to fail")
	}
}

func TestValidModuleName(t *testing.T) {
	for _, name := range []string{"Fifo", "_x1", "DoubleBuffer"} {
		if !ValidModuleName(name) {
			t.Fatalf("%s should be valid", name)
		}
	}
	for _, name := range []string{"", "1abc", "a b", "a;delete"} {
		if ValidModuleName(name) {
			t.Fatalf("%q should be invalid", name)
		}
	}
}
