package design

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
)

func TestParseLocation(t *testing.T) {
	tests := []struct {
		in      string
		want    Location
		wantErr bool
	}{
		{in: "21.23-39", want: Location{Line: 21, StartCol: 23, EndCol: 39}},
		{in: "1.1-1", want: Location{Line: 1, StartCol: 1, EndCol: 1}},
		{in: "21.23", wantErr: true},
		{in: "21.39-23", wantErr: true},
		{in: "0.1-2", wantErr: true},
		{in: "a.b-c", wantErr: true},
	}
	for _, tt := range tests {
		got, err := ParseLocation(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Fatalf("ParseLocation(%q) expected error, got %+v", tt.in, got)
			}
			continue
		}
		if err != nil {
			t.Fatalf("ParseLocation(%q): %v", tt.in, err)
		}
		if got != tt.want {
			t.Fatalf("ParseLocation(%q) = %+v, want %+v", tt.in, got, tt.want)
		}
		if got.String() != tt.in {
			t.Fatalf("String() = %q, want %q", got.String(), tt.in)
		}
	}
}

func TestProvenanceKey(t *testing.T) {
	loc := Location{Line: 21, StartCol: 23, EndCol: 39}
	got := loc.ProvenanceKey("/work/optimized.sv")
	if got != "/work/optimized.sv:21.23-21.39" {
		t.Fatalf("unexpected key %q", got)
	}
}

func TestSignalSpansAndShortSrc(t *testing.T) {
	s := Signal{Name: `\gate.mulRes`, Src: "/w/opt.sv:21.23-21.39|/w/opt.sv:30.5-30.9"}
	spans := s.Spans()
	if len(spans) != 2 {
		t.Fatalf("expected 2 spans, got %d", len(spans))
	}
	if spans[0] != (Span{File: "/w/opt.sv", StartLine: 21, StartCol: 23, EndLine: 21, EndCol: 39}) {
		t.Fatalf("unexpected first span %+v", spans[0])
	}
	if s.ShortSrc() != "30.5-30.9" {
		t.Fatalf("unexpected short src %q", s.ShortSrc())
	}
	if s.DisplayName() != "gate.mulRes" {
		t.Fatalf("unexpected display name %q", s.DisplayName())
	}
	s.OriginalName = "mulRes"
	if s.DisplayName() != "mulRes" {
		t.Fatalf("original name should win, got %q", s.DisplayName())
	}
	if (Signal{}).HasProvenance() {
		t.Fatalf("empty signal should not have provenance")
	}
}

func TestReadSnapshot(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.sv")
	if err := os.WriteFile(path, []byte("module a;\nendmodule\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	snap, err := ReadSnapshot(path)
	if err != nil {
		t.Fatalf("ReadSnapshot: %v", err)
	}
	if !filepath.IsAbs(snap.AbsPath) || snap.Hash == "" {
		t.Fatalf("snapshot missing abs path or hash: %+v", snap)
	}
	if line, ok := snap.Line(2); !ok || line != "endmodule" {
		t.Fatalf("Line(2) = %q, %v", line, ok)
	}

	_, err = ReadSnapshot(filepath.Join(dir, "missing.sv"))
	if !errors.Is(err, ErrFileNotFound) {
		t.Fatalf("expected ErrFileNotFound, got %v", err)
	}
}

func TestSnapshotSplitsOnce(t *testing.T) {
	snap := NewSnapshot("a.sv", "/w/a.sv", []byte("module a;\n  wire x;\r\nendmodule"))

	var wg sync.WaitGroup
	results := make([][]string, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = snap.Lines()
		}(i)
	}
	wg.Wait()

	want := []string{"module a;", "  wire x;", "endmodule"}
	for _, lines := range results {
		if len(lines) != len(want) || &lines[0] != &results[0][0] {
			t.Fatalf("Lines() should return one shared split, got %q", lines)
		}
	}
	for i, w := range want {
		if got, ok := snap.Line(i + 1); !ok || got != w {
			t.Fatalf("Line(%d) = %q, %v; want %q", i+1, got, ok, w)
		}
	}
	if _, ok := snap.Line(4); ok {
		t.Fatalf("Line(4) past the end should fail")
	}
	if _, ok := snap.Line(0); ok {
		t.Fatalf("Line(0) should fail")
	}
}

func TestCatalogueAccessors(t *testing.T) {
	cat := Catalogue{
		Gold: []Signal{{Name: `\a`, Side: Gold, Src: "x:1.1-1.2"}, {Name: `\b`, Side: Gold}},
		Gate: []Signal{{Name: `\c`, Side: Gate}},
	}
	if _, ok := cat.Lookup(Gold, `\b`); !ok {
		t.Fatalf("expected to find \\b on gold side")
	}
	if _, ok := cat.Lookup(Gate, `\b`); ok {
		t.Fatalf("\\b is not a gate signal")
	}
	if got := cat.Attributed(Gold); len(got) != 1 || got[0].Name != `\a` {
		t.Fatalf("unexpected attributed signals %+v", got)
	}
}
