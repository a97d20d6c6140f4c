// Package source shows the Scala text a provenance reference points at.
package source

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/scala"

	"github.com/robert-at-pretension-io/sigtrace/internal/provenance"
)

// MaxExcerpt is the longest excerpt returned before truncation.
const MaxExcerpt = 30

// Excerpt is the source text at one provenance reference.
type Excerpt struct {
	Path string `json:"path"`
	Line int    `json:"line"`
	Col  int    `json:"col"`
	Text string `json:"text"`
}

type parsedFile struct {
	content []byte
	lines   []string
	tree    *sitter.Tree
}

// Excerpter resolves refs against a list of source roots and keeps each
// parsed file for the lifetime of one report.
type Excerpter struct {
	Roots []string

	mu    sync.Mutex
	files map[string]*parsedFile
}

// NewExcerpter returns an Excerpter searching roots in order.
func NewExcerpter(roots []string) *Excerpter {
	return &Excerpter{Roots: roots, files: make(map[string]*parsedFile)}
}

// Locate returns the first existing path for file under the roots. Absolute
// paths are used as is.
func (e *Excerpter) Locate(file string) (string, bool) {
	if filepath.IsAbs(file) {
		return file, fileExists(file)
	}
	for _, root := range e.Roots {
		p := filepath.Join(root, file)
		if fileExists(p) {
			return p, true
		}
	}
	return "", false
}

// Excerpt returns the widest named syntax node that starts at ref, cut to
// its first line. When the file does not parse into such a node the
// trimmed source line is used instead.
func (e *Excerpter) Excerpt(ctx context.Context, ref provenance.Ref) (Excerpt, error) {
	path, ok := e.Locate(ref.File)
	if !ok {
		return Excerpt{}, fmt.Errorf("source file %s not found under %v", ref.File, e.Roots)
	}
	pf, err := e.load(ctx, path)
	if err != nil {
		return Excerpt{}, err
	}
	if ref.Line < 1 || ref.Line > len(pf.lines) {
		return Excerpt{}, fmt.Errorf("%s has no line %d", path, ref.Line)
	}

	text := nodeText(pf, ref)
	if text == "" {
		text = strings.TrimSpace(pf.lines[ref.Line-1])
	}
	return Excerpt{Path: path, Line: ref.Line, Col: ref.Col, Text: truncate(text)}, nil
}

// Close releases every parsed tree.
func (e *Excerpter) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, pf := range e.files {
		if pf.tree != nil {
			pf.tree.Close()
		}
	}
	e.files = make(map[string]*parsedFile)
}

func (e *Excerpter) load(ctx context.Context, path string) (*parsedFile, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.files == nil {
		e.files = make(map[string]*parsedFile)
	}
	if pf, ok := e.files[path]; ok {
		return pf, nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", path, err)
	}
	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(scala.GetLanguage())
	tree, err := parser.ParseCtx(ctx, nil, content)
	if err != nil {
		return nil, fmt.Errorf("failed to parse file %s: %w", path, err)
	}

	pf := &parsedFile{
		content: content,
		lines:   strings.Split(string(content), "\n"),
		tree:    tree,
	}
	e.files[path] = pf
	return pf, nil
}

func nodeText(pf *parsedFile, ref provenance.Ref) string {
	if pf.tree == nil || ref.Col < 1 {
		return ""
	}
	pt := sitter.Point{Row: uint32(ref.Line - 1), Column: uint32(ref.Col - 1)}
	node := pf.tree.RootNode().NamedDescendantForPointRange(pt, pt)
	if node == nil || node.StartPoint() != pt {
		return ""
	}
	for {
		parent := node.Parent()
		if parent == nil || parent.StartPoint() != pt || parent.Type() == "compilation_unit" {
			break
		}
		node = parent
	}
	text := node.Content(pf.content)
	if i := strings.IndexByte(text, '\n'); i >= 0 {
		text = text[:i]
	}
	return strings.TrimSpace(text)
}

func truncate(s string) string {
	if len(s) <= MaxExcerpt {
		return s
	}
	return s[:MaxExcerpt] + "..."
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
