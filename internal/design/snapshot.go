package design

import (
	"bufio"
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// ErrFileNotFound is returned (wrapped) when an input design is missing.
var ErrFileNotFound = errors.New("file not found")

// Snapshot is the content of an input file read once for one invocation.
type Snapshot struct {
	Path    string
	AbsPath string
	Content []byte
	Hash    string

	splitOnce sync.Once
	lines     []string
}

// ReadSnapshot reads path and records its absolute path and content hash.
func ReadSnapshot(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrFileNotFound, path)
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolving %s: %w", path, err)
	}
	return NewSnapshot(path, abs, data), nil
}

// NewSnapshot wraps content that is already in memory.
func NewSnapshot(path, absPath string, content []byte) *Snapshot {
	sum := sha256.Sum256(content)
	return &Snapshot{
		Path:    path,
		AbsPath: absPath,
		Content: content,
		Hash:    hex.EncodeToString(sum[:]),
	}
}

// Lines returns the file split into lines without terminators. The split
// happens once; callers must not modify the returned slice.
func (s *Snapshot) Lines() []string {
	s.splitOnce.Do(func() {
		sc := bufio.NewScanner(bytes.NewReader(s.Content))
		sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
		for sc.Scan() {
			s.lines = append(s.lines, sc.Text())
		}
	})
	return s.lines
}

// Line returns the 1-based line n.
func (s *Snapshot) Line(n int) (string, bool) {
	lines := s.Lines()
	if n < 1 || n > len(lines) {
		return "", false
	}
	return lines[n-1], true
}
