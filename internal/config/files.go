package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Conventional layout of a generated design directory.
const (
	GeneratedDir = "generated"
	GoldFileName = "unoptimized.sv"
	GateFileName = "optimized.sv"
)

// DesignPair returns the gold and gate files of a design directory: either
// <dir>/generated/{unoptimized,optimized}.sv or the same names directly in dir.
func DesignPair(dir string) (gold, gate string, err error) {
	for _, base := range []string{filepath.Join(dir, GeneratedDir), dir} {
		g := filepath.Join(base, GoldFileName)
		o := filepath.Join(base, GateFileName)
		if isFile(g) && isFile(o) {
			return g, o, nil
		}
	}
	return "", "", fmt.Errorf("cannot find %s and %s under %s (or its %s/ folder)", GoldFileName, GateFileName, dir, GeneratedDir)
}

// ResolveSourceRoots expands report.sourceRoots into existing directories,
// relative to rootPath, in configuration order without duplicates.
func (c *Config) ResolveSourceRoots(rootPath string) []string {
	var roots []string
	seen := make(map[string]bool)
	for _, pattern := range c.Report.SourceRoots {
		if !filepath.IsAbs(pattern) {
			pattern = filepath.Join(rootPath, pattern)
		}

		matches, err := expandGlob(pattern)
		if err != nil {
			// Silently skip invalid patterns
			continue
		}
		for _, match := range matches {
			if seen[match] || !isDir(match) {
				continue
			}
			seen[match] = true
			roots = append(roots, match)
		}
	}
	return roots
}

// expandGlob expands a glob pattern, handling ** for recursive matching
func expandGlob(pattern string) ([]string, error) {
	if strings.Contains(pattern, "**") {
		return expandDoubleStarGlob(pattern)
	}
	return filepath.Glob(pattern)
}

// expandDoubleStarGlob handles ** patterns by walking the directory tree.
// Directories are matched as well as files.
func expandDoubleStarGlob(pattern string) ([]string, error) {
	var results []string

	parts := strings.SplitN(pattern, "**", 2)
	if len(parts) != 2 {
		return filepath.Glob(pattern)
	}

	baseDir := filepath.Clean(parts[0])
	if baseDir == "" {
		baseDir = "."
	}
	suffix := strings.TrimPrefix(parts[1], string(filepath.Separator))

	err := filepath.Walk(baseDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil // Skip errors, continue walking
		}
		if info.IsDir() && strings.HasPrefix(info.Name(), ".") && path != baseDir {
			return filepath.SkipDir
		}
		if suffix == "" {
			results = append(results, path)
			return nil
		}
		relPath, err := filepath.Rel(baseDir, path)
		if err != nil {
			return nil
		}
		if matchSuffix(relPath, suffix) {
			results = append(results, path)
		}
		return nil
	})

	return results, err
}

// matchSuffix checks if a path matches a suffix pattern (after **)
func matchSuffix(path, pattern string) bool {
	if !strings.Contains(pattern, string(filepath.Separator)) {
		matched, _ := filepath.Match(pattern, filepath.Base(path))
		return matched
	}

	if matched, _ := filepath.Match(pattern, path); matched {
		return true
	}

	// Compare against the trailing components of path
	n := strings.Count(pattern, string(filepath.Separator)) + 1
	parts := strings.Split(path, string(filepath.Separator))
	if len(parts) < n {
		return false
	}
	matched, _ := filepath.Match(pattern, strings.Join(parts[len(parts)-n:], string(filepath.Separator)))
	return matched
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
