// Package yosys runs generated scripts through the Yosys binary.
package yosys

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"
)

// BinaryEnv overrides binary discovery when set.
const BinaryEnv = "SIGTRACE_YOSYS_BIN"

// ScriptMode selects how a script reaches the backend process.
type ScriptMode string

const (
	// ScriptFile writes the script to a temporary file passed with -s.
	ScriptFile ScriptMode = "file"
	// ScriptStdin streams the script on standard input.
	ScriptStdin ScriptMode = "stdin"
)

// Output is the text a run produced. Combined interleaves stdout and stderr
// in arrival order; markers are read from it.
type Output struct {
	Stdout   string
	Combined string
}

// Backend executes one script under a time budget.
type Backend interface {
	Run(ctx context.Context, script string, timeout time.Duration) (Output, error)
}

// TimeoutError reports a run that exceeded its budget. Nothing it printed
// is trusted.
type TimeoutError struct {
	Timeout time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("yosys timed out after %s", e.Timeout)
}

// ExitError reports a run that ended with a non-zero status.
type ExitError struct {
	Code int
	Tail string
}

func (e *ExitError) Error() string {
	if e.Tail == "" {
		return fmt.Sprintf("yosys exited with status %d", e.Code)
	}
	return fmt.Sprintf("yosys exited with status %d:\n%s", e.Code, e.Tail)
}

// Runner is the process-backed Backend.
type Runner struct {
	Binary string
	Mode   ScriptMode
}

// NewRunner locates the binary and returns a runner using mode.
func NewRunner(configured string, mode ScriptMode) (*Runner, error) {
	bin, err := FindBinary(configured)
	if err != nil {
		return nil, err
	}
	switch mode {
	case "":
		mode = ScriptFile
	case ScriptFile, ScriptStdin:
	default:
		return nil, fmt.Errorf("unknown script mode %q (want %q or %q)", mode, ScriptFile, ScriptStdin)
	}
	return &Runner{Binary: bin, Mode: mode}, nil
}

// FindBinary resolves the backend executable: the environment override,
// then the configured path, then yosys on PATH.
func FindBinary(configured string) (string, error) {
	if env := os.Getenv(BinaryEnv); env != "" {
		if existsExecutable(env) {
			return env, nil
		}
		return "", fmt.Errorf("%s is set but not executable: %s", BinaryEnv, env)
	}
	if configured != "" {
		if existsExecutable(configured) {
			return configured, nil
		}
		if path, err := exec.LookPath(configured); err == nil {
			return path, nil
		}
		return "", fmt.Errorf("configured yosys binary not found: %s", configured)
	}
	if path, err := exec.LookPath("yosys"); err == nil {
		return path, nil
	}
	return "", fmt.Errorf("yosys not found on PATH (set %s or backend.binary)", BinaryEnv)
}

// Run executes script and returns its output. A run past timeout yields
// *TimeoutError and a non-zero exit yields *ExitError.
func (r *Runner) Run(ctx context.Context, script string, timeout time.Duration) (Output, error) {
	runCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	args := []string{"-Q", "-s"}
	var stdin *strings.Reader
	switch r.Mode {
	case ScriptStdin:
		args = append(args, "/dev/stdin")
		stdin = strings.NewReader(script)
	default:
		path, cleanup, err := writeScript(script)
		if err != nil {
			return Output{}, err
		}
		defer cleanup()
		args = append(args, path)
	}

	cmd := exec.CommandContext(runCtx, r.Binary, args...)
	if stdin != nil {
		cmd.Stdin = stdin
	}
	var stdout bytes.Buffer
	combined := &lockedBuffer{}
	cmd.Stdout = &teeWriter{own: &stdout, shared: combined}
	cmd.Stderr = combined
	cmd.WaitDelay = 2 * time.Second

	err := cmd.Run()
	out := Output{Stdout: stdout.String(), Combined: combined.String()}

	if runCtx.Err() != nil {
		if errors.Is(runCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			return Output{}, &TimeoutError{Timeout: timeout}
		}
		return Output{}, fmt.Errorf("yosys run cancelled: %w", ctx.Err())
	}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return out, &ExitError{Code: exitErr.ExitCode(), Tail: tail(out.Combined, 20)}
		}
		return out, fmt.Errorf("running %s: %w", r.Binary, err)
	}
	return out, nil
}

func writeScript(script string) (string, func(), error) {
	f, err := os.CreateTemp("", "sigtrace-*.ys")
	if err != nil {
		return "", nil, fmt.Errorf("create script file: %w", err)
	}
	path := f.Name()
	cleanup := func() { _ = os.Remove(path) }
	if _, err := f.WriteString(script); err != nil {
		_ = f.Close()
		cleanup()
		return "", nil, fmt.Errorf("write script file: %w", err)
	}
	if err := f.Close(); err != nil {
		cleanup()
		return "", nil, fmt.Errorf("close script file: %w", err)
	}
	return path, cleanup, nil
}

func existsExecutable(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir() && info.Mode()&0o111 != 0
}

// tail returns the last n lines of s.
func tail(s string, n int) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, "\n")
}

type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// teeWriter copies stdout into its own buffer and the shared stream.
type teeWriter struct {
	own    *bytes.Buffer
	shared *lockedBuffer
}

func (w *teeWriter) Write(p []byte) (int, error) {
	w.own.Write(p)
	return w.shared.Write(p)
}
