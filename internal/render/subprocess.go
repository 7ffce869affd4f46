package render

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/m3rciful/formbot/core/logger"
)

// Defaults for Subprocess.
const (
	DefaultInterpreter = "python3"
	DefaultTimeout     = 60 * time.Second
	stderrTailSize     = 4 << 10
)

// ErrTimeout is wrapped by errors of renders that ran past their deadline.
var ErrTimeout = errors.New("render: timed out")

// Error describes a renderer that could not be started or exited non-zero.
type Error struct {
	Script string
	// ExitCode is -1 when the process never started.
	ExitCode int
	// Stderr holds the last few KiB the renderer wrote to stderr.
	Stderr string
	Err    error
}

func (e *Error) Error() string {
	if e.ExitCode < 0 {
		return fmt.Sprintf("render: start %s: %v", e.Script, e.Err)
	}
	return fmt.Sprintf("render: %s exited with code %d", e.Script, e.ExitCode)
}

func (e *Error) Unwrap() error { return e.Err }

// Subprocess runs renderer scripts with an interpreter. Stdout is passed
// through, stderr is kept for error reports.
type Subprocess struct {
	Interpreter string
	Timeout     time.Duration
	// Dir is the working directory; relative script and output paths resolve
	// against it and Render returns the output path resolved.
	Dir string
	// Stdout receives the renderer's standard output; nil means os.Stdout.
	Stdout io.Writer
}

// NewSubprocess returns a Subprocess with defaults applied.
func NewSubprocess(interpreter string, timeout time.Duration, dir string) *Subprocess {
	if interpreter == "" {
		interpreter = DefaultInterpreter
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Subprocess{Interpreter: interpreter, Timeout: timeout, Dir: dir}
}

// Render runs the request and blocks until the renderer exits.
func (p *Subprocess) Render(ctx context.Context, req Request) (string, error) {
	interpreter := p.Interpreter
	if interpreter == "" {
		interpreter = DefaultInterpreter
	}
	timeout := p.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if req.OutputPath == "" {
		return "", ErrNoOutput
	}
	req.OutputPath = ResolvePath(p.Dir, req.OutputPath)
	if err := ensureOutputDir(req.OutputPath); err != nil {
		return "", err
	}

	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	stderr := &tailBuffer{max: stderrTailSize}
	cmd := exec.CommandContext(runCtx, interpreter, req.Argv()...)
	cmd.Dir = p.Dir
	cmd.Stdout = p.Stdout
	if cmd.Stdout == nil {
		cmd.Stdout = os.Stdout
	}
	cmd.Stderr = stderr
	// grandchildren holding stderr open must not outlive the deadline
	cmd.WaitDelay = time.Second

	start := time.Now()
	err := cmd.Run()
	took := logger.Took(start)

	if err == nil {
		logger.Debug(ctx, logger.CompRender, "render.done",
			slog.String("script", req.Script),
			slog.String("output", req.OutputPath),
			slog.Duration("duration", took),
		)
		return req.OutputPath, nil
	}

	if errors.Is(runCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
		return "", fmt.Errorf("%w after %s: %s", ErrTimeout, timeout, req.Script)
	}
	if ctx.Err() != nil {
		return "", fmt.Errorf("render: %s: %w", req.Script, ctx.Err())
	}

	rerr := &Error{Script: req.Script, ExitCode: -1, Stderr: stderr.String(), Err: err}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		rerr.ExitCode = exitErr.ExitCode()
	}
	return "", rerr
}

// ResolvePath makes path absolute under dir so the renderer, running in dir,
// and the bot, running elsewhere, see the same file. An empty dir or an
// absolute path leaves path unchanged.
func ResolvePath(dir, path string) string {
	if dir == "" || path == "" || filepath.IsAbs(path) {
		return path
	}
	joined := filepath.Join(dir, path)
	if abs, err := filepath.Abs(joined); err == nil {
		return abs
	}
	return joined
}

func ensureOutputDir(output string) error {
	dir := filepath.Dir(output)
	if dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("render: create output dir: %w", err)
	}
	return nil
}

// tailBuffer keeps the last max bytes written to it.
type tailBuffer struct {
	max int
	buf []byte
}

func (t *tailBuffer) Write(p []byte) (int, error) {
	n := len(p)
	if len(p) >= t.max {
		t.buf = append(t.buf[:0], p[len(p)-t.max:]...)
		return n, nil
	}
	if over := len(t.buf) + len(p) - t.max; over > 0 {
		t.buf = append(t.buf[:0], t.buf[over:]...)
	}
	t.buf = append(t.buf, p...)
	return n, nil
}

func (t *tailBuffer) String() string { return string(t.buf) }
