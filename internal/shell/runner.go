// File: internal/shell/runner.go
// Brief: Runs layer commands and streams their output to the logger.

package shell

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/go-logr/logr"
	"github.com/mattn/go-shellwords"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// DefaultShell interprets commands with Shell set.
const DefaultShell = "/bin/sh"

// waitDelay bounds how long output pipes stay open after cancellation.
const waitDelay = 5 * time.Second

// Command describes one process invocation.
type Command struct {
	// Command is the command line. With Shell it is passed to the shell
	// verbatim; otherwise it is split into argv unless Args is set.
	Command string
	Args    []string
	Shell   bool
	Dir     string
	// Env entries (KEY=VALUE) are appended to the current environment.
	Env []string
	// ContinueOnError returns a non-zero exit code unchanged instead of
	// negating it.
	ContinueOnError bool
}

// Runner executes commands for layers.
type Runner struct {
	Log   logr.Logger
	Shell string
}

func New(log logr.Logger) *Runner {
	return &Runner{Log: log}
}

// Run executes c and logs every output line as it arrives. Lines starting
// with "error" (any case) are logged at error level. The returned code is 0
// on success, the exit code when ContinueOnError is set and the negated exit
// code otherwise. err is set only when the process could not be started.
func (r *Runner) Run(ctx context.Context, c Command) (int, error) {
	cmd, err := r.command(ctx, c)
	if err != nil {
		return -1, err
	}
	log := r.logger()

	stdoutReader, stdoutWriter := io.Pipe()
	stderrReader, stderrWriter := io.Pipe()
	cmd.Stdout = stdoutWriter
	cmd.Stderr = stderrWriter
	if err := cmd.Start(); err != nil {
		_ = stdoutWriter.Close()
		_ = stderrWriter.Close()
		return -1, errors.Wrapf(err, "start %s", describe(c))
	}

	var pg errgroup.Group
	pg.Go(func() error { return streamLines(log.WithValues("stream", "stdout"), stdoutReader) })
	pg.Go(func() error { return streamLines(log.WithValues("stream", "stderr"), stderrReader) })

	waitErr := cmd.Wait()
	_ = stdoutWriter.Close()
	_ = stderrWriter.Close()
	if err := pg.Wait(); err != nil {
		log.Error(err, "read command output")
	}
	return exitCode(waitErr, c.ContinueOnError)
}

func streamLines(log logr.Logger, r io.Reader) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		logLine(log, scanner.Text())
	}
	err := scanner.Err()
	if err != nil {
		_, _ = io.Copy(io.Discard, r)
	}
	return err
}

// Output executes c and returns its combined output without logging it.
func (r *Runner) Output(ctx context.Context, c Command) (string, int, error) {
	cmd, err := r.command(ctx, c)
	if err != nil {
		return "", -1, err
	}
	var buf bytes.Buffer
	cmd.Stdout = &buf
	cmd.Stderr = &buf
	if err := cmd.Start(); err != nil {
		return "", -1, errors.Wrapf(err, "start %s", describe(c))
	}
	code, err := exitCode(cmd.Wait(), c.ContinueOnError)
	return buf.String(), code, err
}

func (r *Runner) command(ctx context.Context, c Command) (*exec.Cmd, error) {
	argv, err := r.argv(c)
	if err != nil {
		return nil, err
	}
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Dir = c.Dir
	cmd.WaitDelay = waitDelay
	if len(c.Env) > 0 {
		cmd.Env = append(os.Environ(), c.Env...)
	}
	return cmd, nil
}

func (r *Runner) argv(c Command) ([]string, error) {
	line := strings.TrimSpace(c.Command)
	if line == "" {
		return nil, errors.New("command is empty")
	}
	if c.Shell {
		sh := strings.TrimSpace(r.Shell)
		if sh == "" {
			sh = DefaultShell
		}
		return []string{sh, "-c", c.Command}, nil
	}
	if len(c.Args) > 0 {
		return append([]string{line}, c.Args...), nil
	}
	args, err := shellwords.Parse(line)
	if err != nil {
		return nil, errors.Wrapf(err, "parse command %q", line)
	}
	if len(args) == 0 {
		return nil, errors.Errorf("command %q has no arguments", line)
	}
	return args, nil
}

func (r *Runner) logger() logr.Logger {
	if r == nil || r.Log.GetSink() == nil {
		return logr.Discard()
	}
	return r.Log
}

func logLine(log logr.Logger, line string) {
	line = strings.TrimRight(line, "\r")
	if strings.TrimSpace(line) == "" {
		return
	}
	if IsErrorLine(line) {
		log.Error(nil, line)
		return
	}
	log.Info(line)
}

// IsErrorLine reports whether line starts with "error", ignoring case and
// leading whitespace.
func IsErrorLine(line string) bool {
	trimmed := strings.TrimSpace(line)
	return len(trimmed) >= 5 && strings.EqualFold(trimmed[:5], "error")
}

func exitCode(err error, continueOnError bool) (int, error) {
	if err == nil {
		return 0, nil
	}
	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) {
		return -1, errors.Wrap(err, "wait for command")
	}
	code := exitErr.ExitCode()
	if code <= 0 {
		// killed by a signal
		code = 1
	}
	if continueOnError {
		return code, nil
	}
	return -code, nil
}

func describe(c Command) string {
	if c.Shell {
		return "shell command"
	}
	fields := strings.Fields(c.Command)
	if len(fields) == 0 {
		return "command"
	}
	return "command " + fields[0]
}
