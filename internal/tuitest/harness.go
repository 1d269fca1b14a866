// Package tuitest drives the compiled askpdf binary through a pseudo
// terminal so end-to-end tests can replay keyboard and mouse input and
// assert on the frames the program draws.
package tuitest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/creack/pty"
)

const (
	defaultCols    = 110
	defaultRows    = 34
	defaultTimeout = 8 * time.Second
)

// Step is one scripted interaction: wait Delay, then write Input to the
// terminal. Either part may be zero.
type Step struct {
	Delay time.Duration
	Input []byte
}

// Script describes a full run of the viewer binary.
type Script struct {
	Command []string
	Dir     string
	Env     []string
	Cols    int
	Rows    int
	Steps   []Step
	Timeout time.Duration

	// AllowInterrupt accepts a SIGINT death as a clean exit, for scripts
	// that end with ctrl-c.
	AllowInterrupt bool
}

// Recording holds everything the program wrote to the terminal.
type Recording struct {
	Raw      []byte
	Frames   []Frame
	Duration time.Duration
}

// Run starts the command in a PTY sized per the script, replays the steps,
// and waits for the program to exit.
func Run(ctx context.Context, script Script) (*Recording, error) {
	if len(script.Command) == 0 {
		return nil, errors.New("tuitest: command is required")
	}
	cols, rows := script.Cols, script.Rows
	if cols <= 0 {
		cols = defaultCols
	}
	if rows <= 0 {
		rows = defaultRows
	}
	timeout := script.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, script.Command[0], script.Command[1:]...)
	cmd.Dir = script.Dir
	cmd.Env = runEnv(script.Env)

	ptmx, err := pty.StartWithSize(cmd, &pty.Winsize{Rows: uint16(rows), Cols: uint16(cols)})
	if err != nil {
		return nil, fmt.Errorf("tuitest: start program: %w", err)
	}
	defer func() { _ = ptmx.Close() }()

	var output bytes.Buffer
	drained := make(chan struct{})
	go func() {
		defer close(drained)
		responder := newTerminalResponder(ptmx)
		buf := make([]byte, 4096)
		for {
			n, readErr := ptmx.Read(buf)
			if n > 0 {
				chunk := buf[:n]
				responder.Process(chunk)
				_, _ = output.Write(chunk)
			}
			if readErr != nil {
				return
			}
		}
	}()

	start := time.Now()
	for _, step := range script.Steps {
		if step.Delay > 0 {
			select {
			case <-ctx.Done():
				return nil, fmt.Errorf("tuitest: context cancelled before script finished: %w", ctx.Err())
			case <-time.After(step.Delay):
			}
		}
		if len(step.Input) > 0 {
			if _, err := ptmx.Write(step.Input); err != nil {
				return nil, fmt.Errorf("tuitest: write input: %w", err)
			}
		}
	}

	waitErr := make(chan error, 1)
	go func() { waitErr <- cmd.Wait() }()

	select {
	case err := <-waitErr:
		if err != nil {
			if script.AllowInterrupt && strings.Contains(err.Error(), "signal: interrupt") {
				break
			}
			return nil, fmt.Errorf("tuitest: program exited with error: %w", err)
		}
	case <-ctx.Done():
		return nil, fmt.Errorf("tuitest: timeout waiting for program exit: %w", ctx.Err())
	}

	// Closing the PTY unblocks the reader so it can finish draining.
	_ = ptmx.Close()
	<-drained

	raw := output.Bytes()
	return &Recording{Raw: raw, Frames: parseFrames(raw), Duration: time.Since(start)}, nil
}

func runEnv(extra []string) []string {
	env := append(os.Environ(), extra...)
	for _, entry := range env {
		if strings.HasPrefix(entry, "TERM=") {
			return env
		}
	}
	return append(env, "TERM=xterm-256color")
}
