package statsource

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os/exec"
	"strings"
)

// DefaultMaxLineSize is the maximum size (in bytes) of a single output line.
const DefaultMaxLineSize = 1024 * 1024 // 1MB

// ProcessSource runs an external command and collects its standard output.
// The command is expected to exit on its own after emitting its samples.
type ProcessSource struct {
	cmd    Command
	stderr io.Writer
}

// NewProcessSource creates a source for cmd. The child's stderr is passed
// through to stderr; nil discards it.
func NewProcessSource(cmd Command, stderr io.Writer) *ProcessSource {
	return &ProcessSource{cmd: cmd, stderr: stderr}
}

// Read spawns the command and waits for it to exit. A command that cannot be
// started is an error. A command that exits abnormally is logged, and
// whatever it wrote before exiting is returned.
func (s *ProcessSource) Read(ctx context.Context) ([]byte, error) {
	c := exec.CommandContext(ctx, s.cmd.Path, s.cmd.Args...)
	var out bytes.Buffer
	c.Stdout = &out
	c.Stderr = s.stderr

	if err := c.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			log.Printf("statsource: %s exited abnormally: %v", s.Name(), err)
			return out.Bytes(), nil
		}
		return nil, fmt.Errorf("statsource: run %s: %w", s.cmd.Path, err)
	}
	return out.Bytes(), nil
}

func (s *ProcessSource) Name() string { return s.cmd.Name() }

// StaticSource replays fixed output. It backs tests and dry runs.
type StaticSource struct {
	Data []byte
	Err  error
}

func (s StaticSource) Read(context.Context) ([]byte, error) { return s.Data, s.Err }
func (s StaticSource) Name() string                         { return "static" }

// SplitLines returns the non-blank lines of data in order, without line
// terminators.
func SplitLines(data []byte) ([]string, error) {
	scanner := bufio.NewScanner(bytes.NewReader(data))
	buf := make([]byte, 64*1024)
	scanner.Buffer(buf, DefaultMaxLineSize)

	var lines []string
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		lines = append(lines, line)
	}
	if err := scanner.Err(); err != nil {
		if errors.Is(err, bufio.ErrTooLong) {
			return lines, fmt.Errorf("statsource: line exceeded max size (%d bytes): %w", DefaultMaxLineSize, err)
		}
		return lines, fmt.Errorf("statsource: scan output: %w", err)
	}
	return lines, nil
}
