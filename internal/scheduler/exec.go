package scheduler

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// Executor runs a scheduler CLI and returns its standard output
type Executor interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// ExecExecutor runs commands on the local host
type ExecExecutor struct {
	// Dir is the working directory; empty means the current one
	Dir string
}

// Run executes name with args. On failure the error carries stderr.
func (e ExecExecutor) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = e.Dir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return stdout.Bytes(), fmt.Errorf("%s failed: %w: %s", name, err, strings.TrimSpace(stderr.String()))
	}
	return stdout.Bytes(), nil
}
