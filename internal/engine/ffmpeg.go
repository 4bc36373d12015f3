package engine

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
)

var commandContext = exec.CommandContext

// FFmpegOption configures the local ffmpeg engine.
type FFmpegOption func(*FFmpegEngine)

// WithBinary overrides the default ffmpeg binary name.
func WithBinary(binary string) FFmpegOption {
	return func(e *FFmpegEngine) {
		if binary != "" {
			e.binary = binary
		}
	}
}

// FFmpegEngine runs encode operations by executing the ffmpeg CLI with the
// run's namespace directory as working directory, so blob names resolve as
// relative paths.
type FFmpegEngine struct {
	binary string
	dir    string

	mu     sync.Mutex
	inited bool
}

// NewFFmpegEngine creates an engine bound to the namespace directory dir.
func NewFFmpegEngine(dir string, opts ...FFmpegOption) *FFmpegEngine {
	e := &FFmpegEngine{binary: "ffmpeg", dir: dir}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Init verifies the ffmpeg binary is reachable. Idempotent.
func (e *FFmpegEngine) Init(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.inited {
		return nil
	}
	if _, err := exec.LookPath(e.binary); err != nil {
		return fmt.Errorf("ffmpeg binary %q not found: %w", e.binary, err)
	}
	e.inited = true
	return nil
}

// Execute runs one ffmpeg invocation and verifies the declared output blob
// was produced.
func (e *FFmpegEngine) Execute(ctx context.Context, op Operation) error {
	if len(op.Args) == 0 {
		return errors.New("operation has no arguments")
	}

	cmd := commandContext(ctx, e.binary, op.Args...) //nolint:gosec
	cmd.Dir = e.dir
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%s: %w: %s", op.Name, err, lastLine(stderr.String()))
	}

	if op.Output != "" {
		info, err := os.Stat(filepath.Join(e.dir, op.Output))
		if err != nil {
			return fmt.Errorf("%s: produced no output %q", op.Name, op.Output)
		}
		if info.Size() == 0 {
			return fmt.Errorf("%s: output %q is empty", op.Name, op.Output)
		}
	}
	return nil
}

func (e *FFmpegEngine) WriteBlob(name string, data []byte) error {
	path, err := e.blobPath(name)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func (e *FFmpegEngine) ReadBlob(name string) ([]byte, error) {
	path, err := e.blobPath(name)
	if err != nil {
		return nil, err
	}
	return os.ReadFile(path)
}

func (e *FFmpegEngine) ListNamespace() ([]string, error) {
	entries, err := os.ReadDir(e.dir)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, entry := range entries {
		if !entry.IsDir() {
			names = append(names, entry.Name())
		}
	}
	return names, nil
}

func (e *FFmpegEngine) DeleteBlob(name string) error {
	path, err := e.blobPath(name)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// Teardown deletes every blob in the namespace directory. The directory
// itself is owned by the workspace manager.
func (e *FFmpegEngine) Teardown(ctx context.Context) error {
	names, err := e.ListNamespace()
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	for _, name := range names {
		if err := e.DeleteBlob(name); err != nil {
			return err
		}
	}
	return nil
}

// blobPath rejects names that would escape the namespace directory.
func (e *FFmpegEngine) blobPath(name string) (string, error) {
	if name == "" || strings.Contains(name, "/") || strings.Contains(name, "..") {
		return "", fmt.Errorf("invalid blob name %q", name)
	}
	return filepath.Join(e.dir, name), nil
}

func lastLine(s string) string {
	s = strings.TrimSpace(s)
	if idx := strings.LastIndexByte(s, '\n'); idx >= 0 {
		s = s[idx+1:]
	}
	return s
}

var _ Engine = (*FFmpegEngine)(nil)
