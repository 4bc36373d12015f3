// Package workspace provides per-run scoped storage for intermediate blobs.
// A scope is acquired for the duration of one run and removed on every exit
// path, so no run can leak intermediates or see another run's files.
package workspace

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Scope is the handle to one run's namespace directory.
type Scope struct {
	runID string
	dir   string
}

// RunID returns the run the scope belongs to.
func (s *Scope) RunID() string { return s.runID }

// Dir returns the namespace directory path.
func (s *Scope) Dir() string { return s.dir }

// Manager creates and tears down run namespaces under a single root.
type Manager struct {
	root string
}

// NewManager creates a manager rooted at root, creating it if needed.
func NewManager(root string) (*Manager, error) {
	if root == "" {
		return nil, fmt.Errorf("workspace root required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create workspace root: %w", err)
	}
	return &Manager{root: root}, nil
}

// WithScope acquires an isolated namespace for runID, passes it to fn and
// removes every blob under it when fn returns, whatever the outcome. Two
// concurrent runs never share a namespace: the directory is keyed by the
// unique run id and must not already exist.
func (m *Manager) WithScope(runID string, fn func(*Scope) error) error {
	if runID == "" || strings.ContainsAny(runID, "/\\") {
		return fmt.Errorf("invalid run id %q", runID)
	}
	dir := filepath.Join(m.root, runID)
	if _, err := os.Stat(dir); err == nil {
		return fmt.Errorf("workspace namespace %s already in use", runID)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create workspace namespace: %w", err)
	}
	defer os.RemoveAll(dir)

	return fn(&Scope{runID: runID, dir: dir})
}

// Exists reports whether a namespace for runID is currently on disk. Used by
// tests and health checks; the pipeline itself never pokes at other scopes.
func (m *Manager) Exists(runID string) bool {
	_, err := os.Stat(filepath.Join(m.root, runID))
	return err == nil
}
