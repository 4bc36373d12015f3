// Package engine wraps the external media-encoding tool behind a capability
// interface so the assembly pipeline never cares whether encoding happens in
// a local ffmpeg process or a remote encoder service.
package engine

import "context"

// Operation is one invocation of the encoding engine: an ffmpeg argument
// vector whose input and output references are blob names inside the run's
// namespace. Engines resolve names however their backend requires.
type Operation struct {
	// Name labels the pipeline step issuing the operation ("slideshow",
	// "audio", ...). It is used for error reporting only.
	Name string
	// Args is the full ffmpeg argument list, with blob names used as
	// relative paths.
	Args []string
	// Output is the blob the operation must produce. An operation that
	// exits zero without producing it still fails.
	Output string
}

// Engine executes encode operations and manages the byte blobs of exactly one
// run's namespace. An Engine instance is never shared across concurrent runs.
type Engine interface {
	// Init prepares the engine for use. It is idempotent: calling it on an
	// already-initialized engine is a no-op, not an error.
	Init(ctx context.Context) error

	Execute(ctx context.Context, op Operation) error

	WriteBlob(name string, data []byte) error
	ReadBlob(name string) ([]byte, error)
	ListNamespace() ([]string, error)
	DeleteBlob(name string) error

	// Teardown removes every blob remaining in the namespace. Safe to call
	// after failures; part of the workspace cleanup path.
	Teardown(ctx context.Context) error
}
