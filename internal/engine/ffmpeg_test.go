package engine

import (
	"context"
	"os/exec"
	"reflect"
	"sort"
	"strings"
	"testing"
)

func TestFFmpegEngine_BlobRoundTrip(t *testing.T) {
	e := NewFFmpegEngine(t.TempDir())

	if err := e.WriteBlob("narration.src", []byte("audio-bytes")); err != nil {
		t.Fatalf("WriteBlob: %v", err)
	}
	data, err := e.ReadBlob("narration.src")
	if err != nil {
		t.Fatalf("ReadBlob: %v", err)
	}
	if string(data) != "audio-bytes" {
		t.Errorf("unexpected blob content %q", data)
	}

	if err := e.DeleteBlob("narration.src"); err != nil {
		t.Fatalf("DeleteBlob: %v", err)
	}
	if _, err := e.ReadBlob("narration.src"); err == nil {
		t.Error("expected read of deleted blob to fail")
	}
	// Deleting an absent blob is not an error.
	if err := e.DeleteBlob("narration.src"); err != nil {
		t.Errorf("DeleteBlob of absent blob: %v", err)
	}
}

func TestFFmpegEngine_RejectsEscapingNames(t *testing.T) {
	e := NewFFmpegEngine(t.TempDir())

	for _, name := range []string{"", "a/b", "../outside", "nested/../../etc"} {
		if err := e.WriteBlob(name, []byte("x")); err == nil {
			t.Errorf("expected blob name %q to be rejected", name)
		}
		if _, err := e.ReadBlob(name); err == nil {
			t.Errorf("expected blob name %q to be rejected on read", name)
		}
	}
}

func TestFFmpegEngine_ListAndTeardown(t *testing.T) {
	e := NewFFmpegEngine(t.TempDir())

	for _, name := range []string{"img_00.jpg", "img_01.jpg", "slideshow.txt"} {
		if err := e.WriteBlob(name, []byte("x")); err != nil {
			t.Fatalf("WriteBlob %s: %v", name, err)
		}
	}

	names, err := e.ListNamespace()
	if err != nil {
		t.Fatalf("ListNamespace: %v", err)
	}
	sort.Strings(names)
	want := []string{"img_00.jpg", "img_01.jpg", "slideshow.txt"}
	if !reflect.DeepEqual(names, want) {
		t.Errorf("expected %v, got %v", want, names)
	}

	if err := e.Teardown(context.Background()); err != nil {
		t.Fatalf("Teardown: %v", err)
	}
	names, err = e.ListNamespace()
	if err != nil {
		t.Fatalf("ListNamespace after teardown: %v", err)
	}
	if len(names) != 0 {
		t.Errorf("expected empty namespace after teardown, got %v", names)
	}
}

func TestFFmpegEngine_InitMissingBinary(t *testing.T) {
	e := NewFFmpegEngine(t.TempDir(), WithBinary("definitely-not-an-encoder-binary"))
	if err := e.Init(context.Background()); err == nil {
		t.Error("expected init to fail for a missing binary")
	}
}

func TestFFmpegEngine_ExecuteNoArgs(t *testing.T) {
	e := NewFFmpegEngine(t.TempDir())
	if err := e.Execute(context.Background(), Operation{Name: "noop"}); err == nil {
		t.Error("expected error for operation without arguments")
	}
}

func TestFFmpegEngine_ExecuteVerifiesOutput(t *testing.T) {
	// Substitute a command that exits cleanly without writing the declared
	// output blob.
	orig := commandContext
	commandContext = func(ctx context.Context, name string, args ...string) *exec.Cmd {
		return exec.CommandContext(ctx, "true")
	}
	t.Cleanup(func() { commandContext = orig })

	e := NewFFmpegEngine(t.TempDir())
	op := Operation{Name: "slideshow", Args: []string{"-y"}, Output: "slideshow.mp4"}

	err := e.Execute(context.Background(), op)
	if err == nil {
		t.Fatal("expected error when the declared output is missing")
	}
	if !strings.Contains(err.Error(), "produced no output") {
		t.Errorf("unexpected error %v", err)
	}
}

func TestFFmpegEngine_ExecuteRejectsEmptyOutput(t *testing.T) {
	orig := commandContext
	commandContext = func(ctx context.Context, name string, args ...string) *exec.Cmd {
		return exec.CommandContext(ctx, "true")
	}
	t.Cleanup(func() { commandContext = orig })

	e := NewFFmpegEngine(t.TempDir())
	if err := e.WriteBlob("output.mp4", nil); err != nil {
		t.Fatalf("WriteBlob: %v", err)
	}

	err := e.Execute(context.Background(), Operation{Name: "mux", Args: []string{"-y"}, Output: "output.mp4"})
	if err == nil || !strings.Contains(err.Error(), "is empty") {
		t.Errorf("expected empty-output error, got %v", err)
	}
}
