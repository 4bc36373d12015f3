package assembly

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/slidereel/api/internal/catalog"
	"github.com/slidereel/api/internal/engine"
	"github.com/slidereel/api/internal/model"
	"github.com/slidereel/api/internal/workspace"
)

// fakeEngine records all engine traffic and satisfies every operation by
// writing a placeholder output blob.
type fakeEngine struct {
	blobs     map[string][]byte
	ops       []engine.Operation
	initCalls int
	teardowns int
	initErr   error
	failOn    string
}

func newFakeEngine() *fakeEngine {
	return &fakeEngine{blobs: make(map[string][]byte)}
}

func (e *fakeEngine) Init(ctx context.Context) error {
	e.initCalls++
	return e.initErr
}

func (e *fakeEngine) Execute(ctx context.Context, op engine.Operation) error {
	e.ops = append(e.ops, op)
	if e.failOn != "" && op.Name == e.failOn {
		return errors.New("simulated encoder failure")
	}
	if op.Output != "" {
		e.blobs[op.Output] = []byte("encoded:" + op.Output)
	}
	return nil
}

func (e *fakeEngine) WriteBlob(name string, data []byte) error {
	e.blobs[name] = data
	return nil
}

func (e *fakeEngine) ReadBlob(name string) ([]byte, error) {
	data, ok := e.blobs[name]
	if !ok {
		return nil, fmt.Errorf("blob %q not found", name)
	}
	return data, nil
}

func (e *fakeEngine) ListNamespace() ([]string, error) {
	names := make([]string, 0, len(e.blobs))
	for name := range e.blobs {
		names = append(names, name)
	}
	return names, nil
}

func (e *fakeEngine) DeleteBlob(name string) error {
	delete(e.blobs, name)
	return nil
}

func (e *fakeEngine) Teardown(ctx context.Context) error {
	e.teardowns++
	e.blobs = make(map[string][]byte)
	return nil
}

type fakeFactory struct {
	eng *fakeEngine
}

func (f fakeFactory) Open(scope *workspace.Scope) engine.Engine { return f.eng }

// fakeStorage serves staged inputs from a map and records stored artifacts.
type fakeStorage struct {
	objects map[string][]byte
	stored  map[string][]byte
}

func newFakeStorage(set AssetSet) *fakeStorage {
	s := &fakeStorage{
		objects: make(map[string][]byte),
		stored:  make(map[string][]byte),
	}
	for _, img := range set.Images {
		s.objects[img.Key] = []byte("image-bytes")
	}
	s.objects[set.Narration.Key] = []byte("narration-bytes")
	if set.Thumbnail != nil {
		s.objects[set.Thumbnail.Key] = []byte("thumbnail-bytes")
	}
	s.objects["catalog/soundtracks/gentle-piano.mp3"] = []byte("soundtrack-bytes")
	s.objects["catalog/filters/light-rain.mp4"] = []byte("filter-bytes")
	return s
}

func (s *fakeStorage) Fetch(ctx context.Context, key string) ([]byte, error) {
	data, ok := s.objects[key]
	if !ok {
		return nil, fmt.Errorf("object %q not found", key)
	}
	return data, nil
}

func (s *fakeStorage) Store(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	s.stored[key] = data
	return "https://cdn.test/" + key, nil
}

type fakeCatalogs struct{}

func (fakeCatalogs) Soundtrack(id string) (catalog.SoundtrackEntry, bool) {
	if id != "gentle-piano" {
		return catalog.SoundtrackEntry{}, false
	}
	return catalog.SoundtrackEntry{
		ID:              id,
		Name:            "Gentle Piano",
		FileRef:         "catalog/soundtracks/gentle-piano.mp3",
		DurationSeconds: 128,
	}, true
}

func (fakeCatalogs) Filter(id string) (catalog.FilterEntry, bool) {
	if id != "light-rain" {
		return catalog.FilterEntry{}, false
	}
	return catalog.FilterEntry{
		ID:      id,
		Name:    "Light Rain",
		FileRef: "catalog/filters/light-rain.mp4",
	}, true
}

// snapshotObserver records every transition for ordering/monotonicity checks.
type snapshotObserver struct {
	snaps []PhaseSnapshot
}

func (o *snapshotObserver) RunProgress(runID string, snap PhaseSnapshot) {
	o.snaps = append(o.snaps, snap)
}

// cancelAfter requests cancellation once it has been polled n times.
type cancelAfter struct {
	n     int
	calls int
}

func (c *cancelAfter) CancelRequested(ctx context.Context, runID string) bool {
	c.calls++
	return c.calls >= c.n
}

func runPipeline(t *testing.T, set AssetSet, eng *fakeEngine, storage *fakeStorage, observer Observer, cancels CancelPoller) (*Result, *RunError) {
	t.Helper()
	manager, err := workspace.NewManager(t.TempDir())
	if err != nil {
		t.Fatalf("failed to create workspace manager: %v", err)
	}

	p := NewPipeline(fakeFactory{eng: eng}, storage, fakeCatalogs{}, observer, cancels)

	var result *Result
	var runErr *RunError
	err = manager.WithScope("run-1", func(scope *workspace.Scope) error {
		result, runErr = p.Run(context.Background(), scope, set)
		return nil
	})
	if err != nil {
		t.Fatalf("scope acquisition failed: %v", err)
	}
	return result, runErr
}

func opNames(eng *fakeEngine) []string {
	names := make([]string, len(eng.ops))
	for i, op := range eng.ops {
		names[i] = op.Name
	}
	return names
}

func TestPipelineRun_BareSetCompletes(t *testing.T) {
	set := validSet()
	eng := newFakeEngine()
	storage := newFakeStorage(set)

	result, runErr := runPipeline(t, set, eng, storage, nil, nil)
	if runErr != nil {
		t.Fatalf("expected success, got %v", runErr)
	}

	if result.DurationSeconds != 61.5 {
		t.Errorf("expected duration 61.5, got %v", result.DurationSeconds)
	}
	if result.Width != 1920 || result.Height != 1080 || result.FrameRate != 30 {
		t.Errorf("unexpected output profile: %+v", result)
	}
	if result.OutputRef != "https://cdn.test/outputs/run-1.mp4" {
		t.Errorf("unexpected output ref %q", result.OutputRef)
	}
	if _, ok := storage.stored["outputs/run-1.mp4"]; !ok {
		t.Error("final artifact was not stored")
	}

	want := []string{"slideshow", "fade", "audio", "audio", "mux"}
	if got := opNames(eng); !equalStrings(got, want) {
		t.Errorf("expected op order %v, got %v", want, got)
	}

	if eng.initCalls != 1 {
		t.Errorf("expected one engine init, got %d", eng.initCalls)
	}
	if eng.teardowns != 1 {
		t.Errorf("expected one engine teardown, got %d", eng.teardowns)
	}
}

func TestPipelineRun_AllOptionsOpOrder(t *testing.T) {
	set := validSet()
	set.SoundtrackID = "gentle-piano"
	set.FilterID = "light-rain"
	set.Thumbnail = &Asset{Key: "projects/p1/thumbnail.jpg", Size: 512}

	eng := newFakeEngine()
	storage := newFakeStorage(set)

	result, runErr := runPipeline(t, set, eng, storage, nil, nil)
	if runErr != nil {
		t.Fatalf("expected success, got %v", runErr)
	}
	if !within(result.DurationSeconds, 61.7) {
		t.Errorf("expected duration 61.7, got %v", result.DurationSeconds)
	}

	// thumbnail appears twice: the clip build and the video-only concat.
	want := []string{"slideshow", "thumbnail", "thumbnail", "overlay", "fade", "audio", "audio", "mux"}
	if got := opNames(eng); !equalStrings(got, want) {
		t.Errorf("expected op order %v, got %v", want, got)
	}

	// Soundtrack of 128s already covers 63.5s: no extra loop passes.
	mix := strings.Join(eng.ops[6].Args, " ")
	if !strings.Contains(mix, "-stream_loop 0") {
		t.Errorf("expected no extra soundtrack loops, got %s", mix)
	}
	if !strings.Contains(mix, "volume=0.3") {
		t.Errorf("soundtrack not attenuated to 0.3: %s", mix)
	}

	// The fade op runs on the concatenated visual, after the overlay.
	fade := eng.ops[4]
	if fade.Args[2] != "overlay.mp4" {
		t.Errorf("fade should consume the overlaid visual, got input %q", fade.Args[2])
	}
}

func TestPipelineRun_ImagesStagedInOrder(t *testing.T) {
	set := validSet()
	eng := newFakeEngine()
	storage := newFakeStorage(set)

	if _, runErr := runPipeline(t, set, eng, storage, nil, nil); runErr != nil {
		t.Fatalf("expected success, got %v", runErr)
	}

	list, ok := eng.blobs["slideshow.txt"]
	if !ok {
		t.Fatal("slideshow playlist was not written")
	}
	// Zero-padded names keep the submitted order.
	if !strings.Contains(string(list), "file 'img_00.jpg'") {
		t.Errorf("playlist missing first ordered image:\n%s", list)
	}
}

func TestPipelineRun_UnknownSoundtrack(t *testing.T) {
	set := validSet()
	set.SoundtrackID = "does-not-exist"
	eng := newFakeEngine()

	_, runErr := runPipeline(t, set, eng, newFakeStorage(set), nil, nil)
	if runErr == nil {
		t.Fatal("expected failure for unresolvable catalog reference")
	}
	if runErr.Kind != model.ErrKindAssetWrite {
		t.Errorf("expected ASSET_WRITE_FAILED, got %s", runErr.Kind)
	}
	if len(eng.ops) != 0 {
		t.Errorf("no encode step may run after a preparing failure, got %v", opNames(eng))
	}
	if eng.teardowns != 1 {
		t.Errorf("engine must be torn down on failure, got %d teardowns", eng.teardowns)
	}
}

func TestPipelineRun_EngineUnavailable(t *testing.T) {
	set := validSet()
	eng := newFakeEngine()
	eng.initErr = errors.New("ffmpeg not found")

	_, runErr := runPipeline(t, set, eng, newFakeStorage(set), nil, nil)
	if runErr == nil || runErr.Kind != model.ErrKindEngine {
		t.Fatalf("expected ENGINE_UNAVAILABLE, got %v", runErr)
	}
}

func TestPipelineRun_EncodeStepFailed(t *testing.T) {
	set := validSet()
	eng := newFakeEngine()
	eng.failOn = "fade"

	_, runErr := runPipeline(t, set, eng, newFakeStorage(set), nil, nil)
	if runErr == nil {
		t.Fatal("expected failure")
	}
	if runErr.Kind != model.ErrKindEncodeStep {
		t.Errorf("expected ENCODE_STEP_FAILED, got %s", runErr.Kind)
	}
	if runErr.Step != "fade" {
		t.Errorf("expected failing step named, got %q", runErr.Step)
	}
	if eng.teardowns != 1 {
		t.Errorf("engine must be torn down on failure, got %d teardowns", eng.teardowns)
	}
}

func TestPipelineRun_CancelledMidProcessing(t *testing.T) {
	set := validSet()
	eng := newFakeEngine()

	// First poll happens in preparing, second before the slideshow step,
	// third before the fade step: cancellation lands mid-processing.
	cancels := &cancelAfter{n: 3}

	_, runErr := runPipeline(t, set, eng, newFakeStorage(set), nil, cancels)
	if runErr == nil {
		t.Fatal("expected cancellation failure")
	}
	if runErr.Kind != model.ErrKindCancelled {
		t.Errorf("expected CANCELLED, got %s", runErr.Kind)
	}
	if len(eng.ops) == 0 {
		t.Error("cancellation should land after at least one encode step")
	}
	if len(eng.ops) >= 5 {
		t.Errorf("cancellation was not observed between steps, %d ops ran", len(eng.ops))
	}
}

func TestPipelineRun_ContextCanceled(t *testing.T) {
	set := validSet()
	eng := newFakeEngine()
	storage := newFakeStorage(set)

	manager, err := workspace.NewManager(t.TempDir())
	if err != nil {
		t.Fatalf("failed to create workspace manager: %v", err)
	}
	p := NewPipeline(fakeFactory{eng: eng}, storage, fakeCatalogs{}, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel() // already expired before the first suspension point

	var runErr *RunError
	_ = manager.WithScope("run-1", func(scope *workspace.Scope) error {
		_, runErr = p.Run(ctx, scope, set)
		return nil
	})

	if runErr == nil || runErr.Kind != model.ErrKindCancelled {
		t.Fatalf("expected CANCELLED from context expiry, got %v", runErr)
	}
}

func TestPipelineRun_ProgressMonotonicReaches100(t *testing.T) {
	set := validSet()
	set.Thumbnail = &Asset{Key: "projects/p1/thumbnail.jpg", Size: 512}
	eng := newFakeEngine()
	observer := &snapshotObserver{}

	_, runErr := runPipeline(t, set, eng, newFakeStorage(set), observer, nil)
	if runErr != nil {
		t.Fatalf("expected success, got %v", runErr)
	}

	prev := 0
	for _, snap := range observer.snaps {
		if snap.Percent < prev {
			t.Errorf("progress decreased from %d to %d in phase %s", prev, snap.Percent, snap.Phase)
		}
		prev = snap.Percent
	}

	last := observer.snaps[len(observer.snaps)-1]
	if last.Phase != model.PhaseCompleted || last.Percent != 100 {
		t.Errorf("expected terminal snapshot completed/100, got %s/%d", last.Phase, last.Percent)
	}
}

func TestPipelineRun_EmptyStagedAsset(t *testing.T) {
	set := validSet()
	eng := newFakeEngine()
	storage := newFakeStorage(set)
	storage.objects[set.Narration.Key] = nil // zero-byte blob

	_, runErr := runPipeline(t, set, eng, storage, nil, nil)
	if runErr == nil || runErr.Kind != model.ErrKindAssetWrite {
		t.Fatalf("expected ASSET_WRITE_FAILED for empty narration, got %v", runErr)
	}
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
