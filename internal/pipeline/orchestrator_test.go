package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"story-shorts/internal/audio"
	"story-shorts/internal/fallback"
	"story-shorts/internal/render"
	"story-shorts/internal/script"
	"story-shorts/internal/store"
	"story-shorts/internal/types"
)

type fakeStory struct {
	story types.Story
	err   error
	delay time.Duration
}

func (f fakeStory) GenerateStory(ctx context.Context) (types.Story, string, error) {
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return types.Story{}, "", fmt.Errorf("%w: %w", script.ErrGenerationUnavailable, ctx.Err())
		}
	}
	return f.story, "openai", f.err
}

type fakeNarrator struct{ err error }

func (f fakeNarrator) Synthesize(_ context.Context, id, _ string) (string, string, error) {
	if f.err != nil {
		return "", "", f.err
	}
	return "audio/" + id + ".mp3", "elevenlabs", nil
}

type fakeImages struct{}

func (fakeImages) SourceImages(context.Context, []string) ([]types.Image, string) {
	return []types.Image{{URL: "https://img/1.jpg", SourceProvider: "unsplash"}}, "unsplash"
}

type fakeAssembler struct{ err error }

func (f fakeAssembler) Assemble(_ context.Context, in render.AssembleInput) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return "videos/" + in.ContentID + ".mp4", nil
}

type fakePublisher struct {
	results map[string]types.PublishResult
	order   []string
	delays  map[string]time.Duration
	timeout time.Duration

	calls   int
	uploads map[string]int
}

func (f *fakePublisher) Publish(ctx context.Context, _ *types.ContentRecord, only []string) map[string]types.PublishResult {
	f.calls++
	if f.uploads == nil {
		f.uploads = make(map[string]int)
	}
	out := make(map[string]types.PublishResult, len(only))
	for _, name := range only {
		f.uploads[name]++
		if err := f.wait(ctx, f.delays[name]); err != nil {
			out[name] = types.PublishResult{Error: err.Error()}
			continue
		}
		out[name] = f.results[name]
	}
	return out
}

func (f *fakePublisher) wait(ctx context.Context, d time.Duration) error {
	if f.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}
	select {
	case <-time.After(d):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (f *fakePublisher) Platforms() []string {
	if f.order != nil {
		return f.order
	}
	names := make([]string, 0, len(f.results))
	for k := range f.results {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// countingStore wraps MemoryStore and counts Create calls.
type countingStore struct {
	*store.MemoryStore
	mu        sync.Mutex
	creates   int
	failWrite bool
}

func (c *countingStore) Create(ctx context.Context, rec *types.ContentRecord) error {
	c.mu.Lock()
	c.creates++
	c.mu.Unlock()
	if c.failWrite {
		return fmt.Errorf("%w: disk full", store.ErrStore)
	}
	return c.MemoryStore.Create(ctx, rec)
}

func tenWords() string { return "w1 w2 w3 w4 w5 w6 w7 w8 w9 w10" }

func newOrchestrator(st store.Store, opts Options) *Orchestrator {
	if opts.Story == nil {
		opts.Story = fakeStory{story: types.Story{Title: "T", Niche: "Mystery", FullStory: tenWords(), Tags: []string{"story"}}}
	}
	if opts.Narrator == nil {
		opts.Narrator = fakeNarrator{}
	}
	if opts.Images == nil {
		opts.Images = fakeImages{}
	}
	if opts.Assembler == nil {
		opts.Assembler = fakeAssembler{}
	}
	if opts.Publisher == nil {
		opts.Publisher = &fakePublisher{}
	}
	opts.Store = st
	opts.Logger = zerolog.Nop()
	n := 0
	opts.NewID = func() string { n++; return fmt.Sprintf("content_%d", n) }
	return New(opts)
}

func TestExcerptIsPureAndCapped(t *testing.T) {
	words := make([]string, 900)
	for i := range words {
		words[i] = fmt.Sprintf("w%d", i)
	}
	story := strings.Join(words, "  \n ")
	a, b := Excerpt(story), Excerpt(story)
	if a != b {
		t.Fatal("excerpt is not deterministic")
	}
	want := strings.Join(words[:700], " ") + cliffhanger
	if a != want {
		t.Fatalf("excerpt mismatch, got %d bytes want %d", len(a), len(want))
	}
	if Excerpt("") != cliffhanger {
		t.Fatalf("empty story excerpt = %q", Excerpt(""))
	}
}

func TestRunTenWordStoryReachesReady(t *testing.T) {
	st := &countingStore{MemoryStore: store.NewMemoryStore()}
	o := newOrchestrator(st, Options{})

	rec, err := o.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if rec.Status != types.StatusReady || rec.Progress != 100 {
		t.Fatalf("status=%s progress=%d", rec.Status, rec.Progress)
	}
	if rec.Excerpt != tenWords()+cliffhanger {
		t.Fatalf("excerpt = %q", rec.Excerpt)
	}
	if rec.VideoURL == "" || rec.AudioURL == "" || len(rec.Images) != 1 {
		t.Fatalf("incomplete record %+v", rec)
	}
	if rec.Providers["story"] != "openai" || rec.Providers["narration"] != "elevenlabs" || rec.Providers["images"] != "unsplash" {
		t.Fatalf("providers = %v", rec.Providers)
	}

	stored, err := st.GetByID(context.Background(), rec.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if stored.Status != types.StatusReady || stored.VideoURL != rec.VideoURL {
		t.Fatalf("stored record not ready: %+v", stored)
	}
}

func TestRunNarrationExhaustedFails(t *testing.T) {
	st := &countingStore{MemoryStore: store.NewMemoryStore()}
	chainErr := fmt.Errorf("%w: narration: %w", fallback.ErrChainExhausted, errors.New("all down"))
	o := newOrchestrator(st, Options{Narrator: fakeNarrator{err: fmt.Errorf("%w: %w", audio.ErrSynthesisUnavailable, chainErr)}})

	rec, err := o.Run(context.Background())
	if err != nil {
		t.Fatalf("stage failure must be data, got error %v", err)
	}
	if rec.Status != types.StatusFailed || rec.ErrorCode != CodeSynthesisUnavailable {
		t.Fatalf("status=%s code=%s", rec.Status, rec.ErrorCode)
	}
	if rec.VideoURL != "" {
		t.Fatalf("failed run has video %q", rec.VideoURL)
	}
	if st.creates != 1 {
		t.Fatalf("Create called %d times, want 1", st.creates)
	}
	stored, _ := st.GetByID(context.Background(), rec.ID)
	if stored.Status != types.StatusFailed || stored.Error == "" {
		t.Fatalf("stored = %+v", stored)
	}
}

func TestRunAssemblyFailure(t *testing.T) {
	st := store.NewMemoryStore()
	o := newOrchestrator(st, Options{Assembler: fakeAssembler{err: fmt.Errorf("%w: ffmpeg", render.ErrAssemblyFailed)}})
	rec, err := o.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if rec.Status != types.StatusFailed || rec.ErrorCode != CodeAssemblyFailed {
		t.Fatalf("status=%s code=%s", rec.Status, rec.ErrorCode)
	}
}

func TestRunStoryTimeout(t *testing.T) {
	st := store.NewMemoryStore()
	o := newOrchestrator(st, Options{
		Story:    fakeStory{delay: time.Second},
		Timeouts: Timeouts{Story: 10 * time.Millisecond},
	})
	rec, err := o.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if rec.Status != types.StatusFailed || rec.ErrorCode != CodeStageTimeout {
		t.Fatalf("status=%s code=%s", rec.Status, rec.ErrorCode)
	}
}

func TestRunPlaceholderStoreFailure(t *testing.T) {
	st := &countingStore{MemoryStore: store.NewMemoryStore(), failWrite: true}
	o := newOrchestrator(st, Options{})
	rec, err := o.Run(context.Background())
	if !errors.Is(err, store.ErrStore) {
		t.Fatalf("expected ErrStore, got %v", err)
	}
	if rec.Status != types.StatusFailed || rec.ErrorCode != CodeStoreError {
		t.Fatalf("status=%s code=%s", rec.Status, rec.ErrorCode)
	}
}

func TestRunAndPublishPartialFailureStaysReady(t *testing.T) {
	st := store.NewMemoryStore()
	pub := &fakePublisher{results: map[string]types.PublishResult{
		"A": {Success: true, Reference: "a-1"},
		"B": {Error: "quota exceeded"},
	}}
	o := newOrchestrator(st, Options{Publisher: pub})

	rec, err := o.RunAndPublish(context.Background())
	if err != nil {
		t.Fatalf("RunAndPublish: %v", err)
	}
	if rec.Status != types.StatusReady {
		t.Fatalf("status = %s, want ready", rec.Status)
	}
	if !rec.PublishResults["A"].Success || rec.PublishResults["B"].Success || rec.PublishResults["B"].Error == "" {
		t.Fatalf("results = %+v", rec.PublishResults)
	}
	stored, _ := st.GetByID(context.Background(), rec.ID)
	if len(stored.PublishResults) != 2 {
		t.Fatalf("publish results not persisted: %+v", stored.PublishResults)
	}
}

func TestRunAndPublishAllFailStaysReady(t *testing.T) {
	pub := &fakePublisher{results: map[string]types.PublishResult{"A": {Error: "x"}, "B": {Error: "y"}}}
	o := newOrchestrator(store.NewMemoryStore(), Options{Publisher: pub})
	rec, _ := o.RunAndPublish(context.Background())
	if rec.Status != types.StatusReady {
		t.Fatalf("status = %s, want ready", rec.Status)
	}
}

func TestRunAndPublishAllSucceedUploads(t *testing.T) {
	pub := &fakePublisher{results: map[string]types.PublishResult{"A": {Success: true}, "B": {Success: true}}}
	o := newOrchestrator(store.NewMemoryStore(), Options{Publisher: pub})
	rec, _ := o.RunAndPublish(context.Background())
	if rec.Status != types.StatusUploaded {
		t.Fatalf("status = %s, want uploaded", rec.Status)
	}
}

func TestRunAndPublishSkipsFailedRuns(t *testing.T) {
	pub := &fakePublisher{results: map[string]types.PublishResult{"A": {Success: true}}}
	o := newOrchestrator(store.NewMemoryStore(), Options{Publisher: pub, Assembler: fakeAssembler{err: render.ErrAssemblyFailed}})
	rec, _ := o.RunAndPublish(context.Background())
	if rec.Status != types.StatusFailed || pub.calls != 0 {
		t.Fatalf("status=%s publish calls=%d", rec.Status, pub.calls)
	}
}

func TestPublishExisting(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	pub := &fakePublisher{results: map[string]types.PublishResult{"A": {Success: true}}}
	o := newOrchestrator(st, Options{Publisher: pub})

	if _, err := o.PublishExisting(ctx, "missing"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	ready, _ := o.Run(ctx)
	rec, err := o.PublishExisting(ctx, ready.ID)
	if err != nil || rec.Status != types.StatusUploaded {
		t.Fatalf("publish ready: status=%v err=%v", rec.Status, err)
	}
	if _, err := o.PublishExisting(ctx, ready.ID); !errors.Is(err, ErrNotPublishable) {
		t.Fatalf("republish uploaded: expected ErrNotPublishable, got %v", err)
	}
}

func TestPublishStaleOnlyTouchesOldReadyRecords(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	pub := &fakePublisher{results: map[string]types.PublishResult{"A": {Error: "down"}}}
	o := newOrchestrator(st, Options{Publisher: pub})

	if _, err := o.Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}
	n, err := o.PublishStale(ctx, time.Hour)
	if err != nil || n != 0 {
		t.Fatalf("fresh record retried: n=%d err=%v", n, err)
	}

	o.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	n, err = o.PublishStale(ctx, time.Hour)
	if err != nil || n != 1 || pub.calls != 1 {
		t.Fatalf("n=%d calls=%d err=%v", n, pub.calls, err)
	}
}

func TestPublishStaleSkipsPlatformsThatAlreadySucceeded(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	pub := &fakePublisher{results: map[string]types.PublishResult{
		"youtube":  {Success: true, Reference: "yt-1"},
		"facebook": {Error: "token expired"},
	}}
	o := newOrchestrator(st, Options{Publisher: pub})

	rec, err := o.RunAndPublish(ctx)
	if err != nil || rec.Status != types.StatusReady {
		t.Fatalf("RunAndPublish: status=%s err=%v", rec.Status, err)
	}

	for i := 1; i <= 2; i++ {
		shift := time.Duration(i) * 7 * time.Hour
		o.now = func() time.Time { return time.Now().Add(shift) }
		if n, err := o.PublishStale(ctx, 6*time.Hour); err != nil || n != 1 {
			t.Fatalf("retry %d: n=%d err=%v", i, n, err)
		}
	}

	if pub.uploads["youtube"] != 1 {
		t.Fatalf("youtube uploaded %d times, want 1", pub.uploads["youtube"])
	}
	if pub.uploads["facebook"] != 3 {
		t.Fatalf("facebook attempted %d times, want 3", pub.uploads["facebook"])
	}
	stored, _ := st.GetByID(ctx, rec.ID)
	if r := stored.PublishResults["youtube"]; !r.Success || r.Reference != "yt-1" {
		t.Fatalf("earlier youtube result lost: %+v", r)
	}
	if stored.PublishResults["facebook"].Error != "token expired" {
		t.Fatalf("facebook result = %+v", stored.PublishResults["facebook"])
	}
}

func TestPublishRetryCompletesUpload(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	pub := &fakePublisher{results: map[string]types.PublishResult{
		"youtube":  {Success: true, Reference: "yt-1"},
		"facebook": {Error: "token expired"},
	}}
	o := newOrchestrator(st, Options{Publisher: pub})
	rec, _ := o.RunAndPublish(ctx)

	pub.results["facebook"] = types.PublishResult{Success: true, Reference: "fb-1"}
	rec, err := o.PublishExisting(ctx, rec.ID)
	if err != nil || rec.Status != types.StatusUploaded {
		t.Fatalf("status=%s err=%v", rec.Status, err)
	}
	if pub.uploads["youtube"] != 1 || pub.uploads["facebook"] != 2 {
		t.Fatalf("uploads = %v", pub.uploads)
	}
}

func TestPublishSlowPlatformDoesNotStarveTheNext(t *testing.T) {
	pub := &fakePublisher{
		results: map[string]types.PublishResult{"A": {Success: true}, "B": {Success: true}},
		order:   []string{"A", "B"},
		delays:  map[string]time.Duration{"A": 300 * time.Millisecond, "B": 200 * time.Millisecond},
		timeout: 400 * time.Millisecond,
	}
	o := newOrchestrator(store.NewMemoryStore(), Options{
		Publisher: pub,
		Timeouts:  Timeouts{Publish: 400 * time.Millisecond},
	})
	rec, err := o.RunAndPublish(context.Background())
	if err != nil {
		t.Fatalf("RunAndPublish: %v", err)
	}
	if !rec.PublishResults["B"].Success {
		t.Fatalf("B failed within its own budget: %+v", rec.PublishResults["B"])
	}
	if rec.Status != types.StatusUploaded {
		t.Fatalf("status = %s", rec.Status)
	}
}

func TestNewFillsMissingTimeouts(t *testing.T) {
	o := newOrchestrator(store.NewMemoryStore(), Options{Timeouts: Timeouts{Story: time.Second, Narration: -1}})
	want := DefaultTimeouts()
	if o.timeouts.Story != time.Second {
		t.Fatalf("configured story timeout replaced: %s", o.timeouts.Story)
	}
	if o.timeouts.Narration != want.Narration || o.timeouts.Assembly != want.Assembly || o.timeouts.Publish != want.Publish {
		t.Fatalf("timeouts = %+v", o.timeouts)
	}
}

func TestErrorCode(t *testing.T) {
	cases := map[error]string{
		fmt.Errorf("x: %w", script.ErrGenerationUnavailable): CodeGenerationUnavailable,
		fmt.Errorf("x: %w", store.ErrStore):                  CodeStoreError,
		errors.New("other"):                                   "",
	}
	for err, want := range cases {
		if got := ErrorCode(err); got != want {
			t.Fatalf("ErrorCode(%v) = %q, want %q", err, got, want)
		}
	}
}
