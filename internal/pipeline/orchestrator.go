// Package pipeline runs one content generation attempt from story to
// published video and records every step on the content record.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"story-shorts/internal/audio"
	"story-shorts/internal/render"
	"story-shorts/internal/script"
	"story-shorts/internal/store"
	"story-shorts/internal/types"
)

// ErrNotPublishable is returned when a record is not in the ready state.
var ErrNotPublishable = errors.New("pipeline: record is not publishable")

// Error codes stored on failed records and returned by the HTTP API.
const (
	CodeGenerationUnavailable = "generation_unavailable"
	CodeSynthesisUnavailable  = "synthesis_unavailable"
	CodeAssemblyFailed        = "assembly_failed"
	CodeStoreError            = "store_error"
	CodeStageTimeout          = "stage_timeout"
)

// Progress milestones.
const (
	progressCreated   = 5
	progressStory     = 20
	progressNarration = 40
	progressImages    = 60
	progressAssembled = 85
	progressDone      = 100
)

const (
	excerptWords = 700
	cliffhanger  = "\n\nThe story continues with incredible twists and turns that will leave you breathless. Click the link in the description to get the full story and discover what happens next!"
)

// persistTimeout bounds store writes that must land even after the run context ends.
const persistTimeout = 10 * time.Second

type StoryGenerator interface {
	GenerateStory(ctx context.Context) (types.Story, string, error)
}

type Narrator interface {
	Synthesize(ctx context.Context, contentID, text string) (string, string, error)
}

type ImageSource interface {
	SourceImages(ctx context.Context, keywords []string) ([]types.Image, string)
}

type Assembler interface {
	Assemble(ctx context.Context, in render.AssembleInput) (string, error)
}

type Publisher interface {
	Publish(ctx context.Context, rec *types.ContentRecord, only []string) map[string]types.PublishResult
	Platforms() []string
}

// Timeouts bound each stage. Publish is the budget for one platform; the
// publish stage gets that budget once per platform it uploads to.
// Non-positive values fall back to DefaultTimeouts.
type Timeouts struct {
	Story     time.Duration
	Narration time.Duration
	Images    time.Duration
	Assembly  time.Duration
	Publish   time.Duration
}

// DefaultTimeouts are the stage bounds used when none are configured.
func DefaultTimeouts() Timeouts {
	return Timeouts{
		Story:     2 * time.Minute,
		Narration: 5 * time.Minute,
		Images:    time.Minute,
		Assembly:  15 * time.Minute,
		Publish:   15 * time.Minute,
	}
}

func (t Timeouts) withDefaults() Timeouts {
	d := DefaultTimeouts()
	for _, f := range []struct{ v, def *time.Duration }{
		{&t.Story, &d.Story},
		{&t.Narration, &d.Narration},
		{&t.Images, &d.Images},
		{&t.Assembly, &d.Assembly},
		{&t.Publish, &d.Publish},
	} {
		if *f.v <= 0 {
			*f.v = *f.def
		}
	}
	return t
}

// Options wires an Orchestrator.
type Options struct {
	Story     StoryGenerator
	Narrator  Narrator
	Images    ImageSource
	Assembler Assembler
	Publisher Publisher
	Store     store.Store
	Timeouts  Timeouts
	Logger    zerolog.Logger

	NewID func() string
	Now   func() time.Time
}

// Orchestrator drives the content record state machine.
type Orchestrator struct {
	story     StoryGenerator
	narrator  Narrator
	images    ImageSource
	assembler Assembler
	publisher Publisher
	store     store.Store
	timeouts  Timeouts
	logger    zerolog.Logger
	newID     func() string
	now       func() time.Time
}

func New(opts Options) *Orchestrator {
	o := &Orchestrator{
		story:     opts.Story,
		narrator:  opts.Narrator,
		images:    opts.Images,
		assembler: opts.Assembler,
		publisher: opts.Publisher,
		store:     opts.Store,
		timeouts:  opts.Timeouts.withDefaults(),
		logger:    opts.Logger,
		newID:     opts.NewID,
		now:       opts.Now,
	}
	if o.newID == nil {
		o.newID = func() string { return "content_" + uuid.NewString() }
	}
	if o.now == nil {
		o.now = time.Now
	}
	return o
}

// Excerpt returns the first 700 words of fullStory joined by single spaces,
// followed by the cliffhanger.
func Excerpt(fullStory string) string {
	words := strings.Fields(fullStory)
	if len(words) > excerptWords {
		words = words[:excerptWords]
	}
	return strings.Join(words, " ") + cliffhanger
}

// Run generates one video and leaves the record ready or failed. A failed
// stage is reported on the returned record, not as an error; the error is
// non-nil only when the record could not be persisted.
func (o *Orchestrator) Run(ctx context.Context) (*types.ContentRecord, error) {
	now := o.now().UTC()
	rec := &types.ContentRecord{
		ID:        o.newID(),
		Status:    types.StatusGenerating,
		Images:    []types.Image{},
		Tags:      []string{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	rec.SetProgress(progressCreated)
	log := o.logger.With().Str("content_id", rec.ID).Logger()

	if err := o.store.Create(ctx, rec); err != nil {
		rec.Status = types.StatusFailed
		rec.Error = "persist placeholder: " + err.Error()
		rec.ErrorCode = CodeStoreError
		log.Error().Err(err).Msg("could not persist placeholder record")
		return rec, fmt.Errorf("create record: %w", err)
	}
	log.Info().Msg("run started")

	// story
	var story types.Story
	err := o.stage(ctx, "story", o.timeouts.Story, func(ctx context.Context) error {
		s, provider, err := o.story.GenerateStory(ctx)
		if err != nil {
			return err
		}
		story = s
		rec.SetProvider("story", provider)
		return nil
	})
	if err != nil {
		return o.fail(ctx, rec, CodeGenerationUnavailable, err)
	}
	rec.Title = story.Title
	rec.Niche = story.Niche
	rec.FullStory = story.FullStory
	rec.Excerpt = Excerpt(story.FullStory)
	if story.Tags != nil {
		rec.Tags = story.Tags
	}
	rec.SetProgress(progressStory)
	o.checkpoint(ctx, rec)

	// narration
	err = o.stage(ctx, "narration", o.timeouts.Narration, func(ctx context.Context) error {
		key, provider, err := o.narrator.Synthesize(ctx, rec.ID, rec.Excerpt)
		if err != nil {
			return err
		}
		rec.AudioURL = key
		rec.SetProvider("narration", provider)
		return nil
	})
	if err != nil {
		return o.fail(ctx, rec, CodeSynthesisUnavailable, err)
	}
	rec.SetProgress(progressNarration)
	o.checkpoint(ctx, rec)

	// images never fail; a timeout degrades to whatever the source returns.
	_ = o.stage(ctx, "images", o.timeouts.Images, func(ctx context.Context) error {
		images, provider := o.images.SourceImages(ctx, story.Keywords)
		if len(images) > types.MaxImages {
			images = images[:types.MaxImages]
		}
		rec.Images = images
		rec.SetProvider("images", provider)
		return nil
	})
	rec.SetProgress(progressImages)
	o.checkpoint(ctx, rec)

	// assembly
	err = o.stage(ctx, "assembly", o.timeouts.Assembly, func(ctx context.Context) error {
		key, err := o.assembler.Assemble(ctx, render.AssembleInput{
			ContentID: rec.ID,
			AudioKey:  rec.AudioURL,
			Title:     rec.Title,
			Images:    rec.Images,
		})
		if err != nil {
			return err
		}
		rec.VideoURL = key
		return nil
	})
	if err != nil {
		return o.fail(ctx, rec, CodeAssemblyFailed, err)
	}
	rec.SetProgress(progressAssembled)

	rec.Status = types.StatusReady
	rec.SetProgress(progressDone)
	if err := o.persist(ctx, rec); err != nil {
		log.Error().Err(err).Msg("could not persist ready record")
		rec.Status = types.StatusFailed
		rec.Error = "persist ready record: " + err.Error()
		rec.ErrorCode = CodeStoreError
		return rec, fmt.Errorf("persist ready record: %w", err)
	}
	log.Info().Str("video", rec.VideoURL).Str("title", rec.Title).Msg("content ready")
	return rec, nil
}

// RunAndPublish runs the pipeline and publishes the result when it is ready.
// Scheduled and manual runs both go through here.
func (o *Orchestrator) RunAndPublish(ctx context.Context) (*types.ContentRecord, error) {
	rec, err := o.Run(ctx)
	if err != nil || rec.Status != types.StatusReady {
		return rec, err
	}
	return o.publish(ctx, rec)
}

// PublishExisting publishes a stored ready record.
func (o *Orchestrator) PublishExisting(ctx context.Context, id string) (*types.ContentRecord, error) {
	rec, err := o.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if rec.Status != types.StatusReady {
		return rec, fmt.Errorf("%w: %s is %s", ErrNotPublishable, id, rec.Status)
	}
	return o.publish(ctx, rec)
}

// PublishStale retries publishing ready records untouched for at least
// olderThan and returns how many were attempted.
func (o *Orchestrator) PublishStale(ctx context.Context, olderThan time.Duration) (int, error) {
	records, err := o.store.List(ctx)
	if err != nil {
		return 0, err
	}
	cutoff := o.now().Add(-olderThan)
	attempted := 0
	for _, rec := range records {
		if rec.Status != types.StatusReady || rec.UpdatedAt.After(cutoff) {
			continue
		}
		if err := ctx.Err(); err != nil {
			return attempted, err
		}
		attempted++
		if _, err := o.publish(ctx, rec); err != nil {
			return attempted, err
		}
	}
	return attempted, nil
}

// publish uploads to every configured platform that has not already
// succeeded for rec and merges the results. The record moves to uploaded
// only when every configured platform has succeeded; otherwise it stays ready.
func (o *Orchestrator) publish(ctx context.Context, rec *types.ContentRecord) (*types.ContentRecord, error) {
	log := o.logger.With().Str("content_id", rec.ID).Str("stage", "publish").Logger()

	platforms := o.publisher.Platforms()
	var pending []string
	for _, name := range platforms {
		if !rec.PublishResults[name].Success {
			pending = append(pending, name)
		}
	}

	if len(pending) > 0 {
		var results map[string]types.PublishResult
		budget := o.timeouts.Publish * time.Duration(len(pending))
		_ = o.stage(ctx, "publish", budget, func(ctx context.Context) error {
			results = o.publisher.Publish(ctx, rec, pending)
			return nil
		})
		if rec.PublishResults == nil {
			rec.PublishResults = make(map[string]types.PublishResult, len(results))
		}
		for name, r := range results {
			rec.PublishResults[name] = r
		}
	}

	succeeded := 0
	for _, name := range platforms {
		if rec.PublishResults[name].Success {
			succeeded++
		}
	}
	if len(platforms) > 0 && succeeded == len(platforms) && rec.Status.CanTransition(types.StatusUploaded) {
		rec.Status = types.StatusUploaded
	}
	log.Info().Int("attempted", len(pending)).Int("succeeded", succeeded).Int("platforms", len(platforms)).Str("status", string(rec.Status)).Msg("publish finished")

	if err := o.persist(ctx, rec); err != nil {
		log.Error().Err(err).Msg("could not persist publish results")
		return rec, fmt.Errorf("persist publish results: %w", err)
	}
	return rec, nil
}

// stage runs fn under the stage timeout and logs its outcome.
func (o *Orchestrator) stage(ctx context.Context, name string, timeout time.Duration, fn func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	start := o.now()
	err := fn(ctx)
	ev := o.logger.Debug()
	if err != nil {
		ev = o.logger.Warn().Err(err)
	}
	ev.Str("stage", name).Dur("elapsed", o.now().Sub(start)).Msg("stage finished")
	return err
}

// fail persists a failed record. Stage failures are data, so the error is
// returned only when the store rejects the write.
func (o *Orchestrator) fail(ctx context.Context, rec *types.ContentRecord, code string, cause error) (*types.ContentRecord, error) {
	switch {
	case errors.Is(cause, context.DeadlineExceeded) && ctx.Err() == nil:
		code = CodeStageTimeout
	case ErrorCode(cause) != "":
		code = ErrorCode(cause)
	}
	rec.Status = types.StatusFailed
	rec.Error = cause.Error()
	rec.ErrorCode = code
	rec.SetProgress(progressDone)

	o.logger.Error().Err(cause).Str("content_id", rec.ID).Str("code", code).Msg("run failed")
	if err := o.persist(ctx, rec); err != nil {
		return rec, fmt.Errorf("persist failed record: %w", err)
	}
	return rec, nil
}

// checkpoint persists intermediate progress. Failures are logged only; the
// terminal write decides the outcome.
func (o *Orchestrator) checkpoint(ctx context.Context, rec *types.ContentRecord) {
	if err := o.persist(ctx, rec); err != nil {
		o.logger.Warn().Err(err).Str("content_id", rec.ID).Int("progress", rec.Progress).Msg("checkpoint not persisted")
	}
}

func (o *Orchestrator) persist(ctx context.Context, rec *types.ContentRecord) error {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
	defer cancel()
	return o.store.Update(ctx, rec)
}

// ErrorCode maps a stage or store error to its stable code, or "" when the
// error is not one of ours.
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, script.ErrGenerationUnavailable):
		return CodeGenerationUnavailable
	case errors.Is(err, audio.ErrSynthesisUnavailable):
		return CodeSynthesisUnavailable
	case errors.Is(err, render.ErrAssemblyFailed):
		return CodeAssemblyFailed
	case errors.Is(err, store.ErrStore):
		return CodeStoreError
	}
	return ""
}
