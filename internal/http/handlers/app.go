// Package handlers implements the HTTP API over the pipeline, scheduler and store.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/renderer/html"

	"story-shorts/internal/pipeline"
	"story-shorts/internal/scheduler"
	"story-shorts/internal/store"
	"story-shorts/internal/types"
)

// Pipeline is the orchestrator surface the API drives.
type Pipeline interface {
	Run(ctx context.Context) (*types.ContentRecord, error)
	RunAndPublish(ctx context.Context) (*types.ContentRecord, error)
	PublishExisting(ctx context.Context, id string) (*types.ContentRecord, error)
}

// Scheduler is the recurring trigger and single-flight guard.
type Scheduler interface {
	Start(spec, timezone string) (bool, error)
	Status() scheduler.Status
	Do(ctx context.Context, fn scheduler.Job) error
}

// Media serves and removes stored artifacts.
type Media interface {
	Open(key string) (*os.File, error)
	Remove(key string) error
}

type App struct {
	Store     store.Store
	Pipeline  Pipeline
	Scheduler Scheduler
	Media     Media
	Logger    zerolog.Logger

	markdown goldmark.Markdown
}

func NewApp(st store.Store, p Pipeline, s Scheduler, media Media, logger zerolog.Logger) *App {
	return &App{
		Store:     st,
		Pipeline:  p,
		Scheduler: s,
		Media:     media,
		Logger:    logger,
		markdown:  goldmark.New(goldmark.WithRendererOptions(html.WithHardWraps())),
	}
}

type errorBody struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, status int, code, msg string) {
	var body errorBody
	body.Error.Code = code
	body.Error.Message = msg
	a.json(w, status, body)
}

// fail maps err to a status and stable code. Unknown errors become 500
// with a generic message; the detail is logged, not returned.
func (a *App) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, code, msg := errorCode(err)
	if status >= http.StatusInternalServerError {
		a.Logger.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
	}
	a.error(w, status, code, msg)
}

func errorCode(err error) (int, string, string) {
	switch {
	case errors.Is(err, scheduler.ErrAlreadyRunning):
		return http.StatusConflict, "already_running", "a pipeline run is already in progress"
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound, "not_found", "content not found"
	case errors.Is(err, pipeline.ErrNotPublishable):
		return http.StatusConflict, "not_publishable", "only ready content can be published"
	case errors.Is(err, store.ErrInvalidTransition):
		return http.StatusConflict, "invalid_transition", "content cannot move to that status"
	case errors.Is(err, store.ErrStore):
		return http.StatusInternalServerError, "store_error", "content store unavailable"
	}
	return http.StatusInternalServerError, "internal", "internal error"
}

// holdOpen clears the server write deadline so a response that waits on a
// full pipeline run, or streams a large file, is still delivered.
func (a *App) holdOpen(w http.ResponseWriter) {
	err := http.NewResponseController(w).SetWriteDeadline(time.Time{})
	if err != nil && !errors.Is(err, http.ErrNotSupported) {
		a.Logger.Warn().Err(err).Msg("could not clear write deadline")
	}
}

func decodeOptional(r *http.Request, v any) error {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}
	err := json.NewDecoder(io.LimitReader(r.Body, 1<<16)).Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}
