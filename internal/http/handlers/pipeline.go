package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"story-shorts/internal/types"
)

type runRequest struct {
	Publish bool `json:"publish"`
}

// RunPipeline runs one pipeline attempt and returns the resulting record,
// which may be failed. The run outlives a client disconnect.
func (a *App) RunPipeline(w http.ResponseWriter, r *http.Request) {
	var req runRequest
	if err := decodeOptional(r, &req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "body must be {\"publish\": bool}")
		return
	}

	a.holdOpen(w)
	var rec *types.ContentRecord
	ctx := context.WithoutCancel(r.Context())
	err := a.Scheduler.Do(ctx, func(ctx context.Context) error {
		var err error
		if req.Publish {
			rec, err = a.Pipeline.RunAndPublish(ctx)
		} else {
			rec, err = a.Pipeline.Run(ctx)
		}
		return err
	})
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, rec)
}

// PublishContent publishes an existing ready record.
func (a *App) PublishContent(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	a.holdOpen(w)

	var rec *types.ContentRecord
	ctx := context.WithoutCancel(r.Context())
	err := a.Scheduler.Do(ctx, func(ctx context.Context) error {
		var err error
		rec, err = a.Pipeline.PublishExisting(ctx, id)
		return err
	})
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, rec)
}
