package handlers

import (
	"bytes"
	"fmt"
	"html/template"
	"net/http"

	"github.com/go-chi/chi/v5"

	"story-shorts/internal/types"
)

func (a *App) ListContent(w http.ResponseWriter, r *http.Request) {
	items, err := a.Store.List(r.Context())
	if err != nil {
		a.fail(w, r, err)
		return
	}
	if items == nil {
		items = []*types.ContentRecord{}
	}
	a.json(w, http.StatusOK, map[string]any{"items": items})
}

func (a *App) GetContent(w http.ResponseWriter, r *http.Request) {
	rec, err := a.Store.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, rec)
}

// DeleteContent removes the record and, best effort, its media.
func (a *App) DeleteContent(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	rec, err := a.Store.GetByID(r.Context(), id)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	if err := a.Store.Delete(r.Context(), id); err != nil {
		a.fail(w, r, err)
		return
	}
	for _, key := range []string{rec.AudioURL, rec.VideoURL} {
		if key == "" {
			continue
		}
		if err := a.Media.Remove(key); err != nil {
			a.Logger.Warn().Err(err).Str("content_id", id).Str("key", key).Msg("media not removed")
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

// DownloadContent streams the video as an attachment named after the id.
func (a *App) DownloadContent(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	rec, err := a.Store.GetByID(r.Context(), id)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	if rec.VideoURL == "" {
		a.error(w, http.StatusNotFound, "video_not_found", "content has no video yet")
		return
	}
	f, err := a.Media.Open(rec.VideoURL)
	if err != nil {
		a.Logger.Warn().Err(err).Str("content_id", id).Msg("video missing from media store")
		a.error(w, http.StatusNotFound, "video_not_found", "video file not found")
		return
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		a.fail(w, r, err)
		return
	}

	a.holdOpen(w)
	w.Header().Set("Content-Type", "video/mp4")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="story-%s.mp4"`, id))
	http.ServeContent(w, r, info.Name(), info.ModTime(), f)
}

var storyPage = template.Must(template.New("story").Parse(`<!doctype html>
<html lang="en">
<head><meta charset="utf-8"><title>{{.Title}}</title></head>
<body>
<article>
<h1>{{.Title}}</h1>
<p><em>{{.Niche}}</em></p>
{{.Body}}
</article>
</body>
</html>
`))

// StoryPage renders the full story as HTML. Raw HTML in the story is left
// out by the markdown renderer.
func (a *App) StoryPage(w http.ResponseWriter, r *http.Request) {
	rec, err := a.Store.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	var body bytes.Buffer
	if err := a.markdown.Convert([]byte(rec.FullStory), &body); err != nil {
		a.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_ = storyPage.Execute(w, map[string]any{
		"Title": rec.Title,
		"Niche": rec.Niche,
		"Body":  template.HTML(body.String()),
	})
}
