package handlers

import (
	"net/http"

	"story-shorts/internal/types"
)

func (a *App) Stats(w http.ResponseWriter, r *http.Request) {
	items, err := a.Store.List(r.Context())
	if err != nil {
		a.fail(w, r, err)
		return
	}
	uploaded := 0
	for _, rec := range items {
		if rec.Status == types.StatusUploaded {
			uploaded++
		}
	}
	st := a.Scheduler.Status()
	a.json(w, http.StatusOK, map[string]any{
		"totalVideos":       len(items),
		"successfulUploads": uploaded,
		"schedule":          st.Schedule,
		"timezone":          st.Timezone,
		"runsPerDay":        st.RunsPerDay,
		"nextRun":           st.NextFireTime,
		"schedulerRunning":  st.Running,
	})
}
