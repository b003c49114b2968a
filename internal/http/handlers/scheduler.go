package handlers

import "net/http"

type startRequest struct {
	Schedule string `json:"schedule"`
	Timezone string `json:"timezone"`
}

func (a *App) StartScheduler(w http.ResponseWriter, r *http.Request) {
	var req startRequest
	if err := decodeOptional(r, &req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid body")
		return
	}
	started, err := a.Scheduler.Start(req.Schedule, req.Timezone)
	if err != nil {
		a.error(w, http.StatusBadRequest, "invalid_schedule", err.Error())
		return
	}
	msg := "scheduler started"
	if !started {
		msg = "scheduler already running"
	}
	a.json(w, http.StatusOK, map[string]any{
		"started": started,
		"message": msg,
		"status":  a.Scheduler.Status(),
	})
}

func (a *App) SchedulerStatus(w http.ResponseWriter, r *http.Request) {
	a.json(w, http.StatusOK, a.Scheduler.Status())
}
