package controller

import (
	"net/http"
)

// HandleHealth reports the health of the store and the optional Redis
// backend. The service is considered up as long as the control-plane store
// answers; a missing Redis only degrades delivery to synchronous writes.
func (c *Controller) HandleHealth(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	body := map[string]any{"status": "ok"}

	if err := c.App.Store.Health(ctx); err != nil {
		body["status"] = "degraded"
		body["store"] = err.Error()
		writeJSON(w, http.StatusServiceUnavailable, body)
		return
	}
	body["store"] = "ok"

	if c.App.RedisClient != nil {
		if err := c.App.RedisClient.Health(ctx); err != nil {
			body["redis"] = err.Error()
		} else {
			body["redis"] = "ok"
		}
	} else {
		body["redis"] = "disabled"
	}

	if stats := c.App.Workers.Stats(); stats != nil {
		body["workers"] = stats
	}

	writeJSON(w, http.StatusOK, body)
}
