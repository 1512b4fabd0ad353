package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"shop-insights/internal/infrastructure/pubsub"
)

const defaultHeartbeat = 30 * time.Second

// ingestEvents streams the tenant's ingestion runs as server-sent events
func (h *handlers) ingestEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "streaming unsupported"})
		return
	}

	tenantID := tenantFrom(r.Context())
	channel := h.runs.Subscribe(r.Context(), pubsub.RunFilter{TenantID: tenantID})
	defer h.runs.Unsubscribe(channel.ID)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	fmt.Fprintf(w, "event: connected\ndata: {\"channelId\":%q}\n\n", channel.ID)
	flusher.Flush()

	h.logger.Debug().Str("channelId", channel.ID).Uint("tenant", uint(tenantID)).Msg("Event stream opened")

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case run, ok := <-channel.Events:
			if !ok {
				return
			}
			data, err := json.Marshal(run)
			if err != nil {
				h.logger.Error().Err(err).Str("run", run.ID).Msg("Failed to encode run event")
				continue
			}
			fmt.Fprintf(w, "event: run\nid: %s\ndata: %s\n\n", run.ID, data)
			flusher.Flush()
		case <-ticker.C:
			fmt.Fprint(w, ": heartbeat\n\n")
			flusher.Flush()
		}
	}
}
