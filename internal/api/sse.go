package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/docpanel-ai/docpanel/internal/core"
	"github.com/docpanel-ai/docpanel/internal/events"
)

// handleEvents streams a session's progress events over Server-Sent Events.
// It sends an initial connected ack, then typed events as they happen, and a
// heartbeat whenever the stream has been quiet for a full interval.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	id := core.SessionID(chi.URLParam(r, "id"))

	ch, unsubscribe, err := s.controller.Subscribe(id)
	if err != nil {
		writeError(w, err)
		return
	}
	defer unsubscribe()

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "SSE not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	writeSSE(w, "connected", map[string]string{"session_id": string(id)})
	flusher.Flush()

	heartbeat := s.config.HeartbeatInterval
	if heartbeat <= 0 {
		heartbeat = 30 * time.Second
	}
	ticker := time.NewTicker(heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return

		case ev, open := <-ch:
			if !open {
				// Bus closed: session evicted or server shutting down.
				return
			}
			writeSSE(w, ev.EventType(), ev)
			flusher.Flush()
			ticker.Reset(heartbeat)

			// A done or failed event is the last thing a stream carries.
			switch ev.EventType() {
			case events.TypeAnalysisDone, events.TypeAnalysisFailed:
				return
			}

		case <-ticker.C:
			view, err := s.controller.Get(r.Context(), id)
			status := "unknown"
			if err == nil {
				status = string(view.Status)
			}
			writeSSE(w, events.TypeHeartbeat, events.NewHeartbeatEvent(string(id), status))
			flusher.Flush()
		}
	}
}

func writeSSE(w http.ResponseWriter, eventType string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", eventType, data)
}
