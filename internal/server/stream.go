package server

import (
	"encoding/json"
	"fmt"
	"net/http"

	"credit-assessment/internal/models"
)

// handleAssessStream relays progress events as server-sent events, one
// "data: <json>" frame per event. A client that disconnects cancels the run.
func (s *Server) handleAssessStream(w http.ResponseWriter, r *http.Request) {
	var req models.AssessmentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "streaming not supported", ErrorCode: "SYSTEM_FAILURE"})
		return
	}

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	events := 0
	for ev := range s.svc.AssessStreaming(r.Context(), req) {
		data, err := json.Marshal(ev)
		if err != nil {
			s.logger.Error("encode progress event", map[string]interface{}{"error": err.Error()})
			return
		}
		if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
			s.logger.Warn("stream client went away", map[string]interface{}{"events": events})
			return
		}
		flusher.Flush()
		events++
	}
}
