package httpapi

import "net/http"

// handlePerfCommands reports per-verb command latency and outcomes plus
// store write health, read back from the prometheus collectors.
func (s *Server) handlePerfCommands(w http.ResponseWriter, _ *http.Request) {
	if s.metrics == nil {
		respondJSON(w, http.StatusOK, map[string]any{
			"commands":     []any{},
			"store_writes": []any{},
		})
		return
	}
	respondJSON(w, http.StatusOK, s.metrics.Report())
}
