package gateway

import (
	"encoding/json"
	"net/http"
)

type healthResponse struct {
	Status   string `json:"status"`
	Sessions int    `json:"sessions"`
	Tools    int    `json:"tools"`
	Version  string `json:"version"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	count := s.sessions.Count()
	s.metrics.SetActiveSessions(count)
	resp := healthResponse{
		Status:   "ok",
		Sessions: count,
		Tools:    len(s.catalog.List()),
		Version:  Version,
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

type statsResponse struct {
	ActiveSessions   int `json:"activeSessions"`
	AggregatedTools  int `json:"aggregatedTools"`
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	resp := statsResponse{
		ActiveSessions:  s.sessions.Count(),
		AggregatedTools: len(s.catalog.List()),
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}
