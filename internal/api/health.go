package api

import (
	"context"
	"net/http"
	"time"
)

type healthResponse struct {
	Status    string         `json:"status"`
	Timestamp string         `json:"timestamp"`
	Services  healthServices `json:"services"`
	LastPoll  string         `json:"last_poll,omitempty"`
}

type healthServices struct {
	Database string `json:"database"`
	Cache    string `json:"cache"`
	Poller   string `json:"poller"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	resp := healthResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Services: healthServices{
			Database: pingStatus(ctx, s.deps.DB),
			Cache:    pingStatus(ctx, s.deps.Cache),
			Poller:   "disabled",
		},
	}
	if p := s.deps.Poller; p != nil {
		resp.Services.Poller = "stopped"
		if p.Running() {
			resp.Services.Poller = "running"
		}
		if last := p.LastSuccess(); !last.IsZero() {
			resp.LastPoll = last.UTC().Format(time.RFC3339)
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func pingStatus(ctx context.Context, p Pinger) string {
	if p == nil {
		return "disabled"
	}
	if err := p.Ping(ctx); err != nil {
		return "disconnected"
	}
	return "connected"
}
