package server

import (
	"errors"
	"log"
	"net/http"

	"lucky-seven/internal/cards"
)

type overrideRequest struct {
	RoundID  string `json:"round_id"`
	Category string `json:"category"`
}

// requireAdmin gates the privileged surface behind the configured
// bearer token. With no token configured the surface is disabled.
func (s *Server) requireAdmin(w http.ResponseWriter, r *http.Request) bool {
	if s.cfg.AdminToken == "" {
		writeError(w, http.StatusForbidden, "admin surface disabled")
		return false
	}
	if r.Header.Get("Authorization") != "Bearer "+s.cfg.AdminToken {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return false
	}
	return true
}

func (s *Server) handleAdminRound(w http.ResponseWriter, r *http.Request) {
	if !s.requireAdmin(w, r) {
		return
	}
	writeJSON(w, http.StatusOK, s.table.AdminSnapshot())
}

func (s *Server) handleAdminOverride(w http.ResponseWriter, r *http.Request) {
	if !s.requireAdmin(w, r) {
		return
	}
	var req overrideRequest
	if err := readJSON(r.Body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request")
		return
	}
	if err := s.table.SetOverride(req.RoundID, cards.Category(req.Category)); err != nil {
		status := http.StatusConflict
		if errors.Is(err, ErrInvalidCategory) {
			status = http.StatusBadRequest
		}
		writeError(w, status, err.Error())
		return
	}
	log.Printf("admin override round_id=%s category=%s", req.RoundID, req.Category)
	writeJSON(w, http.StatusOK, map[string]string{"status": "override set"})
}

func (s *Server) handleAdminStats(w http.ResponseWriter, r *http.Request) {
	if !s.requireAdmin(w, r) {
		return
	}
	stats := s.table.Stats()
	writeJSON(w, http.StatusOK, map[string]any{
		"rounds":       stats.Rounds,
		"wagered":      stats.Wagered,
		"paid_out":     stats.PaidOut,
		"profit":       stats.Profit,
		"edge_percent": stats.EdgePercent(),
	})
}
