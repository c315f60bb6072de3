package server

import (
	"context"
	"math/rand"
	"net/http"
	"time"

	"gorm.io/gorm"

	"lucky-seven/internal/config"
	"lucky-seven/internal/ledger"
)

type Server struct {
	cfg    config.Config
	gw     ledger.Gateway
	table  *Table
	hub    *wsHub
}

// New wires the table against the Postgres ledger when a connection is
// supplied and falls back to the in-memory gateway otherwise.
func New(conn *gorm.DB, cfg config.Config) *Server {
	var gw ledger.Gateway
	if conn != nil {
		gw = ledger.NewStore(conn)
	} else {
		gw = ledger.NewMem()
	}
	return NewWith(gw, newTimerScheduler(), rand.New(rand.NewSource(time.Now().UnixNano())), cfg)
}

// NewWith injects the gateway, scheduler and randomness source; tests
// use it to run rounds on a virtual clock.
func NewWith(gw ledger.Gateway, sched Scheduler, rng *rand.Rand, cfg config.Config) *Server {
	s := &Server{
		cfg: cfg,
		gw:  gw,
		hub: newWSHub(),
	}
	s.table = NewTable(cfg, gw, sched, s, rng)
	return s
}

// Start kicks off the continuous round cycle.
func (s *Server) Start() {
	s.table.Start(context.Background())
}

// Table exposes the round engine, mostly for tests.
func (s *Server) Table() *Table {
	return s.table
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /ws/table", s.handleWebsocket)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /admin/round", s.handleAdminRound)
	mux.HandleFunc("POST /admin/override", s.handleAdminOverride)
	mux.HandleFunc("GET /admin/stats", s.handleAdminStats)
	return mux
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Broadcast implements Publisher over the websocket hub.
func (s *Server) Broadcast(event string, payload any) {
	s.hub.Broadcast(wsMessage{Type: event, Data: payload})
}

// Send implements Publisher for a single connection.
func (s *Server) Send(handle, event string, payload any) {
	s.hub.Send(handle, wsMessage{Type: event, Data: payload})
}
