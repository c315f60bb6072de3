package server

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"lucky-seven/internal/cards"
	"lucky-seven/internal/ledger"
)

type wsMessage struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

type intentMessage struct {
	Type    string `json:"type"`
	Account string `json:"account,omitempty"`
	BetType string `json:"bet_type,omitempty"`
	Stake   int64  `json:"stake,omitempty"`
	Locked  bool   `json:"locked,omitempty"`
}

// wsHub tracks live connections by handle. Writes go through the hub
// mutex because timer broadcasts and reader-goroutine replies would
// otherwise interleave on the same conn.
type wsHub struct {
	mu    sync.Mutex
	conns map[string]*websocket.Conn
}

func newWSHub() *wsHub {
	return &wsHub{conns: make(map[string]*websocket.Conn)}
}

func (h *wsHub) Add(handle string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.conns[handle] = conn
}

func (h *wsHub) Remove(handle string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if conn, ok := h.conns[handle]; ok {
		_ = conn.Close()
		delete(h.conns, handle)
	}
}

func (h *wsHub) Send(handle string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	conn, ok := h.conns[handle]
	if !ok {
		return
	}
	_ = conn.WriteMessage(websocket.TextMessage, data)
}

func (h *wsHub) Broadcast(payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for handle, conn := range h.conns {
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			_ = conn.Close()
			delete(h.conns, handle)
		}
	}
}

func (s *Server) handleWebsocket(w http.ResponseWriter, r *http.Request) {
	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			return true
		},
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	handle := uuid.NewString()
	log.Printf("ws connected handle=%s remote=%s", handle, r.RemoteAddr)
	s.hub.Add(handle, conn)
	s.table.Connect(handle)
	s.Send(handle, evtRoundState, s.table.Snapshot(handle))
	go s.readWS(handle, conn)
}

func (s *Server) readWS(handle string, conn *websocket.Conn) {
	defer func() {
		s.table.Disconnect(context.Background(), handle)
		s.hub.Remove(handle)
	}()
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			log.Printf("ws disconnected handle=%s error=%v", handle, err)
			return
		}
		var intent intentMessage
		if err := json.Unmarshal(data, &intent); err != nil {
			s.Send(handle, evtBetError, map[string]any{"error": "malformed intent"})
			continue
		}
		if intent.Type == intentLeave {
			return
		}
		s.dispatch(handle, intent)
	}
}

func (s *Server) dispatch(handle string, intent intentMessage) {
	ctx := context.Background()
	var err error
	switch intent.Type {
	case intentAuthenticate:
		if intent.Account == "" {
			err = errors.New("account is required")
			break
		}
		err = s.table.Authenticate(ctx, handle, intent.Account)
	case intentPlaceBet:
		_, err = s.table.PlaceBet(ctx, handle, cards.BetType(intent.BetType), intent.Stake)
	case intentLockBet:
		err = s.table.LockBets(handle)
	case intentCancelBet:
		err = s.table.CancelBets(ctx, handle, intent.Locked)
	case intentRepeatBet:
		err = s.table.RepeatBets(ctx, handle)
	default:
		err = errors.New("unknown intent")
	}
	if err != nil {
		s.Send(handle, evtBetError, map[string]any{
			"intent": intent.Type,
			"error":  errorMessage(err),
		})
	}
}

func errorMessage(err error) string {
	if errors.Is(err, ledger.ErrInsufficientFunds) {
		return "insufficient funds"
	}
	return err.Error()
}
