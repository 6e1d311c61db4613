// Package server wires the HTTP surface: a health check, room
// creation, and the /ws upgrade mount.
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/inkrush/inkrush-backend/internal/domain"
	"github.com/inkrush/inkrush-backend/internal/store"
	"github.com/inkrush/inkrush-backend/internal/transport/ws"
)

type Server struct {
	store     *store.RoomStore
	wsHandler *ws.Handler
}

func New(rs *store.RoomStore, wsHandler *ws.Handler) *Server {
	return &Server{store: rs, wsHandler: wsHandler}
}

func (s *Server) RegisterRoutes() http.Handler {
	r := mux.NewRouter()
	r.Use(s.corsMiddleware)

	r.HandleFunc("/health", s.healthHandler).Methods(http.MethodGet, http.MethodOptions)
	r.HandleFunc("/rooms", s.createRoomHandler).Methods(http.MethodPost, http.MethodOptions)
	r.Handle("/ws", s.wsHandler)

	return r
}

// corsMiddleware allows any origin, matching this deployment's public CORS shape.
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Accept, Authorization, Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status := "ok"
	if err := s.store.Ping(ctx); err != nil {
		status = "degraded"
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": status, "time": time.Now().UTC().Format(time.RFC3339)})
}

type createRoomRequest struct {
	OwnerID      string      `json:"ownerId"`
	MaxPlayers   int         `json:"maxPlayers"`
	IsPublic     bool        `json:"isPublic"`
	GameMode     domain.GameMode `json:"gameMode"`
	Language     string      `json:"language"`
	Script       string      `json:"script"`
	Category     []string    `json:"category"`
	EntryPoints  int         `json:"entryPoints"`
	TargetPoints int         `json:"targetPoints"`
}

// createRoomHandler is the REST entry point that mints a room code
// before anyone has a websocket to join_room over — the pre-socket
// half of the protocol.
func (s *Server) createRoomHandler(w http.ResponseWriter, r *http.Request) {
	var req createRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.MaxPlayers <= 0 {
		req.MaxPlayers = 8
	}
	if req.GameMode == "" {
		req.GameMode = domain.ModeSolo
	}
	if req.Language == "" {
		req.Language = "english"
	}
	if req.Script == "" {
		req.Script = "roman"
	}

	room := &domain.Room{
		Code:         generateRoomCode(),
		OwnerID:      req.OwnerID,
		MaxPlayers:   req.MaxPlayers,
		IsPublic:     req.IsPublic,
		GameMode:     req.GameMode,
		Language:     req.Language,
		Script:       req.Script,
		Category:     req.Category,
		EntryPoints:  req.EntryPoints,
		TargetPoints: req.TargetPoints,
	}
	created, err := s.store.CreateRoom(r.Context(), room)
	if err != nil {
		http.Error(w, "failed to create room", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

const roomCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

func generateRoomCode() string {
	b := make([]byte, 5)
	for i := range b {
		b[i] = roomCodeAlphabet[cryptoRandIndex(len(roomCodeAlphabet))]
	}
	return string(b)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
