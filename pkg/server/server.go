// Package server exposes a dispatcher over HTTP and websockets.
// 이 패키지는 배차기를 HTTP API와 WebSocket 이벤트 스트림으로 노출합니다.
package server

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"io/fs"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"elevator-dispatch/pkg/elevator"
)

//go:embed static/*
var staticFiles embed.FS

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for development
	},
}

// RequestBody is the payload of POST /request.
type RequestBody struct {
	Source elevator.Source `json:"source"`
	Button elevator.Button `json:"button"`
}

// PassengerBody is the payload of POST /passengers.
type PassengerBody struct {
	Origin      int      `json:"origin"`
	Destination int      `json:"destination"`
	Weight      *float64 `json:"weight,omitempty"`
	Cargo       *float64 `json:"cargo,omitempty"`
}

type errorBody struct {
	Error string `json:"error"`
}

// Server serves one dispatcher to any number of clients.
type Server struct {
	dispatcher *elevator.Dispatcher
	logger     zerolog.Logger

	mu       sync.Mutex
	sessions map[*Session]struct{}
}

// New creates a server for d.
func New(d *elevator.Dispatcher, logger zerolog.Logger) *Server {
	return &Server{
		dispatcher: d,
		logger:     logger,
		sessions:   make(map[*Session]struct{}),
	}
}

// Handler returns the HTTP routes.
func (s *Server) Handler() http.Handler {
	staticFS, err := fs.Sub(staticFiles, "static")
	if err != nil {
		panic(err) // embedded at build time
	}

	mux := http.NewServeMux()
	mux.Handle("GET /", http.FileServer(http.FS(staticFS)))
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /state", s.handleState)
	mux.HandleFunc("POST /request", s.handleRequest)
	mux.HandleFunc("POST /passengers", s.handlePassenger)
	mux.HandleFunc("POST /tick", s.handleTick)
	mux.HandleFunc("GET /ws", s.handleWebSocket)
	return mux
}

// Broadcast forwards dispatcher events to every websocket session until ctx is done.
// It must be the only reader of the dispatcher's event channel.
// Broadcast는 배차기 이벤트를 모든 WebSocket 세션으로 전달합니다.
func (s *Server) Broadcast(ctx context.Context) {
	events := s.dispatcher.Events()
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			state := s.dispatcher.Snapshot()
			for _, session := range s.activeSessions() {
				session.sendEvent(event)
				session.sendSnapshot(state)
			}
		}
	}
}

func (s *Server) register(session *Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session] = struct{}{}
}

func (s *Server) unregister(session *Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, session)
}

func (s *Server) activeSessions() []*Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Session, 0, len(s.sessions))
	for session := range s.sessions {
		out = append(out, session)
	}
	return out
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": "Elevator is Online"})
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.dispatcher.Snapshot())
}

func (s *Server) handleRequest(w http.ResponseWriter, r *http.Request) {
	var body RequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.logger.Warn().Err(err).Msg("Failed to parse request")
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
		return
	}
	if err := s.dispatcher.Request(body.Source, body.Button); err != nil {
		writeJSON(w, statusFor(err), errorBody{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusAccepted, s.dispatcher.Snapshot())
}

func (s *Server) handlePassenger(w http.ResponseWriter, r *http.Request) {
	var body PassengerBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.logger.Warn().Err(err).Msg("Failed to parse passenger")
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
		return
	}
	p, err := s.dispatcher.AddPassenger(body.Origin, body.Destination, body.Weight, body.Cargo)
	if err != nil {
		writeJSON(w, statusFor(err), errorBody{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (s *Server) handleTick(w http.ResponseWriter, r *http.Request) {
	s.dispatcher.Tick()
	writeJSON(w, http.StatusOK, s.dispatcher.Snapshot())
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}

	session := newSession(conn, s.dispatcher, s.logger)
	s.register(session)
	defer s.unregister(session)
	session.HandleMessages()
}

func statusFor(err error) int {
	if errors.Is(err, elevator.ErrInvalidFloor) || errors.Is(err, elevator.ErrInvalidRequest) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
