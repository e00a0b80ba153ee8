package server

import (
	"encoding/json"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"elevator-dispatch/pkg/elevator"
)

// ClientMessage is what a websocket client sends.
// 메시지 타입 정의
type ClientMessage struct {
	Action      string           `json:"action"`
	Source      *elevator.Source `json:"source,omitempty"`
	Button      *elevator.Button `json:"button,omitempty"`
	Origin      int              `json:"origin,omitempty"`
	Destination int              `json:"destination,omitempty"`
	Weight      *float64         `json:"weight,omitempty"`
	Cargo       *float64         `json:"cargo,omitempty"`
}

// ServerMessage is what the server pushes to websocket clients.
type ServerMessage struct {
	Type      string             `json:"type"`
	EventType string             `json:"eventType,omitempty"`
	Payload   any                `json:"payload,omitempty"`
	Timestamp string             `json:"timestamp,omitempty"`
	State     *elevator.Snapshot `json:"state,omitempty"`
	Error     string             `json:"error,omitempty"`
}

// Session manages one websocket connection.
// Session은 하나의 WebSocket 연결을 관리합니다.
type Session struct {
	conn       *websocket.Conn
	dispatcher *elevator.Dispatcher
	logger     zerolog.Logger
	mu         sync.Mutex // serialises writes
}

func newSession(conn *websocket.Conn, d *elevator.Dispatcher, logger zerolog.Logger) *Session {
	return &Session{
		conn:       conn,
		dispatcher: d,
		logger:     logger.With().Stringer("remote_addr", conn.RemoteAddr()).Logger(),
	}
}

// HandleMessages reads client messages until the connection closes.
func (s *Session) HandleMessages() {
	s.logger.Info().Msg("Session started")
	defer func() {
		_ = s.conn.Close()
		s.logger.Info().Msg("Session ended")
	}()

	s.sendState()

	for {
		_, message, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				s.logger.Error().Err(err).Msg("WebSocket read error")
			}
			return
		}

		var msg ClientMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			s.logger.Warn().Err(err).Msg("Failed to parse message")
			s.sendError(err)
			continue
		}

		s.handleAction(msg)
	}
}

func (s *Session) handleAction(msg ClientMessage) {
	s.logger.Debug().Str("action", msg.Action).Msg("Action received")

	switch msg.Action {
	case "request":
		if msg.Source == nil || msg.Button == nil {
			s.sendError(elevator.ErrInvalidRequest)
			return
		}
		if err := s.dispatcher.Request(*msg.Source, *msg.Button); err != nil {
			s.sendError(err)
			return
		}
		s.sendState()
	case "addPassenger":
		p, err := s.dispatcher.AddPassenger(msg.Origin, msg.Destination, msg.Weight, msg.Cargo)
		if err != nil {
			s.sendError(err)
			return
		}
		s.writeJSON(ServerMessage{Type: "passenger", Payload: p})
		s.sendState()
	case "tick":
		s.dispatcher.Tick()
		s.sendState()
	case "getState":
		s.sendState()
	default:
		s.writeJSON(ServerMessage{Type: "error", Error: "unknown action " + msg.Action})
	}
}

func (s *Session) sendState() {
	s.sendSnapshot(s.dispatcher.Snapshot())
}

func (s *Session) sendSnapshot(state elevator.Snapshot) {
	s.writeJSON(ServerMessage{Type: "state", State: &state})
}

func (s *Session) sendEvent(event elevator.Event) {
	s.writeJSON(ServerMessage{
		Type:      "event",
		EventType: string(event.Type),
		Payload:   event.Payload,
		Timestamp: event.Timestamp.Format("15:04:05.000"),
	})
}

func (s *Session) sendError(err error) {
	s.writeJSON(ServerMessage{Type: "error", Error: err.Error()})
}

func (s *Session) writeJSON(msg ServerMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.conn.WriteJSON(msg); err != nil {
		s.logger.Error().Err(err).Msg("Failed to write JSON message")
	}
}
