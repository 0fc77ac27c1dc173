package server

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// wsRequest is the incoming WebSocket message format.
type wsRequest struct {
	Type      string `json:"type"`       // "message"
	SessionID string `json:"session_id"` // empty for new sessions
	Content   string `json:"content"`
}

// wsResponse is the outgoing WebSocket message format.
type wsResponse struct {
	Type       string `json:"type"` // "response" or "error"
	SessionID  string `json:"session_id"`
	Content    string `json:"content"`
	Intent     string `json:"intent,omitempty"`
	Clarifying bool   `json:"clarifying,omitempty"`
}

// handleWebSocket runs an interactive session over one connection. Each
// frame carries one whole reply; the clarification flow spans frames using
// the same session id.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Warn("websocket read failed", "error", err)
			}
			return
		}

		var req wsRequest
		if err := json.Unmarshal(msg, &req); err != nil {
			s.sendWSError(conn, "", "invalid message format")
			continue
		}
		if req.Content == "" {
			s.sendWSError(conn, req.SessionID, "content is required")
			continue
		}
		if req.Type != "message" {
			s.sendWSError(conn, req.SessionID, "unknown message type: "+req.Type)
			continue
		}

		sessionID := req.SessionID
		if sessionID == "" {
			sessionID = uuid.NewString()
		}

		reply := s.chat.Handle(r.Context(), sessionID, req.Content)
		s.sendWS(conn, wsResponse{
			Type:       "response",
			SessionID:  sessionID,
			Content:    reply.Text,
			Intent:     reply.Intent,
			Clarifying: reply.Clarifying,
		})
	}
}

func (s *Server) sendWS(conn *websocket.Conn, resp wsResponse) {
	if err := conn.WriteJSON(resp); err != nil {
		s.logger.Warn("websocket write failed", "error", err)
	}
}

func (s *Server) sendWSError(conn *websocket.Conn, sessionID, msg string) {
	s.sendWS(conn, wsResponse{Type: "error", SessionID: sessionID, Content: msg})
}
