package server

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// Message is a websocket frame in either direction. Clients send
// {"type":"ask","articleId":...,"question":...}; the server answers with
// "stream" frames per token, then one "response" or "error" frame.
type Message struct {
	Type      string `json:"type"`
	Content   string `json:"content,omitempty"`
	ArticleID string `json:"articleId,omitempty"`
	Question  string `json:"question,omitempty"`
}

func (s *Server) upgrader() *websocket.Upgrader {
	cors := NewCORSMiddleware(s.config.AllowedOrigins)
	return &websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return origin == "" || cors.allowed(origin)
		},
	}
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader().Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	defer conn.Close()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn().Err(err).Msg("error reading message")
			}
			return
		}

		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			s.sendMessage(conn, "error", "invalid message")
			continue
		}

		// Messages are handled in order so frames never interleave
		s.handleMessage(conn, r, msg)
	}
}

func (s *Server) handleMessage(conn *websocket.Conn, r *http.Request, msg Message) {
	if msg.Type != "ask" {
		s.sendMessage(conn, "error", "unsupported message type")
		return
	}
	if msg.ArticleID == "" || msg.Question == "" {
		s.sendMessage(conn, "error", askErrors.invalid)
		return
	}

	ctx, cancel := s.requestContext(r)
	defer cancel()

	result, err := s.service.AskStream(ctx, msg.ArticleID, msg.Question, func(token string) error {
		return s.sendMessage(conn, "stream", token)
	})
	if err != nil {
		status, message := askErrors.resolve(err)
		log.Warn().Err(err).Int("status", status).Str("articleId", msg.ArticleID).Msg("websocket ask failed")
		s.sendMessage(conn, "error", message)
		return
	}

	s.sendMessage(conn, "response", result.Answer)
}

func (s *Server) sendMessage(conn *websocket.Conn, msgType string, content string) error {
	msg := Message{
		Type:    msgType,
		Content: content,
	}
	if err := conn.WriteJSON(msg); err != nil {
		log.Warn().Err(err).Str("type", msgType).Msg("error sending message")
		return err
	}
	return nil
}
