package server

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/ziadkadry99/docqa/internal/answer"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// wsRequest is the incoming WebSocket message format.
type wsRequest struct {
	Type     string `json:"type"` // "ask" or "search"
	ID       string `json:"id"`   // echoed back so clients can match replies
	Question string `json:"question"`
	K        int    `json:"k,omitempty"`
}

// wsResponse is the outgoing WebSocket message format.
type wsResponse struct {
	Type    string           `json:"type"` // "answer", "results" or "error"
	ID      string           `json:"id,omitempty"`
	Answer  *answer.Response `json:"answer,omitempty"`
	Results []searchResult   `json:"results,omitempty"`
	Error   string           `json:"error,omitempty"`
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade", zap.Error(err))
		return
	}
	defer conn.Close()

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Warn("websocket read", zap.Error(err))
			}
			return
		}

		var req wsRequest
		if err := json.Unmarshal(msg, &req); err != nil {
			s.sendWS(conn, wsResponse{Type: "error", Error: "invalid message format"})
			continue
		}

		if strings.TrimSpace(req.Question) == "" {
			s.sendWS(conn, wsResponse{Type: "error", ID: req.ID, Error: "question must not be empty"})
			continue
		}

		switch req.Type {
		case "ask", "":
			if req.K != 0 {
				s.sendWS(conn, wsResponse{Type: "error", ID: req.ID, Error: "k is only supported for search"})
				continue
			}
			resp, err := s.engine.Query(r.Context(), req.Question)
			if err != nil {
				s.sendWS(conn, wsResponse{Type: "error", ID: req.ID, Error: err.Error()})
				continue
			}
			s.sendWS(conn, wsResponse{Type: "answer", ID: req.ID, Answer: resp})
		case "search":
			results, err := s.engine.Search(r.Context(), req.Question, req.K)
			if err != nil {
				s.sendWS(conn, wsResponse{Type: "error", ID: req.ID, Error: err.Error()})
				continue
			}
			s.sendWS(conn, wsResponse{Type: "results", ID: req.ID, Results: toSearchResults(results)})
		default:
			s.sendWS(conn, wsResponse{Type: "error", ID: req.ID, Error: "unknown message type: " + req.Type})
		}
	}
}

func (s *Server) sendWS(conn *websocket.Conn, resp wsResponse) {
	if err := conn.WriteJSON(resp); err != nil {
		s.logger.Warn("websocket write", zap.Error(err))
	}
}
