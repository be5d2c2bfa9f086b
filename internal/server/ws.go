package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/websocket"
)

// wsReadLimit bounds a single websocket frame.
const wsReadLimit = 64 << 10

// WSError is sent instead of a result when a websocket query fails.
type WSError struct {
	Error  string `json:"error"`
	Status int    `json:"status"`
}

// wsHandler answers every text frame {query, top_k?} with one frame holding
// either the routing result or a WSError.
func (s *Server) wsHandler(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "request_id", RequestID(r.Context()), "error", err)
		return
	}
	conn.SetReadLimit(wsReadLimit)

	s.trackConn(conn)
	defer func() {
		s.untrackConn(conn)
		_ = conn.Close()
	}()

	ctx := r.Context()
	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.Debug("websocket read ended", "request_id", RequestID(ctx), "error", err)
			}
			return
		}
		if msgType != websocket.TextMessage {
			continue
		}

		var reply any
		var req RouteRequest
		if err := json.Unmarshal(data, &req); err != nil {
			reply = wsError(badRequest("invalid JSON frame: %v", err))
		} else if req.Query == nil {
			reply = wsError(badRequest("query is required"))
		} else if topK, err := s.topK(req.TopK); err != nil {
			reply = wsError(err)
		} else if results, err := s.route(ctx, []string{*req.Query}, topK); err != nil {
			reply = wsError(err)
		} else {
			reply = results[0]
		}

		if err := conn.WriteJSON(reply); err != nil {
			if !errors.Is(err, websocket.ErrCloseSent) {
				s.logger.Debug("websocket write failed", "request_id", RequestID(ctx), "error", err)
			}
			return
		}
	}
}

func wsError(err error) WSError {
	return WSError{Error: err.Error(), Status: statusFor(err)}
}
