package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/fairyhunter13/ai-screening-interview/internal/domain"
	"github.com/fairyhunter13/ai-screening-interview/internal/usecase"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// CORS middleware already decides which origins reach the API.
	CheckOrigin: func(*http.Request) bool { return true },
}

const eventsWriteWait = 5 * time.Second

// SessionEvent is one frame on the events socket.
type SessionEvent struct {
	Type    string               `json:"type"`
	Session *usecase.SessionView `json:"session,omitempty"`
	Error   string               `json:"error,omitempty"`
}

// EventsHandler upgrades to a websocket and pushes the session view every
// tick until the session reaches a terminal phase or the client goes away.
func (s *Server) EventsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key, err := candidateKeyParam(r)
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		if _, err := s.Interview.View(key); err != nil {
			writeError(w, r, err, nil)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			LoggerFrom(r).Warn("websocket upgrade failed", slog.Any("error", err))
			return
		}
		defer func() { _ = conn.Close() }()

		lg := LoggerFrom(r).With(slog.String("candidate_key", key))
		lg.Info("session events connected")

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		// the server's ReadTimeout deadline survives the hijack
		_ = conn.SetReadDeadline(time.Time{})

		// client frames are ignored; reading surfaces the close
		go func() {
			defer cancel()
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
						lg.Debug("websocket read error", slog.Any("error", err))
					}
					return
				}
			}
		}()

		tick := s.Cfg.EventsTick
		if tick <= 0 {
			tick = time.Second
		}
		t := time.NewTicker(tick)
		defer t.Stop()

		for {
			v, err := s.Interview.View(key)
			if err != nil {
				msg := "session ended"
				if !errors.Is(err, domain.ErrNotFound) {
					msg = "internal error"
				}
				_ = sendEvent(conn, SessionEvent{Type: "error", Error: msg})
				break
			}
			if err := sendEvent(conn, SessionEvent{Type: "session", Session: &v}); err != nil {
				break
			}
			if v.Phase.Terminal() {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, string(v.Phase)),
					time.Now().Add(eventsWriteWait))
				break
			}
			select {
			case <-ctx.Done():
				lg.Info("session events disconnected")
				return
			case <-t.C:
			}
		}
		lg.Info("session events closed")
	}
}

func sendEvent(conn *websocket.Conn, ev SessionEvent) error {
	b, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(eventsWriteWait))
	return conn.WriteMessage(websocket.TextMessage, b)
}
