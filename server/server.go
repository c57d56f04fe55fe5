// Package server exposes recolouring sessions over websockets, one session
// per connection.
package server

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"time"

	"github.com/gorilla/websocket"

	"logopal/session"
)

const (
	maxMessageSize = 32 << 20
	pongWait       = 60 * time.Second
	pingPeriod     = pongWait * 9 / 10
	writeWait      = 10 * time.Second
)

var errMissingField = errors.New("missing field")

type Server struct {
	cfg      session.Config
	logger   *slog.Logger
	upgrader websocket.Upgrader
}

// New returns a server creating sessions from cfg. An empty origins list
// only accepts same-origin requests; "*" accepts any origin.
func New(cfg session.Config, origins []string) *Server {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	s := &Server{
		cfg:    cfg,
		logger: cfg.Logger,
	}
	if len(origins) > 0 {
		s.upgrader.CheckOrigin = func(r *http.Request) bool {
			if slices.Contains(origins, "*") {
				return true
			}
			return slices.Contains(origins, r.Header.Get("Origin"))
		}
	}
	return s
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.serveWS)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return mux
}

// ListenAndServe serves until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	s.logger.Info("listening", "addr", addr)

	select {
	case err := <-errCh:
		return fmt.Errorf("could not serve on %q: %w", addr, err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("could not shut down: %w", err)
	}
	return nil
}

func (s *Server) serveWS(w http.ResponseWriter, r *http.Request) {
	sess, err := session.New(s.cfg)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("websocket upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}
	logger := s.logger.With("remote", r.RemoteAddr)
	logger.Info("client connected")

	done := make(chan struct{})
	defer func() {
		close(done)
		if err := conn.Close(); err != nil {
			logger.Debug("could not close connection", "error", err)
		}
		logger.Info("client disconnected")
	}()

	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	go keepAlive(conn, done)

	for {
		var req Request
		if err := conn.ReadJSON(&req); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Error("could not read message", "error", err)
			}
			return
		}

		resp, ok := s.handle(logger, sess, req)
		if !ok {
			continue
		}
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteJSON(resp); err != nil {
			logger.Error("could not write message", "error", err)
			return
		}
	}
}

func keepAlive(conn *websocket.Conn, done <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}

// handle applies one request to sess. It reports false when there is
// nothing to send back.
func (s *Server) handle(logger *slog.Logger, sess *session.Session, req Request) (any, bool) {
	var (
		v   session.View
		err error
	)

	switch req.Op {
	case OpLoad:
		v, err = sess.Load(bytes.NewReader(req.Image))
	case OpState:
		v = sess.Snapshot()
	case OpSetSubstitute:
		if req.From == nil || req.To == nil {
			return newError(fmt.Errorf("%w: from and to are required", errMissingField)), true
		}
		v, err = sess.SetSubstitute(*req.From, *req.To)
	case OpToggleErase:
		if req.Color == nil {
			return newError(fmt.Errorf("%w: color is required", errMissingField)), true
		}
		v, err = sess.ToggleErase(*req.Color)
	case OpSetMaxColors:
		v, err = sess.SetMaxColors(req.K)
	case OpReset:
		v, err = sess.ResetEdits()
	case OpPickAt:
		return s.pick(sess, req.X, req.Y), true
	default:
		return newError(fmt.Errorf("unknown operation %q", req.Op)), true
	}

	if errors.Is(err, session.ErrStale) {
		return nil, false
	}
	if err != nil {
		logger.Warn("request failed", "op", req.Op, "error", err)
		return newError(err), true
	}

	msg, err := newState(v)
	if err != nil {
		logger.Error("could not build state", "error", err)
		return newError(err), true
	}
	return msg, true
}

func (s *Server) pick(sess *session.Session, x, y int) PickMessage {
	idx, ok := sess.PickAt(x, y)
	if !ok {
		return PickMessage{Type: "pick", Index: -1}
	}
	c := sess.Snapshot().Palette[idx]
	return PickMessage{Type: "pick", OK: true, Index: idx, Color: &c}
}
