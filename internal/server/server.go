// Package server exposes a Router over HTTP and websocket.
package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/liliang-cn/semrouter/internal/config"
	"github.com/liliang-cn/semrouter/internal/logging"
	"github.com/liliang-cn/semrouter/internal/metrics"
	semanticrouter "github.com/liliang-cn/semrouter/pkg/semantic-router"
)

// Router is the routing index served by the server.
type Router interface {
	RouteBatch(ctx context.Context, queries []string, topK int) ([]semanticrouter.Result, error)
	Routes() []semanticrouter.Route
}

// Server represents the HTTP server
type Server struct {
	cfg        *config.Config
	router     Router
	logger     logging.Logger
	metrics    *metrics.Metrics
	httpServer *http.Server
	upgrader   websocket.Upgrader
	startTime  time.Time

	connMu sync.Mutex
	conns  map[*websocket.Conn]struct{}
}

// New creates a new HTTP server. Collectors are registered on reg, which
// also backs the /metrics endpoint.
func New(cfg *config.Config, router Router, logger logging.Logger, reg *prometheus.Registry) *Server {
	if logger == nil {
		logger = logging.Nop()
	}
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	s := &Server{
		cfg:       cfg,
		router:    router,
		logger:    logger.With("component", "server"),
		metrics:   metrics.New(reg),
		startTime: time.Now(),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		conns: make(map[*websocket.Conn]struct{}),
	}

	mux := http.NewServeMux()
	mux.Handle("POST /route", s.instrument("/route", s.routeHandler))
	mux.Handle("POST /route/batch", s.instrument("/route/batch", s.batchHandler))
	mux.Handle("GET /route/ws", s.instrument("/route/ws", s.wsHandler))
	mux.Handle("GET /routes", s.instrument("/routes", s.routesHandler))
	mux.Handle("GET /health", s.instrument("/health", s.healthHandler))
	mux.Handle("GET /metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))

	s.httpServer = &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      mux,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}
	s.httpServer.RegisterOnShutdown(s.closeConns)

	return s
}

// Handler returns the HTTP handler of the server.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start listens on the configured address and serves until Shutdown.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ln)
}

// Serve serves on ln until Shutdown.
func (s *Server) Serve(ln net.Listener) error {
	s.logger.Info("HTTP server starting", "addr", ln.Addr().String())
	if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the HTTP server and closes open websockets.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("HTTP server stopping", "uptime", time.Since(s.startTime).Round(time.Second))
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) trackConn(conn *websocket.Conn) {
	s.connMu.Lock()
	s.conns[conn] = struct{}{}
	s.connMu.Unlock()
	s.metrics.WSConnections.Inc()
}

func (s *Server) untrackConn(conn *websocket.Conn) {
	s.connMu.Lock()
	_, ok := s.conns[conn]
	delete(s.conns, conn)
	s.connMu.Unlock()
	if ok {
		s.metrics.WSConnections.Dec()
	}
}

func (s *Server) closeConns() {
	s.connMu.Lock()
	defer s.connMu.Unlock()
	for conn := range s.conns {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
			time.Now().Add(time.Second))
		_ = conn.Close()
	}
}
