package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	semanticrouter "github.com/liliang-cn/semrouter/pkg/semantic-router"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 1 << 20

// RouteRequest is the body of POST /route.
type RouteRequest struct {
	Query *string `json:"query"`
	TopK  *int    `json:"top_k,omitempty"`
}

// BatchRequest is the body of POST /route/batch.
type BatchRequest struct {
	Queries []string `json:"queries"`
	TopK    *int     `json:"top_k,omitempty"`
}

// BatchResponse is the reply of POST /route/batch.
type BatchResponse struct {
	Results []semanticrouter.Result `json:"results"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status string `json:"status"`
	Uptime string `json:"uptime"`
}

// RouteInfo describes one catalog route.
type RouteInfo struct {
	Name        string            `json:"name"`
	Description string            `json:"description"`
	Examples    int               `json:"examples"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// RoutesResponse is the reply of GET /routes.
type RoutesResponse struct {
	Routes      []RouteInfo `json:"routes"`
	DefaultTopK int         `json:"default_top_k"`
}

// ErrorResponse is returned for every failed request.
type ErrorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

// errBadRequest marks request validation failures.
var errBadRequest = errors.New("bad request")

func badRequest(format string, args ...any) error {
	return fmt.Errorf("%w: %s", errBadRequest, fmt.Sprintf(format, args...))
}

func (s *Server) routeHandler(w http.ResponseWriter, r *http.Request) {
	var req RouteRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if req.Query == nil {
		s.writeError(w, r, badRequest("query is required"))
		return
	}

	topK, err := s.topK(req.TopK)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	results, err := s.route(r.Context(), []string{*req.Query}, topK)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, results[0])
}

func (s *Server) batchHandler(w http.ResponseWriter, r *http.Request) {
	var req BatchRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if len(req.Queries) == 0 {
		s.writeError(w, r, badRequest("queries must contain at least one query"))
		return
	}
	if limit := s.cfg.Router.MaxBatchSize; len(req.Queries) > limit {
		s.writeError(w, r, badRequest("at most %d queries per batch, got %d", limit, len(req.Queries)))
		return
	}

	topK, err := s.topK(req.TopK)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	results, err := s.route(r.Context(), req.Queries, topK)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, BatchResponse{Results: results})
}

func (s *Server) routesHandler(w http.ResponseWriter, r *http.Request) {
	routes := s.router.Routes()
	resp := RoutesResponse{
		Routes:      make([]RouteInfo, len(routes)),
		DefaultTopK: s.cfg.Router.TopK,
	}
	for i, route := range routes {
		resp.Routes[i] = RouteInfo{
			Name:        route.Name,
			Description: route.Description,
			Examples:    len(route.Examples),
			Metadata:    route.Metadata,
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status: "ok",
		Uptime: time.Since(s.startTime).Round(time.Second).String(),
	})
}

// topK applies the configured default and rejects non-positive overrides.
func (s *Server) topK(override *int) (int, error) {
	if override == nil {
		return s.cfg.Router.TopK, nil
	}
	if *override < 1 {
		return 0, badRequest("top_k must be a positive integer, got %d", *override)
	}
	return *override, nil
}

// route runs the router and records routing metrics.
func (s *Server) route(ctx context.Context, queries []string, topK int) ([]semanticrouter.Result, error) {
	start := time.Now()
	results, err := s.router.RouteBatch(ctx, queries, topK)
	if err != nil {
		return nil, err
	}

	best := make([]string, 0, len(results))
	for _, res := range results {
		if m, ok := res.Best(); ok {
			best = append(best, m.RouteName)
		}
	}
	s.metrics.ObserveRouting(best, time.Since(start))
	return results, nil
}

// statusFor maps an error to its HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, errBadRequest), errors.Is(err, semanticrouter.ErrInvalidArgument):
		return http.StatusBadRequest
	case errors.Is(err, semanticrouter.ErrEncodingFailure):
		return http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	id := RequestID(r.Context())
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "request_id", id, "path", r.URL.Path, "error", err)
	} else {
		s.logger.Debug("request rejected", "request_id", id, "path", r.URL.Path, "error", err)
	}
	writeJSON(w, status, ErrorResponse{Error: err.Error(), RequestID: id})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		return badRequest("invalid JSON body: %v", err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
