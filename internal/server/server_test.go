package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/liliang-cn/semrouter/internal/config"
	semanticrouter "github.com/liliang-cn/semrouter/pkg/semantic-router"
)

func testRoutes() []semanticrouter.Route {
	return []semanticrouter.Route{
		{
			Name:        "joke",
			Description: "Tell a joke",
			Examples:    []string{"tell me a joke", "make me laugh", "say something funny"},
		},
		{
			Name:        "weather",
			Description: "Weather questions",
			Examples:    []string{"what is the weather forecast", "is it going to rain today", "how hot is it outside"},
		},
	}
}

func testServer(t *testing.T) *Server {
	t.Helper()
	router, err := semanticrouter.New(context.Background(), semanticrouter.NewHashingEncoder(256), testRoutes())
	require.NoError(t, err)
	return New(config.Default(), router, nil, prometheus.NewRegistry())
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestHealthHandler(t *testing.T) {
	srv := New(config.Default(), nil, nil, nil)
	w := do(t, srv.Handler(), http.MethodGet, "/health", "")

	require.Equal(t, http.StatusOK, w.Code)
	var resp HealthResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, "ok", resp.Status)
	assert.NotEmpty(t, w.Header().Get(RequestIDHeader))
}

func TestRouteHandler(t *testing.T) {
	srv := testServer(t)
	w := do(t, srv.Handler(), http.MethodPost, "/route", `{"query":"will it rain today"}`)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp semanticrouter.Result
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))

	assert.Equal(t, "will it rain today", resp.Query)
	require.Len(t, resp.Matches, 2, "default top_k of the service is 2")
	assert.Equal(t, "weather", resp.Matches[0].RouteName)
	assert.Equal(t, 0, resp.Matches[0].Rank)
	assert.GreaterOrEqual(t, resp.Matches[0].Score, resp.Matches[1].Score)
}

func TestRouteHandlerWireFormat(t *testing.T) {
	srv := testServer(t)
	w := do(t, srv.Handler(), http.MethodPost, "/route", `{"query":"tell me a joke","top_k":1}`)
	require.Equal(t, http.StatusOK, w.Code)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &raw))
	routes := raw["routes"].([]any)
	require.Len(t, routes, 1)
	first := routes[0].(map[string]any)
	assert.Equal(t, "joke", first["route_name"])
	assert.Equal(t, 0.0, first["rank"])
	assert.Contains(t, first, "cosine_similarity")
}

func TestRouteHandlerValidation(t *testing.T) {
	srv := testServer(t)

	tests := []struct {
		name string
		body string
	}{
		{"invalid json", `{`},
		{"missing query", `{"top_k":1}`},
		{"zero top_k", `{"query":"hi","top_k":0}`},
		{"negative top_k", `{"query":"hi","top_k":-3}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, srv.Handler(), http.MethodPost, "/route", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)

			var resp ErrorResponse
			require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
			assert.NotEmpty(t, resp.Error)
			assert.Equal(t, w.Header().Get(RequestIDHeader), resp.RequestID)
		})
	}
}

func TestRouteHandlerMethod(t *testing.T) {
	srv := testServer(t)
	w := do(t, srv.Handler(), http.MethodGet, "/route", "")
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestBatchHandler(t *testing.T) {
	srv := testServer(t)
	body := `{"queries":["make me laugh","what is the weather forecast","say something funny"],"top_k":1}`
	w := do(t, srv.Handler(), http.MethodPost, "/route/batch", body)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp BatchResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	require.Len(t, resp.Results, 3)

	want := []string{"joke", "weather", "joke"}
	for i, res := range resp.Results {
		require.Len(t, res.Matches, 1)
		assert.Equal(t, want[i], res.Matches[0].RouteName)
	}
	assert.Equal(t, "what is the weather forecast", resp.Results[1].Query)
}

func TestBatchHandlerLimits(t *testing.T) {
	cfg := config.Default()
	cfg.Router.MaxBatchSize = 2
	router, err := semanticrouter.New(context.Background(), semanticrouter.NewHashingEncoder(64), testRoutes())
	require.NoError(t, err)
	srv := New(cfg, router, nil, prometheus.NewRegistry())

	w := do(t, srv.Handler(), http.MethodPost, "/route/batch", `{"queries":[]}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, srv.Handler(), http.MethodPost, "/route/batch", `{"queries":["a","b","c"]}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, srv.Handler(), http.MethodPost, "/route/batch", `{"queries":["a","b"]}`)
	assert.Equal(t, http.StatusOK, w.Code)
}

// failingRouter returns err from every routing call.
type failingRouter struct {
	err error
}

func (f failingRouter) RouteBatch(ctx context.Context, queries []string, topK int) ([]semanticrouter.Result, error) {
	return nil, f.err
}

func (f failingRouter) Routes() []semanticrouter.Route {
	return nil
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"encoding failure", semanticrouter.ErrEncodingFailure, http.StatusBadGateway},
		{"invalid argument", semanticrouter.ErrInvalidArgument, http.StatusBadRequest},
		{"timeout", context.DeadlineExceeded, http.StatusGatewayTimeout},
		{"other", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := New(config.Default(), failingRouter{err: tt.err}, nil, prometheus.NewRegistry())
			w := do(t, srv.Handler(), http.MethodPost, "/route", `{"query":"hi"}`)
			assert.Equal(t, tt.want, w.Code)
		})
	}
}

func TestRequestIDEchoed(t *testing.T) {
	srv := testServer(t)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	assert.Equal(t, "abc-123", w.Header().Get(RequestIDHeader))
}

func TestRoutesHandler(t *testing.T) {
	srv := testServer(t)
	w := do(t, srv.Handler(), http.MethodGet, "/routes", "")

	require.Equal(t, http.StatusOK, w.Code)
	var resp RoutesResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	require.Len(t, resp.Routes, 2)
	assert.Equal(t, "joke", resp.Routes[0].Name)
	assert.Equal(t, 3, resp.Routes[0].Examples)
	assert.Equal(t, 2, resp.DefaultTopK)
}

func TestMetricsEndpoint(t *testing.T) {
	srv := testServer(t)
	do(t, srv.Handler(), http.MethodPost, "/route", `{"query":"tell me a joke"}`)

	w := do(t, srv.Handler(), http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "semrouter_requests_total")
	assert.Contains(t, body, `semrouter_route_selected_total{route="joke"} 1`)
}

func TestWebsocket(t *testing.T) {
	srv := testServer(t)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/route/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"query":"is it going to rain","top_k":1}`)))
	var result semanticrouter.Result
	require.NoError(t, conn.ReadJSON(&result))
	require.Len(t, result.Matches, 1)
	assert.Equal(t, "weather", result.Matches[0].RouteName)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"query":"hi","top_k":0}`)))
	var wsErr WSError
	require.NoError(t, conn.ReadJSON(&wsErr))
	assert.Equal(t, http.StatusBadRequest, wsErr.Status)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`not json`)))
	wsErr = WSError{}
	require.NoError(t, conn.ReadJSON(&wsErr))
	assert.Equal(t, http.StatusBadRequest, wsErr.Status)
}

func TestStartShutdown(t *testing.T) {
	srv := testServer(t)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- srv.Serve(ln) }()

	url := "http://" + ln.Addr().String()
	require.Eventually(t, func() bool {
		resp, err := http.Post(url+"/route", "application/json", bytes.NewBufferString(`{"query":"make me laugh"}`))
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 20*time.Millisecond)

	wsURL := "ws://" + ln.Addr().String() + "/route/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	// one round trip guarantees the connection is tracked
	require.NoError(t, conn.WriteJSON(RouteRequest{Query: ptr("make me laugh")}))
	var result semanticrouter.Result
	require.NoError(t, conn.ReadJSON(&result))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, srv.Shutdown(ctx))
	require.NoError(t, <-done)

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err = conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseGoingAway), "got %v", err)
}

func ptr[T any](v T) *T {
	return &v
}
