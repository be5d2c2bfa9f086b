package encoder

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/liliang-cn/semrouter/internal/logging"
	"github.com/liliang-cn/semrouter/pkg/vector"
)

// Defaults for OllamaConfig.
const (
	DefaultOllamaHost        = "http://127.0.0.1:11434"
	DefaultOllamaModel       = "nomic-embed-text"
	DefaultOllamaTimeout     = 30 * time.Second
	DefaultOllamaConcurrency = 4
)

// errBatchUnsupported marks a server without the /api/embed endpoint.
var errBatchUnsupported = errors.New("batch embedding endpoint not available")

// OllamaConfig configures the Ollama encoder.
type OllamaConfig struct {
	Host        string        // Ollama API host (default: http://127.0.0.1:11434)
	Model       string        // Embedding model (default: nomic-embed-text)
	Timeout     time.Duration // HTTP request timeout (default: 30s)
	Concurrency int           // Parallel requests on the single-prompt endpoint (default: 4)
	Client      *http.Client  // Optional HTTP client; Timeout is ignored when set
	Logger      logging.Logger
}

// OllamaEncoder generates embeddings using Ollama's local models.
//
// Inputs are sent in one request to /api/embed. Servers that predate that
// endpoint answer 404, in which case the encoder switches to the older
// /api/embeddings endpoint, one prompt per request, for the rest of its life.
// Failures are returned as is; the encoder never retries.
type OllamaEncoder struct {
	host        string
	model       string
	concurrency int
	client      *http.Client
	logger      logging.Logger

	legacy atomic.Bool
}

// NewOllamaEncoder creates an encoder for the configured Ollama server.
func NewOllamaEncoder(config OllamaConfig) *OllamaEncoder {
	if config.Host == "" {
		config.Host = DefaultOllamaHost
	}
	if config.Model == "" {
		config.Model = DefaultOllamaModel
	}
	if config.Timeout <= 0 {
		config.Timeout = DefaultOllamaTimeout
	}
	if config.Concurrency <= 0 {
		config.Concurrency = DefaultOllamaConcurrency
	}
	if config.Logger == nil {
		config.Logger = logging.Nop()
	}

	client := config.Client
	if client == nil {
		client = &http.Client{Timeout: config.Timeout}
	}

	return &OllamaEncoder{
		host:        strings.TrimRight(config.Host, "/"),
		model:       config.Model,
		concurrency: config.Concurrency,
		client:      client,
		logger:      config.Logger.With("component", "ollama", "model", config.Model),
	}
}

// Model returns the name of the embedding model.
func (e *OllamaEncoder) Model() string {
	return e.model
}

// Encode implements semanticrouter.Encoder.
func (e *OllamaEncoder) Encode(ctx context.Context, inputs []string) ([]vector.Vector, error) {
	if len(inputs) == 0 {
		return []vector.Vector{}, nil
	}

	if !e.legacy.Load() {
		vectors, err := e.embedBatch(ctx, inputs)
		if !errors.Is(err, errBatchUnsupported) {
			return vectors, err
		}
		if e.legacy.CompareAndSwap(false, true) {
			e.logger.Warn("falling back to single-prompt embeddings endpoint", "host", e.host)
		}
	}

	return e.embedEach(ctx, inputs)
}

type embedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embedResponse struct {
	Embeddings [][]float64 `json:"embeddings"`
}

func (e *OllamaEncoder) embedBatch(ctx context.Context, inputs []string) ([]vector.Vector, error) {
	var result embedResponse
	status, err := e.post(ctx, "/api/embed", embedRequest{Model: e.model, Input: inputs}, &result)
	if status == http.StatusNotFound {
		return nil, errBatchUnsupported
	}
	if err != nil {
		return nil, err
	}

	if len(result.Embeddings) != len(inputs) {
		return nil, fmt.Errorf("ollama returned %d embeddings for %d inputs", len(result.Embeddings), len(inputs))
	}

	vectors := make([]vector.Vector, len(result.Embeddings))
	for i, emb := range result.Embeddings {
		vectors[i] = vector.FromSlice(emb)
	}
	return vectors, nil
}

type embeddingRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type embeddingResponse struct {
	Embedding []float64 `json:"embedding"`
}

func (e *OllamaEncoder) embedEach(ctx context.Context, inputs []string) ([]vector.Vector, error) {
	vectors := make([]vector.Vector, len(inputs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.concurrency)
	for i, text := range inputs {
		g.Go(func() error {
			var result embeddingResponse
			if _, err := e.post(gctx, "/api/embeddings", embeddingRequest{Model: e.model, Prompt: text}, &result); err != nil {
				return fmt.Errorf("embed text %d: %w", i, err)
			}
			if len(result.Embedding) == 0 {
				return fmt.Errorf("embed text %d: no embedding returned", i)
			}
			vectors[i] = vector.FromSlice(result.Embedding)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return vectors, nil
}

// post sends body as JSON and decodes a 200 response into out. The status
// code is returned whenever a response was received.
func (e *OllamaEncoder) post(ctx context.Context, path string, body, out any) (int, error) {
	jsonBody, err := json.Marshal(body)
	if err != nil {
		return 0, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.host+path, bytes.NewReader(jsonBody))
	if err != nil {
		return 0, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := e.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return resp.StatusCode, fmt.Errorf("ollama error (status %d): %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return resp.StatusCode, fmt.Errorf("decode response: %w", err)
	}

	e.logger.Debug("ollama request", "path", path, "duration", time.Since(start))
	return resp.StatusCode, nil
}
