package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/codenerd-labs/conversync/internal/logging"
)

const (
	defaultOllamaEndpoint = "http://localhost:11434"
	defaultOllamaModel    = "embeddinggemma"
)

// ollamaDimensions maps known embedding models to their vector width.
// Unknown models get the embeddinggemma width; a mismatch surfaces as a
// store-side dimension error rather than a silent truncation.
var ollamaDimensions = map[string]int{
	"embeddinggemma":   768,
	"nomic-embed-text": 768,
	"mxbai-embed-large": 1024,
}

// ollamaEmbedder talks to a local Ollama server's /api/embeddings endpoint.
type ollamaEmbedder struct {
	endpoint string
	model    string
	client   *http.Client
}

func newOllamaEmbedder(endpoint, model string) *ollamaEmbedder {
	if endpoint == "" {
		endpoint = defaultOllamaEndpoint
	}
	if model == "" {
		model = defaultOllamaModel
	}
	logging.Embedding("ollama embedder: endpoint=%s model=%s", endpoint, model)
	return &ollamaEmbedder{
		endpoint: endpoint,
		model:    model,
		client:   &http.Client{Timeout: 30 * time.Second},
	}
}

type ollamaRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type ollamaResponse struct {
	Embedding []float32 `json:"embedding"`
}

func (e *ollamaEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	body, err := json.Marshal(ollamaRequest{Model: e.model, Prompt: text})
	if err != nil {
		return nil, fmt.Errorf("ollama: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.endpoint+"/api/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("ollama: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		logEmbedResult(e.Name(), 0, err)
		return nil, fmt.Errorf("ollama: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(resp.Body)
		err := fmt.Errorf("ollama: status %d: %s", resp.StatusCode, string(msg))
		logEmbedResult(e.Name(), 0, err)
		return nil, err
	}

	var out ollamaResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("ollama: decode response: %w", err)
	}

	logEmbedResult(e.Name(), len(out.Embedding), nil)
	return out.Embedding, nil
}

func (e *ollamaEmbedder) Dimensions() int {
	if d, ok := ollamaDimensions[e.model]; ok {
		return d
	}
	return ollamaDimensions[defaultOllamaModel]
}

func (e *ollamaEmbedder) Name() string {
	return "ollama:" + e.model
}
