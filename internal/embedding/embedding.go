// Package embedding turns skeleton text into vectors for the indexing
// pipeline's vector store. Two providers are supported: a local Ollama
// server and Google's GenAI API. The pipeline embeds one skeleton per tick,
// so the surface is deliberately small: a single-text Embed call, no
// batching, no similarity search (distance math lives in the store).
package embedding

import (
	"context"
	"fmt"

	"github.com/codenerd-labs/conversync/internal/logging"
)

// Embedder produces a vector for one piece of skeleton-derived text.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)

	// Dimensions is the length of every vector this embedder produces,
	// fixed per provider/model so the store can size its index up front.
	Dimensions() int

	Name() string
}

// Provider selects the embedding backend.
type Provider string

const (
	ProviderOllama Provider = "ollama"
	ProviderGenAI  Provider = "genai"
)

// Options configures an Embedder for this system's content.
type Options struct {
	Provider Provider

	// Ollama
	Endpoint string // default http://localhost:11434
	Model    string // default embeddinggemma (ollama) / gemini-embedding-001 (genai)

	// GenAI
	APIKey string

	// Kind tells the GenAI backend what the text being embedded is, so it
	// can pick the matching task type. Ollama ignores it.
	Kind ContentKind
}

// New creates the configured Embedder.
func New(opts Options) (Embedder, error) {
	switch opts.Provider {
	case ProviderOllama:
		return newOllamaEmbedder(opts.Endpoint, opts.Model), nil
	case ProviderGenAI:
		return newGenAIEmbedder(opts.APIKey, opts.Model, opts.Kind)
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %q (use %q or %q)",
			opts.Provider, ProviderOllama, ProviderGenAI)
	}
}

// SkeletonText is the embeddable view of one task skeleton: the opening
// instruction plus every delegation prefix it issued, in emission order.
type SkeletonText struct {
	Instruction   string
	ChildPrefixes []string
}

// Flatten renders the skeleton text as the single string handed to Embed.
// The instruction leads; prefixes follow on their own lines so the vector
// reflects what the task did, not just how it was asked.
func (t SkeletonText) Flatten() string {
	out := t.Instruction
	for _, p := range t.ChildPrefixes {
		out += "\n" + p
	}
	return out
}

func logEmbedResult(name string, dims int, err error) {
	if err != nil {
		logging.EmbeddingWarn("%s: embed failed: %v", name, err)
		return
	}
	logging.EmbeddingDebug("%s: embedded, dimensions=%d", name, dims)
}
