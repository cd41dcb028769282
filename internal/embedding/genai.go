package embedding

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"github.com/codenerd-labs/conversync/internal/logging"
)

const (
	defaultGenAIModel = "gemini-embedding-001"
	genAIDimensions   = 3072
)

// genaiEmbedder generates embeddings through Google's GenAI API, with the
// task type derived from the ContentKind being indexed.
type genaiEmbedder struct {
	client   *genai.Client
	model    string
	taskType string
}

func newGenAIEmbedder(apiKey, model string, kind ContentKind) (*genaiEmbedder, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("genai: API key is required")
	}
	if model == "" {
		model = defaultGenAIModel
	}

	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{APIKey: apiKey})
	if err != nil {
		return nil, fmt.Errorf("genai: create client: %w", err)
	}

	taskType := kind.GenAITaskType()
	logging.Embedding("genai embedder: model=%s task_type=%s", model, taskType)
	return &genaiEmbedder{client: client, model: model, taskType: taskType}, nil
}

func (e *genaiEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	dims := int32(genAIDimensions)
	result, err := e.client.Models.EmbedContent(ctx,
		e.model,
		[]*genai.Content{genai.NewContentFromText(text, genai.RoleUser)},
		&genai.EmbedContentConfig{
			TaskType:             e.taskType,
			OutputDimensionality: &dims,
		},
	)
	if err != nil {
		logEmbedResult(e.Name(), 0, err)
		return nil, fmt.Errorf("genai: embed: %w", err)
	}
	if len(result.Embeddings) == 0 {
		return nil, fmt.Errorf("genai: no embeddings returned")
	}

	values := result.Embeddings[0].Values
	logEmbedResult(e.Name(), len(values), nil)
	return values, nil
}

func (e *genaiEmbedder) Dimensions() int {
	return genAIDimensions
}

func (e *genaiEmbedder) Name() string {
	return "genai:" + e.model
}
