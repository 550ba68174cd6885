package knowledge

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
)

// OpenAIEmbedder calls the embeddings endpoint of any OpenAI-compatible provider.
type OpenAIEmbedder struct {
	client *openai.Client
	model  openai.EmbeddingModel
}

func NewOpenAIEmbedder(client *openai.Client, model string) (*OpenAIEmbedder, error) {
	if client == nil {
		return nil, errors.New("openai client is required")
	}
	m := openai.EmbeddingModelTextEmbedding3Small
	if strings.TrimSpace(model) != "" {
		m = openai.EmbeddingModel(strings.TrimSpace(model))
	}
	return &OpenAIEmbedder{client: client, model: m}, nil
}

func (e *OpenAIEmbedder) Embed(ctx context.Context, texts []string) ([][]float64, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	resp, err := e.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Input: openai.EmbeddingNewParamsInputUnion{OfArrayOfStrings: texts},
		Model: e.model,
	})
	if err != nil {
		return nil, err
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("embeddings response has %d items for %d inputs", len(resp.Data), len(texts))
	}

	out := make([][]float64, len(texts))
	for _, d := range resp.Data {
		if d.Index < 0 || int(d.Index) >= len(out) {
			return nil, fmt.Errorf("embeddings response index %d out of range", d.Index)
		}
		out[d.Index] = d.Embedding
	}
	return out, nil
}
