package ops

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
)

const imagePromptTemplate = "A high-quality, realistic product photograph of %s. Fresh agricultural produce on a clean, neutral background, natural lighting, suitable for an online marketplace listing."

// OpenAIImageGenerator renders product photos with the images endpoint.
type OpenAIImageGenerator struct {
	client *openai.Client
	model  openai.ImageModel
}

func NewOpenAIImageGenerator(client *openai.Client, model string) *OpenAIImageGenerator {
	m := openai.ImageModelDallE3
	if strings.TrimSpace(model) != "" {
		m = openai.ImageModel(model)
	}
	return &OpenAIImageGenerator{client: client, model: m}
}

func (g *OpenAIImageGenerator) Generate(ctx context.Context, description string) (string, error) {
	if g == nil || g.client == nil {
		return "", errors.New("openai client is not configured")
	}
	resp, err := g.client.Images.Generate(ctx, openai.ImageGenerateParams{
		Prompt: fmt.Sprintf(imagePromptTemplate, strings.TrimSpace(description)),
		Model:  g.model,
		N:      openai.Int(1),
		Size:   openai.ImageGenerateParamsSize1024x1024,
	})
	if err != nil {
		return "", err
	}
	if len(resp.Data) == 0 || resp.Data[0].URL == "" {
		return "", errors.New("image response is empty")
	}
	return resp.Data[0].URL, nil
}
