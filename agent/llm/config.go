package llm

import (
	"fmt"
	"strings"
	"time"

	contractx "github.com/tanpawarit/kcartbot/agent/contract"
	openrouterx "github.com/tanpawarit/kcartbot/pkg/openrouter"
)

// Purpose selects the per-purpose model overrides.
type Purpose string

const (
	PurposeChat        Purpose = "chat"
	PurposeTranslation Purpose = "translation"
	PurposeImage       Purpose = "image"
)

type Config struct {
	BaseURL            string        `envconfig:"BASE_URL" split_words:"true" default:"https://openrouter.ai/api/v1"`
	APIKey             string        `envconfig:"API_KEY" split_words:"true" required:"true"`
	Model              string        `envconfig:"MODEL" split_words:"true" required:"true"`
	MaxCompletionToken int           `envconfig:"MAX_COMPLETION_TOKEN" split_words:"true" default:"2000"`
	Temperature        float32       `envconfig:"TEMPERATURE" split_words:"true" default:"0.7"`
	Timeout            time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"30s"`
	SiteURL            string        `envconfig:"SITE_URL" split_words:"true"`
	SiteName           string        `envconfig:"SITE_NAME" split_words:"true"`

	ChatModel              string  `envconfig:"CHAT_MODEL" split_words:"true"`
	ChatTemperature        float32 `envconfig:"CHAT_TEMPERATURE" split_words:"true" default:"-1"`
	ChatExcludeReasoning   bool    `envconfig:"CHAT_EXCLUDE_REASONING" split_words:"true"`
	TranslationModel       string  `envconfig:"TRANSLATION_MODEL" split_words:"true"`
	TranslationTemperature float32 `envconfig:"TRANSLATION_TEMPERATURE" split_words:"true" default:"0"`

	// Image generation usually lives on a different provider than chat.
	ImageBaseURL string `envconfig:"IMAGE_BASE_URL" split_words:"true"`
	ImageAPIKey  string `envconfig:"IMAGE_API_KEY" split_words:"true"`
	ImageModel   string `envconfig:"IMAGE_MODEL" split_words:"true" default:"dall-e-3"`

	MaxIterations int `envconfig:"MAX_ITERATIONS" split_words:"true" default:"5"`
	HistoryWindow int `envconfig:"HISTORY_WINDOW" split_words:"true" default:"10"`
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.APIKey) == "" {
		return fmt.Errorf("%w: openrouter api key is required", contractx.ErrValidation)
	}
	if strings.TrimSpace(c.Model) == "" {
		return fmt.Errorf("%w: default model is required", contractx.ErrValidation)
	}
	if c.MaxIterations <= 0 {
		return fmt.Errorf("%w: max iterations must be > 0", contractx.ErrValidation)
	}
	if c.HistoryWindow < 0 {
		return fmt.Errorf("%w: history window must be >= 0", contractx.ErrValidation)
	}
	return nil
}

func (c Config) OpenRouterFor(purpose Purpose) openrouterx.Config {
	baseURL := strings.TrimSpace(c.BaseURL)
	apiKey := strings.TrimSpace(c.APIKey)
	modelName := strings.TrimSpace(c.Model)
	temp := c.Temperature

	switch purpose {
	case PurposeChat:
		if v := strings.TrimSpace(c.ChatModel); v != "" {
			modelName = v
		}
		if c.ChatTemperature >= 0 {
			temp = c.ChatTemperature
		}
	case PurposeTranslation:
		if v := strings.TrimSpace(c.TranslationModel); v != "" {
			modelName = v
		}
		if c.TranslationTemperature >= 0 {
			temp = c.TranslationTemperature
		}
	case PurposeImage:
		modelName = strings.TrimSpace(c.ImageModel)
		if v := strings.TrimSpace(c.ImageBaseURL); v != "" {
			baseURL = v
		}
		if v := strings.TrimSpace(c.ImageAPIKey); v != "" {
			apiKey = v
		}
	}

	maxCompletionToken := c.MaxCompletionToken
	return openrouterx.Config{
		BaseURL:            baseURL,
		APIKey:             apiKey,
		Model:              modelName,
		MaxCompletionToken: &maxCompletionToken,
		Temperature:        temp,
		Timeout:            c.Timeout,
		SiteURL:            strings.TrimSpace(c.SiteURL),
		SiteName:           strings.TrimSpace(c.SiteName),
		ExcludeReasoning:   purpose == PurposeChat && c.ChatExcludeReasoning,
	}
}
