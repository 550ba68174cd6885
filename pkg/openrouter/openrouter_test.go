package openrouter

import (
	"testing"
	"time"
)

func TestChatModelConfig(t *testing.T) {
	t.Parallel()

	maxTokens := 512
	cfg := &Config{
		BaseURL:            "https://openrouter.ai/api/v1/",
		APIKey:             " key ",
		Model:              " some/model ",
		MaxCompletionToken: &maxTokens,
		Temperature:        0.2,
		Timeout:            5 * time.Second,
	}

	conf := cfg.chatModelConfig()
	if conf.BaseURL != "https://openrouter.ai/api/v1" || conf.APIKey != "key" || conf.Model != "some/model" {
		t.Fatalf("unexpected chat model config: %+v", conf)
	}
	if conf.Temperature == nil || *conf.Temperature != 0.2 {
		t.Fatalf("temperature not carried over: %v", conf.Temperature)
	}
	if conf.ExtraFields != nil {
		t.Fatalf("no extra fields expected, got %v", conf.ExtraFields)
	}

	cfg.ExcludeReasoning = true
	reasoning, ok := cfg.chatModelConfig().ExtraFields["reasoning"].(map[string]any)
	if !ok || reasoning["exclude"] != true {
		t.Fatalf("reasoning exclusion missing: %v", cfg.chatModelConfig().ExtraFields)
	}
}

func TestNewClientWithoutKey(t *testing.T) {
	t.Parallel()

	if NewClient(Config{BaseURL: "https://openrouter.ai/api/v1"}) != nil {
		t.Fatal("expected nil client without api key")
	}
	if NewClient(Config{APIKey: "key"}) == nil {
		t.Fatal("expected client with api key")
	}
}
