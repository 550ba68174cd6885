package translation

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/openai/openai-go"

	contractx "github.com/tanpawarit/kcartbot/agent/contract"
)

const detectPrompt = `Classify the language of the text into exactly one category:
- english: English
- amharic: Amharic written in Fidel script (ሀ, ለ, ሐ ...)
- amharic_latin: Amharic transliterated with Latin letters (e.g. "selam", "ishi")
- other: any other language

Examples:
"Hello, how are you?" -> english
"ሰላም እንደምን ነህ?" -> amharic
"selam indemin neh?" -> amharic_latin
"Bonjour comment allez-vous?" -> other

Answer with the category name only.`

const toEnglishPrompt = `Translate the user's Amharic text into English. Keep the intent, tone and any product names, quantities or dates. If it is a question or request, keep it one. Reply with the translation only.`

const toFidelPrompt = `Translate the user's English text into Amharic written in Fidel script. Keep the meaning, tone, numbers, prices, dates, ids and urls unchanged. Reply with the translation only.`

const toLatinPrompt = `Translate the user's English text into Amharic transliterated with Latin letters, the way people type Amharic on a phone (e.g. "selam", "ishi", "ameseginalehu"). Do not use Fidel script. Keep the meaning, tone, numbers, prices, dates, ids and urls unchanged. Reply with the transliteration only.`

// LLMTranslator implements contract.Translator with plain chat completions.
type LLMTranslator struct {
	client      *openai.Client
	model       string
	temperature float64
}

var _ contractx.Translator = (*LLMTranslator)(nil)

type TranslatorOption func(*LLMTranslator)

// WithTemperature sets the sampling temperature of every completion. Default 0.
func WithTemperature(temp float64) TranslatorOption {
	return func(t *LLMTranslator) { t.temperature = temp }
}

func NewLLMTranslator(client *openai.Client, model string, opts ...TranslatorOption) (*LLMTranslator, error) {
	if client == nil {
		return nil, errors.New("openai client is required")
	}
	if strings.TrimSpace(model) == "" {
		return nil, errors.New("translation model is required")
	}
	t := &LLMTranslator{client: client, model: strings.TrimSpace(model)}
	for _, opt := range opts {
		if opt != nil {
			opt(t)
		}
	}
	return t, nil
}

func (t *LLMTranslator) Detect(ctx context.Context, text string) (contractx.Language, error) {
	out, err := t.complete(ctx, detectPrompt, text)
	if err != nil {
		return "", err
	}
	answer := strings.Trim(strings.ToLower(strings.TrimSpace(out)), "\"'`. ")
	return contractx.ParseLanguage(answer), nil
}

func (t *LLMTranslator) ToEnglish(ctx context.Context, text string, from contractx.Language) (string, error) {
	if !from.Translatable() {
		return text, nil
	}
	return t.complete(ctx, toEnglishPrompt, text)
}

// FromEnglish answers in the script the user wrote in: Fidel for amharic, Latin
// letters for amharic_latin.
func (t *LLMTranslator) FromEnglish(ctx context.Context, text string, to contractx.Language) (string, error) {
	switch to {
	case contractx.LanguageAmharic:
		return t.complete(ctx, toFidelPrompt, text)
	case contractx.LanguageAmharicLatin:
		return t.complete(ctx, toLatinPrompt, text)
	default:
		return text, nil
	}
}

func (t *LLMTranslator) complete(ctx context.Context, system, text string) (string, error) {
	resp, err := t.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(t.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(text),
		},
		Temperature: openai.Float(t.temperature),
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", contractx.ErrTranslate, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: no choices returned", contractx.ErrTranslate)
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
