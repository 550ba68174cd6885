package translation

import (
	"context"
	"strings"
	"unicode"

	"github.com/rs/zerolog"

	contractx "github.com/tanpawarit/kcartbot/agent/contract"
)

const RefusalMessage = "Sorry, I currently only support English and Amharic. Please use one of these languages."

// Inbound is the result of normalizing one user message. Language is the only
// state carried from inbound to outbound processing of a turn.
type Inbound struct {
	Language contractx.Language
	Original string
	English  string
	Refused  bool
}

type Gateway struct {
	translator contractx.Translator
	log        zerolog.Logger
}

type Option func(*Gateway)

func WithLogger(l zerolog.Logger) Option {
	return func(g *Gateway) { g.log = l }
}

// NewGateway accepts a nil translator; every message is then treated as English.
func NewGateway(translator contractx.Translator, opts ...Option) *Gateway {
	g := &Gateway{translator: translator, log: zerolog.Nop()}
	for _, opt := range opts {
		if opt != nil {
			opt(g)
		}
	}
	return g
}

func (g *Gateway) Inbound(ctx context.Context, text string) Inbound {
	return g.Normalize(ctx, text, g.Detect(ctx, text))
}

// Normalize builds the Inbound for text already classified as lang, translating
// it to English when needed.
func (g *Gateway) Normalize(ctx context.Context, text string, lang contractx.Language) Inbound {
	in := Inbound{Language: lang, Original: text, English: text}
	switch {
	case !lang.Supported():
		in.Refused = true
	case lang.Translatable():
		in.English = g.toEnglish(ctx, text, lang)
	}
	return in
}

// Outbound converts the English reply back to the inbound language.
// A refused turn always yields RefusalMessage, whatever reply holds.
func (g *Gateway) Outbound(ctx context.Context, in Inbound, reply string) string {
	if in.Refused {
		return RefusalMessage
	}
	if !in.Language.Translatable() || strings.TrimSpace(reply) == "" || g.translator == nil {
		return reply
	}

	out, err := g.translator.FromEnglish(ctx, reply, in.Language)
	if err != nil {
		g.log.Warn().Err(err).Str("language", string(in.Language)).Msg("outbound translation failed; replying in english")
		return reply
	}
	if strings.TrimSpace(out) == "" {
		g.log.Warn().Str("language", string(in.Language)).Msg("outbound translation empty; replying in english")
		return reply
	}
	return strings.TrimSpace(out)
}

// Detect classifies text. Text containing Fidel script is Amharic without asking the
// translator; a failing translator leaves the message treated as English.
func (g *Gateway) Detect(ctx context.Context, text string) contractx.Language {
	if hasEthiopic(text) {
		return contractx.LanguageAmharic
	}
	if g.translator == nil {
		return contractx.LanguageEnglish
	}

	lang, err := g.translator.Detect(ctx, text)
	if err != nil {
		g.log.Warn().Err(err).Msg("language detection failed; treating message as english")
		return contractx.LanguageEnglish
	}
	return lang
}

func (g *Gateway) toEnglish(ctx context.Context, text string, from contractx.Language) string {
	if g.translator == nil {
		return text
	}
	out, err := g.translator.ToEnglish(ctx, text, from)
	if err != nil {
		g.log.Warn().Err(err).Str("language", string(from)).Msg("inbound translation failed; using original text")
		return text
	}
	if strings.TrimSpace(out) == "" {
		g.log.Warn().Str("language", string(from)).Msg("inbound translation empty; using original text")
		return text
	}
	return strings.TrimSpace(out)
}

func hasEthiopic(text string) bool {
	for _, r := range text {
		if unicode.Is(unicode.Ethiopic, r) {
			return true
		}
	}
	return false
}
