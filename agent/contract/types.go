package contract

import (
	"time"

	capabilityx "github.com/tanpawarit/kcartbot/agent/capability"
)

// Language is the category the translation gateway assigns to an inbound message.
type Language string

const (
	LanguageEnglish      Language = "english"
	LanguageAmharic      Language = "amharic"
	LanguageAmharicLatin Language = "amharic_latin"
	LanguageOther        Language = "other"
)

func (l Language) Supported() bool {
	switch l {
	case LanguageEnglish, LanguageAmharic, LanguageAmharicLatin:
		return true
	default:
		return false
	}
}

// Translatable reports whether text in l must be converted to and from English.
func (l Language) Translatable() bool {
	return l == LanguageAmharic || l == LanguageAmharicLatin
}

// ParseLanguage maps a classifier answer to a Language; anything unknown is LanguageOther.
func ParseLanguage(s string) Language {
	switch l := Language(s); l {
	case LanguageEnglish, LanguageAmharic, LanguageAmharicLatin:
		return l
	default:
		return LanguageOther
	}
}

const (
	SenderUser = "user"
	SenderBot  = "bot"
)

type HistoryMessage struct {
	Sender  string `json:"sender"`
	Message string `json:"message"`
}

type DispatchRequest struct {
	Actor   *capabilityx.Actor
	Message string
	History []HistoryMessage
	Now     time.Time
}

type DispatchResult struct {
	Reply      string
	Iterations int
	// Exhausted is set when the iteration cap ended the turn.
	Exhausted bool
}

type ToolRequest struct {
	CallID string         `json:"call_id,omitempty"`
	Tool   string         `json:"tool"`
	Args   map[string]any `json:"args,omitempty"`
}

type ToolResult struct {
	Tool   string `json:"tool"`
	Result any    `json:"result,omitempty"`
	Error  string `json:"error,omitempty"`
}
