package orchestratornode

import (
	"errors"
	"time"

	capabilityx "github.com/tanpawarit/kcartbot/agent/capability"
	contractx "github.com/tanpawarit/kcartbot/agent/contract"
	translationx "github.com/tanpawarit/kcartbot/agent/translation"
)

var ErrInvalidMessage = errors.New("message is empty")

const FallbackReply = "I apologize, but I couldn't generate a proper response. Please try rephrasing your question."

type GraphInput struct {
	Actor   *capabilityx.Actor
	Message string
	History []contractx.HistoryMessage
}

type GraphOutput struct {
	Reply    string
	Language contractx.Language
}

// GraphState flows through every node of one turn.
type GraphState struct {
	Actor   *capabilityx.Actor
	Text    string
	History []contractx.HistoryMessage
	Now     time.Time

	Language contractx.Language
	Inbound  translationx.Inbound

	Reply string
}
