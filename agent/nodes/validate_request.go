package orchestratornode

import (
	"fmt"
	"strings"
	"time"

	contractx "github.com/tanpawarit/kcartbot/agent/contract"
)

func ValidateRequest(in GraphInput, nowFn func() time.Time) (*GraphState, error) {
	text := strings.TrimSpace(in.Message)
	if text == "" {
		return nil, fmt.Errorf("%w: %w", contractx.ErrValidation, ErrInvalidMessage)
	}

	history := make([]contractx.HistoryMessage, 0, len(in.History))
	for _, h := range in.History {
		if strings.TrimSpace(h.Message) == "" {
			continue
		}
		if h.Sender != contractx.SenderBot {
			h.Sender = contractx.SenderUser
		}
		history = append(history, h)
	}

	return &GraphState{
		Actor:   in.Actor,
		Text:    text,
		History: history,
		Now:     nowFn().UTC(),
	}, nil
}
