package orchestratornode

import (
	"fmt"
	"strings"

	contractx "github.com/tanpawarit/kcartbot/agent/contract"
)

func FinalizeReply(in *GraphState) (GraphOutput, error) {
	if in == nil {
		return GraphOutput{}, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}
	return GraphOutput{
		Reply:    replyOrFallback(in.Reply),
		Language: in.Language,
	}, nil
}

func replyOrFallback(reply string) string {
	if s := strings.TrimSpace(reply); s != "" {
		return s
	}
	return FallbackReply
}
