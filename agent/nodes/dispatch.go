package orchestratornode

import (
	"context"
	"fmt"

	contractx "github.com/tanpawarit/kcartbot/agent/contract"
)

func Dispatch(ctx context.Context, in *GraphState, dispatcher contractx.Dispatcher) (*GraphState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}

	out, err := dispatcher.Run(ctx, contractx.DispatchRequest{
		Actor:   in.Actor,
		Message: in.Inbound.English,
		History: in.History,
		Now:     in.Now,
	})
	if err != nil {
		return nil, err
	}
	in.Reply = out.Reply
	return in, nil
}
