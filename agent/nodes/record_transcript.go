package orchestratornode

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	contractx "github.com/tanpawarit/kcartbot/agent/contract"
)

// RecordTranscript stores the original message and the final reply for
// authenticated actors. A failed write is logged and the turn continues.
func RecordTranscript(
	ctx context.Context,
	in *GraphState,
	recorder contractx.TranscriptRecorder,
	log zerolog.Logger,
) (*GraphState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}
	if recorder == nil || !in.Actor.Authenticated() {
		return in, nil
	}

	if err := recorder.RecordExchange(ctx, in.Actor.ID, in.Text, replyOrFallback(in.Reply)); err != nil {
		log.Error().Err(err).Str("user_id", in.Actor.ID).Msg("record transcript failed")
	}
	return in, nil
}
