package orchestrator

import (
	"context"
	"errors"
	"time"

	"github.com/cloudwego/eino/compose"
	"github.com/rs/zerolog"

	capabilityx "github.com/tanpawarit/kcartbot/agent/capability"
	contractx "github.com/tanpawarit/kcartbot/agent/contract"
	nodex "github.com/tanpawarit/kcartbot/agent/nodes"
	translationx "github.com/tanpawarit/kcartbot/agent/translation"
)

var ErrInvalidMessage = nodex.ErrInvalidMessage

type Reply = nodex.GraphOutput

type Orchestrator struct {
	gateway    *translationx.Gateway
	dispatcher contractx.Dispatcher
	transcript contractx.TranscriptRecorder
	log        zerolog.Logger

	graphRunner compose.Runnable[nodex.GraphInput, nodex.GraphOutput]

	now func() time.Time
}

type Option func(*Orchestrator)

func WithLogger(l zerolog.Logger) Option {
	return func(o *Orchestrator) { o.log = l }
}

func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) {
		if now != nil {
			o.now = now
		}
	}
}

// New compiles the turn graph. transcript may be nil, in which case nothing is recorded.
func New(
	gateway *translationx.Gateway,
	dispatcher contractx.Dispatcher,
	transcript contractx.TranscriptRecorder,
	opts ...Option,
) (*Orchestrator, error) {
	if gateway == nil {
		return nil, errors.New("translation gateway is required")
	}
	if dispatcher == nil {
		return nil, errors.New("dispatcher is required")
	}

	o := &Orchestrator{
		gateway:    gateway,
		dispatcher: dispatcher,
		transcript: transcript,
		log:        zerolog.Nop(),
		now:        time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}

	graphRunner, err := o.compileHandleMessageGraph(context.Background())
	if err != nil {
		return nil, err
	}
	o.graphRunner = graphRunner

	return o, nil
}

// HandleMessage runs one conversational turn. The only error callers should expect
// is a validation error for an empty message.
func (o *Orchestrator) HandleMessage(
	ctx context.Context,
	actor *capabilityx.Actor,
	message string,
	history []contractx.HistoryMessage,
) (Reply, error) {
	out, err := o.graphRunner.Invoke(ctx, nodex.GraphInput{
		Actor:   actor,
		Message: message,
		History: history,
	})
	if err != nil {
		return Reply{}, err
	}
	return out, nil
}
