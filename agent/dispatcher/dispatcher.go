package dispatcher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog"

	capabilityx "github.com/tanpawarit/kcartbot/agent/capability"
	contractx "github.com/tanpawarit/kcartbot/agent/contract"
	toolx "github.com/tanpawarit/kcartbot/agent/tool"
)

const ApologyMessage = "I apologize, but I'm having trouble processing your request right now. Please try again."

const (
	DefaultMaxIterations = 5
	DefaultHistoryWindow = 10
)

type Config struct {
	MaxIterations int
	HistoryWindow int
}

// Dispatcher runs the bounded reason/act loop of one turn against a tool-calling model.
type Dispatcher struct {
	model einomodel.ToolCallingChatModel
	exec  toolx.Executor
	cfg   Config
	log   zerolog.Logger
}

var _ contractx.Dispatcher = (*Dispatcher)(nil)

type Option func(*Dispatcher)

func WithLogger(l zerolog.Logger) Option {
	return func(d *Dispatcher) { d.log = l }
}

func New(model einomodel.ToolCallingChatModel, exec toolx.Executor, cfg Config, opts ...Option) (*Dispatcher, error) {
	if model == nil {
		return nil, errors.New("chat model is required")
	}
	if exec == nil {
		exec = toolx.DefaultExecutor()
	}
	if cfg.MaxIterations <= 0 {
		cfg.MaxIterations = DefaultMaxIterations
	}
	if cfg.HistoryWindow <= 0 {
		cfg.HistoryWindow = DefaultHistoryWindow
	}

	d := &Dispatcher{
		model: model,
		exec:  exec,
		cfg:   cfg,
		log:   zerolog.Nop(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(d)
		}
	}
	return d, nil
}

// Run never fails because of the model or a tool. Model errors and an exhausted
// iteration budget both end the turn with ApologyMessage.
func (d *Dispatcher) Run(ctx context.Context, req contractx.DispatchRequest) (contractx.DispatchResult, error) {
	message := strings.TrimSpace(req.Message)
	if message == "" {
		return contractx.DispatchResult{}, fmt.Errorf("%w: message is empty", contractx.ErrValidation)
	}
	now := req.Now
	if now.IsZero() {
		now = time.Now()
	}

	set := capabilityx.For(req.Actor)
	log := d.log.With().Str("role", string(set.Role)).Logger()

	chat, err := d.model.WithTools(toolx.Infos(set.Operations))
	if err != nil {
		log.Error().Err(fmt.Errorf("%w: bind tools: %v", contractx.ErrModelInvoke, err)).Msg("bind tools failed")
		return contractx.DispatchResult{Reply: ApologyMessage}, nil
	}

	msgs := buildMessages(set, req.History, message, now, d.cfg.HistoryWindow)

	iterations := 0
	for iterations < d.cfg.MaxIterations {
		iterations++

		resp, err := generate(ctx, chat, msgs)
		if err != nil {
			log.Error().Err(err).Int("iteration", iterations).Msg("model invoke failed")
			return contractx.DispatchResult{Reply: ApologyMessage, Iterations: iterations}, nil
		}

		if len(resp.ToolCalls) == 0 {
			return contractx.DispatchResult{
				Reply:      strings.TrimSpace(resp.Content),
				Iterations: iterations,
			}, nil
		}

		call := resp.ToolCalls[0]
		if len(resp.ToolCalls) > 1 {
			log.Debug().Int("ignored", len(resp.ToolCalls)-1).Msg("model requested several tools; honoring the first")
		}
		msgs = append(msgs, schema.AssistantMessage(resp.Content, []schema.ToolCall{call}))

		payload := d.invoke(ctx, set, req.Actor, call)
		msgs = append(msgs, schema.ToolMessage(payload, call.ID))
	}

	log.Warn().Int("max_iterations", d.cfg.MaxIterations).Msg("iteration budget exhausted")
	return contractx.DispatchResult{
		Reply:      ApologyMessage,
		Iterations: iterations,
		Exhausted:  true,
	}, nil
}

func generate(ctx context.Context, chat einomodel.ToolCallingChatModel, msgs []*schema.Message) (*schema.Message, error) {
	resp, err := chat.Generate(ctx, msgs)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", contractx.ErrModelInvoke, err)
	}
	if resp == nil {
		return nil, fmt.Errorf("%w: empty model response", contractx.ErrSchemaViolation)
	}
	return resp, nil
}

// invoke returns the JSON payload handed back to the model for one tool call.
func (d *Dispatcher) invoke(ctx context.Context, set capabilityx.Set, actor *capabilityx.Actor, call schema.ToolCall) (payload string) {
	name := strings.TrimSpace(call.Function.Name)
	log := d.log.With().Str("tool", name).Logger()

	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("tool executor panicked")
			payload = errorPayload(fmt.Sprintf("tool %s failed unexpectedly", name))
		}
	}()

	if !set.Allows(capabilityx.Operation(name)) {
		log.Warn().Str("role", string(set.Role)).Msg("model requested a tool outside the capability set")
		return errorPayload(fmt.Sprintf("%s: %s for role %s", contractx.ErrToolUnavailable, name, set.Role))
	}

	args := map[string]any{}
	if raw := strings.TrimSpace(call.Function.Arguments); raw != "" {
		if err := json.Unmarshal([]byte(raw), &args); err != nil {
			return errorPayload(fmt.Sprintf("invalid arguments for %s: %v", name, err))
		}
	}

	start := time.Now()
	res := d.exec(ctx, actor, contractx.ToolRequest{CallID: call.ID, Tool: name, Args: args})
	log.Info().
		Dur("took", time.Since(start)).
		Bool("failed", res.Error != "").
		Msg("tool executed")

	if res.Error != "" {
		return errorPayload(res.Error)
	}
	raw, err := json.Marshal(res.Result)
	if err != nil {
		return errorPayload(fmt.Sprintf("encode result of %s: %v", name, err))
	}
	return string(raw)
}

func errorPayload(msg string) string {
	raw, _ := json.Marshal(map[string]string{"error": msg})
	return string(raw)
}

func buildMessages(set capabilityx.Set, history []contractx.HistoryMessage, message string, now time.Time, window int) []*schema.Message {
	system := fmt.Sprintf("%s\n\nToday's date is %s. Use it to resolve relative dates such as today, tomorrow or in three days.",
		set.Instructions, now.Format("2006-01-02"))

	recent := truncateHistory(history, window)
	msgs := make([]*schema.Message, 0, len(recent)+2)
	msgs = append(msgs, schema.SystemMessage(system))
	for _, h := range recent {
		text := strings.TrimSpace(h.Message)
		if text == "" {
			continue
		}
		switch h.Sender {
		case contractx.SenderBot:
			msgs = append(msgs, schema.AssistantMessage(text, nil))
		default:
			msgs = append(msgs, schema.UserMessage(text))
		}
	}
	return append(msgs, schema.UserMessage(message))
}

func truncateHistory(history []contractx.HistoryMessage, window int) []contractx.HistoryMessage {
	if window <= 0 {
		return nil
	}
	if len(history) <= window {
		return history
	}
	return history[len(history)-window:]
}
