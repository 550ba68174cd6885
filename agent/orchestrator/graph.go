package orchestrator

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/compose"
	nodex "github.com/tanpawarit/kcartbot/agent/nodes"
)

func (o *Orchestrator) compileHandleMessageGraph(
	ctx context.Context,
) (compose.Runnable[nodex.GraphInput, nodex.GraphOutput], error) {
	graph := compose.NewGraph[nodex.GraphInput, nodex.GraphOutput]()

	if err := graph.AddLambdaNode("validate_request",
		compose.InvokableLambda(func(ctx context.Context, in nodex.GraphInput) (*nodex.GraphState, error) {
			return nodex.ValidateRequest(in, o.now)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node validate_request: %w", err)
	}

	if err := graph.AddLambdaNode("detect_language",
		compose.InvokableLambda(func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
			return nodex.DetectLanguage(ctx, in, o.gateway)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node detect_language: %w", err)
	}

	if err := graph.AddLambdaNode(nodex.RouteRefuse,
		compose.InvokableLambda(func(ctx context.Context, in *nodex.GraphState) (nodex.GraphOutput, error) {
			return nodex.Refuse(ctx, in, o.gateway)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node refuse: %w", err)
	}

	if err := graph.AddLambdaNode(nodex.RouteTranslateIn,
		compose.InvokableLambda(func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
			return nodex.TranslateIn(ctx, in, o.gateway)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node translate_in: %w", err)
	}

	if err := graph.AddLambdaNode("dispatch",
		compose.InvokableLambda(func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
			return nodex.Dispatch(ctx, in, o.dispatcher)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node dispatch: %w", err)
	}

	if err := graph.AddLambdaNode("translate_out",
		compose.InvokableLambda(func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
			return nodex.TranslateOut(ctx, in, o.gateway)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node translate_out: %w", err)
	}

	if err := graph.AddLambdaNode("record_transcript",
		compose.InvokableLambda(func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
			return nodex.RecordTranscript(ctx, in, o.transcript, o.log)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node record_transcript: %w", err)
	}

	if err := graph.AddLambdaNode("finalize_reply",
		compose.InvokableLambda(func(ctx context.Context, in *nodex.GraphState) (nodex.GraphOutput, error) {
			return nodex.FinalizeReply(in)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node finalize_reply: %w", err)
	}

	branch := compose.NewGraphBranch(
		func(ctx context.Context, in *nodex.GraphState) (string, error) {
			return nodex.RouteByLanguage(in)
		},
		map[string]bool{
			nodex.RouteRefuse:      true,
			nodex.RouteTranslateIn: true,
		},
	)
	if err := graph.AddBranch("detect_language", branch); err != nil {
		return nil, fmt.Errorf("add branch detect_language: %w", err)
	}

	edges := [][2]string{
		{compose.START, "validate_request"},
		{"validate_request", "detect_language"},
		{nodex.RouteRefuse, compose.END},
		{nodex.RouteTranslateIn, "dispatch"},
		{"dispatch", "translate_out"},
		{"translate_out", "record_transcript"},
		{"record_transcript", "finalize_reply"},
		{"finalize_reply", compose.END},
	}

	for _, edge := range edges {
		if err := graph.AddEdge(edge[0], edge[1]); err != nil {
			return nil, fmt.Errorf("add edge %s->%s: %w", edge[0], edge[1], err)
		}
	}

	runner, err := graph.Compile(ctx, compose.WithGraphName("orchestrator.handle_message"))
	if err != nil {
		return nil, fmt.Errorf("compile orchestrator graph: %w", err)
	}
	return runner, nil
}
