package orchestratornode

import (
	"context"
	"fmt"

	contractx "github.com/tanpawarit/kcartbot/agent/contract"
	translationx "github.com/tanpawarit/kcartbot/agent/translation"
)

const (
	RouteRefuse      = "refuse"
	RouteTranslateIn = "translate_in"
)

func DetectLanguage(ctx context.Context, in *GraphState, gateway *translationx.Gateway) (*GraphState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}
	in.Language = gateway.Detect(ctx, in.Text)
	return in, nil
}

func RouteByLanguage(in *GraphState) (string, error) {
	if in == nil {
		return "", fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}
	if !in.Language.Supported() {
		return RouteRefuse, nil
	}
	return RouteTranslateIn, nil
}

// Refuse ends an unsupported-language turn without reaching the dispatcher.
func Refuse(ctx context.Context, in *GraphState, gateway *translationx.Gateway) (GraphOutput, error) {
	if in == nil {
		return GraphOutput{}, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}
	inbound := gateway.Normalize(ctx, in.Text, in.Language)
	return GraphOutput{
		Reply:    gateway.Outbound(ctx, inbound, ""),
		Language: contractx.LanguageEnglish,
	}, nil
}

func TranslateIn(ctx context.Context, in *GraphState, gateway *translationx.Gateway) (*GraphState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}
	in.Inbound = gateway.Normalize(ctx, in.Text, in.Language)
	return in, nil
}

func TranslateOut(ctx context.Context, in *GraphState, gateway *translationx.Gateway) (*GraphState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}
	in.Reply = gateway.Outbound(ctx, in.Inbound, in.Reply)
	return in, nil
}
