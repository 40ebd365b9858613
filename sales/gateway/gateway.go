// Package gateway sends compiled requests to the generation model and maps
// every failure to an empty suggestion set.
package gateway

import (
	"context"
	"fmt"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/compose"
	"github.com/rs/zerolog/log"
	contractx "github.com/tanpawarit/sales-assistant/sales/contract"
)

type Gateway struct {
	runner compose.Runnable[map[string]any, suggestionEnvelope]
}

var _ contractx.SuggestionGateway = (*Gateway)(nil)

// New compiles the suggestion graph around chatModel. A nil model yields a
// gateway that always returns no suggestions, for installs without an API
// credential.
func New(ctx context.Context, chatModel einomodel.BaseChatModel) (*Gateway, error) {
	if chatModel == nil {
		return &Gateway{}, nil
	}

	runner, err := compileSuggestionGraph(ctx, chatModel)
	if err != nil {
		return nil, fmt.Errorf("%w: compile suggestion graph: %v", contractx.ErrModelInvoke, err)
	}
	return &Gateway{runner: runner}, nil
}

func (g *Gateway) Enabled() bool {
	return g.runner != nil
}

// Generate never returns an error. Failures are logged and produce an empty,
// non-nil slice.
func (g *Gateway) Generate(ctx context.Context, req contractx.GenerationRequest) []contractx.Suggestion {
	out, err := g.generate(ctx, req)
	if err != nil {
		log.Error().
			Err(err).
			Str("mode", string(req.Mode)).
			Str("language", string(req.Language)).
			Msg("suggestion generation failed")
		return []contractx.Suggestion{}
	}

	log.Debug().
		Str("mode", string(req.Mode)).
		Int("suggestions", len(out)).
		Msg("suggestions generated")
	return out
}

func (g *Gateway) generate(ctx context.Context, req contractx.GenerationRequest) ([]contractx.Suggestion, error) {
	if g.runner == nil {
		return nil, contractx.ErrCredentialMissing
	}

	if len(req.Variables) == 0 {
		return nil, fmt.Errorf("%w: request has no template variables", contractx.ErrValidation)
	}

	env, err := g.runner.Invoke(ctx, req.Variables)
	if err != nil {
		return nil, fmt.Errorf("%w: suggestion invoke: %v", contractx.ErrModelInvoke, err)
	}
	return validateEnvelope(env)
}
