package assistantnode

import (
	"context"
	"fmt"

	contractx "github.com/tanpawarit/sales-assistant/sales/contract"
)

func GenerateSuggestions(
	ctx context.Context,
	in *GraphState,
	gateway contractx.SuggestionGateway,
) (*GraphState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}

	suggestions := gateway.Generate(ctx, in.Request)
	if suggestions == nil {
		suggestions = []contractx.Suggestion{}
	}
	in.Suggestions = suggestions
	return in, nil
}
