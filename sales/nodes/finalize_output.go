package assistantnode

import (
	"fmt"

	contractx "github.com/tanpawarit/sales-assistant/sales/contract"
)

func FinalizeOutput(in *GraphState) (GraphOutput, error) {
	if in == nil {
		return GraphOutput{}, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}

	return GraphOutput{
		Suggestions: in.Suggestions,
		Logged:      in.Logged,
		ClearInput:  in.Mode.LogsInput(),
	}, nil
}
