package assistantnode

import (
	"fmt"

	contractx "github.com/tanpawarit/sales-assistant/sales/contract"
	promptx "github.com/tanpawarit/sales-assistant/sales/prompt"
)

func CompileRequest(in *GraphState, profiles contractx.ProfileStore) (*GraphState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}

	req, err := promptx.Compile(promptx.Input{
		Mode:     in.Mode,
		Language: in.Language,
		RawInput: in.Text,
		History:  in.History,
		Company:  profiles.Company(),
		Customer: profiles.Customer(),
	})
	if err != nil {
		return nil, err
	}

	in.Request = req
	return in, nil
}
