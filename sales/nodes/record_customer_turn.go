package assistantnode

import (
	"fmt"

	contractx "github.com/tanpawarit/sales-assistant/sales/contract"
	promptx "github.com/tanpawarit/sales-assistant/sales/prompt"
)

// RecordCustomerTurn snapshots the history window, then logs the input as a
// customer message for the modes that treat it as an incoming message.
// Outreach and Enhance treat it as a draft and never log it.
func RecordCustomerTurn(in *GraphState, log contractx.ConversationLog) (*GraphState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}

	in.History = log.RecentWindow(promptx.HistoryWindow)

	if !in.Mode.LogsInput() || in.Text == "" {
		return in, nil
	}

	msg, err := log.Append(contractx.RoleCustomer, in.Text)
	if err != nil {
		return nil, err
	}
	in.Logged = &msg
	return in, nil
}
