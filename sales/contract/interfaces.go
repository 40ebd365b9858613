package contract

import "context"

// ProfileStore holds the singleton company and customer records.
type ProfileStore interface {
	Company() CompanyContext
	Customer() CustomerContext
	SaveCompany(c CompanyContext) error
	SaveCustomer(c CustomerContext) error
	Reset(ctx context.Context) error
	Export() ([]byte, error)
	Import(data []byte) error
}

// SuggestionGateway never fails: any upstream problem yields an empty result.
type SuggestionGateway interface {
	Generate(ctx context.Context, req GenerationRequest) []Suggestion
}

// ConversationLog is the append-only message log of the current session.
type ConversationLog interface {
	Append(role Role, content string) (Message, error)
	All() []Message
	RecentWindow(n int) []Message
}
