package assistantnode

import (
	"errors"
	"fmt"
	"strings"

	contractx "github.com/tanpawarit/sales-assistant/sales/contract"
)

var ErrEmptyInput = errors.New("input is empty")

type GraphInput struct {
	Mode     contractx.Mode
	Language contractx.Language
	Text     string
}

type GraphOutput struct {
	Suggestions []contractx.Suggestion
	Logged      *contractx.Message
	ClearInput  bool
}

type GraphState struct {
	Mode     contractx.Mode
	Language contractx.Language
	Text     string

	// History is the log as it was before this turn was recorded.
	History []contractx.Message
	Logged  *contractx.Message

	Request     contractx.GenerationRequest
	Suggestions []contractx.Suggestion
}

// ValidateRequest applies the input gate: every mode except Initial Outreach
// needs non-empty text.
func ValidateRequest(in GraphInput) (*GraphState, error) {
	if !in.Mode.Valid() {
		return nil, fmt.Errorf("%w: unsupported mode=%q", contractx.ErrValidation, in.Mode)
	}
	if !in.Language.Valid() {
		return nil, fmt.Errorf("%w: unsupported language=%q", contractx.ErrValidation, in.Language)
	}

	text := strings.TrimSpace(in.Text)
	if text == "" && in.Mode.RequiresInput() {
		return nil, fmt.Errorf("%w: mode=%s", ErrEmptyInput, in.Mode)
	}

	return &GraphState{
		Mode:     in.Mode,
		Language: in.Language,
		Text:     text,
	}, nil
}
