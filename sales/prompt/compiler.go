// Package prompt turns the current mode, language, input, conversation tail
// and profiles into a single provider-agnostic generation request.
package prompt

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	contractx "github.com/tanpawarit/sales-assistant/sales/contract"
)

const (
	// HistoryWindow is how many trailing log entries go into a request.
	HistoryWindow = 3

	UnknownPlaceholder = "unknown"

	outreachBrief = "initial outreach"
)

var directives = map[contractx.Mode]string{
	contractx.ModeInitialOutreach: "Use BAB or PAS to open an engaging sales conversation.",
	contractx.ModeQualification:   "Ask smart, friendly questions that reveal the customer's intent and ability to pay.",
	contractx.ModeObjection:       "Reframe the objection into a reason to buy and back it with risk reversal.",
	contractx.ModeClosing:         "Use scarcity or choice architecture to close the sale now.",
	contractx.ModeEnhance:         "Rewrite the rep's draft to be more persuasive using psychological framing.",
}

var languageStyles = map[contractx.Language]string{
	contractx.LanguageSyrian: "professional spoken Syrian Arabic",
	contractx.LanguageGulf:   "polite, professional Gulf Arabic",
	contractx.LanguageFormal: "persuasive Modern Standard Arabic",
}

// Directive returns the one-line technique hint for mode.
func Directive(mode contractx.Mode) string {
	return directives[mode]
}

// LanguageStyle returns the register description used in the request.
func LanguageStyle(lang contractx.Language) string {
	return languageStyles[lang]
}

type Input struct {
	Mode     contractx.Mode
	Language contractx.Language
	RawInput string
	// History may hold the whole log; only the trailing HistoryWindow
	// entries are used.
	History  []contractx.Message
	Company  contractx.CompanyContext
	Customer contractx.CustomerContext
}

// Template variable names used by template/request.tmpl.
const (
	VarLanguageStyle = "language_style"
	VarMode          = "mode"
	VarDirective     = "directive"
	VarCompany       = "company"
	VarCustomer      = "customer"
	VarInput         = "input"
	VarHistory       = "history"
)

// Compile builds the request variables. It has no side effects; rendering
// happens in ChatTemplate.
func Compile(in Input) (contractx.GenerationRequest, error) {
	if !in.Mode.Valid() {
		return contractx.GenerationRequest{}, fmt.Errorf("%w: unsupported mode=%q", contractx.ErrValidation, in.Mode)
	}
	if !in.Language.Valid() {
		return contractx.GenerationRequest{}, fmt.Errorf("%w: unsupported language=%q", contractx.ErrValidation, in.Language)
	}

	history := historyEntries(in.History)
	historyJSON, err := marshalHistory(history)
	if err != nil {
		return contractx.GenerationRequest{}, err
	}

	input := strings.TrimSpace(in.RawInput)
	if input == "" {
		input = outreachBrief
	}

	return contractx.GenerationRequest{
		Mode:     in.Mode,
		Language: in.Language,
		Variables: map[string]any{
			VarLanguageStyle: LanguageStyle(in.Language),
			VarMode:          string(in.Mode),
			VarDirective:     Directive(in.Mode),
			VarCompany:       withStagePlaceholder(in.Company),
			VarCustomer:      withPlaceholders(in.Customer),
			VarInput:         input,
			VarHistory:       historyJSON,
		},
		History: history,
	}, nil
}

func historyEntries(messages []contractx.Message) []contractx.HistoryEntry {
	start := len(messages) - HistoryWindow
	if start < 0 {
		start = 0
	}
	out := make([]contractx.HistoryEntry, 0, len(messages)-start)
	for _, m := range messages[start:] {
		out = append(out, contractx.HistoryEntry{Role: m.Role, Content: m.Content})
	}
	return out
}

func marshalHistory(entries []contractx.HistoryEntry) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(entries); err != nil {
		return "", fmt.Errorf("marshal history: %w", err)
	}
	return strings.TrimSpace(buf.String()), nil
}

func withStagePlaceholder(c contractx.CompanyContext) contractx.CompanyContext {
	if strings.TrimSpace(string(c.BuyingStage)) == "" {
		c.BuyingStage = UnknownPlaceholder
	}
	return c
}

func withPlaceholders(c contractx.CustomerContext) contractx.CustomerContext {
	fill := func(v string) string {
		if strings.TrimSpace(v) == "" {
			return UnknownPlaceholder
		}
		return v
	}
	return contractx.CustomerContext{
		Name:       fill(c.Name),
		Industry:   fill(c.Industry),
		PainPoints: fill(c.PainPoints),
		Budget:     fill(c.Budget),
		Notes:      fill(c.Notes),
	}
}
