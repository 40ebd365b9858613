// Package assistant is the controller behind the console: it owns the
// selected mode, language, input box and current suggestion set, and runs
// the generate flow against the profile store, log and gateway.
package assistant

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/cloudwego/eino/compose"
	"github.com/rs/zerolog/log"
	contractx "github.com/tanpawarit/sales-assistant/sales/contract"
	nodex "github.com/tanpawarit/sales-assistant/sales/nodes"
)

var ErrEmptyInput = nodex.ErrEmptyInput

type Config struct {
	DefaultMode     string        `envconfig:"DEFAULT_MODE" split_words:"true" default:"Qualification"`
	DefaultLanguage string        `envconfig:"DEFAULT_LANGUAGE" split_words:"true" default:"Syrian"`
	GenerateTimeout time.Duration `envconfig:"GENERATE_TIMEOUT" split_words:"true" default:"60s"`
}

func (c Config) Validate() error {
	if _, err := contractx.ParseMode(c.DefaultMode); err != nil {
		return err
	}
	if _, err := contractx.ParseLanguage(c.DefaultLanguage); err != nil {
		return err
	}
	return nil
}

type Assistant struct {
	profiles contractx.ProfileStore
	log      contractx.ConversationLog
	gateway  contractx.SuggestionGateway

	graphRunner compose.Runnable[nodex.GraphInput, nodex.GraphOutput]
	timeout     time.Duration

	mu          sync.Mutex
	mode        contractx.Mode
	language    contractx.Language
	input       string
	suggestions []contractx.Suggestion
	generating  bool
	closed      bool
}

func New(
	profiles contractx.ProfileStore,
	conversation contractx.ConversationLog,
	gateway contractx.SuggestionGateway,
	cfg Config,
) (*Assistant, error) {
	if profiles == nil {
		return nil, errors.New("profile store is required")
	}
	if conversation == nil {
		return nil, errors.New("conversation log is required")
	}
	if gateway == nil {
		return nil, errors.New("suggestion gateway is required")
	}

	mode := contractx.ModeQualification
	if strings.TrimSpace(cfg.DefaultMode) != "" {
		m, err := contractx.ParseMode(cfg.DefaultMode)
		if err != nil {
			return nil, err
		}
		mode = m
	}
	language := contractx.LanguageSyrian
	if strings.TrimSpace(cfg.DefaultLanguage) != "" {
		l, err := contractx.ParseLanguage(cfg.DefaultLanguage)
		if err != nil {
			return nil, err
		}
		language = l
	}

	a := &Assistant{
		profiles:    profiles,
		log:         conversation,
		gateway:     gateway,
		timeout:     cfg.GenerateTimeout,
		mode:        mode,
		language:    language,
		suggestions: []contractx.Suggestion{},
	}

	graphRunner, err := a.compileGenerateGraph(context.Background())
	if err != nil {
		return nil, err
	}
	a.graphRunner = graphRunner

	return a, nil
}

func (a *Assistant) Mode() contractx.Mode {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.mode
}

func (a *Assistant) SetMode(m contractx.Mode) error {
	if !m.Valid() {
		return fmt.Errorf("%w: unsupported mode=%q", contractx.ErrValidation, m)
	}
	a.mu.Lock()
	a.mode = m
	a.mu.Unlock()
	return nil
}

func (a *Assistant) Language() contractx.Language {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.language
}

func (a *Assistant) SetLanguage(l contractx.Language) error {
	if !l.Valid() {
		return fmt.Errorf("%w: unsupported language=%q", contractx.ErrValidation, l)
	}
	a.mu.Lock()
	a.language = l
	a.mu.Unlock()
	return nil
}

func (a *Assistant) Input() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.input
}

func (a *Assistant) SetInput(s string) {
	a.mu.Lock()
	a.input = s
	a.mu.Unlock()
}

func (a *Assistant) Generating() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.generating
}

// Generate runs one generate action. The suggestion set is replaced
// wholesale by the result. Only one call may be outstanding; a second one
// fails with contract.ErrGenerationInFlight.
func (a *Assistant) Generate(ctx context.Context) ([]contractx.Suggestion, error) {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return nil, errors.New("assistant is closed")
	}
	if a.generating {
		a.mu.Unlock()
		return nil, contractx.ErrGenerationInFlight
	}
	in := nodex.GraphInput{Mode: a.mode, Language: a.language, Text: a.input}
	if _, err := nodex.ValidateRequest(in); err != nil {
		a.mu.Unlock()
		return nil, err
	}
	a.generating = true
	a.mu.Unlock()

	defer func() {
		a.mu.Lock()
		a.generating = false
		a.mu.Unlock()
	}()

	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	out, err := a.graphRunner.Invoke(ctx, in)
	if err != nil {
		return nil, err
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		log.Debug().Msg("discarding suggestions after close")
		return nil, nil
	}
	a.suggestions = out.Suggestions
	if out.ClearInput {
		a.input = ""
	}

	log.Info().
		Str("mode", string(in.Mode)).
		Str("language", string(in.Language)).
		Bool("logged_customer_turn", out.Logged != nil).
		Int("suggestions", len(out.Suggestions)).
		Msg("generate completed")

	return cloneSuggestions(a.suggestions), nil
}

func (a *Assistant) Suggestions() []contractx.Suggestion {
	a.mu.Lock()
	defer a.mu.Unlock()
	return cloneSuggestions(a.suggestions)
}

// UseSuggestion logs the chosen suggestion as a rep message. The suggestion
// set stays as it is.
func (a *Assistant) UseSuggestion(id string) (contractx.Message, error) {
	a.mu.Lock()
	var text string
	for _, s := range a.suggestions {
		if s.ID == id {
			text = s.Text
			break
		}
	}
	a.mu.Unlock()

	if text == "" {
		return contractx.Message{}, fmt.Errorf("%w: unknown suggestion id=%q", contractx.ErrValidation, id)
	}
	return a.log.Append(contractx.RoleRep, text)
}

// DismissSuggestions clears the suggestion set only; the log is untouched.
func (a *Assistant) DismissSuggestions() {
	a.mu.Lock()
	a.suggestions = []contractx.Suggestion{}
	a.mu.Unlock()
}

func (a *Assistant) Messages() []contractx.Message {
	return a.log.All()
}

func (a *Assistant) Company() contractx.CompanyContext {
	return a.profiles.Company()
}

func (a *Assistant) Customer() contractx.CustomerContext {
	return a.profiles.Customer()
}

// SetCompanyField updates one company field by its JSON name and saves.
func (a *Assistant) SetCompanyField(field, value string) error {
	c := a.profiles.Company()
	if err := c.Set(field, value); err != nil {
		return err
	}
	return a.profiles.SaveCompany(c)
}

func (a *Assistant) SetCustomerField(field, value string) error {
	c := a.profiles.Customer()
	if err := c.Set(field, value); err != nil {
		return err
	}
	return a.profiles.SaveCustomer(c)
}

func (a *Assistant) ExportProfiles() ([]byte, error) {
	return a.profiles.Export()
}

func (a *Assistant) ImportProfiles(data []byte) error {
	return a.profiles.Import(data)
}

func (a *Assistant) ResetProfiles(ctx context.Context) error {
	return a.profiles.Reset(ctx)
}

// Close makes any in-flight result be discarded.
func (a *Assistant) Close() {
	a.mu.Lock()
	a.closed = true
	a.mu.Unlock()
}

func cloneSuggestions(in []contractx.Suggestion) []contractx.Suggestion {
	out := make([]contractx.Suggestion, len(in))
	copy(out, in)
	return out
}
