package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	einomodel "github.com/cloudwego/eino/components/model"
	geminix "github.com/tanpawarit/sales-assistant/pkg/gemini"
	openrouterx "github.com/tanpawarit/sales-assistant/pkg/openrouter"
	contractx "github.com/tanpawarit/sales-assistant/sales/contract"
	"google.golang.org/genai"
)

const (
	ProviderGemini     = "gemini"
	ProviderOpenRouter = "openrouter"

	defaultGeminiModel     = "gemini-2.5-flash"
	defaultOpenRouterModel = "openai/gpt-4o-mini"
)

// Config is loaded with the LLM prefix. An empty API key is not a load
// error: the gateway degrades to empty results instead.
type Config struct {
	Provider           string        `envconfig:"PROVIDER" default:"gemini"`
	BaseURL            string        `envconfig:"BASE_URL" split_words:"true"`
	APIKey             string        `envconfig:"API_KEY" split_words:"true"`
	Model              string        `envconfig:"MODEL" split_words:"true"`
	MaxCompletionToken int           `envconfig:"MAX_COMPLETION_TOKEN" split_words:"true" default:"2000"`
	Temperature        float32       `envconfig:"TEMPERATURE" split_words:"true" default:"0.7"`
	Timeout            time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"30s"`
	SiteURL            string        `envconfig:"SITE_URL" split_words:"true"`
	SiteName           string        `envconfig:"SITE_NAME" split_words:"true"`
}

func (c Config) Validate() error {
	switch c.provider() {
	case ProviderGemini, ProviderOpenRouter:
	default:
		return fmt.Errorf("%w: unsupported llm provider=%q", contractx.ErrValidation, c.Provider)
	}
	if c.Temperature < 0 || c.Temperature > 2 {
		return fmt.Errorf("%w: temperature must be within [0,2]", contractx.ErrValidation)
	}
	return nil
}

func (c Config) provider() string {
	p := strings.ToLower(strings.TrimSpace(c.Provider))
	if p == "" {
		return ProviderGemini
	}
	return p
}

func (c Config) HasCredential() bool {
	return strings.TrimSpace(c.APIKey) != ""
}

// ModelName falls back to a per-provider default when none is configured.
func (c Config) ModelName() string {
	if m := strings.TrimSpace(c.Model); m != "" {
		return m
	}
	if c.provider() == ProviderOpenRouter {
		return defaultOpenRouterModel
	}
	return defaultGeminiModel
}

func (c Config) OpenRouter() openrouterx.Config {
	baseURL := strings.TrimSpace(c.BaseURL)
	if baseURL == "" {
		baseURL = "https://openrouter.ai/api/v1"
	}
	maxCompletionToken := c.MaxCompletionToken
	return openrouterx.Config{
		BaseURL:            baseURL,
		APIKey:             strings.TrimSpace(c.APIKey),
		Model:              c.ModelName(),
		MaxCompletionToken: &maxCompletionToken,
		Temperature:        c.Temperature,
		Timeout:            c.Timeout,
		SiteURL:            strings.TrimSpace(c.SiteURL),
		SiteName:           strings.TrimSpace(c.SiteName),
		JSONMode:           true,
	}
}

func (c Config) Gemini() geminix.Config {
	return geminix.Config{
		APIKey:          strings.TrimSpace(c.APIKey),
		Model:           c.ModelName(),
		Temperature:     c.Temperature,
		MaxOutputTokens: int32(c.MaxCompletionToken),
		Timeout:         c.Timeout,
		BaseURL:         strings.TrimSpace(c.BaseURL),
		ResponseSchema:  SuggestionSchema(),
	}
}

// NewChatModel builds the configured provider. It returns
// contract.ErrCredentialMissing when no API key is set.
func (c Config) NewChatModel(ctx context.Context) (einomodel.BaseChatModel, error) {
	if !c.HasCredential() {
		return nil, fmt.Errorf("%w: provider=%s", contractx.ErrCredentialMissing, c.provider())
	}

	switch c.provider() {
	case ProviderOpenRouter:
		cfg := c.OpenRouter()
		return cfg.New(ctx)
	case ProviderGemini:
		return geminix.NewChatModel(ctx, c.Gemini())
	default:
		return nil, fmt.Errorf("%w: unsupported llm provider=%q", contractx.ErrValidation, c.Provider)
	}
}

// SuggestionSchema is the declared response shape:
// {"suggestions":[{"id","text","explanation"}]} with every field required.
func SuggestionSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"suggestions": {
				Type: genai.TypeArray,
				Items: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"id":          {Type: genai.TypeString},
						"text":        {Type: genai.TypeString},
						"explanation": {Type: genai.TypeString},
					},
					Required: []string{"id", "text", "explanation"},
				},
			},
		},
		Required: []string{"suggestions"},
	}
}
