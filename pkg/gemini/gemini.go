// Package gemini adapts the Google GenAI client to eino's chat model
// interface so Gemini can sit in the same graphs as any other model.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"google.golang.org/genai"
)

var ErrStreamUnsupported = errors.New("gemini: streaming is not supported")

type Config struct {
	APIKey          string
	Model           string
	Temperature     float32
	MaxOutputTokens int32
	Timeout         time.Duration
	// BaseURL overrides the Gemini API endpoint.
	BaseURL string
	// ResponseSchema, when set, switches the model to JSON output that must
	// match the schema.
	ResponseSchema *genai.Schema
}

type ChatModel struct {
	client *genai.Client
	cfg    Config
}

var _ model.BaseChatModel = (*ChatModel)(nil)

func NewChatModel(ctx context.Context, cfg Config) (*ChatModel, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("gemini: api key is required")
	}
	if strings.TrimSpace(cfg.Model) == "" {
		return nil, errors.New("gemini: model is required")
	}

	clientCfg := &genai.ClientConfig{
		APIKey:  strings.TrimSpace(cfg.APIKey),
		Backend: genai.BackendGeminiAPI,
	}
	if base := strings.TrimSpace(cfg.BaseURL); base != "" {
		clientCfg.HTTPOptions = genai.HTTPOptions{BaseURL: base}
	}
	if cfg.Timeout > 0 {
		clientCfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	}

	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		return nil, fmt.Errorf("gemini: create client: %w", err)
	}
	return &ChatModel{client: client, cfg: cfg}, nil
}

func (m *ChatModel) Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	temperature := m.cfg.Temperature
	modelName := m.cfg.Model
	common := model.GetCommonOptions(&model.Options{
		Temperature: &temperature,
		Model:       &modelName,
	}, opts...)

	contents, system := splitMessages(input)
	if len(contents) == 0 {
		return nil, errors.New("gemini: at least one user message is required")
	}

	genCfg := &genai.GenerateContentConfig{
		SystemInstruction: system,
		Temperature:       common.Temperature,
		MaxOutputTokens:   m.cfg.MaxOutputTokens,
	}
	if common.MaxTokens != nil {
		genCfg.MaxOutputTokens = int32(*common.MaxTokens)
	}
	if m.cfg.ResponseSchema != nil {
		genCfg.ResponseMIMEType = "application/json"
		genCfg.ResponseSchema = m.cfg.ResponseSchema
	}

	resp, err := m.client.Models.GenerateContent(ctx, *common.Model, contents, genCfg)
	if err != nil {
		return nil, fmt.Errorf("gemini: generate content: %w", err)
	}

	out := schema.AssistantMessage(resp.Text(), nil)
	if usage := resp.UsageMetadata; usage != nil {
		out.ResponseMeta = &schema.ResponseMeta{
			Usage: &schema.TokenUsage{
				PromptTokens:     int(usage.PromptTokenCount),
				CompletionTokens: int(usage.CandidatesTokenCount),
				TotalTokens:      int(usage.TotalTokenCount),
			},
		}
	}
	return out, nil
}

func (m *ChatModel) Stream(context.Context, []*schema.Message, ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, ErrStreamUnsupported
}

// splitMessages folds system messages into one system instruction and maps
// the rest to Gemini roles.
func splitMessages(input []*schema.Message) ([]*genai.Content, *genai.Content) {
	var (
		systemParts []string
		contents    []*genai.Content
	)
	for _, msg := range input {
		if msg == nil {
			continue
		}
		switch msg.Role {
		case schema.System:
			if text := strings.TrimSpace(msg.Content); text != "" {
				systemParts = append(systemParts, text)
			}
		case schema.Assistant:
			contents = append(contents, genai.NewContentFromText(msg.Content, genai.RoleModel))
		default:
			contents = append(contents, genai.NewContentFromText(msg.Content, genai.RoleUser))
		}
	}

	var system *genai.Content
	if len(systemParts) > 0 {
		system = genai.NewContentFromText(strings.Join(systemParts, "\n\n"), genai.RoleUser)
	}
	return contents, system
}
