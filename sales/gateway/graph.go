package gateway

import (
	"context"
	"fmt"
	"strings"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	contractx "github.com/tanpawarit/sales-assistant/sales/contract"
	promptx "github.com/tanpawarit/sales-assistant/sales/prompt"
)

type suggestionEnvelope struct {
	Suggestions []suggestionPayload `json:"suggestions"`
}

type suggestionPayload struct {
	ID          string `json:"id"`
	Text        string `json:"text"`
	Explanation string `json:"explanation"`
}

func compileSuggestionGraph(
	ctx context.Context,
	chatModel einomodel.BaseChatModel,
) (compose.Runnable[map[string]any, suggestionEnvelope], error) {
	parser := schema.NewMessageJSONParser[suggestionEnvelope](&schema.MessageJSONParseConfig{
		ParseFrom: schema.MessageParseFromContent,
	})

	graph := compose.NewGraph[map[string]any, suggestionEnvelope]()
	if err := graph.AddChatTemplateNode("prompt", promptx.ChatTemplate()); err != nil {
		return nil, fmt.Errorf("add suggestion prompt node: %w", err)
	}
	if err := graph.AddChatModelNode("model", chatModel); err != nil {
		return nil, fmt.Errorf("add suggestion model node: %w", err)
	}
	if err := graph.AddLambdaNode("parse_json", compose.MessageParser(parser)); err != nil {
		return nil, fmt.Errorf("add suggestion parser node: %w", err)
	}

	edges := [][2]string{
		{compose.START, "prompt"},
		{"prompt", "model"},
		{"model", "parse_json"},
		{"parse_json", compose.END},
	}
	for _, edge := range edges {
		if err := graph.AddEdge(edge[0], edge[1]); err != nil {
			return nil, fmt.Errorf("add suggestion edge %s->%s: %w", edge[0], edge[1], err)
		}
	}

	runner, err := graph.Compile(ctx, compose.WithGraphName("gateway.suggestions"))
	if err != nil {
		return nil, fmt.Errorf("compile suggestion graph: %w", err)
	}
	return runner, nil
}

// validateEnvelope enforces the declared shape: a suggestions array whose
// every element carries id, text and explanation.
func validateEnvelope(env suggestionEnvelope) ([]contractx.Suggestion, error) {
	if env.Suggestions == nil {
		return nil, fmt.Errorf("%w: suggestions key is missing", contractx.ErrSchemaViolation)
	}

	out := make([]contractx.Suggestion, 0, len(env.Suggestions))
	for i, s := range env.Suggestions {
		id := strings.TrimSpace(s.ID)
		text := strings.TrimSpace(s.Text)
		explanation := strings.TrimSpace(s.Explanation)
		switch {
		case id == "":
			return nil, fmt.Errorf("%w: suggestions[%d].id is missing", contractx.ErrSchemaViolation, i)
		case text == "":
			return nil, fmt.Errorf("%w: suggestions[%d].text is missing", contractx.ErrSchemaViolation, i)
		case explanation == "":
			return nil, fmt.Errorf("%w: suggestions[%d].explanation is missing", contractx.ErrSchemaViolation, i)
		}
		out = append(out, contractx.Suggestion{ID: id, Text: text, Explanation: explanation})
	}
	return out, nil
}
