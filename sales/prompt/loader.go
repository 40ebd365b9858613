package prompt

import (
	_ "embed"
	"strings"

	einoprompt "github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"
)

var (
	//go:embed template/system.txt
	systemRaw string

	//go:embed template/request.tmpl
	requestRaw string
)

// SystemInstruction returns the fixed preamble sent with every request.
func SystemInstruction() string {
	return strings.TrimSpace(systemRaw)
}

// ChatTemplate is the system + request message pair, formatted with the
// Variables of a compiled request.
func ChatTemplate() einoprompt.ChatTemplate {
	return einoprompt.FromMessages(
		schema.GoTemplate,
		schema.SystemMessage(SystemInstruction()),
		schema.UserMessage(strings.TrimSpace(requestRaw)),
	)
}
