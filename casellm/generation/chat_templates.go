package generation

import (
	"fmt"
	"strings"
	"text/template"
)

// Message is one entry of the chat history.
type Message struct {
	Role    string `json:"role"` // "system", "user", "assistant"
	Content string `json:"content"`
}

// Chat templates for the instruction-tuned GGUF families we ship with.
// Mistral has no system role; the seed prompt simply arrives as the first user turn.

const MistralTemplate = `{{range .Messages}}{{if eq .Role "user"}}[INST] {{.Content}} [/INST]{{else if eq .Role "assistant"}}{{.Content}}</s>{{end}}{{end}}`

const ChatMLTemplate = `{{range .Messages}}<|im_start|>{{.Role}}
{{.Content}}<|im_end|>
{{end}}{{if .AddGenerationPrompt}}<|im_start|>assistant
{{end}}`

const GemmaTemplate = `{{range .Messages}}{{if eq .Role "assistant"}}<start_of_turn>model
{{else}}<start_of_turn>user
{{end}}{{.Content}}<end_of_turn>
{{end}}{{if .AddGenerationPrompt}}<start_of_turn>model
{{end}}`

var templates = map[string]string{
	"mistral": MistralTemplate,
	"chatml":  ChatMLTemplate,
	"gemma":   GemmaTemplate,
}

// stopWords end a prediction before the model starts writing the next turn itself.
var stopWords = map[string][]string{
	"mistral": {"[INST]"},
	"chatml":  {"<|im_end|>", "<|im_start|>"},
	"gemma":   {"<end_of_turn>"},
}

// ChatTemplate renders a message history into a single model prompt.
type ChatTemplate struct {
	Name string
	Stop []string
	tmpl *template.Template
}

// TemplateName picks a template for a model file name when none is configured.
func TemplateName(modelName string) string {
	lower := strings.ToLower(modelName)
	switch {
	case strings.Contains(lower, "mistral"), strings.Contains(lower, "mixtral"):
		return "mistral"
	case strings.Contains(lower, "gemma"):
		return "gemma"
	default:
		return "chatml"
	}
}

// GetChatTemplate returns the named template, or the one matching modelName when name is empty.
func GetChatTemplate(name, modelName string) (*ChatTemplate, error) {
	if name == "" {
		name = TemplateName(modelName)
	}

	name = strings.ToLower(name)
	src, ok := templates[name]
	if !ok {
		return nil, fmt.Errorf("unknown chat template %q", name)
	}

	tmpl, err := template.New(name).Parse(src)
	if err != nil {
		return nil, fmt.Errorf("failed to parse chat template %q: %w", name, err)
	}

	return &ChatTemplate{Name: name, Stop: stopWords[name], tmpl: tmpl}, nil
}

// Render formats messages and, when addGenerationPrompt is set, opens the assistant turn.
func (t *ChatTemplate) Render(messages []Message, addGenerationPrompt bool) (string, error) {
	var b strings.Builder
	err := t.tmpl.Execute(&b, struct {
		Messages            []Message
		AddGenerationPrompt bool
	}{messages, addGenerationPrompt})
	if err != nil {
		return "", fmt.Errorf("failed to render chat template %q: %w", t.Name, err)
	}
	return b.String(), nil
}
