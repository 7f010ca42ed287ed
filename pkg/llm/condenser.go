package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"

	"docchat/internal/models"
	"docchat/internal/types"
)

const condensePrompt = `Given a conversation (between Human and Assistant) and a follow up message from Human, rewrite the message to be a standalone question that captures all relevant context from the conversation.

<Chat History>
%s
<Follow Up Message>
%s

<Standalone question>
`

type CondenserConfig struct {
	APIKey  string
	Model   string
	BaseURL string
}

// Condenser rewrites context-dependent follow-ups ("and in 2023?") into
// standalone questions before they reach the retriever. This is its own
// model call, separate from answer synthesis.
type Condenser struct {
	config CondenserConfig
	llm    llms.Model
}

func NewCondenserWithConfig(config CondenserConfig) (*Condenser, error) {
	if config.Model == "" {
		config.Model = "gpt-4o-mini"
	}

	opts := []openai.Option{
		openai.WithToken(config.APIKey),
		openai.WithModel(config.Model),
	}
	if config.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(config.BaseURL))
	}

	model, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize condense model: %w", err)
	}
	return NewCondenserWithModel(model, config), nil
}

// NewCondenserWithModel wires an explicit model, used by tests.
func NewCondenserWithModel(model llms.Model, config CondenserConfig) *Condenser {
	return &Condenser{config: config, llm: model}
}

func (c *Condenser) Condense(ctx context.Context, history []models.Turn, utterance string) (string, error) {
	// Nothing to resolve against: the first message is already
	// standalone.
	if len(history) == 0 {
		return utterance, nil
	}

	prompt := fmt.Sprintf(condensePrompt, formatHistory(history), utterance)

	standalone, err := llms.GenerateFromSinglePrompt(ctx, c.llm, prompt, llms.WithTemperature(0))
	if err != nil {
		return "", &types.ModelError{Op: "condense", Err: err}
	}

	standalone = strings.TrimSpace(standalone)
	if standalone == "" {
		return utterance, nil
	}
	return standalone, nil
}

func formatHistory(history []models.Turn) string {
	var b strings.Builder
	for _, turn := range history {
		fmt.Fprintf(&b, "Human: %s\n", turn.Utterance)
		fmt.Fprintf(&b, "Assistant: %s\n", turn.Answer.Text)
	}
	return b.String()
}
