package llm

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"

	"docchat/internal/models"
	"docchat/internal/types"
)

// systemPrompt is the fixed answering policy. The target language of
// every response is Polish, whatever language the question or the
// retrieved text is in.
const systemPrompt = `You are a highly precise analytical assistant.
Your goal is to answer user questions strictly based on the provided document context.

RULES:
1. Do not hallucinate. If the answer is not present in the context, explicitly state: "I cannot find this information in the provided document."
2. Every factual or numerical claim must be supported by a direct quote from the text.
3. Be concise and professional.
4. IMPORTANT: Always generate your final response in Polish, regardless of the prompt language.`

// FallbackAnswer replaces an empty or placeholder completion, and is
// the canned response when retrieval found nothing relevant.
const FallbackAnswer = "Przepraszam, ale nie znalazłem odpowiednich informacji w załączonym dokumencie."

// emptyResponseSentinel is the literal some chat models emit instead of
// declining. Matched as a second guard behind the structural
// blank-answer check.
const emptyResponseSentinel = "Empty Response"

type ChatConfig struct {
	APIKey            string
	Model             string
	BaseURL           string
	Temperature       float64
	MaxTokens         int
	CitationChunkSize int
}

// ChatEngine produces citation-grounded answers: retrieved passages are
// cut into citation-sized windows, numbered, fed to the model with the
// answering policy, and the produced citations map back to the source
// page labels for side-panel display.
type ChatEngine struct {
	config ChatConfig
	llm    llms.Model
}

func NewWithConfig(config ChatConfig) (*ChatEngine, error) {
	applyChatDefaults(&config)

	opts := []openai.Option{
		openai.WithToken(config.APIKey),
		openai.WithModel(config.Model),
	}
	if config.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(config.BaseURL))
	}

	model, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize chat model: %w", err)
	}
	return NewWithModel(model, config), nil
}

// NewWithModel wires an explicit model, used by tests.
func NewWithModel(model llms.Model, config ChatConfig) *ChatEngine {
	applyChatDefaults(&config)
	return &ChatEngine{config: config, llm: model}
}

func applyChatDefaults(config *ChatConfig) {
	if config.Model == "" {
		config.Model = "gpt-4o-mini"
	}
	if config.MaxTokens == 0 {
		config.MaxTokens = 2000
	}
	if config.CitationChunkSize == 0 {
		config.CitationChunkSize = 512
	}
}

func (ce *ChatEngine) Answer(ctx context.Context, query string, results []models.RetrievalResult) (models.Answer, error) {
	if len(results) == 0 {
		// Valid outcome, not an error: nothing relevant was retrieved.
		return models.Answer{Text: FallbackAnswer, NoContext: true}, nil
	}

	citations := ce.buildCitations(results)

	content := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, systemPrompt),
		llms.TextParts(llms.ChatMessageTypeHuman, buildContextPrompt(query, citations)),
	}

	response, err := ce.llm.GenerateContent(ctx, content,
		llms.WithTemperature(ce.config.Temperature),
		llms.WithMaxTokens(ce.config.MaxTokens),
	)
	if err != nil {
		return models.Answer{}, &types.ModelError{Op: "answer", Err: err}
	}

	raw := ""
	if len(response.Choices) > 0 {
		raw = strings.TrimSpace(response.Choices[0].Content)
	}
	if raw == "" || raw == emptyResponseSentinel {
		return models.Answer{Text: FallbackAnswer, NoContext: true}, nil
	}

	return models.Answer{Text: raw, Citations: citations}, nil
}

// buildCitations splits retrieved passages into citation windows. The
// window size only affects display granularity; every window keeps the
// page label of the chunk it came from.
func (ce *ChatEngine) buildCitations(results []models.RetrievalResult) []models.Citation {
	var citations []models.Citation

	for _, result := range results {
		label := result.Chunk.PageLabel
		if label == "" {
			label = "Unknown"
		}
		for _, window := range splitWindows(result.Chunk.Text, ce.config.CitationChunkSize) {
			citations = append(citations, models.Citation{
				Label:     fmt.Sprintf("Page %s", label),
				PageLabel: result.Chunk.PageLabel,
				Text:      window,
			})
		}
	}

	return citations
}

func buildContextPrompt(query string, citations []models.Citation) string {
	var b strings.Builder

	b.WriteString("Context information is below.\n")
	for i, citation := range citations {
		fmt.Fprintf(&b, "\nSource %d (%s):\n%s\n", i+1, citation.Label, citation.Text)
	}
	b.WriteString("\nGiven the context information and not prior knowledge, answer the question.\n")
	fmt.Fprintf(&b, "Question: %s\n", query)

	return b.String()
}

// splitWindows cuts text into pieces of at most size characters,
// breaking on whitespace where possible.
func splitWindows(text string, size int) []string {
	text = strings.TrimSpace(text)
	if len(text) <= size {
		return []string{text}
	}

	var windows []string
	for len(text) > size {
		cut := size
		if idx := strings.LastIndexAny(text[:size], " \t\n"); idx > size/2 {
			cut = idx
		} else {
			// No usable whitespace break; back the cut up to a rune
			// boundary so a multi-byte character is never split.
			for cut > 0 && !utf8.RuneStart(text[cut]) {
				cut--
			}
			if cut == 0 {
				break
			}
		}
		windows = append(windows, strings.TrimSpace(text[:cut]))
		text = strings.TrimSpace(text[cut:])
	}
	if text != "" {
		windows = append(windows, text)
	}
	return windows
}
