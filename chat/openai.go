package chat

import (
	"context"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/guidebot/guidebot/session"
)

const defaultSystemPrompt = "You are a helpful local-information assistant. " +
	"Answer concisely using the reference passages when they are relevant; " +
	"say so when you do not know."

// defaultHistoryLimit bounds how many past turns are replayed into the prompt.
const defaultHistoryLimit = 10

// Retriever finds reference passages relevant to a query. The OpenSearch-backed
// implementation lives in the index package.
type Retriever interface {
	Search(ctx context.Context, query string, k int) ([]string, error)
}

// OpenAIGenerator streams chat-completion deltas from the OpenAI API,
// optionally augmenting the prompt with retrieved reference passages and the
// session's recent history.
type OpenAIGenerator struct {
	client       openai.Client
	model        string
	systemPrompt string
	retriever    Retriever
	topK         int
	historyLimit int
}

// OpenAIOption is a functional option for configuring OpenAIGenerator.
type OpenAIOption func(*OpenAIGenerator)

// WithModel sets the chat model.
func WithModel(model string) OpenAIOption {
	return func(g *OpenAIGenerator) {
		if model != "" {
			g.model = model
		}
	}
}

// WithSystemPrompt overrides the default system prompt.
func WithSystemPrompt(prompt string) OpenAIOption {
	return func(g *OpenAIGenerator) {
		if prompt != "" {
			g.systemPrompt = prompt
		}
	}
}

// WithRetriever enables retrieval augmentation with the given retriever and
// result count.
func WithRetriever(r Retriever, topK int) OpenAIOption {
	return func(g *OpenAIGenerator) {
		g.retriever = r
		if topK > 0 {
			g.topK = topK
		}
	}
}

// WithHistoryLimit bounds how many past turns are included in the prompt.
func WithHistoryLimit(n int) OpenAIOption {
	return func(g *OpenAIGenerator) {
		if n > 0 {
			g.historyLimit = n
		}
	}
}

// NewOpenAIGenerator creates a generator backed by the OpenAI API.
func NewOpenAIGenerator(apiKey string, opts ...OpenAIOption) (*OpenAIGenerator, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openai generator: empty API key")
	}

	g := &OpenAIGenerator{
		client:       openai.NewClient(option.WithAPIKey(apiKey)),
		model:        "gpt-4o-mini",
		systemPrompt: defaultSystemPrompt,
		topK:         4,
		historyLimit: defaultHistoryLimit,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

func (g *OpenAIGenerator) Generate(ctx context.Context, userInput string, record *session.Record) (<-chan Fragment, error) {
	msgs, err := g.buildMessages(ctx, userInput, record)
	if err != nil {
		return nil, err
	}

	stream := g.client.Chat.Completions.NewStreaming(ctx, openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(g.model),
		Messages: msgs,
	})

	out := make(chan Fragment, fragmentBuffer)
	go func() {
		defer close(out)
		defer stream.Close()

		for stream.Next() {
			chunk := stream.Current()
			if len(chunk.Choices) == 0 {
				continue
			}
			delta := chunk.Choices[0].Delta.Content
			if delta == "" {
				continue
			}
			select {
			case <-ctx.Done():
				return
			case out <- Fragment{Text: delta}:
			}
		}

		if err := stream.Err(); err != nil && ctx.Err() == nil {
			select {
			case <-ctx.Done():
			case out <- Fragment{Err: fmt.Errorf("openai stream: %w", err)}:
			}
		}
	}()

	return out, nil
}

// buildMessages assembles system prompt, retrieved passages, recent history,
// and the current user input.
func (g *OpenAIGenerator) buildMessages(ctx context.Context, userInput string, record *session.Record) ([]openai.ChatCompletionMessageParamUnion, error) {
	system := g.systemPrompt

	if g.retriever != nil {
		passages, err := g.retriever.Search(ctx, userInput, g.topK)
		if err != nil {
			return nil, fmt.Errorf("retrieve passages: %w", err)
		}
		if len(passages) > 0 {
			var b strings.Builder
			b.WriteString(system)
			b.WriteString("\n\nReference passages:\n")
			for i, p := range passages {
				fmt.Fprintf(&b, "[%d] %s\n", i+1, p)
			}
			system = b.String()
		}
	}

	msgs := make([]openai.ChatCompletionMessageParamUnion, 0, 2*g.historyLimit+2)
	msgs = append(msgs, openai.SystemMessage(system))

	history := record.History
	if len(history) > g.historyLimit {
		history = history[len(history)-g.historyLimit:]
	}
	for _, turn := range history {
		msgs = append(msgs, openai.UserMessage(turn.UserInput))
		msgs = append(msgs, openai.AssistantMessage(turn.BotResponse))
	}

	msgs = append(msgs, openai.UserMessage(userInput))
	return msgs, nil
}
