// Package vectorizer converts text to embeddings for the retrieval index.
package vectorizer

import (
	"context"
	"errors"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

var (
	// ErrInvalidAPIKey is returned when no API key is provided.
	ErrInvalidAPIKey = errors.New("invalid or empty API key")

	// ErrBatchTooLarge is returned when a batch exceeds the provider limit.
	ErrBatchTooLarge = errors.New("batch size exceeds maximum")
)

// Vectorizer converts text to embeddings.
type Vectorizer interface {
	// Embed converts a single text to a vector embedding.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch converts multiple texts, returning embeddings in input order.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the vector size this implementation produces.
	Dimensions() int
}

const (
	// DefaultModel balances quality and cost for semantic search.
	DefaultModel = "text-embedding-3-small"

	defaultDimensions = 1536
	maxBatch          = 100
)

// OpenAI implements Vectorizer using OpenAI's embeddings API.
type OpenAI struct {
	client openai.Client
	model  string
	dims   int
}

// OpenAIOption is a functional option for configuring OpenAI.
type OpenAIOption func(*OpenAI)

// WithModel sets the embedding model.
func WithModel(model string) OpenAIOption {
	return func(o *OpenAI) {
		if model != "" {
			o.model = model
		}
	}
}

// WithDimensions sets the output dimensions for the embeddings.
func WithDimensions(dims int) OpenAIOption {
	return func(o *OpenAI) {
		if dims > 0 {
			o.dims = dims
		}
	}
}

// NewOpenAI creates a new OpenAI vectorizer.
func NewOpenAI(apiKey string, opts ...OpenAIOption) (*OpenAI, error) {
	if apiKey == "" {
		return nil, ErrInvalidAPIKey
	}

	o := &OpenAI{
		client: openai.NewClient(option.WithAPIKey(apiKey)),
		model:  DefaultModel,
		dims:   defaultDimensions,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o, nil
}

func (o *OpenAI) Dimensions() int {
	return o.dims
}

func (o *OpenAI) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := o.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

func (o *OpenAI) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}
	if len(texts) > maxBatch {
		return nil, fmt.Errorf("%w: got %d texts, max is %d", ErrBatchTooLarge, len(texts), maxBatch)
	}

	resp, err := o.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Model: openai.EmbeddingModel(o.model),
		Input: openai.EmbeddingNewParamsInputUnion{
			OfArrayOfStrings: texts,
		},
		Dimensions: openai.Int(int64(o.dims)),
	})
	if err != nil {
		return nil, fmt.Errorf("create embeddings: %w", err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("expected %d embeddings, got %d", len(texts), len(resp.Data))
	}

	vectors := make([][]float32, len(resp.Data))
	for i, d := range resp.Data {
		vec := make([]float32, len(d.Embedding))
		for j, v := range d.Embedding {
			vec[j] = float32(v)
		}
		vectors[i] = vec
	}
	return vectors, nil
}
