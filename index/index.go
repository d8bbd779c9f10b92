// Package index manages the k-NN retrieval index holding document chunks and
// their embeddings. The offline indexer populates it; the chat generator
// queries it at request time.
package index

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/opensearch-project/opensearch-go/v2"
	"github.com/opensearch-project/opensearch-go/v2/opensearchapi"

	"github.com/guidebot/guidebot/vectorizer"
)

// Chunk is one indexed document fragment.
type Chunk struct {
	ID      string `json:"-"`
	Source  string `json:"source"`
	Content string `json:"content"`

	Embedding []float32 `json:"embedding"`
}

// Index wraps an OpenSearch k-NN index and the vectorizer used for both
// ingestion and query embedding.
type Index struct {
	client *opensearch.Client
	name   string
	vec    vectorizer.Vectorizer
}

// New creates an index accessor. Call Ensure before first use.
func New(client *opensearch.Client, name string, vec vectorizer.Vectorizer) *Index {
	return &Index{client: client, name: name, vec: vec}
}

// Ensure creates the index with its k-NN mapping if it does not exist yet.
func (ix *Index) Ensure(ctx context.Context) error {
	exists := opensearchapi.IndicesExistsRequest{Index: []string{ix.name}}
	res, err := exists.Do(ctx, ix.client)
	if err != nil {
		return fmt.Errorf("check index %q: %w", ix.name, err)
	}
	res.Body.Close()
	if res.StatusCode == http.StatusOK {
		return nil
	}

	mapping := fmt.Sprintf(`{
		"settings": {"index": {"knn": true}},
		"mappings": {
			"properties": {
				"source":    {"type": "keyword"},
				"content":   {"type": "text"},
				"embedding": {"type": "knn_vector", "dimension": %d}
			}
		}
	}`, ix.vec.Dimensions())

	create := opensearchapi.IndicesCreateRequest{
		Index: ix.name,
		Body:  strings.NewReader(mapping),
	}
	res, err = create.Do(ctx, ix.client)
	if err != nil {
		return fmt.Errorf("create index %q: %w", ix.name, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("create index %q: %s", ix.name, res.Status())
	}
	return nil
}

// Add embeds the chunks and bulk-indexes them.
func (ix *Index) Add(ctx context.Context, chunks []Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Content
	}
	vectors, err := ix.vec.EmbedBatch(ctx, texts)
	if err != nil {
		return fmt.Errorf("embed chunks: %w", err)
	}

	var body bytes.Buffer
	enc := json.NewEncoder(&body)
	for i := range chunks {
		chunks[i].Embedding = vectors[i]

		action := map[string]any{"index": map[string]any{"_index": ix.name, "_id": chunks[i].ID}}
		if err := enc.Encode(action); err != nil {
			return fmt.Errorf("encode bulk action: %w", err)
		}
		if err := enc.Encode(chunks[i]); err != nil {
			return fmt.Errorf("encode chunk: %w", err)
		}
	}

	bulk := opensearchapi.BulkRequest{Body: &body, Refresh: "true"}
	res, err := bulk.Do(ctx, ix.client)
	if err != nil {
		return fmt.Errorf("bulk index: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("bulk index: %s", res.Status())
	}

	var result struct {
		Errors bool `json:"errors"`
	}
	if err := json.NewDecoder(res.Body).Decode(&result); err != nil {
		return fmt.Errorf("decode bulk response: %w", err)
	}
	if result.Errors {
		return fmt.Errorf("bulk index: one or more documents were rejected")
	}
	return nil
}

// Search embeds the query and returns the content of the k nearest chunks.
// It satisfies the chat package's Retriever contract.
func (ix *Index) Search(ctx context.Context, query string, k int) ([]string, error) {
	vector, err := ix.vec.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	body := map[string]any{
		"size": k,
		"query": map[string]any{
			"knn": map[string]any{
				"embedding": map[string]any{"vector": vector, "k": k},
			},
		},
		"_source": []string{"content"},
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode search: %w", err)
	}

	search := opensearchapi.SearchRequest{
		Index: []string{ix.name},
		Body:  bytes.NewReader(payload),
	}
	res, err := search.Do(ctx, ix.client)
	if err != nil {
		return nil, fmt.Errorf("knn search: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, fmt.Errorf("knn search: %s", res.Status())
	}

	var result struct {
		Hits struct {
			Hits []struct {
				Source struct {
					Content string `json:"content"`
				} `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}

	passages := make([]string, 0, len(result.Hits.Hits))
	for _, hit := range result.Hits.Hits {
		passages = append(passages, hit.Source.Content)
	}
	return passages, nil
}
