// Package indexer implements the offline batch job that builds the retrieval
// index: it reads source documents, splits them into overlapping chunks,
// embeds each chunk, and bulk-loads the result. It shares nothing with the
// running service beyond the index name.
package indexer

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/guidebot/guidebot/index"
	"github.com/guidebot/guidebot/logger"
)

// batchSize bounds how many chunks are embedded and indexed per request.
const batchSize = 64

// Indexer walks a document directory and loads its contents into the index.
type Indexer struct {
	idx      *index.Index
	splitter Splitter
	log      *slog.Logger
}

// New creates an indexer for the given index.
func New(idx *index.Index, splitter Splitter, log *slog.Logger) *Indexer {
	return &Indexer{
		idx:      idx,
		splitter: splitter,
		log:      log.With(logger.Component("indexer")),
	}
}

// Run ensures the index exists and ingests every .txt and .md file under
// dir. Returns the number of chunks indexed.
func (ix *Indexer) Run(ctx context.Context, dir string) (int, error) {
	if err := ix.idx.Ensure(ctx); err != nil {
		return 0, err
	}

	var batch []index.Chunk
	total := 0

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := ix.idx.Add(ctx, batch); err != nil {
			return err
		}
		total += len(batch)
		batch = batch[:0]
		return nil
	}

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !isDocument(path) {
			return nil
		}

		content, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}

		rel, relErr := filepath.Rel(dir, path)
		if relErr != nil {
			rel = path
		}

		chunks := ix.splitter.Split(string(content))
		ix.log.InfoContext(ctx, "splitting document",
			slog.String("file", rel), slog.Int("chunks", len(chunks)))

		for i, text := range chunks {
			batch = append(batch, index.Chunk{
				ID:      fmt.Sprintf("%s#%d", rel, i),
				Source:  rel,
				Content: text,
			})
			if len(batch) >= batchSize {
				if err := flush(); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return total, err
	}

	if err := flush(); err != nil {
		return total, err
	}

	ix.log.InfoContext(ctx, "indexing complete", slog.Int("total_chunks", total))
	return total, nil
}

func isDocument(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".txt", ".md":
		return true
	}
	return false
}
