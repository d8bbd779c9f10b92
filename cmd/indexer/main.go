// The indexer builds the retrieval index offline: it chunks the documents in
// a directory, embeds them, and bulk-loads the OpenSearch k-NN index the
// chat service queries. Run it whenever the source documents change.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/guidebot/guidebot/config"
	"github.com/guidebot/guidebot/index"
	integrationopensearch "github.com/guidebot/guidebot/integration/opensearch"
	"github.com/guidebot/guidebot/indexer"
	"github.com/guidebot/guidebot/logger"
	"github.com/guidebot/guidebot/vectorizer"
)

type indexerConfig struct {
	LogLevel     string `env:"LOG_LEVEL" envDefault:"info"`
	OpenAIAPIKey string `env:"OPENAI_API_KEY,required"`
	IndexName    string `env:"INDEX_NAME" envDefault:"knowledge"`
	DocsDir      string `env:"DOCS_DIR" envDefault:"docs"`
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	docsDir := flag.String("docs", "", "directory of .txt/.md documents to index (overrides DOCS_DIR)")
	flag.Parse()

	var cfg indexerConfig
	if err := config.Load(&cfg); err != nil {
		return err
	}
	if *docsDir != "" {
		cfg.DocsDir = *docsDir
	}

	var osCfg integrationopensearch.Config
	if err := config.Load(&osCfg); err != nil {
		return err
	}

	log := logger.New(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client, err := integrationopensearch.New(ctx, osCfg)
	if err != nil {
		return err
	}

	vec, err := vectorizer.NewOpenAI(cfg.OpenAIAPIKey)
	if err != nil {
		return err
	}

	ix := indexer.New(index.New(client, cfg.IndexName, vec), indexer.DefaultSplitter(), log)

	total, err := ix.Run(ctx, cfg.DocsDir)
	if err != nil {
		return fmt.Errorf("indexing failed after %d chunks: %w", total, err)
	}

	log.Info("done", slog.Int("chunks", total), slog.String("index", cfg.IndexName))
	return nil
}
