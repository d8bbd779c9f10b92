package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/guidebot/guidebot/chat"
	"github.com/guidebot/guidebot/config"
	"github.com/guidebot/guidebot/cookie"
	"github.com/guidebot/guidebot/index"
	integrationmongo "github.com/guidebot/guidebot/integration/mongo"
	integrationopensearch "github.com/guidebot/guidebot/integration/opensearch"
	integrationredis "github.com/guidebot/guidebot/integration/redis"
	"github.com/guidebot/guidebot/logger"
	"github.com/guidebot/guidebot/session"
	"github.com/guidebot/guidebot/vectorizer"
	"github.com/guidebot/guidebot/web"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	var cfg config.App
	if err := config.Load(&cfg); err != nil {
		return err
	}

	log := logger.New(cfg.LogLevel).With(slog.String("app", cfg.AppName))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, cleanup, err := newStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer cleanup()

	sessions := session.NewManager(store, cfg.SessionTimeout())

	codec, err := cookie.New(cfg.CookieName, []string{cfg.SecretKey},
		cookie.WithSecure(cfg.CookieSecure),
		cookie.WithSameSite(http.SameSiteLaxMode),
	)
	if err != nil {
		return err
	}

	gen, err := newGenerator(ctx, cfg, log)
	if err != nil {
		return err
	}

	streamer := chat.NewStreamer(sessions, gen, log)
	handlers := web.NewHandlers(sessions, codec, streamer, log,
		web.WithWelcomeMessage(cfg.WelcomeMessage),
		web.WithTemplateDir(cfg.TemplatesDir),
		web.WithStaticDir(cfg.StaticDir),
	)

	srv := web.NewServer(cfg.Addr(), handlers.Router(), log)
	return srv.Run(ctx)
}

// newStore builds the configured session store backend and returns a cleanup
// function for its connections.
func newStore(ctx context.Context, cfg config.App, log *slog.Logger) (session.Store, func(), error) {
	switch cfg.SessionStore {
	case "mongo":
		var mongoCfg integrationmongo.Config
		if err := config.Load(&mongoCfg); err != nil {
			return nil, nil, err
		}

		db, err := integrationmongo.NewWithDatabase(ctx, mongoCfg)
		if err != nil {
			return nil, nil, err
		}

		store, err := session.NewMongoStore(ctx, db.Collection(cfg.SessionCollection))
		if err != nil {
			return nil, nil, err
		}

		log.Info("using mongo session store", slog.String("collection", cfg.SessionCollection))
		cleanup := func() { _ = db.Client().Disconnect(context.Background()) }
		return store, cleanup, nil

	case "redis":
		var redisCfg integrationredis.Config
		if err := config.Load(&redisCfg); err != nil {
			return nil, nil, err
		}

		client, err := integrationredis.Connect(ctx, redisCfg)
		if err != nil {
			return nil, nil, err
		}

		log.Info("using redis session store")
		cleanup := func() { _ = client.Close() }
		return session.NewRedisStore(client), cleanup, nil

	case "memory":
		log.Warn("using in-memory session store; sessions do not survive restarts")
		return session.NewMemoryStore(), func() {}, nil

	default:
		return nil, nil, fmt.Errorf("unknown session store backend %q", cfg.SessionStore)
	}
}

// newGenerator builds the chat generator: OpenAI-backed when an API key is
// configured, optionally augmented with the OpenSearch retrieval index, and
// the echo generator otherwise.
func newGenerator(ctx context.Context, cfg config.App, log *slog.Logger) (chat.Generator, error) {
	if cfg.OpenAIAPIKey == "" {
		log.Warn("OPENAI_API_KEY not set; using echo generator")
		return chat.EchoGenerator{}, nil
	}

	opts := []chat.OpenAIOption{chat.WithModel(cfg.ChatModel)}

	if cfg.RetrievalEnabled {
		var osCfg integrationopensearch.Config
		if err := config.Load(&osCfg); err != nil {
			return nil, err
		}

		client, err := integrationopensearch.New(ctx, osCfg)
		if err != nil {
			return nil, err
		}

		vec, err := vectorizer.NewOpenAI(cfg.OpenAIAPIKey)
		if err != nil {
			return nil, err
		}

		opts = append(opts, chat.WithRetriever(index.New(client, cfg.IndexName, vec), cfg.RetrievalTopK))
		log.Info("retrieval augmentation enabled", slog.String("index", cfg.IndexName))
	}

	return chat.NewOpenAIGenerator(cfg.OpenAIAPIKey, opts...)
}
