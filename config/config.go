// Package config loads typed configuration from environment variables,
// reading a .env file first when one is present.
package config

import (
	"fmt"
	"sync"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

var dotenvOnce sync.Once

// Load parses environment variables into cfg. A .env file in the working
// directory is loaded once per process; missing required variables are fatal
// startup errors reported to the caller.
func Load(cfg any) error {
	dotenvOnce.Do(func() {
		_ = godotenv.Load()
	})

	if err := env.Parse(cfg); err != nil {
		return fmt.Errorf("parse environment: %w", err)
	}
	return nil
}

// App is the service-level configuration shared by both binaries.
// Store-backend configs are loaded separately so a Redis deployment does not
// have to provide Mongo credentials and vice versa.
type App struct {
	AppName  string `env:"APP_NAME" envDefault:"guidebot"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
	HTTPHost string `env:"HTTP_HOST" envDefault:""`
	HTTPPort string `env:"HTTP_PORT" envDefault:"8080"`

	// SessionStore selects the persistence backend: mongo, redis, or memory.
	SessionStore string `env:"SESSION_STORE" envDefault:"mongo"`

	// SessionTimeoutMinutes is the sliding session window. Required; its
	// absence is a fatal startup error.
	SessionTimeoutMinutes int `env:"SESSION_TIMEOUT,required"`

	// SecretKey signs the session cookie. Required.
	SecretKey    string `env:"SECRET_KEY,required"`
	CookieName   string `env:"SESSION_COOKIE_NAME" envDefault:"session_id"`
	CookieSecure bool   `env:"COOKIE_SECURE" envDefault:"false"`

	SessionCollection string `env:"SESSION_COLLECTION" envDefault:"sessions"`

	// Generation settings. With no API key the service falls back to the
	// built-in echo generator.
	OpenAIAPIKey  string `env:"OPENAI_API_KEY"`
	ChatModel     string `env:"CHAT_MODEL" envDefault:"gpt-4o-mini"`
	IndexName     string `env:"INDEX_NAME" envDefault:"knowledge"`
	RetrievalTopK int    `env:"RETRIEVAL_TOP_K" envDefault:"4"`
	// RetrievalEnabled gates the OpenSearch-backed retriever; when false the
	// generator answers from history alone.
	RetrievalEnabled bool `env:"RETRIEVAL_ENABLED" envDefault:"false"`

	TemplatesDir   string `env:"TEMPLATES_DIR" envDefault:"templates"`
	StaticDir      string `env:"STATIC_DIR" envDefault:"static"`
	WelcomeMessage string `env:"WELCOME_MESSAGE" envDefault:""`
}

// SessionTimeout returns the sliding window as a duration.
func (a App) SessionTimeout() time.Duration {
	return time.Duration(a.SessionTimeoutMinutes) * time.Minute
}

// Addr returns the listen address.
func (a App) Addr() string {
	return a.HTTPHost + ":" + a.HTTPPort
}
