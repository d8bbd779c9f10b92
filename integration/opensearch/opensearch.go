// Package opensearch provides OpenSearch client initialization with immediate
// connectivity verification, used by the retrieval index.
package opensearch

import (
	"context"
	"errors"

	"github.com/opensearch-project/opensearch-go/v2"
)

var (
	// ErrFailedToConnect is returned when the cluster is unreachable at startup.
	ErrFailedToConnect = errors.New("failed to connect to opensearch")

	// ErrHealthcheckFailed is returned when the cluster info request fails.
	ErrHealthcheckFailed = errors.New("opensearch healthcheck failed")
)

// Config holds OpenSearch connection settings loaded from the environment.
type Config struct {
	Addresses  []string `env:"OPENSEARCH_ADDRESSES" envDefault:"http://localhost:9200"`
	Username   string   `env:"OPENSEARCH_USERNAME"`
	Password   string   `env:"OPENSEARCH_PASSWORD"`
	MaxRetries int      `env:"OPENSEARCH_MAX_RETRIES" envDefault:"3"`
}

// New creates an OpenSearch client and fails fast if the cluster is
// unreachable, so broken clients are never handed to callers.
func New(ctx context.Context, cfg Config) (*opensearch.Client, error) {
	client, err := opensearch.NewClient(opensearch.Config{
		Addresses:  cfg.Addresses,
		Username:   cfg.Username,
		Password:   cfg.Password,
		MaxRetries: cfg.MaxRetries,
	})
	if err != nil {
		return nil, errors.Join(ErrFailedToConnect, err)
	}

	res, err := client.Info(client.Info.WithContext(ctx))
	if err != nil {
		return nil, errors.Join(ErrFailedToConnect, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, errors.Join(ErrFailedToConnect, errors.New(res.Status()))
	}

	return client, nil
}

// Healthcheck returns a probe function suitable for readiness endpoints.
func Healthcheck(client *opensearch.Client) func(context.Context) error {
	return func(ctx context.Context) error {
		res, err := client.Info(client.Info.WithContext(ctx))
		if err != nil {
			return errors.Join(ErrHealthcheckFailed, err)
		}
		defer res.Body.Close()
		if res.IsError() {
			return errors.Join(ErrHealthcheckFailed, errors.New(res.Status()))
		}
		return nil
	}
}
