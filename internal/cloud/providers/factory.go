// Package providers builds the configured storage backend.
package providers

import (
	"context"
	"fmt"
	"os"

	"github.com/objectdesk/objectdesk/internal/cloud/providers/azure"
	"github.com/objectdesk/objectdesk/internal/cloud/providers/s3"
	"github.com/objectdesk/objectdesk/internal/cloud/storage"
	"github.com/objectdesk/objectdesk/internal/config"
	"github.com/objectdesk/objectdesk/internal/http"
	"github.com/objectdesk/objectdesk/internal/logging"
	"github.com/objectdesk/objectdesk/internal/models"
	"github.com/objectdesk/objectdesk/internal/ratelimit"
)

// Factory creates object stores from settings.
type Factory struct {
	logger *logging.Logger
}

// NewFactory creates a factory. A nil logger uses the "providers" component.
func NewFactory(logger *logging.Logger) *Factory {
	if logger == nil {
		logger = logging.NewLogger("providers", nil)
	}
	return &Factory{logger: logger}
}

// Open builds the backend named by settings.Storage.Backend, with proxy
// aware HTTP clients and a throttled ListPage.
func (f *Factory) Open(ctx context.Context, settings *config.Settings) (storage.ObjectStore, error) {
	if err := settings.Validate(); err != nil {
		return nil, fmt.Errorf("invalid settings: %w", err)
	}

	transferClient, err := http.CreateStorageClient(settings.Proxy)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP client: %w", err)
	}

	var store storage.ObjectStore
	switch settings.Storage.Backend {
	case config.BackendS3:
		metaBase, err := http.ConfigureHTTPClient(settings.Proxy)
		if err != nil {
			return nil, fmt.Errorf("failed to create HTTP client: %w", err)
		}
		store, err = s3.New(ctx, s3.Config{
			Profile:         settings.Session.Profile,
			Region:          settings.Storage.Region,
			Endpoint:        settings.Storage.Endpoint,
			PathStyle:       settings.Storage.PathStyle,
			AccessKeyID:     os.Getenv("OBJECTDESK_ACCESS_KEY_ID"),
			SecretAccessKey: os.Getenv("OBJECTDESK_SECRET_ACCESS_KEY"),
			HTTPClient:      transferClient,
			MetadataClient:  http.NewMetadataClient(metaBase, f.logger),
		})
		if err != nil {
			return nil, err
		}

	case config.BackendAzure:
		store, err = azure.New(azure.Config{
			AccountName:      settings.Storage.AzureAccount,
			Endpoint:         settings.Storage.Endpoint,
			ConnectionString: os.Getenv("AZURE_STORAGE_CONNECTION_STRING"),
			AccountKey:       os.Getenv("AZURE_STORAGE_KEY"),
			SASToken:         os.Getenv("AZURE_STORAGE_SAS_TOKEN"),
			HTTPClient:       transferClient,
		})
		if err != nil {
			return nil, err
		}

	default:
		return nil, fmt.Errorf("unsupported storage backend: %s", settings.Storage.Backend)
	}

	f.logger.Info().
		Str("backend", store.Backend()).
		Str("profile", settings.Session.Profile).
		Str("endpoint", settings.Storage.Endpoint).
		Msg("storage backend ready")

	return Throttle(store, nil), nil
}

// throttled routes ListPage through a rate limiter; everything else is
// delegated unchanged.
type throttled struct {
	storage.ObjectStore
	lister *ratelimit.Lister
}

// Throttle wraps store so listing calls wait on limiter (nil: the default
// listing limiter).
func Throttle(store storage.ObjectStore, limiter *ratelimit.RateLimiter) storage.ObjectStore {
	return &throttled{
		ObjectStore: store,
		lister:      ratelimit.WrapLister(store, limiter),
	}
}

func (t *throttled) ListPage(ctx context.Context, req storage.ListRequest) (*models.Page, error) {
	return t.lister.ListPage(ctx, req)
}
