// Package azure implements storage.ObjectStore on Azure Blob Storage.
// Containers play the role of buckets and "/" separated blob names the
// role of keys.
package azure

import (
	"fmt"
	nethttp "net/http"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"

	"github.com/objectdesk/objectdesk/internal/cloud/storage"
	"github.com/objectdesk/objectdesk/internal/constants"
	"github.com/objectdesk/objectdesk/internal/version"
)

// ProviderName identifies this backend in errors and logs.
const ProviderName = "azure"

// Config selects the account and credential. Exactly one of
// ConnectionString, AccountKey or SASToken is used, in that order.
type Config struct {
	AccountName string
	// Endpoint overrides https://<account>.blob.core.windows.net (Azurite, sovereign clouds).
	Endpoint         string
	ConnectionString string
	AccountKey       string
	SASToken         string

	HTTPClient *nethttp.Client
}

// Validate checks that a credential is present.
func (c Config) Validate() error {
	if c.ConnectionString != "" {
		return nil
	}
	if c.AccountName == "" && c.Endpoint == "" {
		return fmt.Errorf("azure config: account name is required")
	}
	if c.AccountKey == "" && c.SASToken == "" {
		return fmt.Errorf("azure config: set AZURE_STORAGE_KEY, AZURE_STORAGE_SAS_TOKEN or AZURE_STORAGE_CONNECTION_STRING")
	}
	return nil
}

// New builds a provider from cfg.
func New(cfg Config) (*Provider, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	opts := &azblob.ClientOptions{
		ClientOptions: azcore.ClientOptions{
			Retry: policy.RetryOptions{
				MaxRetries:    int32(constants.MaxRetries),
				RetryDelay:    constants.RetryInitialDelay,
				MaxRetryDelay: constants.RetryMaxDelay,
			},
			Telemetry: policy.TelemetryOptions{ApplicationID: version.AppID()},
		},
	}
	if cfg.HTTPClient != nil {
		opts.Transport = cfg.HTTPClient
	}

	var (
		client *azblob.Client
		err    error
	)
	switch {
	case cfg.ConnectionString != "":
		client, err = azblob.NewClientFromConnectionString(cfg.ConnectionString, opts)
	case cfg.AccountKey != "":
		var cred *azblob.SharedKeyCredential
		cred, err = azblob.NewSharedKeyCredential(cfg.AccountName, cfg.AccountKey)
		if err == nil {
			client, err = azblob.NewClientWithSharedKeyCredential(serviceURL(cfg), cred, opts)
		}
	default:
		client, err = azblob.NewClientWithNoCredential(sasURL(serviceURL(cfg), cfg.SASToken), opts)
	}
	if err != nil {
		return nil, &storage.ProviderError{
			Op:       "New",
			Provider: ProviderName,
			Kind:     storage.ErrInvalidCredentials,
			Err:      err,
		}
	}

	return newProvider(client), nil
}

// serviceURL returns the blob endpoint with a trailing slash.
func serviceURL(cfg Config) string {
	if cfg.Endpoint != "" {
		return strings.TrimSuffix(cfg.Endpoint, "/") + "/"
	}
	return fmt.Sprintf("https://%s.blob.core.windows.net/", cfg.AccountName)
}

// sasURL appends a SAS token, tolerating a leading "?".
func sasURL(base, token string) string {
	token = strings.TrimPrefix(token, "?")
	if token == "" {
		return base
	}
	if strings.Contains(base, "?") {
		return base + "&" + token
	}
	return base + "?" + token
}
