// Package s3 implements storage.ObjectStore on the AWS SDK for Go v2.
// Any S3-compatible endpoint (MinIO, Wasabi, R2) works with PathStyle set.
package s3

import (
	"context"
	"fmt"
	nethttp "net/http"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/objectdesk/objectdesk/internal/cloud/storage"
	"github.com/objectdesk/objectdesk/internal/version"
)

// ProviderName identifies this backend in errors and logs.
const ProviderName = "s3"

// DefaultRegion is used when neither the settings nor the profile name one.
const DefaultRegion = "us-east-1"

// Config selects credentials and endpoint for the provider.
type Config struct {
	// Profile is a shared-config profile name; empty uses the default chain.
	Profile string
	Region  string
	// Endpoint overrides the AWS endpoint for S3-compatible stores.
	Endpoint  string
	PathStyle bool

	// Static credentials take precedence over the profile when both are set.
	AccessKeyID     string
	SecretAccessKey string

	// HTTPClient carries object bodies (Get, Put).
	HTTPClient *nethttp.Client
	// MetadataClient carries small requests and retries them itself.
	// When nil, HTTPClient and the SDK retryer are used for everything.
	MetadataClient *nethttp.Client
}

// Validate checks field combinations.
func (c Config) Validate() error {
	if (c.AccessKeyID == "") != (c.SecretAccessKey == "") {
		return fmt.Errorf("s3 config: both access key ID and secret access key must be provided together")
	}
	return nil
}

// New builds a provider from cfg.
func New(ctx context.Context, cfg Config) (*Provider, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	awsCfg, err := loadAWSConfig(ctx, cfg)
	if err != nil {
		return nil, &storage.ProviderError{
			Op:       "New",
			Provider: ProviderName,
			Kind:     storage.ErrInvalidCredentials,
			Err:      err,
		}
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.PathStyle
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})

	p := newProvider(client)
	p.region = awsCfg.Region
	if cfg.MetadataClient != nil {
		meta := cfg.MetadataClient
		p.metaOpts = []func(*s3.Options){func(o *s3.Options) {
			o.HTTPClient = meta
			o.Retryer = aws.NopRetryer{}
		}}
	}
	return p, nil
}

func loadAWSConfig(ctx context.Context, cfg Config) (aws.Config, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithAppID(version.AppID()),
	}

	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}
	if cfg.Profile != "" {
		opts = append(opts, awsconfig.WithSharedConfigProfile(cfg.Profile))
	}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}
	if cfg.HTTPClient != nil {
		opts = append(opts, awsconfig.WithHTTPClient(cfg.HTTPClient))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, err
	}
	if awsCfg.Region == "" {
		awsCfg.Region = DefaultRegion
	}
	return awsCfg, nil
}
