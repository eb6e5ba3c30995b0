// Package transfer provides manager construction and configuration.
//
// The Manager moves genomic data files between AWS HealthOmics stores and
// local storage, splitting each file into independently retried byte-range
// parts executed under bounded concurrency.
package transfer

import (
	"context"
	"net/http"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/omics"

	"github.com/omics-tools/omics-transfer/errors"
	"github.com/omics-tools/omics-transfer/internal/omicsapi"
	"github.com/omics-tools/omics-transfer/transfertypes"
)

// New creates a transfer Manager with the provided options. It loads AWS
// credentials using the default credential chain and applies the specified
// configuration options.
//
// Example:
//
//	manager, err := transfer.New(
//	    transfer.WithRegion("us-west-2"),
//	    transfer.WithDirectory("/data/readsets"),
//	)
func New(opts ...transfertypes.Option) (*Manager, error) {
	cfg := transfertypes.DefaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	// Start with default AWS configuration or use custom config
	var awsCfg aws.Config
	var err error
	if cfg.CustomAWSConfig != nil {
		awsCfg = *cfg.CustomAWSConfig
	} else {
		awsCfg, err = config.LoadDefaultConfig(context.Background())
		if err != nil {
			return nil, errors.NewError("manager initialization", err)
		}
	}

	if cfg.Region != "" {
		awsCfg.Region = cfg.Region
	} else if awsCfg.Region == "" {
		awsCfg.Region = "us-east-1"
	}
	if cfg.MaxRetries > 0 {
		awsCfg.RetryMaxAttempts = cfg.MaxRetries
	}

	var omicsOpts []func(*omics.Options)
	if cfg.CustomHTTPClient != nil {
		omicsOpts = append(omicsOpts, func(o *omics.Options) {
			o.HTTPClient = cfg.CustomHTTPClient
		})
	} else if cfg.Timeout > 0 {
		httpClient := &http.Client{Timeout: cfg.Timeout}
		omicsOpts = append(omicsOpts, func(o *omics.Options) {
			o.HTTPClient = httpClient
		})
	}

	return newManager(omics.NewFromConfig(awsCfg, omicsOpts...), cfg), nil
}

// NewWithClient creates a transfer Manager with a custom OmicsAPI
// implementation. This is primarily used for testing with mocked clients.
func NewWithClient(client omicsapi.OmicsAPI, opts ...transfertypes.Option) (*Manager, error) {
	cfg := transfertypes.DefaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return newManager(client, cfg), nil
}
