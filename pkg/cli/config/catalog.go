package config

import (
	"time"

	"github.com/m-mizutani/voidmod/pkg/domain/interfaces"
	"github.com/m-mizutani/voidmod/pkg/infra/catalog"
	"github.com/urfave/cli/v3"
)

// Catalog holds ModWorkShop API configuration
type Catalog struct {
	BaseURL    string
	APIKey     string `masq:"secret"`
	Timeout    time.Duration
	Retries    int
	RetryDelay time.Duration

	DownloadTimeout time.Duration
}

// Flags returns CLI flags for catalog configuration
func (c *Catalog) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "catalog-url",
			Usage:       "ModWorkShop API base URL",
			Value:       catalog.DefaultBaseURL,
			Destination: &c.BaseURL,
			Sources:     cli.EnvVars("VOIDMOD_CATALOG_URL"),
		},
		&cli.StringFlag{
			Name:        "catalog-api-key",
			Usage:       "ModWorkShop API token (optional)",
			Destination: &c.APIKey,
			Sources:     cli.EnvVars("VOIDMOD_CATALOG_API_KEY"),
		},
		&cli.DurationFlag{
			Name:        "catalog-timeout",
			Usage:       "Timeout of a single catalog API request",
			Value:       catalog.DefaultTimeout,
			Destination: &c.Timeout,
			Sources:     cli.EnvVars("VOIDMOD_CATALOG_TIMEOUT"),
		},
		&cli.DurationFlag{
			Name:        "download-timeout",
			Usage:       "Timeout of a single archive download, body included",
			Value:       catalog.DefaultDownloadTimeout,
			Destination: &c.DownloadTimeout,
			Sources:     cli.EnvVars("VOIDMOD_DOWNLOAD_TIMEOUT"),
		},
		&cli.IntFlag{
			Name:        "catalog-retries",
			Usage:       "Retries of transient network failures",
			Value:       catalog.DefaultRetries,
			Destination: &c.Retries,
			Sources:     cli.EnvVars("VOIDMOD_CATALOG_RETRIES"),
		},
		&cli.DurationFlag{
			Name:        "catalog-retry-delay",
			Usage:       "Initial backoff between retries",
			Value:       catalog.DefaultInitialBackoff,
			Destination: &c.RetryDelay,
			Sources:     cli.EnvVars("VOIDMOD_CATALOG_RETRY_DELAY"),
		},
	}
}

// Build creates the catalog client
func (c *Catalog) Build() interfaces.CatalogClient {
	opts := []catalog.Option{
		catalog.WithTimeout(c.Timeout),
		catalog.WithDownloadTimeout(c.DownloadTimeout),
		catalog.WithRetry(c.Retries, c.RetryDelay, catalog.DefaultMaxBackoff),
	}
	if c.BaseURL != "" {
		opts = append(opts, catalog.WithBaseURL(c.BaseURL))
	}
	if c.APIKey != "" {
		opts = append(opts, catalog.WithAPIKey(c.APIKey))
	}
	return catalog.NewClient(opts...)
}
