package config

import (
	"github.com/m-mizutani/voidmod/pkg/infra/sentry"
	"github.com/urfave/cli/v3"
)

// Sentry holds error reporting configuration
type Sentry struct {
	DSN string `masq:"secret"`
	Env string
}

// Flags returns CLI flags for Sentry configuration
func (c *Sentry) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "sentry-dsn",
			Usage:       "Sentry DSN; reporting is disabled when empty",
			Destination: &c.DSN,
			Sources:     cli.EnvVars("VOIDMOD_SENTRY_DSN"),
		},
		&cli.StringFlag{
			Name:        "sentry-env",
			Usage:       "Sentry environment",
			Value:       "production",
			Destination: &c.Env,
			Sources:     cli.EnvVars("VOIDMOD_SENTRY_ENV"),
		},
	}
}

// Configure initializes Sentry and returns its flush function
func (c *Sentry) Configure() (func(), error) {
	return sentry.Init(c.DSN, c.Env)
}
