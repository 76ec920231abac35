package config

import (
	"time"

	"github.com/m-mizutani/voidmod/pkg/infra/events"
	"github.com/urfave/cli/v3"
)

// Server holds server configuration
type Server struct {
	Addr         string
	RunRetention time.Duration
}

// Flags returns CLI flags for server configuration
func (c *Server) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "addr",
			Usage:       "Server address",
			Value:       "localhost:8080",
			Destination: &c.Addr,
			Sources:     cli.EnvVars("VOIDMOD_ADDR"),
		},
		&cli.DurationFlag{
			Name:        "run-retention",
			Usage:       "How long finished install runs stay queryable",
			Value:       events.DefaultRetention,
			Destination: &c.RunRetention,
			Sources:     cli.EnvVars("VOIDMOD_RUN_RETENTION"),
		},
	}
}
