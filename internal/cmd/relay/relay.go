// Package relay parses relay command flags and composes transport entrypoints.
package relay

import (
	"context"
	"flag"
	"fmt"

	entrypoint "github.com/pairpad/pairpad/internal/platform/cmd"
	server "github.com/pairpad/pairpad/internal/services/relay/app"
)

// Config holds relay command configuration.
type Config struct {
	HTTPAddr      string `env:"PAIRPAD_RELAY_HTTP_ADDR" envDefault:":8000"`
	ExecuteAPIURL string `env:"PAIRPAD_EXECUTE_API_URL" envDefault:"https://emkc.org/api/v2/piston/execute"`
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}

	fs.StringVar(&cfg.HTTPAddr, "http-addr", cfg.HTTPAddr, "relay HTTP listen address")
	fs.StringVar(&cfg.ExecuteAPIURL, "execute-api-url", cfg.ExecuteAPIURL, "upstream code execution API URL")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run builds the relay app and starts realtime transport behavior.
func Run(ctx context.Context, cfg Config) error {
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceRelay, func(context.Context) error {
		if err := server.Run(ctx, server.Config{
			HTTPAddr:      cfg.HTTPAddr,
			ExecuteAPIURL: cfg.ExecuteAPIURL,
		}); err != nil {
			return fmt.Errorf("serve relay: %w", err)
		}
		return nil
	})
}
