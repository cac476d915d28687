// Command nc-portfolio lists every domain in a Namecheap account, ordered by
// expiration urgency, as a grid table on stdout.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/Sternrassler/namecheap-portfolio/pkg/client"
	"github.com/Sternrassler/namecheap-portfolio/pkg/config"
	"github.com/Sternrassler/namecheap-portfolio/pkg/logging"
	"github.com/Sternrassler/namecheap-portfolio/pkg/metrics"
	"github.com/Sternrassler/namecheap-portfolio/pkg/namecheap"
	"github.com/Sternrassler/namecheap-portfolio/pkg/pagination"
	"github.com/Sternrassler/namecheap-portfolio/pkg/ratelimit"
	"github.com/Sternrassler/namecheap-portfolio/pkg/report"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

type options struct {
	verbose bool
	envFile string
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd(os.Stdout, os.Stderr).ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	var opts options

	cmd := &cobra.Command{
		Use:           "nc-portfolio",
		Short:         "List all domains in a Namecheap account by expiration urgency",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := run(cmd.Context(), stdout, stderr, opts); err != nil {
				log.Error().Err(err).Msg("Run failed")
				return err
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&opts.verbose, "verbose", false, "Enable debug logging, response body tracing and the raw diagnostic call")
	cmd.Flags().StringVar(&opts.envFile, "env-file", config.DefaultEnvFile, "Optional .env file with NAMECHEAP_* settings")
	return cmd
}

func run(ctx context.Context, stdout, stderr io.Writer, opts options) error {
	// Bootstrap logging so configuration problems are reported.
	boot := logging.DefaultConfig()
	boot.Verbose = opts.verbose
	boot.Output = stderr
	logging.Setup(boot)

	cfg, err := config.Load(opts.envFile)
	if err != nil {
		return err
	}

	logging.Setup(logging.Config{
		Level:   cfg.App.LogLevel,
		Verbose: opts.verbose,
		Pretty:  cfg.App.LogPretty,
		Output:  stderr,
	})
	logger := logging.NewLogger("nc-portfolio")

	defer func() {
		if err := metrics.WriteTextfile(cfg.App.MetricsTextfile); err != nil {
			logger.Warn().Err(err).Str("path", cfg.App.MetricsTextfile).Msg("Failed to write metrics")
		}
	}()

	clientCfg := cfg.ClientConfig()

	if cfg.RedisEnabled() {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()

		if err := rdb.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("connect to redis at %s: %w", cfg.Redis.Addr, err)
		}
		clientCfg.Gate = ratelimit.NewTracker(rdb, cfg.Namecheap.APIUser, nil, logging.NewLogger("ratelimit"))
		logger.Debug().Str("addr", cfg.Redis.Addr).Msg("Call budget tracking enabled")
	} else {
		logger.Debug().Msg("Call budget tracking disabled (REDIS_ADDR not set)")
	}

	c, err := client.New(clientCfg)
	if err != nil {
		return fmt.Errorf("create client: %w", err)
	}

	logger.Info().
		Str("endpoint", clientCfg.Endpoint).
		Str("api_user", cfg.Namecheap.APIUser).
		Msg("Fetching domain list")

	if opts.verbose {
		diagnose(ctx, c)
	}

	agg := pagination.NewAggregator(c, cfg.PaginationConfig())
	domains, err := agg.FetchAll(ctx, opts.verbose)
	if err != nil {
		return fmt.Errorf("fetch domain list (%d domains before failure): %w", len(domains), err)
	}

	if err := report.Render(stdout, domains); err != nil {
		return fmt.Errorf("render report: %w", err)
	}
	return nil
}

// diagnose issues one unpaged getList call and logs the raw response.
// Failures are logged and do not stop the run.
func diagnose(ctx context.Context, c *client.Client) {
	logger := logging.NewLogger("diagnostic")

	result, err := c.Raw(ctx, namecheap.CommandDomainsGetList)
	if err != nil {
		logger.Warn().Err(err).Msg("Raw diagnostic call failed")
		return
	}

	logger.Debug().
		Int("status", result.StatusCode).
		Str("body", string(result.Body)).
		Msg("Raw diagnostic response")
}
