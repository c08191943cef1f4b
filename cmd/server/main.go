package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/good-yellow-bee/jpapi/internal/api"
	"github.com/good-yellow-bee/jpapi/internal/api/health"
	"github.com/good-yellow-bee/jpapi/internal/catalog"
	"github.com/good-yellow-bee/jpapi/internal/logging"
	"github.com/good-yellow-bee/jpapi/internal/metrics"
	"github.com/good-yellow-bee/jpapi/internal/query"
	"github.com/good-yellow-bee/jpapi/internal/storage"
	"github.com/good-yellow-bee/jpapi/pkg/config"
)

var (
	configFile string
	httpAddr   string
	envFile    string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "jpapi-server",
	Short: "jpapi server - people group data API",
	Long: `jpapi-server answers filtered queries about people groups, countries,
languages and language resources as JSON or XML for holders of an API key.`,
	PersistentPreRunE: loadEnv,
	RunE:              runServer,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("jpapi-server %s\n", config.Version)
		fmt.Printf("  commit: %s\n", config.Commit)
		fmt.Printf("  built:  %s\n", config.BuildTime)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file path (optional)")
	rootCmd.PersistentFlags().StringVarP(&httpAddr, "address", "a", "", "HTTP listen address (overrides config)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before the config")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadEnv reads the dotenv file when it exists. Variables already set in the
// environment win.
func loadEnv(cmd *cobra.Command, args []string) error {
	if envFile == "" {
		return nil
	}
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load %s: %w", envFile, err)
	}
	return nil
}

func runServer(cmd *cobra.Command, args []string) error {
	var cfg *Config

	// Load configuration from file if provided
	if configFile != "" {
		var err error
		cfg, err = LoadConfig(configFile)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
	} else {
		cfg = DefaultConfig()
	}

	// Override with CLI flags
	if httpAddr != "" {
		cfg.Server.HTTPAddress = httpAddr
	}
	cfg.Verbose = verbose
	if verbose {
		cfg.Log.Level = "debug"
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("validate config: %w", err)
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return run(ctx, cfg, logger)
}

func run(ctx context.Context, cfg *Config, logger zerolog.Logger) error {
	cat, err := catalog.Load(cfg.Query.EntitiesFile)
	if err != nil {
		return fmt.Errorf("load entities: %w", err)
	}

	// Auto-create data directory
	if dir := filepath.Dir(cfg.Keys.Path); cfg.Keys.Path != storage.MemoryPath {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return fmt.Errorf("create data directory: %w", err)
		}
	}

	keys := storage.NewSQLiteStorage(cfg.Keys.Path)
	if err := keys.Open(); err != nil {
		return fmt.Errorf("open key store: %w", err)
	}
	defer keys.Close()

	if err := keys.Migrate(); err != nil {
		return fmt.Errorf("migrate key store: %w", err)
	}
	logger.Info().Str("path", cfg.Keys.Path).Msg("key store initialized")

	datasetCfg := storage.DatasetConfig{
		Driver:          cfg.Dataset.Driver,
		DSN:             cfg.Dataset.DSN,
		MaxOpenConns:    cfg.Dataset.MaxOpenConns,
		MaxIdleConns:    cfg.Dataset.MaxIdleConns,
		ConnMaxLifetime: mustDuration(cfg.Dataset.ConnMaxLifetime),
		QueryTimeout:    mustDuration(cfg.Dataset.QueryTimeout),
	}
	dataset, err := storage.ConnectDataset(ctx, datasetCfg, cfg.Dataset.ConnectAttempts, nil,
		func(attempt int, wait time.Duration, err error) {
			logger.Warn().Err(err).Int("attempt", attempt).Dur("retry_in", wait).Msg("dataset not reachable yet")
		})
	if err != nil {
		return fmt.Errorf("open dataset: %w", err)
	}
	defer dataset.Close()
	logger.Info().Str("driver", cfg.Dataset.Driver).Msg("dataset connected")

	apiCfg := &api.Config{
		Address:      cfg.Server.HTTPAddress,
		ReadTimeout:  mustDuration(cfg.Server.ReadTimeout),
		WriteTimeout: mustDuration(cfg.Server.WriteTimeout),
		IdleTimeout:  mustDuration(cfg.Server.IdleTimeout),
		Query: query.Options{
			DefaultLimit:     cfg.Query.DefaultLimit,
			LegacyPageOffset: cfg.Query.LegacyPageOffset,
			StrictNumbers:    cfg.Query.StrictNumbers,
		},
		RateLimitPerMinute: cfg.RateLimit.RequestsPerMinute,
		RateLimitBurst:     cfg.RateLimit.Burst,
		Verbose:            cfg.Verbose,
	}

	srv, err := api.New(apiCfg, cat, dataset, keys.APIKeys(), logger)
	if err != nil {
		return fmt.Errorf("create API server: %w", err)
	}
	srv.RegisterHealthChecker(health.NewDatasetChecker(dataset, cfg.Dataset.Driver))
	srv.RegisterHealthChecker(health.NewKeyStoreChecker(keys.DB()))

	metrics.SetBuildInfo(config.Version, config.Commit, config.BuildTime)
	logger.Info().Str("version", config.Version).Msg("starting jpapi-server")

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return srv.Run(gctx)
	})

	if cfg.Server.MetricsAddress != "" {
		ms := metrics.NewServer(cfg.Server.MetricsAddress, logger)
		g.Go(ms.Start)
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return ms.Shutdown(shutdownCtx)
		})
	}

	if err := g.Wait(); err != nil {
		return fmt.Errorf("run server: %w", err)
	}

	logger.Info().Msg("server stopped")
	return nil
}
