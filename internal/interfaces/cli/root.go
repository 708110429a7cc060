// Package cli implements the winwin command-line interface: document-driven
// access to population analysis, rebalancing and roadmap optimization.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/turtacn/WinWin-Intelligence/internal/application/analysis"
	"github.com/turtacn/WinWin-Intelligence/internal/application/roadmap"
	"github.com/turtacn/WinWin-Intelligence/internal/config"
	"github.com/turtacn/WinWin-Intelligence/internal/domain/entity"
	"github.com/turtacn/WinWin-Intelligence/internal/domain/winwin"
	"github.com/turtacn/WinWin-Intelligence/internal/infrastructure/cache"
	"github.com/turtacn/WinWin-Intelligence/internal/infrastructure/graphexport"
	"github.com/turtacn/WinWin-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/WinWin-Intelligence/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/WinWin-Intelligence/pkg/errors"
)

// Build-time variables injected via ldflags.
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// cliContextKey is the context key for CLIContext.
type cliContextKey struct{}

// RootOptions holds global CLI flags.
type RootOptions struct {
	ConfigPath   string
	LogLevel     string
	OutputFormat string
	Verbose      bool
}

// CLIContext carries the initialized engine through the command tree.
type CLIContext struct {
	Config       *config.Config
	Logger       logging.Logger
	Valuator     entity.Valuator
	Service      analysis.Service
	Optimizer    roadmap.Optimizer
	Exporter     graphexport.Store // nil unless export is enabled
	OutputFormat string
	Verbose      bool
}

// NewRootCommand creates the root command with global flags and subcommands.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:     "winwin",
		Short:   "WinWin-Intelligence CLI — multi-party deal valuation and roadmap optimization",
		Long:    "WinWin-Intelligence evaluates whether every stakeholder in a multi-party deal\npopulation comes out ahead, proposes rebalancing plans when one does not, and\nsearches deal hypergraphs for execution roadmaps that maximize collective value.",
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", Version, GitCommit, BuildDate),
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return persistentPreRun(cmd, opts)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := cmd.PersistentFlags()
	pf.StringVarP(&opts.ConfigPath, "config", "c", "", "config file path (default: ./winwin.yaml)")
	pf.StringVar(&opts.LogLevel, "log-level", "", "log level override (debug, info, warn, error)")
	pf.StringVarP(&opts.OutputFormat, "output", "o", "json", "output format (json, text)")
	pf.BoolVarP(&opts.Verbose, "verbose", "v", false, "enable verbose output")

	cmd.AddCommand(
		NewAnalyzeCmd(),
		NewRebalanceCmd(),
		NewOptimizeCmd(),
	)

	return cmd
}

// persistentPreRun loads configuration, builds the engine and stores a
// CLIContext on the command.
func persistentPreRun(cmd *cobra.Command, opts *RootOptions) error {
	cfg, err := initConfig(opts)
	if err != nil {
		return fmt.Errorf("config initialization failed: %w", err)
	}

	logger, err := initLogger(cfg, opts)
	if err != nil {
		return fmt.Errorf("logger initialization failed: %w", err)
	}
	logging.SetDefault(logger)

	cliCtx, err := buildEngine(cfg, logger)
	if err != nil {
		return fmt.Errorf("engine initialization failed: %w", err)
	}
	cliCtx.OutputFormat = opts.OutputFormat
	cliCtx.Verbose = opts.Verbose

	ctx := context.WithValue(cmd.Context(), cliContextKey{}, cliCtx)
	cmd.SetContext(ctx)

	return nil
}

// initConfig loads configuration with priority: flag > search paths > env.
func initConfig(opts *RootOptions) (*config.Config, error) {
	if opts.ConfigPath != "" {
		return config.Load(opts.ConfigPath)
	}

	searchPaths := []string{"./winwin.yaml"}
	if homeDir, err := os.UserHomeDir(); err == nil {
		searchPaths = append(searchPaths, filepath.Join(homeDir, ".winwin", "config.yaml"))
	}
	searchPaths = append(searchPaths, "/etc/winwin/config.yaml")

	for _, p := range searchPaths {
		if _, statErr := os.Stat(p); statErr == nil {
			return config.Load(p)
		}
	}

	// No config file found; environment variables and defaults suffice.
	return config.LoadFromEnv()
}

// initLogger creates a logger configured for CLI usage: console format on
// stderr so stdout stays clean for document output.
func initLogger(cfg *config.Config, opts *RootOptions) (logging.Logger, error) {
	logCfg := cfg.Log
	logCfg.Format = "console"
	logCfg.OutputPaths = []string{"stderr"}
	logCfg.ErrorOutputPaths = []string{"stderr"}

	if opts.LogLevel != "" {
		logCfg.Level = strings.ToLower(opts.LogLevel)
	}
	if opts.Verbose {
		logCfg.Level = "debug"
	}

	return logging.NewLogger(logCfg)
}

// buildEngine wires valuation, caching, analysis, optimization and export
// from configuration.
func buildEngine(cfg *config.Config, logger logging.Logger) (*CLIContext, error) {
	var metrics *prometheus.EngineMetrics
	if cfg.Metrics.Enabled {
		collector, err := prometheus.NewMetricsCollector(prometheus.CollectorConfig{
			Namespace: cfg.Metrics.Namespace,
		}, logger)
		if err != nil {
			return nil, err
		}
		metrics = prometheus.NewEngineMetrics(collector)
		go serveMetrics(cfg.Metrics.ListenAddr, collector, logger)
	}

	valuator := entity.NewValuator(entity.ValuatorConfig{Logger: logger})

	var (
		valuationCache cache.Cache
		backend        string
	)
	switch cfg.Cache.Backend {
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:         cfg.Redis.Addr,
			Password:     cfg.Redis.Password,
			DB:           cfg.Redis.DB,
			PoolSize:     cfg.Redis.PoolSize,
			MinIdleConns: cfg.Redis.MinIdleConns,
			DialTimeout:  cfg.Redis.DialTimeout,
			ReadTimeout:  cfg.Redis.ReadTimeout,
			WriteTimeout: cfg.Redis.WriteTimeout,
		})
		valuationCache = cache.NewRedisCache(client, logger,
			cache.WithPrefix(cfg.Redis.KeyPrefix),
			cache.WithTTL(cfg.Redis.DefaultTTL))
		backend = "redis"
	default:
		valuationCache = cache.NewMemoryCache(logger)
		backend = "memory"
	}

	cachedValuator, err := analysis.NewCachedValuator(valuator, valuationCache, backend, metrics)
	if err != nil {
		return nil, err
	}

	analyzer, err := winwin.NewAnalyzer(winwin.AnalyzerConfig{
		Valuator: cachedValuator,
		Logger:   logger,
	})
	if err != nil {
		return nil, err
	}
	rebalancer, err := winwin.NewRebalancer(winwin.RebalancerConfig{
		Analyzer: analyzer,
		Logger:   logger,
	})
	if err != nil {
		return nil, err
	}
	service, err := analysis.NewService(analysis.ServiceConfig{
		Analyzer:   analyzer,
		Rebalancer: rebalancer,
		Logger:     logger,
		Metrics:    metrics,
	})
	if err != nil {
		return nil, err
	}

	optimizer, err := roadmap.NewOptimizer(roadmap.OptimizerConfig{
		Logger:   logger,
		Metrics:  metrics,
		Tunables: cfg.Optimizer,
	})
	if err != nil {
		return nil, err
	}

	var exporter graphexport.Store
	if cfg.Export.Enabled {
		exporter, err = graphexport.NewStore(cfg.Export.Neo4j, logger)
		if err != nil {
			return nil, err
		}
	}

	return &CLIContext{
		Config:    cfg,
		Logger:    logger,
		Valuator:  cachedValuator,
		Service:   service,
		Optimizer: optimizer,
		Exporter:  exporter,
	}, nil
}

// serveMetrics exposes /metrics until the process exits.
func serveMetrics(addr string, collector prometheus.MetricsCollector, logger logging.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", collector.Handler())
	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Warn("metrics endpoint stopped", logging.Err(err))
	}
}

// GetCLIContext extracts the CLIContext stored by persistentPreRun.
func GetCLIContext(cmd *cobra.Command) (*CLIContext, error) {
	ctx := cmd.Context()
	if ctx == nil {
		return nil, errors.Internal("command context is nil")
	}
	cliCtx, ok := ctx.Value(cliContextKey{}).(*CLIContext)
	if !ok || cliCtx == nil {
		return nil, errors.Internal("CLI context not initialized")
	}
	return cliCtx, nil
}

// Execute is the entry point for the CLI application.
func Execute() error {
	rootCmd := NewRootCommand()
	if err := rootCmd.Execute(); err != nil {
		PrintError(rootCmd, err)
		return err
	}
	return nil
}

// PrintResult writes data to stdout in the requested format.
func PrintResult(cmd *cobra.Command, data interface{}) error {
	cliCtx, err := GetCLIContext(cmd)
	if err != nil {
		return printJSON(cmd, data)
	}
	switch strings.ToLower(cliCtx.OutputFormat) {
	case "text":
		return printText(cmd, data)
	default:
		return printJSON(cmd, data)
	}
}

func printJSON(cmd *cobra.Command, data interface{}) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}

func printText(cmd *cobra.Command, data interface{}) error {
	switch v := data.(type) {
	case string:
		fmt.Fprintln(cmd.OutOrStdout(), v)
	case fmt.Stringer:
		fmt.Fprintln(cmd.OutOrStdout(), v.String())
	default:
		fmt.Fprintf(cmd.OutOrStdout(), "%+v\n", v)
	}
	return nil
}

// PrintError writes a formatted error message to stderr.
func PrintError(cmd *cobra.Command, err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "Error: %s\n", err.Error())
}
