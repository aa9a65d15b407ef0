// ABOUTME: Root Cobra command and global flags for the dashmatch CLI.
// ABOUTME: Lifecycle hooks load config, build the logger, and wire clients into a session.
package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/2389-research/dashmatch/internal/config"
	"github.com/2389-research/dashmatch/internal/embeddings"
	"github.com/2389-research/dashmatch/internal/genai"
	"github.com/2389-research/dashmatch/internal/host"
	"github.com/2389-research/dashmatch/internal/logging"
	"github.com/2389-research/dashmatch/internal/session"
	"github.com/2389-research/dashmatch/internal/storage"
)

var (
	globalConfig  *config.Config
	globalLogger  *slog.Logger
	globalLogFile io.Closer
	globalCache   *storage.EmbeddingCache
	globalHost    *host.Client
	globalAI      *genai.Client
	globalSession *session.Session
)

var (
	flagLogLevel string
	flagNoCache  bool
)

var rootCmd = &cobra.Command{
	Use:   "dashmatch",
	Short: "Find analytics dashboards by describing what you need",
	Long: `
   DASHMATCH

Describe the dashboard you are looking for. dashmatch embeds every
dashboard's metadata from your analytics host, ranks them against your
query, and shows the best match with its embed URL.

Run without a subcommand to open the interactive app.`,
	SilenceUsage: true,
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		closeGlobals()
		return nil
	},
	RunE: runApp,
}

func init() {
	// Assigned here rather than in the literal to avoid an initialization
	// cycle: setupGlobals -> isInteractive -> rootCmd.
	rootCmd.PersistentPreRunE = setupGlobals
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "Log level: debug, info, warn, error (overrides config)")
	rootCmd.PersistentFlags().BoolVar(&flagNoCache, "no-cache", false, "Skip the on-disk embedding cache")
}

// isInteractive reports whether cmd takes over the terminal, in which case
// logs go to a file instead of stderr.
func isInteractive(cmd *cobra.Command) bool {
	return cmd == rootCmd || cmd.Name() == "app"
}

// needsClients reports whether cmd talks to the host or AI service.
func needsClients(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Name() == "cache" {
			return false
		}
	}
	return true
}

func setupGlobals(cmd *cobra.Command, args []string) error {
	if cmd.Name() == "help" || cmd.Name() == "version" || cmd.Name() == "setup" {
		return nil
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if flagLogLevel != "" {
		cfg.Log.Level = flagLogLevel
	}
	if flagNoCache {
		cfg.Cache.Disabled = true
	}
	globalConfig = cfg

	if err := setupLogger(cfg, isInteractive(cmd)); err != nil {
		return err
	}

	if !needsClients(cmd) {
		return nil
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	if !cfg.Cache.Disabled {
		if err := openCache(cfg); err != nil {
			// The cache only saves remote calls; run without it.
			globalLogger.Warn("embedding cache unavailable", "error", err)
		}
	}

	timeout := cfg.HTTPTimeout()
	globalHost = host.NewClient(cfg.Host.URL, cfg.Host.ClientID, cfg.Host.ClientSecret, host.WithTimeout(timeout))
	globalAI = genai.NewClient(cfg.AI.URL, cfg.AI.APIKey, cfg.AI.EmbedModel, cfg.AI.TextModel, genai.WithTimeout(timeout))

	var embedder embeddings.Embedder = globalAI
	if globalCache != nil {
		embedder = embeddings.NewCachedEmbedder(globalAI, globalCache, globalLogger)
	}

	store := embeddings.NewStore(globalHost, embedder,
		embeddings.WithWorkers(cfg.Search.LoadWorkers),
		embeddings.WithLogger(globalLogger),
	)
	globalSession = session.New(store, embeddings.NewMatcher(embedder),
		session.WithTop(cfg.Search.Top),
		session.WithLogger(globalLogger),
	)
	return nil
}

func setupLogger(cfg *config.Config, toFile bool) error {
	if !toFile {
		globalLogger = logging.New(cfg.Log.Level, cfg.Log.Format, os.Stderr)
		return nil
	}

	path, err := cfg.GetLogPath()
	if err != nil {
		return fmt.Errorf("failed to resolve log path: %w", err)
	}
	f, err := logging.OpenFile(path)
	if err != nil {
		return err
	}
	globalLogFile = f
	globalLogger = logging.New(cfg.Log.Level, cfg.Log.Format, f)
	return nil
}

func openCache(cfg *config.Config) error {
	path, err := cfg.GetCachePath()
	if err != nil {
		return fmt.Errorf("failed to resolve cache path: %w", err)
	}
	cache, err := storage.OpenEmbeddingCache(path)
	if err != nil {
		return err
	}
	globalCache = cache
	globalLogger.Debug("embedding cache opened", "path", path)
	return nil
}

func closeGlobals() {
	if globalCache != nil {
		_ = globalCache.Close()
		globalCache = nil
	}
	if globalLogFile != nil {
		_ = globalLogFile.Close()
		globalLogFile = nil
	}
}
