// Command capview downloads capacity and inventory reports over FTP or
// SSH, normalizes them and shows them in the terminal or a web page.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/JonMunkholm/capview/internal/config"
	"github.com/JonMunkholm/capview/internal/core"
	_ "github.com/JonMunkholm/capview/internal/core/datasets" // register report kinds
	"github.com/JonMunkholm/capview/internal/fetch"
	"github.com/JonMunkholm/capview/internal/history"
	"github.com/JonMunkholm/capview/internal/logging"
	"github.com/JonMunkholm/capview/internal/manifest"
)

var (
	configPath string
	encoding   string
	logLevel   string
	logFormat  string
	parallel   int

	cfg *config.Config
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "capview",
	Short: "Fetch and display drive capacity and IP inventory reports",
	Long: `capview reads a pipeline document (server, credentials and three
remote/local file pairs), downloads the three CSV reports, normalizes them
and hands them to a viewer.

Settings come from the environment (and a .env file); flags override them.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: loadConfig,
}

// loadConfig loads .env and the environment, applies flag overrides and
// configures logging.
func loadConfig(cmd *cobra.Command, _ []string) error {
	// Overload lets .env win over inherited variables.
	envErr := godotenv.Overload()

	loaded, err := config.Load()
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("config") {
		loaded.Pipeline.ConfigPath = configPath
	}
	if flags.Changed("encoding") {
		loaded.Pipeline.Encoding = encoding
	}
	if flags.Changed("log-level") {
		loaded.Logging.Level = logLevel
	}
	if flags.Changed("log-format") {
		loaded.Logging.Format = logFormat
	}
	if flags.Changed("parallel") {
		loaded.Fetch.Parallel = parallel
	}
	if err := loaded.Validate(); err != nil {
		return err
	}

	logging.Setup(loaded.Logging.Level, loaded.Logging.Format)
	if envErr != nil {
		slog.Debug("no .env file found, using environment variables")
	}
	slog.Debug("configuration loaded", "config", loaded.String())

	cfg = loaded
	return nil
}

// buildPipeline wires resolver, fetcher and the optional history store
// around sink. The returned cleanup releases the store.
func buildPipeline(ctx context.Context, sink core.Sink) (*core.Pipeline, *history.Store, func(), error) {
	resolver, err := manifest.New()
	if err != nil {
		return nil, nil, nil, err
	}

	fetcher, err := fetch.NewClient(fetch.Config{
		Timeout:        cfg.Fetch.Timeout,
		KnownHostsFile: cfg.Fetch.KnownHostsFile,
	})
	if err != nil {
		return nil, nil, nil, err
	}

	enc, err := core.ParseEncoding(cfg.Pipeline.Encoding)
	if err != nil {
		return nil, nil, nil, err
	}
	opts := []core.Option{
		core.WithReadOptions(core.ReadOptions{Encoding: enc}),
		core.WithParallel(cfg.Fetch.Parallel),
	}

	cleanup := func() {}
	store := openHistory(ctx)
	if store != nil {
		opts = append(opts, core.WithRecorder(store))
		cleanup = store.Close
	}

	return core.NewPipeline(resolver, fetcher, sink, opts...), store, cleanup, nil
}

// openHistory connects the run history store. History is best effort:
// any failure is logged and the run continues without it.
func openHistory(ctx context.Context) *history.Store {
	if !cfg.Database.Enabled() {
		return nil
	}
	store, err := history.Open(ctx, cfg.Database)
	if err != nil {
		slog.Warn("run history disabled", "error", err)
		return nil
	}
	if err := store.Migrate(ctx); err != nil {
		slog.Warn("run history disabled", "error", err)
		store.Close()
		return nil
	}
	return store
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&configPath, "config", "c", manifest.DefaultFile, "pipeline document, relative to the executable (CAPVIEW_CONFIG)")
	pf.StringVar(&encoding, "encoding", "utf-8", "report encoding: utf-8, euc-kr or auto (CSV_ENCODING)")
	pf.StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn, error (LOG_LEVEL)")
	pf.StringVar(&logFormat, "log-format", "text", "log format: text or json (LOG_FORMAT)")
	pf.IntVar(&parallel, "parallel", 1, "entries fetched at once (FETCH_PARALLEL)")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(historyCmd)
}
