// Package cli implements the docrag command-line interface.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docrag/internal/config"
)

var (
	configPath string
	app        *App
)

var rootCmd = &cobra.Command{
	Use:   "docrag",
	Short: "Index PDF documents and search them semantically",
	Long: `docrag keeps a vector store in sync with a directory of PDF
documents and answers semantic queries over the indexed chunks.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// The version and help commands run without infrastructure.
		switch cmd.Name() {
		case "version", "help", "completion":
			return nil
		}

		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		setupLogging(cfg.LogLevel)

		app, err = NewApp(cmd.Context(), cfg)
		if err != nil {
			return fmt.Errorf("initialise: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if app != nil {
			app.Close()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default ~/.docrag/config.toml)")
}

// Execute runs the CLI. It installs signal handling so SIGINT and
// SIGTERM cancel the command context.
func Execute(version string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rootCmd.Version = version
	return rootCmd.ExecuteContext(ctx)
}

func setupLogging(level string) {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})
	slog.SetDefault(slog.New(handler))
}
