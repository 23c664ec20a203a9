package cli

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docrag/internal/core/domain"
	"github.com/custodia-labs/docrag/internal/watch"
)

var watchCmd = &cobra.Command{
	Use:   "watch [dir]",
	Short: "Keep the index in sync with a PDF directory",
	Long: `Runs an initial ingestion pass, then watches the directory and
re-ingests whenever PDF files change. Runs until interrupted.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	dir := ""
	if len(args) > 0 {
		dir = args[0]
	}
	source, err := app.NewSource(dir)
	if err != nil {
		return err
	}

	watcher, err := watch.New(watch.Config{
		Dir:      source.Root(),
		Source:   source,
		Ingestor: app.ingestor,
		Debounce: app.cfg.Ingest.WatchDebounce.Duration(),
		Logger:   app.logger,
	})
	if err != nil {
		return err
	}
	watcher.OnResult = func(result *domain.IngestResult) {
		cmd.Printf("Pass complete: %d added, %d updated, %d deleted, %d errors\n",
			result.Stats.DocumentsAdded,
			result.Stats.DocumentsUpdated,
			result.Stats.DocumentsDeleted,
			result.Stats.Errors,
		)
	}

	cmd.Printf("Watching %s (Ctrl-C to stop)\n", source.Root())
	err = watcher.Run(cmd.Context())
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
