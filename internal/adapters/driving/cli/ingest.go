package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [dir]",
	Short: "Run one ingestion pass over a PDF directory",
	Long: `Reconciles the vector store against the PDF files in the given
directory: deleted files are removed from the index, new and modified
files are extracted, chunked, embedded and indexed. Without an
argument the configured ingest.dir is used.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runIngest,
}

func init() {
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	dir := ""
	if len(args) > 0 {
		dir = args[0]
	}
	source, err := app.NewSource(dir)
	if err != nil {
		return err
	}

	cmd.Printf("Ingesting %s...\n", source.SourceID())
	result, err := app.ingestor.Ingest(cmd.Context(), source)
	if err != nil {
		return fmt.Errorf("ingestion failed: %w", err)
	}

	cmd.Printf("Done in %s: %d added, %d updated, %d deleted, %d chunks indexed\n",
		result.Duration.Round(time.Millisecond),
		result.Stats.DocumentsAdded,
		result.Stats.DocumentsUpdated,
		result.Stats.DocumentsDeleted,
		result.Stats.ChunksIndexed,
	)
	if result.Stats.Errors > 0 {
		cmd.Printf("%d documents failed:\n", result.Stats.Errors)
		for _, failed := range result.FailedDocuments {
			cmd.Printf("  %s: %v\n", failed.DocumentID, failed.Err)
		}
	}
	return nil
}
