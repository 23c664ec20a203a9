package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var adminCmd = &cobra.Command{
	Use:   "admin",
	Short: "Repair and maintenance operations",
}

var clearAllCmd = &cobra.Command{
	Use:   "clear-all [source-id...]",
	Short: "Delete all indexed data for the given sources",
	Long: `Deletes all document records and chunks for the given source IDs.
Without arguments every source known to the store is cleared.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		affected, err := app.maintenance.ClearAll(cmd.Context(), args)
		if err != nil {
			return fmt.Errorf("clear-all failed: %w", err)
		}
		cmd.Printf("Removed %d records.\n", affected)
		return nil
	},
}

var clearDocumentCmd = &cobra.Command{
	Use:   "clear-document <document-id>",
	Short: "Delete one document and its chunks across all sources",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		affected, err := app.maintenance.ClearDocument(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("clear-document failed: %w", err)
		}
		if affected == 0 {
			cmd.Printf("No records found for %s.\n", args[0])
			return nil
		}
		cmd.Printf("Removed %d records.\n", affected)
		return nil
	},
}

var dedupeCmd = &cobra.Command{
	Use:   "dedupe [source-id]",
	Short: "Remove duplicate document records",
	Long: `Resolves duplicate document records: for each document ID with
more than one record, only the record with the greatest version
survives. Without an argument every known source is cleaned.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sourceID := ""
		if len(args) > 0 {
			sourceID = args[0]
		}
		affected, err := app.maintenance.CleanupDuplicates(cmd.Context(), sourceID)
		if err != nil {
			return fmt.Errorf("dedupe failed: %w", err)
		}
		cmd.Printf("Removed %d duplicate records.\n", affected)
		return nil
	},
}

func init() {
	adminCmd.AddCommand(clearAllCmd)
	adminCmd.AddCommand(clearDocumentCmd)
	adminCmd.AddCommand(dedupeCmd)
	rootCmd.AddCommand(adminCmd)
}
