package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docrag/internal/core/domain"
)

var (
	searchLimit    int
	searchDocument string
	searchJSON     bool
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search indexed chunks semantically",
	Long: `Embeds the query and returns the most similar indexed chunks,
ordered by descending similarity.`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", 0, "maximum number of results")
	searchCmd.Flags().StringVarP(&searchDocument, "document", "d", "", "restrict results to one document ID")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output results as JSON")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	limit := searchLimit
	if limit <= 0 {
		limit = app.cfg.Search.MaxResults
	}

	results, err := app.search.Search(cmd.Context(), args[0], searchDocument, limit)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if searchJSON {
		return outputSearchJSON(cmd, results)
	}
	return outputSearchText(cmd, results)
}

func outputSearchJSON(cmd *cobra.Command, results []*domain.ScoredChunk) error {
	data, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

func outputSearchText(cmd *cobra.Command, results []*domain.ScoredChunk) error {
	if len(results) == 0 {
		cmd.Println("No results found.")
		return nil
	}

	for i, result := range results {
		cmd.Printf("  [%d] %s p.%d (%.3f)\n", i+1, result.Chunk.DocumentID, result.Chunk.PageNumber, result.Score)
		cmd.Printf("      %s\n", result.Chunk.Text)
		cmd.Println()
	}
	return nil
}
