package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/docqa/internal/progress"
	"github.com/ziadkadry99/docqa/internal/vectordb"
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Index the dataset and list the chunks closest to a query",
	Long:  `Runs retrieval only, without answer generation, and prints the best matching chunks with their similarity scores.`,
	Args:  cobra.MinimumNArgs(1),
	RunE:  runSearch,
}

func init() {
	searchCmd.Flags().Int("limit", 0, "maximum number of results (default retrieval.k)")
	searchCmd.Flags().Bool("json", false, "output results as JSON")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	query := strings.Join(args, " ")
	limit, _ := cmd.Flags().GetInt("limit")
	jsonOutput, _ := cmd.Flags().GetBool("json")

	a, err := buildApp(ctx, progress.NewReporter())
	if err != nil {
		return err
	}
	defer a.Close()

	results, err := a.orchestrator.Search(ctx, query, limit)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	out := cmd.OutOrStdout()
	if jsonOutput {
		type jsonResult struct {
			Content string  `json:"content"`
			Source  string  `json:"source"`
			Chunk   int     `json:"chunk"`
			Score   float32 `json:"score"`
		}
		items := make([]jsonResult, 0, len(results))
		for _, r := range results {
			items = append(items, jsonResult{
				Content: r.Document.Content,
				Source:  r.Document.Metadata.Source,
				Chunk:   r.Document.Metadata.Chunk,
				Score:   r.Similarity,
			})
		}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(items)
	}

	fmt.Fprintln(out, strings.TrimRight(vectordb.FormatResults(results), "\n"))
	return nil
}
