package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/docqa/internal/progress"
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Index the dataset and answer a single question",
	Long:  `Ingests every document under dataset.dir, answers the question and prints the answer with the sources it was grounded on.`,
	Args:  cobra.MinimumNArgs(1),
	RunE:  runAsk,
}

func init() {
	askCmd.Flags().Bool("json", false, "output the response as JSON")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	question := strings.Join(args, " ")
	jsonOutput, _ := cmd.Flags().GetBool("json")

	a, err := buildApp(ctx, progress.NewReporter())
	if err != nil {
		return err
	}
	defer a.Close()

	resp, err := a.orchestrator.Query(ctx, question)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if jsonOutput {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(resp)
	}

	fmt.Fprintln(out, resp.Answer)
	if len(resp.Sources) > 0 {
		fmt.Fprintln(out)
		fmt.Fprintln(out, "Sources:")
		for i, src := range resp.Sources {
			fmt.Fprintf(out, "  %d. %s (score %.3f)\n", i+1, src.Source, src.Score)
		}
	}
	fmt.Fprintf(os.Stderr, "\n%s\n", a.summary())
	return nil
}
