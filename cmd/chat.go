package cmd

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/ziadkadry99/docqa/internal/progress"
	"github.com/ziadkadry99/docqa/internal/tui"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Index the dataset and open an interactive question-answering session",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		a, err := buildApp(ctx, progress.NewReporter())
		if err != nil {
			return err
		}
		defer a.Close()

		timeout := time.Duration(a.cfg.Generation.TimeoutSeconds) * time.Second
		p := tea.NewProgram(tui.New(a.orchestrator, a.summary(), 2*timeout), tea.WithAltScreen())
		_, err = p.Run()
		return err
	},
}

func init() {
	rootCmd.AddCommand(chatCmd)
}
