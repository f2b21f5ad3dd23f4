package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jacklau/issuecache/internal/analyze"
	"github.com/jacklau/issuecache/internal/store"
)

var (
	analyzeOutput string
	analyzeLabel  string
	analyzeTop    int
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Analyze stored issues",
	Long: `Analyze reads the local store and prints issue counts per state, a
label frequency histogram, and optionally the issues carrying one label.`,
	Args: cobra.NoArgs,
	RunE: runAnalyze,
}

func init() {
	analyzeCmd.Flags().StringVar(&analyzeOutput, "output", "", "path to the store JSON file")
	analyzeCmd.Flags().StringVar(&analyzeLabel, "label", "", "list issues carrying this label")
	analyzeCmd.Flags().IntVar(&analyzeTop, "top", 20, "limit the label summary to the top N labels (0 for all)")
	rootCmd.AddCommand(analyzeCmd)
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	top := analyzeTop
	if !cmd.Flags().Changed("top") {
		top = cfg.Analyze.TopLabels()
	}
	if top < 0 {
		return fmt.Errorf("--top must not be negative, got %d", top)
	}

	path := resolveStorePath(analyzeOutput, cfg)
	st, err := store.Load(path)
	if err != nil {
		return fmt.Errorf("loading store: %w", err)
	}

	analyze.Report(cmd.OutOrStdout(), st, analyze.Options{
		Path:  path,
		Label: analyzeLabel,
		Top:   top,
	})
	return nil
}
