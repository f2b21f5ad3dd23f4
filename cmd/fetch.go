package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jacklau/issuecache/internal/config"
	"github.com/jacklau/issuecache/internal/github"
	"github.com/jacklau/issuecache/internal/pipeline"
)

var (
	fetchOwner       string
	fetchRepo        string
	fetchOutput      string
	fetchSince       string
	fetchFullRefresh bool
	fetchNoComments  bool
	fetchWorkers     int
)

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Fetch issues and store them locally",
	Long: `Fetch downloads issues updated since the newest cached issue (or all
issues on the first run), optionally with their comments, and merges them into
the local store. Issues whose comments cannot be fetched are still saved.`,
	Args: cobra.NoArgs,
	RunE: runFetch,
}

func init() {
	fetchCmd.Flags().StringVar(&fetchOwner, "owner", "", fmt.Sprintf("GitHub owner (default: %s)", pipeline.DefaultOwner))
	fetchCmd.Flags().StringVar(&fetchRepo, "repo", "", fmt.Sprintf("GitHub repository (default: %s)", pipeline.DefaultRepo))
	fetchCmd.Flags().StringVar(&fetchOutput, "output", "", "path to the store JSON file")
	fetchCmd.Flags().StringVar(&fetchSince, "since", "", "ISO 8601 timestamp to fetch updates since (overrides incremental mode)")
	fetchCmd.Flags().BoolVar(&fetchFullRefresh, "full-refresh", false, "ignore the local cursor and fetch all issues")
	fetchCmd.Flags().BoolVar(&fetchNoComments, "no-comments", false, "skip fetching issue comments")
	fetchCmd.Flags().IntVar(&fetchWorkers, "workers", 0, "concurrent comment fetches (default from config)")
	fetchCmd.MarkFlagsMutuallyExclusive("since", "full-refresh")
	rootCmd.AddCommand(fetchCmd)
}

func runFetch(cmd *cobra.Command, args []string) error {
	logger := setupLogger(cmd.ErrOrStderr())

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	token := config.TokenFromEnv(os.Getenv)
	if token == "" {
		logger.Warn("GITHUB_TOKEN/GH_TOKEN not set; unauthenticated requests are heavily rate limited")
	}

	client, err := newClient(cfg, token, logger)
	if err != nil {
		return fmt.Errorf("creating GitHub client: %w", err)
	}

	workers := cfg.Defaults.CommentWorkers
	if fetchWorkers > 0 {
		workers = fetchWorkers
	}

	p := pipeline.New(pipeline.PipelineDeps{
		Fetcher:    client,
		Normalizer: github.Normalizer{MaxBodyLength: cfg.Defaults.MaxBodyLength},
		Workers:    workers,
		Logger:     logger,
	})

	var bar *progressBar
	opts := pipeline.Options{
		Owner:           firstNonEmpty(fetchOwner, cfg.Repo.Owner),
		Repo:            firstNonEmpty(fetchRepo, cfg.Repo.Name),
		Path:            resolveStorePath(fetchOutput, cfg),
		Since:           fetchSince,
		FullRefresh:     fetchFullRefresh,
		IncludeComments: cfg.Defaults.Comments() && !fetchNoComments,
		Progress: func(done, total int) {
			if bar == nil {
				bar = newProgressBar(total, "Fetching comments", cmd.ErrOrStderr())
			}
			bar.Add(1)
		},
	}

	result, err := p.Fetch(cmd.Context(), opts)
	if bar != nil {
		bar.Finish()
	}
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if n := len(result.CommentFailures); n > 0 {
		fmt.Fprintf(out, "Comments could not be fetched for %d issue(s); they were saved without comments.\n", n)
	}
	if result.Rejected > 0 {
		fmt.Fprintf(out, "Skipped %d malformed issue(s).\n", result.Rejected)
	}
	fmt.Fprintf(out, "Fetched %d updated issue(s) from %s/%s.\n", result.Fetched, result.Owner, result.Repo)
	fmt.Fprintf(out, "Saved %d issues to %s.\n", result.Total, result.Path)
	return nil
}
