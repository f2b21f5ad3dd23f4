package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/jacklau/issuecache/internal/pipeline"
	"github.com/jacklau/issuecache/internal/store"
)

var statusOutput string

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show store health overview",
	Long: `Display the cached repository, issue counts, when the store was last
fetched, the cursor the next incremental fetch will use, and the file size.`,
	Args: cobra.NoArgs,
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().StringVar(&statusOutput, "output", "", "path to the store JSON file")
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	path := resolveStorePath(statusOutput, cfg)
	st, err := store.Load(path)
	if err != nil {
		return fmt.Errorf("loading store: %w", err)
	}

	out := cmd.OutOrStdout()
	if st.Len() == 0 {
		fmt.Fprintf(out, "No issues cached in %s yet.\n", path)
		fmt.Fprintln(out, "Run 'issuecache fetch --owner <owner> --repo <repo>' to get started.")
		return nil
	}

	var open, closed int
	for _, issue := range st.Issues() {
		switch issue.State {
		case "open":
			open++
		case "closed":
			closed++
		}
	}

	lastFetched := "never"
	if t, ok := store.ParseTimestamp(st.FetchedAt); ok {
		lastFetched = fmt.Sprintf("%s (%s)", st.FetchedAt, formatTimeAgo(t))
	}

	cursor, err := pipeline.ResolveSince("", false, st)
	if err != nil {
		return err
	}
	if cursor == "" {
		cursor = "none (next fetch downloads everything)"
	}

	size := "size unknown"
	if n, err := fileSize(path); err == nil {
		size = formatBytes(n)
	}

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "Store:\t%s (%s)\n", path, size)
	fmt.Fprintf(w, "Repository:\t%s/%s\n", st.Owner, st.Repo)
	fmt.Fprintf(w, "Issues:\t%d (open %d, closed %d)\n", st.Len(), open, closed)
	fmt.Fprintf(w, "Last fetch:\t%s\n", lastFetched)
	fmt.Fprintf(w, "Next cursor:\t%s\n", cursor)
	return w.Flush()
}

// formatTimeAgo formats a time as a human-readable relative string.
func formatTimeAgo(t time.Time) string {
	d := time.Since(t)

	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		mins := int(d.Minutes())
		if mins == 1 {
			return "1 minute ago"
		}
		return fmt.Sprintf("%d minutes ago", mins)
	case d < 24*time.Hour:
		hours := int(d.Hours())
		if hours == 1 {
			return "1 hour ago"
		}
		return fmt.Sprintf("%d hours ago", hours)
	default:
		days := int(d.Hours() / 24)
		if days == 1 {
			return "1 day ago"
		}
		return fmt.Sprintf("%d days ago", days)
	}
}

// formatBytes formats bytes into a human-readable string.
func formatBytes(b int64) string {
	const unit = 1024
	if b < unit {
		return fmt.Sprintf("%d B", b)
	}
	div, exp := int64(unit), 0
	for n := b / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(b)/float64(div), "KMGTPE"[exp])
}

func fileSize(path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}
