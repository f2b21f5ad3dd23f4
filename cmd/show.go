package cmd

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jacklau/issuecache/internal/store"
)

var showOutput string

var showCmd = &cobra.Command{
	Use:   "show <number | owner/repo#number>",
	Short: "Print a single cached issue with its comments",
	Long: `Show reads one issue from the local store and prints its metadata,
body and comment thread. No network requests are made.`,
	Args: cobra.ExactArgs(1),
	RunE: runShow,
}

func init() {
	showCmd.Flags().StringVar(&showOutput, "output", "", "path to the store JSON file")
	rootCmd.AddCommand(showCmd)
}

// parseIssueRef accepts "42", "#42" or "owner/repo#42". Owner and repo are
// empty for the short forms.
func parseIssueRef(ref string) (owner, repo string, number int, err error) {
	numStr := ref
	if hashIdx := strings.LastIndex(ref, "#"); hashIdx != -1 {
		numStr = ref[hashIdx+1:]
		if repoFull := ref[:hashIdx]; repoFull != "" {
			parts := strings.SplitN(repoFull, "/", 2)
			if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
				return "", "", 0, fmt.Errorf("invalid repo format: expected owner/repo, got %q", repoFull)
			}
			owner, repo = parts[0], parts[1]
		}
	}

	number, err = strconv.Atoi(numStr)
	if err != nil {
		return "", "", 0, fmt.Errorf("invalid issue number %q: %w", numStr, err)
	}
	if number <= 0 {
		return "", "", 0, fmt.Errorf("invalid issue number %d: must be positive", number)
	}
	return owner, repo, number, nil
}

func runShow(cmd *cobra.Command, args []string) error {
	owner, repo, number, err := parseIssueRef(args[0])
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	path := resolveStorePath(showOutput, cfg)
	st, err := store.Load(path)
	if err != nil {
		return fmt.Errorf("loading store: %w", err)
	}

	if owner != "" && (!strings.EqualFold(owner, st.Owner) || !strings.EqualFold(repo, st.Repo)) {
		return fmt.Errorf("store %s holds %s/%s, not %s/%s", path, st.Owner, st.Repo, owner, repo)
	}

	issue, ok := st.Get(number)
	if !ok {
		return fmt.Errorf("issue #%d is not cached in %s", number, path)
	}

	printIssue(cmd.OutOrStdout(), issue)
	return nil
}

func printIssue(w io.Writer, issue store.Issue) {
	fmt.Fprintf(w, "#%d: %s\n", issue.Number, issue.Title)
	fmt.Fprintf(w, "State:    %s\n", issue.State)
	if issue.User != nil {
		fmt.Fprintf(w, "Author:   %s\n", issue.User.Login)
	}
	fmt.Fprintf(w, "Created:  %s\n", issue.CreatedAt)
	fmt.Fprintf(w, "Updated:  %s\n", issue.UpdatedAt)
	if issue.ClosedAt != nil {
		fmt.Fprintf(w, "Closed:   %s\n", *issue.ClosedAt)
	}
	if len(issue.Labels) > 0 {
		names := make([]string, 0, len(issue.Labels))
		for _, l := range issue.Labels {
			names = append(names, l.Name)
		}
		fmt.Fprintf(w, "Labels:   %s\n", strings.Join(names, ", "))
	}
	if len(issue.Assignees) > 0 {
		logins := make([]string, 0, len(issue.Assignees))
		for _, a := range issue.Assignees {
			logins = append(logins, a.Login)
		}
		fmt.Fprintf(w, "Assigned: %s\n", strings.Join(logins, ", "))
	}
	fmt.Fprintf(w, "URL:      %s\n", issue.URL)

	if issue.Body != nil && *issue.Body != "" {
		fmt.Fprintf(w, "\n%s\n", *issue.Body)
	}

	fmt.Fprintf(w, "\nComments: %d cached of %d\n", len(issue.Comments), issue.CommentsCount)
	for _, c := range issue.Comments {
		author := "ghost"
		if c.User != nil {
			author = c.User.Login
		}
		fmt.Fprintf(w, "\n--- %s at %s\n%s\n", author, c.CreatedAt, c.Body)
	}
}
