// Package analyze summarizes a cached issue store for display.
package analyze

import (
	"fmt"
	"io"
	"math"
	"sort"
	"strings"

	"github.com/jacklau/issuecache/internal/store"
)

// barWidth is the width of the longest histogram bar.
const barWidth = 40

// Count is a name with an occurrence count.
type Count struct {
	Name  string
	Count int
}

// StateCounts counts issues per state, most common first. Issues without a
// state are ignored.
func StateCounts(issues []store.Issue) []Count {
	counts := make(map[string]int)
	for _, issue := range issues {
		if issue.State != "" {
			counts[issue.State]++
		}
	}
	return sortCounts(counts)
}

// LabelCounts counts label occurrences, most common first, keeping only the
// top entries when top > 0.
func LabelCounts(issues []store.Issue, top int) []Count {
	counts := make(map[string]int)
	for _, issue := range issues {
		for _, label := range issue.Labels {
			if label.Name != "" {
				counts[label.Name]++
			}
		}
	}
	sorted := sortCounts(counts)
	if top > 0 && len(sorted) > top {
		sorted = sorted[:top]
	}
	return sorted
}

// FilterByLabel returns the issues carrying label, sorted by number.
func FilterByLabel(issues []store.Issue, label string) []store.Issue {
	var matched []store.Issue
	for _, issue := range issues {
		if issue.HasLabel(label) {
			matched = append(matched, issue)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].Number < matched[j].Number
	})
	return matched
}

// Bar renders a histogram bar for value relative to maximum. Any nonzero
// value gets at least one block.
func Bar(value, maximum, width int) string {
	if maximum <= 0 || value <= 0 {
		return ""
	}
	length := int(math.Round(float64(value) / float64(maximum) * float64(width)))
	if length < 1 {
		length = 1
	}
	return strings.Repeat("█", length)
}

func sortCounts(counts map[string]int) []Count {
	sorted := make([]Count, 0, len(counts))
	for name, n := range counts {
		sorted = append(sorted, Count{Name: name, Count: n})
	}
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Count != sorted[j].Count {
			return sorted[i].Count > sorted[j].Count
		}
		return sorted[i].Name < sorted[j].Name
	})
	return sorted
}

// Options controls Report output.
type Options struct {
	Path  string
	Label string
	Top   int
}

// Report writes the state summary, label histogram and optional label
// filter for st to w.
func Report(w io.Writer, st *store.Store, opts Options) {
	issues := st.Issues()
	if len(issues) == 0 {
		fmt.Fprintf(w, "No issues found in %s. Run the fetch command first.\n", opts.Path)
		return
	}

	fmt.Fprintf(w, "Analyzing %d issues from %s/%s.\n", len(issues), st.Owner, st.Repo)

	if states := StateCounts(issues); len(states) > 0 {
		fmt.Fprintln(w, "State summary:")
		for _, s := range states {
			fmt.Fprintf(w, "- %s: %d\n", s.Name, s.Count)
		}
	}

	labels := LabelCounts(issues, opts.Top)
	if len(labels) == 0 {
		fmt.Fprintln(w, "No labels found.")
	} else {
		fmt.Fprintln(w, "Label summary:")
		maximum := labels[0].Count
		for _, l := range labels {
			fmt.Fprintf(w, "- %s: %d %s\n", l.Name, l.Count, Bar(l.Count, maximum, barWidth))
		}
	}

	if opts.Label != "" {
		filtered := FilterByLabel(issues, opts.Label)
		fmt.Fprintf(w, "\nIssues with label '%s': %d\n", opts.Label, len(filtered))
		for _, issue := range filtered {
			fmt.Fprintf(w, "- #%d: %s\n", issue.Number, issue.Title)
		}
	}
}
