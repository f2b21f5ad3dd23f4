package analyze

import (
	"bytes"
	"strings"
	"testing"

	"github.com/jacklau/issuecache/internal/store"
)

func labels(names ...string) []store.Label {
	out := make([]store.Label, 0, len(names))
	for _, n := range names {
		out = append(out, store.Label{Name: n})
	}
	return out
}

func testStore() *store.Store {
	st := store.New("tokio-rs", "tokio")
	st.Merge([]store.Issue{
		{Number: 3, Title: "Third", State: "open", Labels: labels("bug", "A-net")},
		{Number: 1, Title: "First", State: "closed", Labels: labels("bug")},
		{Number: 2, Title: "Second", State: "open", Labels: labels("docs")},
		{Number: 4, Title: "Fourth", State: "open"},
	})
	return st
}

func TestStateCounts(t *testing.T) {
	got := StateCounts(testStore().Issues())
	want := []Count{{"open", 3}, {"closed", 1}}
	if len(got) != len(want) {
		t.Fatalf("StateCounts() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("StateCounts()[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestLabelCounts(t *testing.T) {
	issues := testStore().Issues()

	got := LabelCounts(issues, 0)
	want := []Count{{"bug", 2}, {"A-net", 1}, {"docs", 1}}
	if len(got) != len(want) {
		t.Fatalf("LabelCounts() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("LabelCounts()[%d] = %v, want %v", i, got[i], want[i])
		}
	}

	if top := LabelCounts(issues, 1); len(top) != 1 || top[0].Name != "bug" {
		t.Errorf("LabelCounts(top=1) = %v, want [bug]", top)
	}
}

func TestFilterByLabel(t *testing.T) {
	got := FilterByLabel(testStore().Issues(), "bug")
	if len(got) != 2 || got[0].Number != 1 || got[1].Number != 3 {
		t.Errorf("FilterByLabel(bug) = %v, want issues 1 and 3", got)
	}
	if got := FilterByLabel(testStore().Issues(), "missing"); len(got) != 0 {
		t.Errorf("FilterByLabel(missing) = %v, want none", got)
	}
}

func TestBar(t *testing.T) {
	tests := []struct {
		value, maximum, width int
		want                  int
	}{
		{10, 10, 40, 40},
		{5, 10, 40, 20},
		{1, 1000, 40, 1},
		{0, 10, 40, 0},
		{3, 0, 40, 0},
	}
	for _, tt := range tests {
		got := Bar(tt.value, tt.maximum, tt.width)
		if n := strings.Count(got, "█"); n != tt.want {
			t.Errorf("Bar(%d, %d, %d) has %d blocks, want %d", tt.value, tt.maximum, tt.width, n, tt.want)
		}
	}
}

func TestReport(t *testing.T) {
	var buf bytes.Buffer
	Report(&buf, testStore(), Options{Path: "issues.json", Label: "bug", Top: 20})
	out := buf.String()

	for _, want := range []string{
		"Analyzing 4 issues from tokio-rs/tokio.",
		"State summary:",
		"- open: 3",
		"- closed: 1",
		"Label summary:",
		"- bug: 2 " + strings.Repeat("█", 40),
		"- docs: 1 " + strings.Repeat("█", 20),
		"Issues with label 'bug': 2",
		"- #1: First",
		"- #3: Third",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("report missing %q\n%s", want, out)
		}
	}
}

func TestReportEmptyStore(t *testing.T) {
	var buf bytes.Buffer
	Report(&buf, store.New("", ""), Options{Path: "/tmp/issues.json"})
	if got := buf.String(); got != "No issues found in /tmp/issues.json. Run the fetch command first.\n" {
		t.Errorf("Report() = %q", got)
	}
}

func TestReportNoLabels(t *testing.T) {
	st := store.New("o", "r")
	st.Merge([]store.Issue{{Number: 1, State: "open"}})

	var buf bytes.Buffer
	Report(&buf, st, Options{Path: "x"})
	if !strings.Contains(buf.String(), "No labels found.") {
		t.Errorf("expected no-labels message, got %q", buf.String())
	}
}
