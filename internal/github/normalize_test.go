package github

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/tidwall/gjson"

	"github.com/jacklau/issuecache/internal/store"
)

const sampleIssue = `{
	"number": 42,
	"title": "Runtime panics on shutdown",
	"state": "open",
	"locked": false,
	"created_at": "2023-05-01T10:00:00Z",
	"updated_at": "2023-06-01T00:00:00Z",
	"closed_at": null,
	"html_url": "https://github.com/tokio-rs/tokio/issues/42",
	"url": "https://api.github.com/repos/tokio-rs/tokio/issues/42",
	"user": {"login": "alice", "id": 7, "type": "User", "html_url": "https://github.com/alice", "site_admin": false},
	"labels": [
		{"id": 1, "name": "C-bug", "description": "Category: bug", "color": "d73a4a"},
		"not-an-object",
		{"id": 2, "name": "A-runtime", "description": null, "color": "0e8a16"}
	],
	"assignees": [{"login": "bob", "id": 8, "type": "User", "html_url": "https://github.com/bob"}, null],
	"comments": 3,
	"comments_url": "https://api.github.com/repos/tokio-rs/tokio/issues/42/comments",
	"body": "It panics.",
	"reactions": {"+1": 5}
}`

func TestNormalizeIssue(t *testing.T) {
	comments := []store.Comment{{ID: 1, Body: "me too"}}
	issue := Normalizer{}.Issue(gjson.Parse(sampleIssue), comments)

	if issue.Number != 42 {
		t.Errorf("Number = %d, want 42", issue.Number)
	}
	if issue.Title != "Runtime panics on shutdown" || issue.State != "open" || issue.Locked {
		t.Errorf("unexpected scalar fields: %+v", issue)
	}
	if issue.URL != "https://github.com/tokio-rs/tokio/issues/42" {
		t.Errorf("URL = %q, want the html_url", issue.URL)
	}
	if issue.ClosedAt != nil {
		t.Errorf("ClosedAt = %v, want nil", *issue.ClosedAt)
	}
	if issue.User == nil || issue.User.Login != "alice" || issue.User.ID != 7 || issue.User.URL != "https://github.com/alice" {
		t.Errorf("User = %+v", issue.User)
	}

	if len(issue.Labels) != 2 {
		t.Fatalf("expected 2 labels (non-objects dropped), got %d", len(issue.Labels))
	}
	if issue.Labels[0].Name != "C-bug" || issue.Labels[0].Description == nil || *issue.Labels[0].Description != "Category: bug" {
		t.Errorf("Labels[0] = %+v", issue.Labels[0])
	}
	if issue.Labels[1].Description != nil {
		t.Errorf("Labels[1].Description = %q, want nil", *issue.Labels[1].Description)
	}

	if len(issue.Assignees) != 1 || issue.Assignees[0].Login != "bob" {
		t.Errorf("Assignees = %+v, want [bob]", issue.Assignees)
	}
	if issue.CommentsCount != 3 {
		t.Errorf("CommentsCount = %d, want 3", issue.CommentsCount)
	}
	if issue.Body == nil || *issue.Body != "It panics." {
		t.Errorf("Body = %v, want %q", issue.Body, "It panics.")
	}
	if len(issue.Comments) != 1 || issue.Comments[0].Body != "me too" {
		t.Errorf("Comments = %+v", issue.Comments)
	}
}

func TestNormalizeIssueSparse(t *testing.T) {
	issue := Normalizer{}.Issue(gjson.Parse(`{"number": 7, "user": null, "body": null, "labels": "oops"}`), nil)

	if issue.User != nil {
		t.Errorf("User = %+v, want nil", issue.User)
	}
	if issue.Body != nil {
		t.Errorf("Body = %q, want nil", *issue.Body)
	}
	if issue.Labels == nil || len(issue.Labels) != 0 {
		t.Errorf("Labels = %#v, want empty non-nil slice", issue.Labels)
	}
	if issue.Assignees == nil || issue.Comments == nil {
		t.Error("expected empty non-nil assignees and comments")
	}
}

func TestNormalizeTruncation(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		limit      int
		wantMarker bool
		wantRunes  int
	}{
		{"over the default cap", strings.Repeat("a", 25000), 0, true, DefaultMaxBodyLength},
		{"exactly at the cap", strings.Repeat("a", 20000), 0, false, 20000},
		{"under the cap", "short", 0, false, 5},
		{"multibyte over a small cap", strings.Repeat("é", 10), 4, true, 4},
		{"emoji at a small cap", strings.Repeat("🦀", 4), 4, false, 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := Normalizer{MaxBodyLength: tt.limit}
			got := n.Comment(gjson.Parse(`{"body":` + quote(tt.body) + `}`)).Body

			if !utf8.ValidString(got) {
				t.Fatal("truncated body is not valid UTF-8")
			}
			hasMarker := strings.HasSuffix(got, TruncationMarker)
			if hasMarker != tt.wantMarker {
				t.Fatalf("marker present = %v, want %v", hasMarker, tt.wantMarker)
			}
			content := strings.TrimSuffix(got, TruncationMarker)
			if n := utf8.RuneCountInString(content); n != tt.wantRunes {
				t.Errorf("content has %d characters, want %d", n, tt.wantRunes)
			}
			if !strings.HasPrefix(tt.body, content) {
				t.Error("truncated content is not a prefix of the original")
			}
		})
	}
}

func TestIssueNumber(t *testing.T) {
	tests := []struct {
		raw    string
		want   int
		wantOK bool
	}{
		{`{"number": 42}`, 42, true},
		{`{"number": 0}`, 0, false},
		{`{"number": -3}`, 0, false},
		{`{"number": 4.5}`, 0, false},
		{`{"number": "42"}`, 0, false},
		{`{"number": null}`, 0, false},
		{`{}`, 0, false},
		{`{"number": 99999999999}`, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, ok := IssueNumber(gjson.Parse(tt.raw))
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("IssueNumber(%s) = (%d, %v), want (%d, %v)", tt.raw, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestIsPullRequest(t *testing.T) {
	if !IsPullRequest(gjson.Parse(`{"number": 1, "pull_request": {"url": "x"}}`)) {
		t.Error("expected entry with pull_request key to be a pull request")
	}
	if IsPullRequest(gjson.Parse(`{"number": 1}`)) {
		t.Error("expected plain issue not to be a pull request")
	}
}

func TestNormalizeUserEmptyObject(t *testing.T) {
	if u := NormalizeUser(gjson.Parse(`{}`)); u != nil {
		t.Errorf("NormalizeUser({}) = %+v, want nil", u)
	}
	if u := NormalizeUser(gjson.Parse(`"ghost"`)); u != nil {
		t.Errorf("NormalizeUser(string) = %+v, want nil", u)
	}
}

// quote JSON-encodes s without escaping non-ASCII characters.
func quote(s string) string {
	return `"` + strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(s) + `"`
}
