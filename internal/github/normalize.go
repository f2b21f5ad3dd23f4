package github

import (
	"math"
	"unicode/utf8"

	"github.com/tidwall/gjson"

	"github.com/jacklau/issuecache/internal/store"
)

const (
	// DefaultMaxBodyLength caps issue and comment bodies, in characters.
	DefaultMaxBodyLength = 20000

	// TruncationMarker is appended to bodies cut at the cap.
	TruncationMarker = "\n\n[truncated]"
)

// Normalizer projects raw API objects onto the persisted schema.
// The zero value uses DefaultMaxBodyLength.
type Normalizer struct {
	MaxBodyLength int
}

// Issue converts a raw issue object and its already-normalized comments.
// A number that is not a positive integer is left as 0 for the store to
// reject.
func (n Normalizer) Issue(raw gjson.Result, comments []store.Comment) store.Issue {
	number, _ := IssueNumber(raw)

	issue := store.Issue{
		Number:        number,
		Title:         raw.Get("title").String(),
		State:         raw.Get("state").String(),
		Locked:        raw.Get("locked").Bool(),
		CreatedAt:     raw.Get("created_at").String(),
		UpdatedAt:     raw.Get("updated_at").String(),
		ClosedAt:      nullableString(raw.Get("closed_at")),
		URL:           raw.Get("html_url").String(),
		User:          NormalizeUser(raw.Get("user")),
		Labels:        []store.Label{},
		Assignees:     []store.User{},
		CommentsCount: int(raw.Get("comments").Int()),
		Comments:      comments,
	}
	if issue.Comments == nil {
		issue.Comments = []store.Comment{}
	}

	if body := nullableString(raw.Get("body")); body != nil {
		truncated := n.truncate(*body)
		issue.Body = &truncated
	}

	for _, label := range raw.Get("labels").Array() {
		if !label.IsObject() {
			continue
		}
		issue.Labels = append(issue.Labels, store.Label{
			Name:        label.Get("name").String(),
			Description: nullableString(label.Get("description")),
			Color:       label.Get("color").String(),
		})
	}

	for _, assignee := range raw.Get("assignees").Array() {
		if user := NormalizeUser(assignee); user != nil {
			issue.Assignees = append(issue.Assignees, *user)
		}
	}

	return issue
}

// Comment converts a raw comment object.
func (n Normalizer) Comment(raw gjson.Result) store.Comment {
	return store.Comment{
		ID:        raw.Get("id").Int(),
		User:      NormalizeUser(raw.Get("user")),
		CreatedAt: raw.Get("created_at").String(),
		UpdatedAt: raw.Get("updated_at").String(),
		Body:      n.truncate(raw.Get("body").String()),
	}
}

// NormalizeUser converts a raw user object. Missing, null or empty objects
// yield nil.
func NormalizeUser(raw gjson.Result) *store.User {
	if !raw.IsObject() || len(raw.Map()) == 0 {
		return nil
	}
	return &store.User{
		Login: raw.Get("login").String(),
		ID:    raw.Get("id").Int(),
		Type:  raw.Get("type").String(),
		URL:   raw.Get("html_url").String(),
	}
}

// IssueNumber returns the issue number when it is a positive integer.
func IssueNumber(raw gjson.Result) (int, bool) {
	v := raw.Get("number")
	if v.Type != gjson.Number || v.Num != math.Trunc(v.Num) || v.Num <= 0 || v.Num > math.MaxInt32 {
		return 0, false
	}
	return int(v.Int()), true
}

// IsPullRequest reports whether a raw issues-endpoint entry is actually a
// pull request.
func IsPullRequest(raw gjson.Result) bool {
	return raw.Get("pull_request").Exists()
}

// truncate cuts s to MaxBodyLength characters on a rune boundary and appends
// the marker. Strings at or under the cap are returned unchanged.
func (n Normalizer) truncate(s string) string {
	limit := n.MaxBodyLength
	if limit <= 0 {
		limit = DefaultMaxBodyLength
	}
	if utf8.RuneCountInString(s) <= limit {
		return s
	}

	count := 0
	for i := range s {
		if count == limit {
			return s[:i] + TruncationMarker
		}
		count++
	}
	return s
}

func nullableString(v gjson.Result) *string {
	if !v.Exists() || v.Type == gjson.Null {
		return nil
	}
	s := v.String()
	return &s
}
