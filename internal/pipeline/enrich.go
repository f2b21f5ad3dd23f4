package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"sync"

	"github.com/tidwall/gjson"
	"golang.org/x/sync/errgroup"

	"github.com/jacklau/issuecache/internal/github"
	"github.com/jacklau/issuecache/internal/store"
)

// CommentFetchError records a failed comment fetch for one issue. It never
// aborts a run; the issue is saved without comments.
type CommentFetchError struct {
	Number int
	Err    error
}

func (e *CommentFetchError) Error() string {
	return fmt.Sprintf("fetching comments for issue #%d: %v", e.Number, e.Err)
}

func (e *CommentFetchError) Unwrap() error { return e.Err }

// Enricher fetches comment threads for issues that have comments.
type Enricher struct {
	fetcher    Fetcher
	normalizer github.Normalizer
	workers    int
	logger     *slog.Logger
}

// NewEnricher creates an Enricher running up to workers fetches at once.
func NewEnricher(fetcher Fetcher, normalizer github.Normalizer, workers int, logger *slog.Logger) *Enricher {
	if workers <= 0 {
		workers = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Enricher{
		fetcher:    fetcher,
		normalizer: normalizer,
		workers:    workers,
		logger:     logger,
	}
}

// wantsComments reports whether raw has a comment thread worth fetching.
func wantsComments(raw gjson.Result) bool {
	if _, ok := github.IssueNumber(raw); !ok {
		return false
	}
	return raw.Get("comments").Int() > 0 && raw.Get("comments_url").String() != ""
}

// Enrich returns the normalized comments for each issue, index-aligned with
// issues, and one CommentFetchError per issue whose fetch failed. Issues
// without comments get an empty list. progress, if set, is called after each
// fetched thread.
func (e *Enricher) Enrich(ctx context.Context, issues []gjson.Result, progress func(done, total int)) ([][]store.Comment, []*CommentFetchError) {
	results := make([][]store.Comment, len(issues))
	var targets []int
	for i, raw := range issues {
		results[i] = []store.Comment{}
		if wantsComments(raw) {
			targets = append(targets, i)
		}
	}

	var (
		mu       sync.Mutex
		failures []*CommentFetchError
		done     int
	)

	var g errgroup.Group
	g.SetLimit(e.workers)
	for _, i := range targets {
		i := i
		raw := issues[i]
		number, _ := github.IssueNumber(raw)
		g.Go(func() error {
			comments, err := e.fetch(ctx, raw.Get("comments_url").String())

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failure := &CommentFetchError{Number: number, Err: err}
				failures = append(failures, failure)
				e.logger.Warn("comment fetch failed, saving issue without comments",
					"issue", number,
					"error", err,
				)
			} else {
				results[i] = comments
			}
			done++
			if progress != nil {
				progress(done, len(targets))
			}
			return nil
		})
	}
	_ = g.Wait()

	return results, failures
}

func (e *Enricher) fetch(ctx context.Context, commentsURL string) ([]store.Comment, error) {
	seed, err := github.SetQuery(commentsURL, url.Values{"per_page": {fmt.Sprint(github.DefaultPerPage)}})
	if err != nil {
		return nil, &github.ProtocolViolationError{URL: commentsURL, Reason: err.Error()}
	}

	raw, err := e.fetcher.Paginate(ctx, seed)
	if err != nil {
		return nil, err
	}

	comments := make([]store.Comment, 0, len(raw))
	for _, c := range raw {
		comments = append(comments, e.normalizer.Comment(c))
	}
	return comments, nil
}
