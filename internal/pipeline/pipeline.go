// Package pipeline runs the incremental fetch-and-merge workflow.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/jacklau/issuecache/internal/github"
	"github.com/jacklau/issuecache/internal/store"
)

const (
	// DefaultOwner and DefaultRepo are used when neither the caller nor the
	// store names a repository.
	DefaultOwner = "tokio-rs"
	DefaultRepo  = "tokio"
)

// Fetcher is the subset of *github.Client the pipeline needs.
type Fetcher interface {
	IssuesURL(owner, repo, since string) string
	Paginate(ctx context.Context, seedURL string) ([]gjson.Result, error)
}

var _ Fetcher = (*github.Client)(nil)

// PipelineDeps holds the dependencies for the Pipeline.
type PipelineDeps struct {
	Fetcher    Fetcher
	Normalizer github.Normalizer
	Workers    int
	Logger     *slog.Logger
	Now        func() time.Time
}

// Pipeline orchestrates a fetch: cursor, issue pages, comments, merge, save.
type Pipeline struct {
	deps PipelineDeps
}

// New creates a new Pipeline with the given dependencies.
func New(deps PipelineDeps) *Pipeline {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &Pipeline{deps: deps}
}

// Options controls a single fetch run.
type Options struct {
	Owner           string
	Repo            string
	Path            string
	Since           string
	FullRefresh     bool
	IncludeComments bool

	// Progress is called as comment threads complete.
	Progress func(done, total int)
}

// Result summarizes a completed fetch.
type Result struct {
	Owner           string
	Repo            string
	Path            string
	Since           string
	Fetched         int
	PullRequests    int
	Rejected        int
	CommentFailures []*CommentFetchError
	Total           int
}

// ResolveSince picks the since cursor: an explicit value wins, a full
// refresh or an empty cache means no cursor, otherwise the newest cached
// updated_at.
func ResolveSince(explicit string, fullRefresh bool, st *store.Store) (string, error) {
	if explicit != "" {
		t, ok := store.ParseTimestamp(explicit)
		if !ok {
			return "", fmt.Errorf("invalid since timestamp %q", explicit)
		}
		return store.FormatTimestamp(t), nil
	}
	if fullRefresh {
		return "", nil
	}
	if latest, ok := st.LatestUpdatedAt(); ok {
		return store.FormatTimestamp(latest), nil
	}
	return "", nil
}

// Fetch loads the store at opts.Path, fetches issues updated since the
// cursor, and writes the merged store back. Any failure while listing issues
// is returned before the store is touched; comment failures are isolated per
// issue.
func (p *Pipeline) Fetch(ctx context.Context, opts Options) (*Result, error) {
	logger := p.deps.Logger

	st, err := store.Load(opts.Path)
	if err != nil {
		return nil, fmt.Errorf("loading store: %w", err)
	}
	if n := st.Dropped(); n > 0 {
		logger.Warn("discarded malformed entries from store", "path", opts.Path, "count", n)
	}

	owner, repo, err := p.reconcileRepo(st, opts)
	if err != nil {
		return nil, err
	}
	logger = logger.With("repo", owner+"/"+repo)

	since, err := ResolveSince(opts.Since, opts.FullRefresh, st)
	if err != nil {
		return nil, err
	}
	if since != "" {
		logger.Info("fetching issues updated since cursor", "since", since)
	} else {
		logger.Info("fetching all issues")
	}

	start := time.Now()
	raw, err := p.deps.Fetcher.Paginate(ctx, p.deps.Fetcher.IssuesURL(owner, repo, since))
	if err != nil {
		return nil, fmt.Errorf("fetching issues for %s/%s: %w", owner, repo, err)
	}

	issues := make([]gjson.Result, 0, len(raw))
	for _, r := range raw {
		if github.IsPullRequest(r) {
			continue
		}
		issues = append(issues, r)
	}
	result := &Result{
		Owner:        owner,
		Repo:         repo,
		Path:         opts.Path,
		Since:        since,
		Fetched:      len(issues),
		PullRequests: len(raw) - len(issues),
	}
	logger.Debug("issue pages fetched",
		"issues", len(issues),
		"pull_requests", result.PullRequests,
		"duration", time.Since(start),
	)

	comments := make([][]store.Comment, len(issues))
	if opts.IncludeComments {
		enricher := NewEnricher(p.deps.Fetcher, p.deps.Normalizer, p.deps.Workers, logger)
		comments, result.CommentFailures = enricher.Enrich(ctx, issues, opts.Progress)
		// A cancelled run would otherwise save every remaining issue without
		// its comments.
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("fetching comments: %w", err)
		}
	}

	batch := make([]store.Issue, 0, len(issues))
	for i, r := range issues {
		batch = append(batch, p.deps.Normalizer.Issue(r, comments[i]))
	}

	for _, rejection := range st.Merge(batch) {
		logger.Warn("rejected malformed issue", "error", rejection)
		result.Rejected++
	}

	if err := st.Save(opts.Path, p.deps.Now()); err != nil {
		return nil, fmt.Errorf("saving store: %w", err)
	}
	result.Total = st.Len()

	logger.Info("fetch complete",
		"fetched", result.Fetched,
		"comment_failures", len(result.CommentFailures),
		"total", result.Total,
		"duration", time.Since(start),
	)
	return result, nil
}

// reconcileRepo decides which repository to fetch and guards against mixing
// two repositories in one store.
func (p *Pipeline) reconcileRepo(st *store.Store, opts Options) (string, string, error) {
	owner := firstNonEmpty(opts.Owner, st.Owner, DefaultOwner)
	repo := firstNonEmpty(opts.Repo, st.Repo, DefaultRepo)

	sameRepo := strings.EqualFold(owner, st.Owner) && strings.EqualFold(repo, st.Repo)
	if st.Len() > 0 && st.Owner != "" && !sameRepo {
		if !opts.FullRefresh {
			return "", "", fmt.Errorf("store %s holds issues for %s/%s, not %s/%s (use --full-refresh to replace it)",
				opts.Path, st.Owner, st.Repo, owner, repo)
		}
		p.deps.Logger.Warn("replacing cached issues from another repository",
			"previous", st.Owner+"/"+st.Repo,
			"count", st.Len(),
		)
		st.Reset()
	}

	st.Owner = owner
	st.Repo = repo
	return owner, repo, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
