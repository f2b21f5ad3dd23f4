package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jacklau/issuecache/internal/github"
	"github.com/jacklau/issuecache/internal/store"
)

// fakeGitHub serves a two-page issue listing and per-issue comment threads.
// Comment requests for issue 42 fail.
func fakeGitHub(t *testing.T, evilNext bool) (*httptest.Server, *[]string) {
	t.Helper()

	var (
		base     string
		mu       sync.Mutex
		requests []string
	)
	record := func(r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		requests = append(requests, r.URL.String())
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/o/r/issues", func(w http.ResponseWriter, r *http.Request) {
		record(r)
		if r.URL.Query().Get("page") == "2" {
			fmt.Fprintf(w, `[%s, {"number":43,"title":"a PR","pull_request":{}}]`, issueJSON(base, 42, 1))
			return
		}
		next := base + "/repos/o/r/issues?page=2"
		if evilNext {
			next = "https://evil.example.com/repos/o/r/issues?page=2"
		}
		w.Header().Set("Link", fmt.Sprintf(`<%s>; rel="next"`, next))
		fmt.Fprintf(w, `[%s, %s]`, issueJSON(base, 1, 2), issueJSON(base, 2, 0))
	})
	mux.HandleFunc("/repos/o/r/issues/1/comments", func(w http.ResponseWriter, r *http.Request) {
		record(r)
		if r.URL.Query().Get("page") == "2" {
			w.Write([]byte(`[{"id":102,"body":"second","user":{"login":"b","id":3,"type":"User","html_url":"https://github.com/b"}}]`))
			return
		}
		w.Header().Set("Link", fmt.Sprintf(`<%s/repos/o/r/issues/1/comments?page=2&per_page=100>; rel="next"`, base))
		w.Write([]byte(`[{"id":101,"body":"first","user":{"login":"a","id":2,"type":"User","html_url":"https://github.com/a"}}]`))
	})
	mux.HandleFunc("/repos/o/r/issues/42/comments", func(w http.ResponseWriter, r *http.Request) {
		record(r)
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"message":"Server Error"}`))
	})

	srv := httptest.NewTLSServer(mux)
	t.Cleanup(srv.Close)
	base = srv.URL
	return srv, &requests
}

func issueJSON(base string, number, comments int) string {
	return fmt.Sprintf(`{"number":%d,"title":"Issue %d","state":"open","locked":false,"created_at":"2023-01-01T00:00:00Z","updated_at":"2023-06-0%dT00:00:00Z","closed_at":null,"html_url":"https://github.com/o/r/issues/%d","user":{"login":"alice","id":1,"type":"User","html_url":"https://github.com/alice"},"labels":[{"name":"bug","description":null,"color":"d73a4a"}],"assignees":[],"comments":%d,"comments_url":"%s/repos/o/r/issues/%d/comments","body":"body %d"}`,
		number, number, number%9+1, number, comments, base, number, number)
}

func TestPipelineIntegration_EndToEnd(t *testing.T) {
	srv, requests := fakeGitHub(t, false)

	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelWarn}))

	client, err := github.NewClient(
		github.WithHTTPClient(srv.Client()),
		github.WithBaseURL(srv.URL+"/"),
		github.WithToken("test-token"),
		github.WithLogger(logger),
	)
	if err != nil {
		t.Fatalf("NewClient() error: %v", err)
	}

	p := New(PipelineDeps{
		Fetcher: client,
		Workers: 2,
		Logger:  logger,
		Now:     func() time.Time { return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC) },
	})

	path := filepath.Join(t.TempDir(), "issues.json")
	result, err := p.Fetch(context.Background(), Options{
		Owner:           "o",
		Repo:            "r",
		Path:            path,
		IncludeComments: true,
	})
	if err != nil {
		t.Fatalf("Fetch() error: %v", err)
	}

	if result.Fetched != 3 || result.PullRequests != 1 {
		t.Errorf("result = %+v, want 3 issues and 1 pull request", result)
	}
	if len(result.CommentFailures) != 1 || result.CommentFailures[0].Number != 42 {
		t.Errorf("CommentFailures = %v, want #42", result.CommentFailures)
	}
	if !strings.Contains(logs.String(), "issue=42") {
		t.Errorf("expected warning for issue 42, got %q", logs.String())
	}

	st, err := store.Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if st.Len() != 3 {
		t.Fatalf("stored %d issues, want 3", st.Len())
	}
	one, _ := st.Get(1)
	if len(one.Comments) != 2 || one.Comments[0].ID != 101 || one.Comments[1].ID != 102 {
		t.Errorf("issue 1 comments = %+v, want ids 101 then 102", one.Comments)
	}
	if one.URL != "https://github.com/o/r/issues/1" || one.Body == nil || *one.Body != "body 1" {
		t.Errorf("issue 1 = %+v", one)
	}
	fortyTwo, _ := st.Get(42)
	if len(fortyTwo.Comments) != 0 || fortyTwo.CommentsCount != 1 {
		t.Errorf("issue 42 = %d comments (count %d)", len(fortyTwo.Comments), fortyTwo.CommentsCount)
	}

	for _, r := range *requests {
		if strings.Contains(r, "/issues/2/comments") {
			t.Errorf("requested comments for an issue without comments: %s", r)
		}
	}

	// The second run picks up from the newest updated_at.
	*requests = nil
	if _, err := p.Fetch(context.Background(), Options{Path: path}); err != nil {
		t.Fatalf("second Fetch() error: %v", err)
	}
	if len(*requests) == 0 || !strings.Contains((*requests)[0], "since=2023-06-07T00%3A00%3A00Z") {
		t.Errorf("second run first request = %v, want since cursor", *requests)
	}
}

func TestPipelineIntegration_ForeignNextLinkSavesNothing(t *testing.T) {
	srv, _ := fakeGitHub(t, true)

	client, err := github.NewClient(
		github.WithHTTPClient(srv.Client()),
		github.WithBaseURL(srv.URL+"/"),
	)
	if err != nil {
		t.Fatalf("NewClient() error: %v", err)
	}

	p := New(PipelineDeps{
		Fetcher: client,
		Logger:  slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError})),
	})

	path := filepath.Join(t.TempDir(), "issues.json")
	_, err = p.Fetch(context.Background(), Options{Owner: "o", Repo: "r", Path: path, IncludeComments: true})

	var pv *github.ProtocolViolationError
	if !errors.As(err, &pv) {
		t.Fatalf("Fetch() error = %v, want ProtocolViolationError", err)
	}
	if _, statErr := os.Stat(path); !os.IsNotExist(statErr) {
		t.Error("store file was written despite the protocol violation")
	}
}
