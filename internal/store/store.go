// Package store persists cached issues as a single JSON document.
package store

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"
)

// MalformedRecordError reports an issue that was rejected because its number
// is not a positive integer.
type MalformedRecordError struct {
	Number int
	Title  string
}

func (e *MalformedRecordError) Error() string {
	return fmt.Sprintf("skipping issue with invalid number %d (title %q)", e.Number, e.Title)
}

// document is the on-disk layout.
type document struct {
	Owner      string  `json:"owner"`
	Repo       string  `json:"repo"`
	Issues     []Issue `json:"issues"`
	FetchedAt  string  `json:"fetched_at,omitempty"`
	IssueCount int     `json:"issue_count"`
}

// rawDocument is used when loading: issues may be a list or a legacy map
// keyed by stringified number.
type rawDocument struct {
	Owner     string          `json:"owner"`
	Repo      string          `json:"repo"`
	Issues    json.RawMessage `json:"issues"`
	FetchedAt string          `json:"fetched_at"`
}

// Store is the in-memory view of the document. Issues are held in a map
// keyed by number, so at most one record exists per issue.
type Store struct {
	Owner     string
	Repo      string
	FetchedAt string

	issues  map[int]Issue
	dropped int
}

// New returns an empty store.
func New(owner, repo string) *Store {
	return &Store{
		Owner:  owner,
		Repo:   repo,
		issues: make(map[int]Issue),
	}
}

// Load reads the store at path. A missing file yields an empty store.
func Load(path string) (*Store, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return New("", ""), nil
		}
		return nil, fmt.Errorf("reading store file: %w", err)
	}
	return Parse(data)
}

// Parse decodes a store document.
func Parse(data []byte) (*Store, error) {
	var raw rawDocument
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing store file: %w", err)
	}

	s := New(raw.Owner, raw.Repo)
	s.FetchedAt = raw.FetchedAt
	if err := s.decodeIssues(raw.Issues); err != nil {
		return nil, err
	}
	return s, nil
}

// decodeIssues resolves the list or legacy map shape into the issue map.
// Entries that cannot be decoded or carry a non-positive number are counted
// as dropped.
func (s *Store) decodeIssues(raw json.RawMessage) error {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil
	}

	switch raw[0] {
	case '[':
		var entries []json.RawMessage
		if err := json.Unmarshal(raw, &entries); err != nil {
			return fmt.Errorf("parsing issues list: %w", err)
		}
		for _, entry := range entries {
			var issue Issue
			if !isObject(entry) || json.Unmarshal(entry, &issue) != nil || issue.Number <= 0 {
				s.dropped++
				continue
			}
			s.issues[issue.Number] = issue
		}
	case '{':
		var entries map[string]json.RawMessage
		if err := json.Unmarshal(raw, &entries); err != nil {
			return fmt.Errorf("parsing issues map: %w", err)
		}
		for key, entry := range entries {
			number, err := strconv.Atoi(key)
			var issue Issue
			if err != nil || number <= 0 || !isObject(entry) || json.Unmarshal(entry, &issue) != nil {
				s.dropped++
				continue
			}
			issue.Number = number
			s.issues[number] = issue
		}
	default:
		return fmt.Errorf("unexpected issues field: expected a list or an object")
	}
	return nil
}

func isObject(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) > 0 && raw[0] == '{'
}

// Dropped returns how many stored entries were discarded while loading.
func (s *Store) Dropped() int {
	return s.dropped
}

// Len returns the number of cached issues.
func (s *Store) Len() int {
	return len(s.issues)
}

// Get returns the cached issue with the given number.
func (s *Store) Get(number int) (Issue, bool) {
	issue, ok := s.issues[number]
	return issue, ok
}

// Issues returns all cached issues sorted ascending by number.
func (s *Store) Issues() []Issue {
	issues := make([]Issue, 0, len(s.issues))
	for _, issue := range s.issues {
		issues = append(issues, issue.withEmptySlices())
	}
	sort.Slice(issues, func(i, j int) bool {
		return issues[i].Number < issues[j].Number
	})
	return issues
}

// Reset drops every cached issue.
func (s *Store) Reset() {
	s.issues = make(map[int]Issue)
}

// Merge stores each issue under its number, replacing any previous record.
// Issues with a non-positive number are rejected and reported.
func (s *Store) Merge(batch []Issue) []error {
	var rejected []error
	for _, issue := range batch {
		if issue.Number <= 0 {
			rejected = append(rejected, &MalformedRecordError{Number: issue.Number, Title: issue.Title})
			continue
		}
		s.issues[issue.Number] = issue.withEmptySlices()
	}
	return rejected
}

// Save stamps fetched_at with now and writes the whole document to path.
// The previous file is replaced only once the new content is fully written.
func (s *Store) Save(path string, now time.Time) error {
	s.FetchedAt = FormatTimestamp(now)
	issues := s.Issues()

	doc := document{
		Owner:      s.Owner,
		Repo:       s.Repo,
		Issues:     issues,
		FetchedAt:  s.FetchedAt,
		IssueCount: len(issues),
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encoding store: %w", err)
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating store directory: %w", err)
		}
	}
	if err := writeAtomic(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("writing store file: %w", err)
	}
	return nil
}

func writeAtomic(path string, content []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	base := filepath.Base(path)
	file, err := os.CreateTemp(dir, base+".tmp-*")
	if err != nil {
		return err
	}
	name := file.Name()
	cleanup := func() {
		_ = os.Remove(name)
	}
	if _, err := file.Write(content); err != nil {
		_ = file.Close()
		cleanup()
		return err
	}
	if err := file.Sync(); err != nil {
		_ = file.Close()
		cleanup()
		return err
	}
	if err := file.Chmod(perm); err != nil {
		_ = file.Close()
		cleanup()
		return err
	}
	if err := file.Close(); err != nil {
		cleanup()
		return err
	}
	if err := os.Rename(name, path); err != nil {
		cleanup()
		return err
	}
	return nil
}
