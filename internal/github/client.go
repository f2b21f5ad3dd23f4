package github

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	gogithub "github.com/google/go-github/v60/github"
	"github.com/tidwall/gjson"
	"golang.org/x/oauth2"
)

const (
	// DefaultBaseURL is the public GitHub REST API root.
	DefaultBaseURL = "https://api.github.com/"

	// DefaultPerPage is the page size requested from list endpoints.
	DefaultPerPage = 100

	defaultTimeout   = 30 * time.Second
	defaultUserAgent = "issuecache"
	mediaTypeJSON    = "application/vnd.github+json"
	maxRedirects     = 10
)

// Page is a single decoded API response.
type Page struct {
	Body      []byte
	Link      string
	RateLimit *RateLimitInfo
}

// Items returns every object-shaped element of the page. Both a bare array
// and a search-style {"items": [...]} wrapper are accepted.
func (p *Page) Items() []gjson.Result {
	root := gjson.ParseBytes(p.Body)
	if root.IsObject() {
		root = root.Get("items")
	}
	if !root.IsArray() {
		return nil
	}

	var items []gjson.Result
	for _, item := range root.Array() {
		if item.IsObject() {
			items = append(items, item)
		}
	}
	return items
}

// Client performs authenticated GETs against a single trusted API host.
type Client struct {
	gh         *gogithub.Client
	httpClient *http.Client
	baseURL    *url.URL
	rawBaseURL string
	token      string
	userAgent  string
	timeout    time.Duration
	logger     *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the underlying HTTP client (useful for testing).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithBaseURL sets the API root. Only URLs on this host are ever fetched.
func WithBaseURL(u string) Option {
	return func(c *Client) {
		c.rawBaseURL = u
	}
}

// WithToken sets the bearer token sent with every request.
func WithToken(token string) Option {
	return func(c *Client) {
		c.token = token
	}
}

// WithTimeout bounds each individual request.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		if ua != "" {
			c.userAgent = ua
		}
	}
}

// WithLogger sets the logger used for rate limit and pagination warnings.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewClient creates a Client. The base URL must use https.
func NewClient(opts ...Option) (*Client, error) {
	c := &Client{
		rawBaseURL: DefaultBaseURL,
		userAgent:  defaultUserAgent,
		timeout:    defaultTimeout,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}

	base, err := url.Parse(c.rawBaseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing base URL %q: %w", c.rawBaseURL, err)
	}
	if base.Scheme != "https" || base.Host == "" {
		return nil, fmt.Errorf("base URL %q must be an https URL with a host", c.rawBaseURL)
	}
	if !strings.HasSuffix(base.Path, "/") {
		base.Path += "/"
	}
	c.baseURL = base

	hc := &http.Client{Timeout: c.timeout}
	if c.httpClient != nil {
		copied := *c.httpClient
		hc = &copied
	}
	if c.token != "" {
		hc.Transport = &oauth2.Transport{
			Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: c.token}),
			Base:   hc.Transport,
		}
	}
	hc.CheckRedirect = c.checkRedirect
	c.httpClient = hc

	c.gh = gogithub.NewClient(c.httpClient)
	c.gh.BaseURL = base
	c.gh.UserAgent = c.userAgent

	return c, nil
}

// HasToken reports whether requests are authenticated.
func (c *Client) HasToken() bool {
	return c.token != ""
}

// IssuesURL builds the issue listing URL for a repository. An empty since
// requests the full history.
func (c *Client) IssuesURL(owner, repo, since string) string {
	u := c.baseURL.ResolveReference(&url.URL{
		Path: fmt.Sprintf("repos/%s/%s/issues", url.PathEscape(owner), url.PathEscape(repo)),
	})

	q := url.Values{}
	q.Set("state", "all")
	q.Set("per_page", fmt.Sprintf("%d", DefaultPerPage))
	q.Set("sort", "updated")
	q.Set("direction", "desc")
	if since != "" {
		q.Set("since", since)
	}
	u.RawQuery = q.Encode()
	return u.String()
}

// Get fetches a single URL and returns its raw JSON body and Link header.
func (c *Client) Get(ctx context.Context, rawURL string) (*Page, error) {
	if err := c.checkURL(rawURL); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := c.gh.NewRequest(http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, &TransportError{URL: rawURL, Err: err}
	}
	req.Header.Set("Accept", mediaTypeJSON)

	var body bytes.Buffer
	resp, err := c.gh.Do(ctx, req, &body)
	if err != nil {
		return nil, classifyError(rawURL, resp, err)
	}

	if !gjson.ValidBytes(body.Bytes()) {
		return nil, &DecodeError{URL: rawURL, Err: errInvalidJSON}
	}

	return &Page{
		Body:      body.Bytes(),
		Link:      resp.Header.Get("Link"),
		RateLimit: ParseRateLimit(resp.Response),
	}, nil
}

// checkURL rejects anything that is not https on the configured API host.
func (c *Client) checkURL(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return &ProtocolViolationError{URL: rawURL, Reason: fmt.Sprintf("malformed URL: %v", err)}
	}
	if u.Scheme != "https" {
		return &ProtocolViolationError{URL: rawURL, Reason: fmt.Sprintf("scheme %q is not https", u.Scheme)}
	}
	if u.User != nil {
		return &ProtocolViolationError{URL: rawURL, Reason: "URL carries user credentials"}
	}
	if !strings.EqualFold(u.Host, c.baseURL.Host) {
		return &ProtocolViolationError{URL: rawURL, Reason: fmt.Sprintf("host %q is not %q", u.Host, c.baseURL.Host)}
	}
	return nil
}

// checkRedirect applies checkURL to every redirect hop, so the token is never
// attached to a request for another host.
func (c *Client) checkRedirect(req *http.Request, via []*http.Request) error {
	if len(via) >= maxRedirects {
		return fmt.Errorf("stopped after %d redirects", maxRedirects)
	}
	return c.checkURL(req.URL.String())
}

// classifyError maps a go-github Do error onto the fetch error taxonomy.
func classifyError(rawURL string, resp *gogithub.Response, err error) error {
	var pv *ProtocolViolationError
	if errors.As(err, &pv) {
		return pv
	}

	var accepted *gogithub.AcceptedError
	if errors.As(err, &accepted) {
		return &RemoteError{URL: rawURL, StatusCode: http.StatusAccepted, Message: "request accepted, result not ready yet"}
	}

	if resp == nil || resp.Response == nil {
		return &TransportError{URL: rawURL, Err: err}
	}
	status := resp.StatusCode
	if status >= 200 && status < 300 {
		// The response arrived but reading the body failed.
		return &TransportError{URL: rawURL, Err: err}
	}

	return &RemoteError{
		URL:        rawURL,
		StatusCode: status,
		Message:    remoteMessage(resp.Response, err),
	}
}

// remoteMessage extracts a human message from an error response. go-github
// re-populates the body after reading it, so it can be read again here.
func remoteMessage(resp *http.Response, err error) string {
	if resp.Body != nil {
		data, readErr := io.ReadAll(resp.Body)
		if readErr == nil {
			text := strings.TrimSpace(string(data))
			if gjson.Valid(text) {
				if msg := gjson.Get(text, "message"); msg.Type == gjson.String && msg.String() != "" {
					return msg.String()
				}
			}
			if text != "" {
				return text
			}
		}
	}

	var (
		errResp *gogithub.ErrorResponse
		rlErr   *gogithub.RateLimitError
		abuse   *gogithub.AbuseRateLimitError
	)
	switch {
	case errors.As(err, &errResp) && errResp.Message != "":
		return errResp.Message
	case errors.As(err, &rlErr) && rlErr.Message != "":
		return rlErr.Message
	case errors.As(err, &abuse) && abuse.Message != "":
		return abuse.Message
	}
	return http.StatusText(resp.StatusCode)
}

// SetQuery returns rawURL with params merged into its query string.
func SetQuery(rawURL string, params url.Values) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parsing URL %q: %w", rawURL, err)
	}
	q := u.Query()
	for key, values := range params {
		q[key] = values
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}
