package examtie

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// API defines the subset of the ExamTie REST API this client consumes.
// It is implemented by *Client and can be replaced in tests.
type API interface {
	Login(ctx context.Context, username, password string) (*TokenResponse, error)
	Register(ctx context.Context, payload RegisterPayload) (*RegisterResult, error)
	FetchProfile(ctx context.Context, token string) (*User, error)
	FetchBookmarks(ctx context.Context, token string) ([]Bookmark, error)
	AddBookmark(ctx context.Context, token, examID string) (*Bookmark, error)
	RemoveBookmark(ctx context.Context, token, examID string) error
	FetchStreak(ctx context.Context, token string) (*Streak, error)
}

// Ensure Client implements API at compile time.
var _ API = (*Client)(nil)

// Client talks to the ExamTie HTTP API.
type Client struct {
	baseURL   *url.URL
	http      *http.Client
	userAgent string
	headers   func() http.Header
}

const (
	defaultBaseURL   = "https://examtieapi.breadtm.xyz"
	defaultUserAgent = "examtie/0.1"
	requestTimeout   = 10 * time.Second
)

// NewClient builds a Client for the given base URL. Empty uses the default
// public host.
func NewClient(baseURL string) (*Client, error) {
	base, err := parseBaseURL(baseURL)
	if err != nil {
		return nil, err
	}
	return &Client{
		baseURL: base,
		http: &http.Client{
			Timeout: requestTimeout,
		},
		userAgent: defaultUserAgent,
	}, nil
}

// SetHeaderSource installs a callback whose headers are merged into every
// request, used to attach the user's AI-provider configuration. Call it
// before the client is shared between goroutines.
func (c *Client) SetHeaderSource(fn func() http.Header) {
	c.headers = fn
}

// Login submits credentials form-encoded and returns the issued token.
// The API's login form names the identifier field "username" even though
// callers typically supply an email address.
func (c *Client) Login(ctx context.Context, username, password string) (*TokenResponse, error) {
	if c == nil {
		return nil, fmt.Errorf("client is nil")
	}
	form := url.Values{}
	form.Set("username", username)
	form.Set("password", password)

	var payload TokenResponse
	err := c.do(ctx, request{
		method:      http.MethodPost,
		path:        "/auth/api/v1/login",
		contentType: "application/x-www-form-urlencoded",
		body:        strings.NewReader(form.Encode()),
		fallback:    "Login failed",
	}, &payload)
	if err != nil {
		return nil, err
	}
	return &payload, nil
}

// Register submits a JSON registration payload and returns the created user,
// with the token when the server chose to issue one.
func (c *Client) Register(ctx context.Context, payload RegisterPayload) (*RegisterResult, error) {
	if c == nil {
		return nil, fmt.Errorf("client is nil")
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode registration payload: %w", err)
	}

	var result RegisterResult
	err = c.do(ctx, request{
		method:      http.MethodPost,
		path:        "/auth/api/v1/register",
		contentType: "application/json",
		body:        bytes.NewReader(body),
		fallback:    "Registration failed",
	}, &result)
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// FetchProfile retrieves the authenticated user's profile.
func (c *Client) FetchProfile(ctx context.Context, token string) (*User, error) {
	if c == nil {
		return nil, fmt.Errorf("client is nil")
	}
	var payload User
	err := c.do(ctx, request{
		method:   http.MethodGet,
		path:     "/user/api/v1/@me",
		token:    token,
		authed:   true,
		fallback: "Failed to fetch user profile",
	}, &payload)
	if err != nil {
		return nil, err
	}
	return &payload, nil
}

// FetchBookmarks retrieves the authenticated user's bookmarks.
func (c *Client) FetchBookmarks(ctx context.Context, token string) ([]Bookmark, error) {
	if c == nil {
		return nil, fmt.Errorf("client is nil")
	}
	var payload []Bookmark
	err := c.do(ctx, request{
		method:   http.MethodGet,
		path:     "/user/api/v1/bookmarks",
		token:    token,
		authed:   true,
		fallback: "Request failed",
	}, &payload)
	if err != nil {
		return nil, err
	}
	return payload, nil
}

// AddBookmark saves an exam for the authenticated user and returns the
// server's bookmark record.
func (c *Client) AddBookmark(ctx context.Context, token, examID string) (*Bookmark, error) {
	if c == nil {
		return nil, fmt.Errorf("client is nil")
	}
	body, err := json.Marshal(map[string]string{"exam_id": examID})
	if err != nil {
		return nil, fmt.Errorf("encode bookmark payload: %w", err)
	}

	var payload Bookmark
	err = c.do(ctx, request{
		method:      http.MethodPost,
		path:        "/user/api/v1/bookmarks",
		token:       token,
		authed:      true,
		contentType: "application/json",
		body:        bytes.NewReader(body),
		fallback:    "Request failed",
	}, &payload)
	if err != nil {
		return nil, err
	}
	return &payload, nil
}

// RemoveBookmark deletes the bookmark for the given exam.
func (c *Client) RemoveBookmark(ctx context.Context, token, examID string) error {
	if c == nil {
		return fmt.Errorf("client is nil")
	}
	return c.do(ctx, request{
		method:   http.MethodDelete,
		path:     "/user/api/v1/bookmarks/" + url.PathEscape(examID),
		token:    token,
		authed:   true,
		fallback: "Request failed",
	}, nil)
}

// FetchStreak retrieves the authenticated user's streak counters.
func (c *Client) FetchStreak(ctx context.Context, token string) (*Streak, error) {
	if c == nil {
		return nil, fmt.Errorf("client is nil")
	}
	var payload Streak
	err := c.do(ctx, request{
		method:   http.MethodGet,
		path:     "/user/api/v1/streak",
		token:    token,
		authed:   true,
		fallback: "Request failed",
	}, &payload)
	if err != nil {
		return nil, err
	}
	return &payload, nil
}

type request struct {
	method      string
	path        string
	token       string
	authed      bool
	contentType string
	body        io.Reader
	fallback    string
}

func (c *Client) do(ctx context.Context, r request, dest any) error {
	if r.authed && strings.TrimSpace(r.token) == "" {
		return ErrNoToken
	}

	rel := &url.URL{Path: r.path}
	reqURL := c.baseURL.ResolveReference(rel)
	req, err := http.NewRequestWithContext(ctx, r.method, reqURL.String(), r.body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if c.headers != nil {
		for key, values := range c.headers() {
			for _, v := range values {
				req.Header.Set(key, v)
			}
		}
	}
	if r.contentType != "" {
		req.Header.Set("Content-Type", r.contentType)
	}
	if r.token != "" {
		req.Header.Set("Authorization", "Bearer "+r.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decodeAPIError(resp.StatusCode, resp.Body, r.fallback)
	}
	if dest == nil {
		return nil
	}
	decoder := json.NewDecoder(resp.Body)
	if err := decoder.Decode(dest); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func parseBaseURL(baseURL string) (*url.URL, error) {
	trimmed := strings.TrimSpace(baseURL)
	if trimmed == "" {
		trimmed = defaultBaseURL
	}
	if !strings.Contains(trimmed, "://") {
		trimmed = "https://" + trimmed
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("parse base url %q: %w", baseURL, err)
	}
	u.Path = ""
	u.RawQuery = ""
	u.Fragment = ""
	return u, nil
}
