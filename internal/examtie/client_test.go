package examtie

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestParseBaseURL_DefaultsAndNormalizes(t *testing.T) {
	u, err := parseBaseURL("")
	if err != nil {
		t.Fatalf("parseBaseURL returned error: %v", err)
	}
	if u.Scheme != "https" {
		t.Fatalf("scheme = %q, want https", u.Scheme)
	}
	if u.Host != "examtieapi.breadtm.xyz" {
		t.Fatalf("host = %q, want default host", u.Host)
	}

	u, err = parseBaseURL("example.com:1234/path?x=1#frag")
	if err != nil {
		t.Fatalf("parseBaseURL returned error: %v", err)
	}
	if u.Scheme != "https" {
		t.Fatalf("scheme = %q, want https inferred", u.Scheme)
	}
	if u.Path != "" || u.RawQuery != "" || u.Fragment != "" {
		t.Fatalf("url not normalized: %q", u.String())
	}
}

func TestClient_LoginEncodesForm(t *testing.T) {
	t.Parallel()

	var gotContentType, gotUsername, gotPassword string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/auth/api/v1/login" {
			http.NotFound(w, r)
			return
		}
		gotContentType = r.Header.Get("Content-Type")
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse form: %v", err)
		}
		gotUsername = r.PostFormValue("username")
		gotPassword = r.PostFormValue("password")
		_ = json.NewEncoder(w).Encode(TokenResponse{AccessToken: "tok-1"})
	}))
	t.Cleanup(server.Close)

	c, err := NewClient(server.URL)
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	t.Cleanup(cancel)

	tok, err := c.Login(ctx, "alice@example.com", "secret")
	if err != nil {
		t.Fatalf("Login returned error: %v", err)
	}
	if tok.AccessToken != "tok-1" {
		t.Fatalf("AccessToken = %q, want tok-1", tok.AccessToken)
	}
	if gotContentType != "application/x-www-form-urlencoded" {
		t.Fatalf("Content-Type = %q, want form encoding", gotContentType)
	}
	if gotUsername != "alice@example.com" || gotPassword != "secret" {
		t.Fatalf("form = %q/%q, want credentials", gotUsername, gotPassword)
	}
}

func TestClient_BearerEndpoints(t *testing.T) {
	t.Parallel()

	var gotAuth []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = append(gotAuth, r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.URL.Path == "/user/api/v1/@me":
			_ = json.NewEncoder(w).Encode(User{ID: "u1", Username: "alice"})
		case r.URL.Path == "/user/api/v1/bookmarks" && r.Method == http.MethodGet:
			_ = json.NewEncoder(w).Encode([]Bookmark{{ID: "b1", ExamID: "e1"}})
		case r.URL.Path == "/user/api/v1/bookmarks" && r.Method == http.MethodPost:
			var payload map[string]string
			_ = json.NewDecoder(r.Body).Decode(&payload)
			_ = json.NewEncoder(w).Encode(Bookmark{ID: "b2", ExamID: payload["exam_id"]})
		case strings.HasPrefix(r.URL.Path, "/user/api/v1/bookmarks/") && r.Method == http.MethodDelete:
			w.WriteHeader(http.StatusNoContent)
		case r.URL.Path == "/user/api/v1/streak":
			_ = json.NewEncoder(w).Encode(Streak{Current: 7, RevivesUsed: 1})
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(server.Close)

	c, err := NewClient(server.URL)
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	t.Cleanup(cancel)

	user, err := c.FetchProfile(ctx, "tok")
	if err != nil {
		t.Fatalf("FetchProfile returned error: %v", err)
	}
	if user.ID != "u1" {
		t.Fatalf("profile = %#v, want u1", user)
	}

	marks, err := c.FetchBookmarks(ctx, "tok")
	if err != nil {
		t.Fatalf("FetchBookmarks returned error: %v", err)
	}
	if len(marks) != 1 || marks[0].ExamID != "e1" {
		t.Fatalf("bookmarks = %#v, want one for e1", marks)
	}

	created, err := c.AddBookmark(ctx, "tok", "e2")
	if err != nil {
		t.Fatalf("AddBookmark returned error: %v", err)
	}
	if created.ExamID != "e2" {
		t.Fatalf("created = %#v, want exam e2", created)
	}

	if err := c.RemoveBookmark(ctx, "tok", "e2"); err != nil {
		t.Fatalf("RemoveBookmark returned error: %v", err)
	}

	stk, err := c.FetchStreak(ctx, "tok")
	if err != nil {
		t.Fatalf("FetchStreak returned error: %v", err)
	}
	if stk.Current != 7 || stk.RevivesUsed != 1 {
		t.Fatalf("streak = %#v, want 7/1", stk)
	}

	for i, auth := range gotAuth {
		if auth != "Bearer tok" {
			t.Fatalf("request %d Authorization = %q, want Bearer tok", i, auth)
		}
	}
}

func TestClient_AuthedEndpointsRejectEmptyToken(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("request reached the server without a token: %s", r.URL.Path)
	}))
	t.Cleanup(server.Close)

	c, err := NewClient(server.URL)
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}

	ctx := context.Background()
	if _, err := c.FetchProfile(ctx, ""); !errors.Is(err, ErrNoToken) {
		t.Fatalf("FetchProfile error = %v, want ErrNoToken", err)
	}
	if _, err := c.FetchBookmarks(ctx, " "); !errors.Is(err, ErrNoToken) {
		t.Fatalf("FetchBookmarks error = %v, want ErrNoToken", err)
	}
	if err := c.RemoveBookmark(ctx, "", "e1"); !errors.Is(err, ErrNoToken) {
		t.Fatalf("RemoveBookmark error = %v, want ErrNoToken", err)
	}
}

func TestClient_MergesProviderHeaders(t *testing.T) {
	t.Parallel()

	var gotProvider, gotModel string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotProvider = r.Header.Get("X-Provider")
		gotModel = r.Header.Get("X-Model")
		_ = json.NewEncoder(w).Encode(Streak{})
	}))
	t.Cleanup(server.Close)

	c, err := NewClient(server.URL)
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}
	c.SetHeaderSource(func() http.Header {
		h := http.Header{}
		h.Set("X-Provider", "gemini")
		h.Set("X-Model", "flash")
		return h
	})

	if _, err := c.FetchStreak(context.Background(), "tok"); err != nil {
		t.Fatalf("FetchStreak returned error: %v", err)
	}
	if gotProvider != "gemini" || gotModel != "flash" {
		t.Fatalf("provider headers = %q/%q, want gemini/flash", gotProvider, gotModel)
	}
}

func TestDecodeAPIError(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"string detail", `{"detail":"Invalid credentials"}`, "Invalid credentials"},
		{
			"validation list",
			`{"detail":[{"loc":["body","email"],"msg":"value is not a valid email"},{"loc":["body","password"],"msg":"too short"}]}`,
			"body.email - value is not a valid email, body.password - too short",
		},
		{"empty detail", `{"detail":""}`, "Request failed"},
		{"not json", `<html>boom</html>`, "Request failed"},
		{"no detail field", `{"message":"nope"}`, "Request failed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			apiErr := decodeAPIError(400, strings.NewReader(tt.body), "Request failed")
			if apiErr.Detail != tt.want {
				t.Errorf("Detail = %q, want %q", apiErr.Detail, tt.want)
			}
			if apiErr.StatusCode != 400 {
				t.Errorf("StatusCode = %d, want 400", apiErr.StatusCode)
			}
		})
	}
}

func TestAPIError_FallsBackToStatus(t *testing.T) {
	err := &APIError{StatusCode: 503}
	if err.Error() != "HTTP 503" {
		t.Fatalf("Error() = %q, want HTTP 503", err.Error())
	}
}
