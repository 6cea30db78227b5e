package supabase

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

// Client represents a Supabase client
type Client struct {
	URL        string
	ServiceKey string
	HTTPClient *http.Client
}

// Error is a non-2xx PostgREST or GoTrue response
type Error struct {
	StatusCode int
	Body       string
}

func (e *Error) Error() string {
	return fmt.Sprintf("supabase error (status %d): %s", e.StatusCode, e.Body)
}

// NewClient creates a new Supabase client
func NewClient(baseURL, serviceKey string) *Client {
	return &Client{
		URL:        strings.TrimRight(baseURL, "/"),
		ServiceKey: serviceKey,
		HTTPClient: &http.Client{Timeout: 15 * time.Second},
	}
}

// request describes one REST call
type request struct {
	method string
	path   string
	query  url.Values
	body   any
	prefer string
	token  string
}

// do executes a request and returns the response body. A userToken, when
// set, replaces the service key in the Authorization header so row level
// security applies.
func (c *Client) do(ctx context.Context, r request) ([]byte, error) {
	var reader io.Reader
	if r.body != nil {
		jsonData, err := json.Marshal(r.body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode body: %w", err)
		}
		reader = bytes.NewReader(jsonData)
	}

	endpoint := c.URL + r.path
	if len(r.query) > 0 {
		endpoint += "?" + r.query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, r.method, endpoint, reader)
	if err != nil {
		return nil, err
	}

	req.Header.Set("apikey", c.ServiceKey)
	token := c.ServiceKey
	if r.token != "" {
		token = r.token
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if r.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if r.prefer != "" {
		req.Header.Set("Prefer", r.prefer)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return nil, &Error{StatusCode: resp.StatusCode, Body: string(body)}
	}

	return body, nil
}

// Query executes a select on a table. Values follow PostgREST filter syntax,
// e.g. "user_id": {"eq.123"}, "order": {"timestamp.desc"}.
func (c *Client) Query(ctx context.Context, table string, query url.Values) ([]byte, error) {
	return c.do(ctx, request{method: http.MethodGet, path: "/rest/v1/" + table, query: query})
}

// Insert inserts one record or a slice of records and returns the stored rows
func (c *Client) Insert(ctx context.Context, table string, data any) ([]byte, error) {
	return c.do(ctx, request{
		method: http.MethodPost,
		path:   "/rest/v1/" + table,
		body:   data,
		prefer: "return=representation",
	})
}

// UpdateWhere updates records matching a query and returns the updated rows
func (c *Client) UpdateWhere(ctx context.Context, table string, query url.Values, data any) ([]byte, error) {
	return c.do(ctx, request{
		method: http.MethodPatch,
		path:   "/rest/v1/" + table,
		query:  query,
		body:   data,
		prefer: "return=representation",
	})
}

// VerifyToken verifies a JWT token with Supabase
func (c *Client) VerifyToken(ctx context.Context, token string) (*User, error) {
	body, err := c.do(ctx, request{method: http.MethodGet, path: "/auth/v1/user", token: token})
	if err != nil {
		return nil, fmt.Errorf("token verification failed: %w", err)
	}

	var user User
	if err := json.Unmarshal(body, &user); err != nil {
		return nil, fmt.Errorf("failed to decode user: %w", err)
	}
	if user.ID == "" {
		return nil, fmt.Errorf("token verification returned no user")
	}

	return &user, nil
}

// User represents a Supabase user
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// Eq builds a PostgREST equality filter value
func Eq(v string) string { return "eq." + v }

// Gte builds a PostgREST greater-or-equal filter for a timestamp
func Gte(t time.Time) string { return "gte." + t.UTC().Format(time.RFC3339Nano) }

// Lte builds a PostgREST less-or-equal filter for a timestamp
func Lte(t time.Time) string { return "lte." + t.UTC().Format(time.RFC3339Nano) }
