package notion

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const (
	defaultBaseURL = "https://api.notion.com/v1"
	apiVersion     = "2022-06-28"

	// maxPageSize is the API's per-page result cap.
	maxPageSize = 100
)

// APIError is a non-2xx response from the API.
type APIError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("notion: %s (%d): %s", e.Code, e.Status, e.Message)
	}
	return fmt.Sprintf("notion: request failed with status %d", e.Status)
}

// Client talks to the Notion HTTP API. Safe for concurrent use.
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
	limiter    *rate.Limiter
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the API endpoint, mainly for tests.
func WithBaseURL(url string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(url, "/") }
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpClient.Timeout = d }
}

// NewClient creates a client authenticated with an integration token.
// Requests are throttled to the API's published average of 3 per second.
func NewClient(token string, opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    defaultBaseURL,
		token:      token,
		limiter:    rate.NewLimiter(rate.Limit(3), 3),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Notion-Version", apiVersion)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		apiErr := &APIError{Status: resp.StatusCode}
		_ = json.NewDecoder(resp.Body).Decode(apiErr)
		return apiErr
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}

// User is the authenticated bot or person.
type User struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Type string `json:"type"`
}

// CurrentUser fetches the user the token belongs to. Used as a connection test.
func (c *Client) CurrentUser(ctx context.Context) (*User, error) {
	var user User
	if err := c.do(ctx, http.MethodGet, "/users/me", nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

type textSpan struct {
	PlainText string `json:"plain_text"`
}

// Database is a queryable database object. Properties is kept raw so the
// schema can be decoded order-preserving on demand.
type Database struct {
	ID         string          `json:"id"`
	Title      []textSpan      `json:"title"`
	Properties json.RawMessage `json:"properties"`
}

// Name returns the database's plain-text title.
func (d *Database) Name() string {
	var b strings.Builder
	for _, span := range d.Title {
		b.WriteString(span.PlainText)
	}
	return b.String()
}

// Schema decodes the database's property schema.
func (d *Database) Schema() (*Schema, error) {
	return ParseSchema(d.Properties)
}

type searchRequest struct {
	Filter map[string]string `json:"filter,omitempty"`
}

type searchResponse struct {
	Results []Database `json:"results"`
}

// ListDatabases lists databases shared with the integration.
func (c *Client) ListDatabases(ctx context.Context) ([]Database, error) {
	req := searchRequest{Filter: map[string]string{"property": "object", "value": "database"}}
	var resp searchResponse
	if err := c.do(ctx, http.MethodPost, "/search", req, &resp); err != nil {
		return nil, fmt.Errorf("failed to list databases: %w", err)
	}
	return resp.Results, nil
}

// DatabaseNotFoundError reports a database name that matched nothing.
type DatabaseNotFoundError struct {
	Name string
}

func (e *DatabaseNotFoundError) Error() string {
	return fmt.Sprintf("database %q not found", e.Name)
}

// DatabaseByName finds a database whose title matches name, ignoring case.
func (c *Client) DatabaseByName(ctx context.Context, name string) (*Database, error) {
	databases, err := c.ListDatabases(ctx)
	if err != nil {
		return nil, err
	}
	for i := range databases {
		if strings.EqualFold(databases[i].Name(), name) {
			return &databases[i], nil
		}
	}
	return nil, &DatabaseNotFoundError{Name: name}
}

// GetDatabase retrieves a database by ID.
func (c *Client) GetDatabase(ctx context.Context, databaseID string) (*Database, error) {
	var db Database
	if err := c.do(ctx, http.MethodGet, "/databases/"+databaseID, nil, &db); err != nil {
		return nil, fmt.Errorf("failed to get database %s: %w", databaseID, err)
	}
	return &db, nil
}

// Page is a row in a database. Property values stay raw; ExtractValue
// turns them into display strings.
type Page struct {
	ID         string                     `json:"id"`
	URL        string                     `json:"url"`
	Archived   bool                       `json:"archived"`
	Properties map[string]json.RawMessage `json:"properties"`
}

// Sort orders query results by a property or timestamp.
type Sort struct {
	Property  string `json:"property,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
	Direction string `json:"direction"`
}

// Query holds the parameters for a single database query page.
type Query struct {
	Filter      Filter `json:"filter,omitempty"`
	Sorts       []Sort `json:"sorts,omitempty"`
	StartCursor string `json:"start_cursor,omitempty"`
	PageSize    int    `json:"page_size,omitempty"`
}

// QueryResult is one page of query results.
type QueryResult struct {
	Results    []Page `json:"results"`
	HasMore    bool   `json:"has_more"`
	NextCursor string `json:"next_cursor"`
}

// QueryDatabase runs a single query request without pagination.
func (c *Client) QueryDatabase(ctx context.Context, databaseID string, q Query) (*QueryResult, error) {
	var resp QueryResult
	if err := c.do(ctx, http.MethodPost, "/databases/"+databaseID+"/query", q, &resp); err != nil {
		return nil, fmt.Errorf("failed to query database %s: %w", databaseID, err)
	}
	return &resp, nil
}

// GetEntries fetches pages from a database, following cursors until limit
// entries are collected. A limit <= 0 fetches everything.
func (c *Client) GetEntries(ctx context.Context, databaseID string, filter Filter, limit int) ([]Page, error) {
	var entries []Page
	cursor := ""

	for {
		pageSize := maxPageSize
		if limit > 0 {
			remaining := limit - len(entries)
			if remaining <= 0 {
				break
			}
			if remaining < pageSize {
				pageSize = remaining
			}
		}

		resp, err := c.QueryDatabase(ctx, databaseID, Query{
			Filter:      filter,
			StartCursor: cursor,
			PageSize:    pageSize,
		})
		if err != nil {
			return nil, err
		}

		entries = append(entries, resp.Results...)

		if !resp.HasMore || resp.NextCursor == "" {
			break
		}
		cursor = resp.NextCursor
	}

	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

type pageRequest struct {
	Parent     map[string]string `json:"parent,omitempty"`
	Properties map[string]any    `json:"properties,omitempty"`
	Archived   *bool             `json:"archived,omitempty"`
}

// CreatePage creates a page in a database.
func (c *Client) CreatePage(ctx context.Context, databaseID string, properties map[string]any) (*Page, error) {
	req := pageRequest{
		Parent:     map[string]string{"database_id": databaseID},
		Properties: properties,
	}
	var page Page
	if err := c.do(ctx, http.MethodPost, "/pages", req, &page); err != nil {
		return nil, fmt.Errorf("failed to create page in database %s: %w", databaseID, err)
	}
	return &page, nil
}

// UpdatePage updates a page's properties.
func (c *Client) UpdatePage(ctx context.Context, pageID string, properties map[string]any) (*Page, error) {
	req := pageRequest{Properties: properties}
	var page Page
	if err := c.do(ctx, http.MethodPatch, "/pages/"+pageID, req, &page); err != nil {
		return nil, fmt.Errorf("failed to update page %s: %w", pageID, err)
	}
	return &page, nil
}

// ArchivePage archives (soft-deletes) a page.
func (c *Client) ArchivePage(ctx context.Context, pageID string) (*Page, error) {
	archived := true
	req := pageRequest{Archived: &archived}
	var page Page
	if err := c.do(ctx, http.MethodPatch, "/pages/"+pageID, req, &page); err != nil {
		return nil, fmt.Errorf("failed to archive page %s: %w", pageID, err)
	}
	return &page, nil
}
