package notion

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
)

const (
	// DefaultBaseURL is the public Notion API endpoint.
	DefaultBaseURL = "https://api.notion.com/v1"
	// APIVersion is the Notion-Version header the client speaks.
	APIVersion = "2022-06-28"

	pageSize       = 100
	defaultTimeout = 30 * time.Second
)

var (
	ErrUnauthorized = errors.New("notion: unauthorized")
	ErrNotFound     = errors.New("notion: object not found")
)

// Client talks to one Notion integration. The blog and the portfolio live in
// separate workspaces, so the site holds two clients with different tokens.
type Client struct {
	http *resty.Client
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithBaseURL points the client at another endpoint (tests, proxies).
func WithBaseURL(base string) ClientOption {
	return func(c *Client) { c.http.SetBaseURL(base) }
}

// WithTimeout bounds every request. A timed-out call fails like any other.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) { c.http.SetTimeout(d) }
}

// NewClient creates a Client authenticated with an integration token.
func NewClient(token string, opts ...ClientOption) *Client {
	c := &Client{
		http: resty.New().
			SetBaseURL(DefaultBaseURL).
			SetAuthToken(token).
			SetHeader("Notion-Version", APIVersion).
			SetHeader("Content-Type", "application/json").
			SetTimeout(defaultTimeout),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Sort orders a database query by a property or a timestamp.
type Sort struct {
	Property  string `json:"property,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
	Direction string `json:"direction"`
}

// Query is the body of a database query, minus pagination.
type Query struct {
	Filter any    `json:"filter,omitempty"`
	Sorts  []Sort `json:"sorts,omitempty"`
}

type queryRequest struct {
	Query
	StartCursor string `json:"start_cursor,omitempty"`
	PageSize    int    `json:"page_size"`
}

type list[T any] struct {
	Object     string  `json:"object"`
	Results    []T     `json:"results"`
	NextCursor *string `json:"next_cursor"`
	HasMore    bool    `json:"has_more"`
}

func (l list[T]) next() (string, bool) {
	if !l.HasMore || l.NextCursor == nil || *l.NextCursor == "" {
		return "", false
	}
	return *l.NextCursor, true
}

type apiError struct {
	Object  string `json:"object"`
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func checkResponse(resp *resty.Response, apiErr *apiError) error {
	if resp.IsSuccess() {
		return nil
	}
	switch resp.StatusCode() {
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w: %s", ErrUnauthorized, apiErr.Message)
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s", ErrNotFound, apiErr.Message)
	}
	if apiErr.Code != "" {
		return fmt.Errorf("notion: status %d %s: %s", resp.StatusCode(), apiErr.Code, apiErr.Message)
	}
	return fmt.Errorf("notion: status %d", resp.StatusCode())
}

// QueryDatabase returns every page of a database, following pagination.
// Partial objects without properties are skipped.
func (c *Client) QueryDatabase(ctx context.Context, databaseID string, q Query) ([]Page, error) {
	var pages []Page
	cursor := ""
	for {
		var out list[Page]
		var apiErr apiError
		resp, err := c.http.R().
			SetContext(ctx).
			SetPathParam("id", databaseID).
			SetBody(queryRequest{Query: q, StartCursor: cursor, PageSize: pageSize}).
			SetResult(&out).
			SetError(&apiErr).
			Post("/databases/{id}/query")
		if err != nil {
			return nil, fmt.Errorf("query database %s: %w", databaseID, err)
		}
		if err := checkResponse(resp, &apiErr); err != nil {
			return nil, fmt.Errorf("query database %s: %w", databaseID, err)
		}
		for _, p := range out.Results {
			if p.Properties != nil {
				pages = append(pages, p)
			}
		}
		next, ok := out.next()
		if !ok {
			return pages, nil
		}
		cursor = next
	}
}

// BlockChildren returns the direct children of a block or page, following
// pagination. Grandchildren are not fetched.
func (c *Client) BlockChildren(ctx context.Context, blockID string) ([]Block, error) {
	var blocks []Block
	cursor := ""
	for {
		var out list[Block]
		var apiErr apiError
		req := c.http.R().
			SetContext(ctx).
			SetPathParam("id", blockID).
			SetQueryParam("page_size", fmt.Sprint(pageSize)).
			SetResult(&out).
			SetError(&apiErr)
		if cursor != "" {
			req.SetQueryParam("start_cursor", cursor)
		}
		resp, err := req.Get("/blocks/{id}/children")
		if err != nil {
			return nil, fmt.Errorf("list children of %s: %w", blockID, err)
		}
		if err := checkResponse(resp, &apiErr); err != nil {
			return nil, fmt.Errorf("list children of %s: %w", blockID, err)
		}
		blocks = append(blocks, out.Results...)
		next, ok := out.next()
		if !ok {
			return blocks, nil
		}
		cursor = next
	}
}
