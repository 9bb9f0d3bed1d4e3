// Package graphql implements core.RemoteAPI and core.EventFeed against a
// managed GraphQL backend: queries and mutations over HTTP, subscriptions
// over a websocket speaking the graphql-ws protocol.
package graphql

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/aretw0/introspection"
	"github.com/hashicorp/go-retryablehttp"

	"github.com/aretw0/notely/pkg/core"
)

// ErrGraphQL is matched by every error reported in a GraphQL response.
var ErrGraphQL = errors.New("graphql error")

// Config holds the configuration for the HTTP client.
type Config struct {
	Endpoint     string // e.g. https://example.appsync-api.eu-west-1.amazonaws.com/graphql
	APIKey       string // sent as x-api-key when set
	Logger       *slog.Logger
	HTTPClient   *http.Client
	RetryMax     int
	RetryWaitMin time.Duration
	RetryWaitMax time.Duration
	PageSize     int // listNotes page size; zero lets the backend decide
}

// Client implements core.RemoteAPI.
type Client struct {
	endpoint string
	apiKey   string
	pageSize int
	http     *retryablehttp.Client
	logger   *slog.Logger
}

// NewClient creates a GraphQL client for the given endpoint.
func NewClient(config Config) (*Client, error) {
	u, err := url.Parse(config.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("parsing endpoint: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("endpoint must be http(s), got %q", config.Endpoint)
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	httpClient := retryablehttp.NewClient()
	httpClient.RetryMax = config.RetryMax
	if config.RetryWaitMin > 0 {
		httpClient.RetryWaitMin = config.RetryWaitMin
	}
	if config.RetryWaitMax > 0 {
		httpClient.RetryWaitMax = config.RetryWaitMax
	}
	if config.HTTPClient != nil {
		httpClient.HTTPClient = config.HTTPClient
	}
	// *slog.Logger satisfies retryablehttp.LeveledLogger.
	httpClient.Logger = logger
	httpClient.ResponseLogHook = func(_ retryablehttp.Logger, resp *http.Response) {
		logger.Debug("graphql response received", "url", resp.Request.URL, "status", resp.StatusCode)
	}

	return &Client{
		endpoint: u.String(),
		apiKey:   config.APIKey,
		pageSize: config.PageSize,
		http:     httpClient,
		logger:   logger,
	}, nil
}

type request struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

type response struct {
	Data   json.RawMessage `json:"data"`
	Errors []ErrorEntry    `json:"errors,omitempty"`
}

// ErrorEntry is one element of the GraphQL "errors" array.
type ErrorEntry struct {
	Message   string `json:"message"`
	ErrorType string `json:"errorType,omitempty"`
}

// Error reports the errors returned by the backend for one operation.
type Error struct {
	Entries []ErrorEntry
}

func (e *Error) Error() string {
	msgs := make([]string, 0, len(e.Entries))
	for _, entry := range e.Entries {
		if entry.ErrorType != "" {
			msgs = append(msgs, entry.ErrorType+": "+entry.Message)
		} else {
			msgs = append(msgs, entry.Message)
		}
	}
	return "graphql: " + strings.Join(msgs, "; ")
}

func (e *Error) Is(target error) bool {
	return target == ErrGraphQL
}

// Do executes one GraphQL operation and decodes its data into out.
func (c *Client) Do(ctx context.Context, query string, variables map[string]any, out any) error {
	body, err := json.Marshal(request{Query: query, Variables: variables})
	if err != nil {
		return fmt.Errorf("marshaling request: %w", err)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating HTTP request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("x-api-key", c.apiKey)
	}

	res, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("doing request: %w", err)
	}
	defer res.Body.Close()

	data, err := io.ReadAll(res.Body)
	if err != nil {
		return fmt.Errorf("reading response body: %w", err)
	}

	var decoded response
	if err := json.Unmarshal(data, &decoded); err != nil {
		if res.StatusCode != http.StatusOK {
			return fmt.Errorf("unexpected status %s: %s", res.Status, string(data))
		}
		return fmt.Errorf("decoding response: %w", err)
	}
	if len(decoded.Errors) > 0 {
		return &Error{Entries: decoded.Errors}
	}
	if res.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %s: %s", res.Status, string(data))
	}

	if out != nil && len(decoded.Data) > 0 {
		if err := json.Unmarshal(decoded.Data, out); err != nil {
			return fmt.Errorf("decoding data: %w", err)
		}
	}
	return nil
}

// ListNotes implements core.RemoteAPI. It follows nextToken until the last
// page.
func (c *Client) ListNotes(ctx context.Context) ([]core.Note, error) {
	notes := []core.Note{}
	var token *string
	for {
		vars := map[string]any{"nextToken": token}
		if c.pageSize > 0 {
			vars["limit"] = c.pageSize
		}

		var out struct {
			ListNotes struct {
				Items     []core.Note `json:"items"`
				NextToken *string     `json:"nextToken"`
			} `json:"listNotes"`
		}
		if err := c.Do(ctx, listNotesQuery, vars, &out); err != nil {
			return nil, err
		}
		notes = append(notes, out.ListNotes.Items...)

		token = out.ListNotes.NextToken
		if token == nil || *token == "" {
			return notes, nil
		}
		c.logger.Debug("fetching next page of notes", "fetched", len(notes))
	}
}

// CreateNote implements core.RemoteAPI.
func (c *Client) CreateNote(ctx context.Context, n core.Note) error {
	return c.Do(ctx, createNoteMutation, map[string]any{"input": n}, nil)
}

// UpdateNote implements core.RemoteAPI.
func (c *Client) UpdateNote(ctx context.Context, u core.NoteUpdate) error {
	return c.Do(ctx, updateNoteMutation, map[string]any{"input": u}, nil)
}

// DeleteNote implements core.RemoteAPI.
func (c *Client) DeleteNote(ctx context.Context, id string) error {
	return c.Do(ctx, deleteNoteMutation, map[string]any{"input": map[string]string{"id": id}}, nil)
}

// ClientState exposes internal state for observability.
type ClientState struct {
	Endpoint string `json:"endpoint"`
	RetryMax int    `json:"retry_max"`
	APIKey   bool   `json:"api_key"`
}

// State implements introspection.Introspectable.
func (c *Client) State() any {
	return ClientState{
		Endpoint: c.endpoint,
		RetryMax: c.http.RetryMax,
		APIKey:   c.apiKey != "",
	}
}

// ComponentType implements introspection.Component.
func (c *Client) ComponentType() string {
	return "graphql"
}

var (
	_ core.RemoteAPI               = (*Client)(nil)
	_ introspection.Introspectable = (*Client)(nil)
	_ introspection.Component      = (*Client)(nil)
)
