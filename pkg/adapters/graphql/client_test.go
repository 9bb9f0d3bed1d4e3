package graphql_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/notely/pkg/adapters/graphql"
	"github.com/aretw0/notely/pkg/core"
)

type recordedRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables"`
	APIKey    string         `json:"-"`
}

// fakeBackend answers GraphQL POSTs with canned responses keyed by operation.
type fakeBackend struct {
	mu        sync.Mutex
	requests  []recordedRequest
	responses map[string][]string
	status    int
}

func (b *fakeBackend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req recordedRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	req.APIKey = r.Header.Get("x-api-key")

	b.mu.Lock()
	b.requests = append(b.requests, req)
	var body string
	for op, queue := range b.responses {
		if strings.Contains(req.Query, op) && len(queue) > 0 {
			body = queue[0]
			if len(queue) > 1 {
				b.responses[op] = queue[1:]
			}
			break
		}
	}
	status := b.status
	b.mu.Unlock()

	if status == 0 {
		status = http.StatusOK
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, body)
}

func newTestClient(t *testing.T, backend *fakeBackend) *graphql.Client {
	t.Helper()
	srv := httptest.NewServer(backend)
	t.Cleanup(srv.Close)

	client, err := graphql.NewClient(graphql.Config{
		Endpoint: srv.URL + "/graphql",
		APIKey:   "da2-secret",
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		RetryMax: 0,
	})
	require.NoError(t, err)
	return client
}

func TestClient_ListNotesFollowsPages(t *testing.T) {
	backend := &fakeBackend{responses: map[string][]string{
		"listNotes": {
			`{"data":{"listNotes":{"items":[{"id":"1","clientId":"C2","name":"A","description":"a","completed":false}],"nextToken":"page2"}}}`,
			`{"data":{"listNotes":{"items":[{"id":"2","name":"B","description":"b","completed":true}],"nextToken":null}}}`,
		},
	}}
	client := newTestClient(t, backend)

	notes, err := client.ListNotes(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []core.Note{
		{ID: "1", Name: "A", Description: "a", OriginClientID: "C2"},
		{ID: "2", Name: "B", Description: "b", Completed: true},
	}, notes)

	require.Len(t, backend.requests, 2)
	assert.Nil(t, backend.requests[0].Variables["nextToken"])
	assert.Equal(t, "page2", backend.requests[1].Variables["nextToken"])
	assert.Equal(t, "da2-secret", backend.requests[0].APIKey)
}

func TestClient_Mutations(t *testing.T) {
	backend := &fakeBackend{responses: map[string][]string{
		"createNote": {`{"data":{"createNote":{"id":"n1"}}}`},
		"updateNote": {`{"data":{"updateNote":{"id":"n1"}}}`},
		"deleteNote": {`{"data":{"deleteNote":{"id":"n1"}}}`},
	}}
	client := newTestClient(t, backend)
	ctx := context.Background()

	note := core.Note{ID: "n1", Name: "A", Description: "d", OriginClientID: "C1"}
	require.NoError(t, client.CreateNote(ctx, note))
	require.NoError(t, client.UpdateNote(ctx, core.NoteUpdate{ID: "n1", Completed: true}))
	require.NoError(t, client.DeleteNote(ctx, "n1"))

	require.Len(t, backend.requests, 3)

	assert.Contains(t, backend.requests[0].Query, "mutation CreateNote")
	assert.Equal(t, map[string]any{
		"id": "n1", "name": "A", "description": "d", "completed": false, "clientId": "C1",
	}, backend.requests[0].Variables["input"])

	assert.Contains(t, backend.requests[1].Query, "mutation UpdateNote")
	assert.Equal(t, map[string]any{"id": "n1", "completed": true}, backend.requests[1].Variables["input"])

	assert.Contains(t, backend.requests[2].Query, "mutation DeleteNote")
	assert.Equal(t, map[string]any{"id": "n1"}, backend.requests[2].Variables["input"])
}

func TestClient_GraphQLErrors(t *testing.T) {
	backend := &fakeBackend{responses: map[string][]string{
		"deleteNote": {`{"data":{"deleteNote":null},"errors":[{"message":"The conditional request failed","errorType":"DynamoDB:ConditionalCheckFailedException"}]}`},
	}}
	client := newTestClient(t, backend)

	err := client.DeleteNote(context.Background(), "missing")
	require.Error(t, err)
	assert.ErrorIs(t, err, graphql.ErrGraphQL)
	assert.Contains(t, err.Error(), "conditional request failed")

	var gqlErr *graphql.Error
	require.ErrorAs(t, err, &gqlErr)
	assert.Equal(t, "DynamoDB:ConditionalCheckFailedException", gqlErr.Entries[0].ErrorType)
}

func TestClient_HTTPStatus(t *testing.T) {
	backend := &fakeBackend{status: http.StatusUnauthorized}
	backend.responses = map[string][]string{"listNotes": {`UnauthorizedException`}}
	client := newTestClient(t, backend)

	_, err := client.ListNotes(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}

func TestNewClient_RejectsBadEndpoint(t *testing.T) {
	_, err := graphql.NewClient(graphql.Config{Endpoint: "ftp://example.com"})
	assert.Error(t, err)

	_, err = graphql.NewClient(graphql.Config{Endpoint: "://nope"})
	assert.Error(t, err)
}

func TestClient_State(t *testing.T) {
	client, err := graphql.NewClient(graphql.Config{Endpoint: "https://example.com/graphql", RetryMax: 3})
	require.NoError(t, err)

	state := client.State().(graphql.ClientState)
	assert.Equal(t, "https://example.com/graphql", state.Endpoint)
	assert.Equal(t, 3, state.RetryMax)
	assert.False(t, state.APIKey)
	assert.Equal(t, "graphql", client.ComponentType())
}
