package graphql_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/notely/pkg/adapters/graphql"
	"github.com/aretw0/notely/pkg/core"
)

type wsMessage struct {
	Type    string          `json:"type"`
	ID      string          `json:"id,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// realtimeServer accepts one graphql-ws connection and exposes it to the test.
type realtimeServer struct {
	received chan wsMessage
	conns    chan *websocket.Conn
	refuse   bool
}

func newRealtimeServer(t *testing.T, refuse bool) (*realtimeServer, string) {
	t.Helper()
	rs := &realtimeServer{
		received: make(chan wsMessage, 16),
		conns:    make(chan *websocket.Conn, 1),
		refuse:   refuse,
	}
	upgrader := websocket.Upgrader{Subprotocols: []string{graphql.Subprotocol}}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		var init wsMessage
		if err := conn.ReadJSON(&init); err != nil || init.Type != "connection_init" {
			return
		}
		rs.received <- init
		if rs.refuse {
			_ = conn.WriteJSON(wsMessage{Type: "connection_error", Payload: json.RawMessage(`{"errors":[{"message":"denied"}]}`)})
			return
		}
		_ = conn.WriteJSON(wsMessage{Type: "ka"})
		_ = conn.WriteJSON(wsMessage{Type: "connection_ack"})
		rs.conns <- conn

		for {
			var msg wsMessage
			if err := conn.ReadJSON(&msg); err != nil {
				return
			}
			rs.received <- msg
		}
	}))
	t.Cleanup(srv.Close)

	return rs, "ws" + strings.TrimPrefix(srv.URL, "http")
}

func (rs *realtimeServer) next(t *testing.T) wsMessage {
	t.Helper()
	select {
	case msg := <-rs.received:
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for client message")
		return wsMessage{}
	}
}

func dialTestFeed(t *testing.T, endpoint string) *graphql.Feed {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	feed, err := graphql.DialFeed(ctx, graphql.FeedConfig{
		Endpoint:   endpoint,
		APIKey:     "da2-secret",
		Logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		AckTimeout: time.Second,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = feed.Close() })
	return feed
}

func TestFeed_DeliversSubscriptionData(t *testing.T) {
	rs, endpoint := newRealtimeServer(t, false)
	feed := dialTestFeed(t, endpoint)

	init := rs.next(t)
	assert.JSONEq(t, `{"x-api-key":"da2-secret"}`, string(init.Payload))
	conn := <-rs.conns

	got := make(chan core.Note, 4)
	sub, err := feed.Subscribe(context.Background(), core.EventCreate, func(n core.Note) { got <- n })
	require.NoError(t, err)
	assert.Equal(t, core.EventCreate, sub.Kind)

	start := rs.next(t)
	assert.Equal(t, "start", start.Type)
	assert.Equal(t, sub.ID, start.ID)
	assert.Contains(t, string(start.Payload), "onCreateNote")

	require.NoError(t, conn.WriteJSON(wsMessage{
		Type:    "data",
		ID:      sub.ID,
		Payload: json.RawMessage(`{"data":{"onCreateNote":{"id":"n1","clientId":"C2","name":"A","description":"d","completed":false}}}`),
	}))
	// Messages for unknown subscriptions are dropped.
	require.NoError(t, conn.WriteJSON(wsMessage{
		Type:    "data",
		ID:      "999",
		Payload: json.RawMessage(`{"data":{"onCreateNote":{"id":"ghost"}}}`),
	}))

	select {
	case n := <-got:
		assert.Equal(t, core.Note{ID: "n1", Name: "A", Description: "d", OriginClientID: "C2"}, n)
	case <-time.After(2 * time.Second):
		t.Fatal("note not delivered")
	}

	state := feed.State().(graphql.FeedState)
	assert.Equal(t, 1, state.Subscriptions)
	assert.True(t, state.Connected)

	require.NoError(t, feed.Unsubscribe(sub))
	stop := rs.next(t)
	assert.Equal(t, "stop", stop.Type)
	assert.Equal(t, sub.ID, stop.ID)

	assert.Error(t, feed.Unsubscribe(sub))
	assert.Empty(t, got)
}

func TestFeed_WorksWithStore(t *testing.T) {
	rs, endpoint := newRealtimeServer(t, false)
	feed := dialTestFeed(t, endpoint)
	rs.next(t)
	conn := <-rs.conns

	store := core.NewStore(nopRemote{}, feed, core.Config{
		ClientID: "C1",
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	require.NoError(t, store.Start(context.Background()))

	ids := map[string]string{}
	for range core.EventTypes {
		msg := rs.next(t)
		require.Equal(t, "start", msg.Type)
		var payload struct {
			Query string `json:"query"`
		}
		require.NoError(t, json.Unmarshal(msg.Payload, &payload))
		for _, field := range []string{"onCreateNote", "onUpdateNote", "onDeleteNote"} {
			if strings.Contains(payload.Query, field) {
				ids[field] = msg.ID
			}
		}
	}
	require.Len(t, ids, 3)

	stream := store.Watch(context.Background())
	<-stream

	send := func(field, note string) {
		require.NoError(t, conn.WriteJSON(wsMessage{
			Type:    "data",
			ID:      ids[field],
			Payload: json.RawMessage(`{"data":{"` + field + `":` + note + `}}`),
		}))
	}
	send("onCreateNote", `{"id":"own","clientId":"C1","name":"x","description":"y","completed":false}`)
	send("onCreateNote", `{"id":"n1","clientId":"C2","name":"A","description":"d","completed":false}`)
	send("onUpdateNote", `{"id":"n1","clientId":"C2","name":"A","description":"d","completed":true}`)

	require.Eventually(t, func() bool {
		notes := store.Notes()
		return len(notes) == 1 && notes[0].Completed
	}, 2*time.Second, 10*time.Millisecond)

	send("onDeleteNote", `{"id":"n1"}`)
	require.Eventually(t, func() bool { return len(store.Notes()) == 0 }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, store.Close())
	for range core.EventTypes {
		assert.Equal(t, "stop", rs.next(t).Type)
	}
}

func TestFeed_ConnectionRefused(t *testing.T) {
	_, endpoint := newRealtimeServer(t, true)

	_, err := graphql.DialFeed(context.Background(), graphql.FeedConfig{
		Endpoint:   endpoint,
		Logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		AckTimeout: time.Second,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "denied")
}

func TestFeed_CloseIsIdempotent(t *testing.T) {
	rs, endpoint := newRealtimeServer(t, false)
	feed := dialTestFeed(t, endpoint)
	rs.next(t)

	require.NoError(t, feed.Close())
	assert.NoError(t, feed.Close())

	select {
	case <-feed.Done():
	default:
		t.Fatal("reader still running after Close")
	}
	assert.NoError(t, feed.Err())

	_, err := feed.Subscribe(context.Background(), core.EventCreate, func(core.Note) {})
	assert.ErrorIs(t, err, core.ErrClosed)
	assert.NoError(t, feed.Unsubscribe(core.Subscription{ID: "1"}))
}

// nopRemote is a core.RemoteAPI that accepts everything.
type nopRemote struct{}

func (nopRemote) ListNotes(context.Context) ([]core.Note, error) { return nil, nil }
func (nopRemote) CreateNote(context.Context, core.Note) error { return nil }
func (nopRemote) UpdateNote(context.Context, core.NoteUpdate) error { return nil }
func (nopRemote) DeleteNote(context.Context, string) error { return nil }
