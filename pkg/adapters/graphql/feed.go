package graphql

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/aretw0/introspection"
	"github.com/aretw0/lifecycle"
	"github.com/gorilla/websocket"

	"github.com/aretw0/notely/pkg/core"
)

// Subprotocol is the websocket subprotocol negotiated with the backend.
const Subprotocol = "graphql-ws"

// graphql-ws message types.
const (
	msgConnectionInit      = "connection_init"
	msgConnectionAck       = "connection_ack"
	msgConnectionError     = "connection_error"
	msgConnectionTerminate = "connection_terminate"
	msgKeepAlive           = "ka"
	msgStart               = "start"
	msgData                = "data"
	msgError               = "error"
	msgComplete            = "complete"
	msgStop                = "stop"
)

type message struct {
	Type    string          `json:"type"`
	ID      string          `json:"id,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// FeedConfig holds the configuration for the realtime feed.
type FeedConfig struct {
	Endpoint   string // ws:// or wss:// URL
	APIKey     string
	Logger     *slog.Logger
	Dialer     *websocket.Dialer
	AckTimeout time.Duration
	// ErrorHandler receives connection and subscription errors that cannot
	// be returned to a caller.
	ErrorHandler func(error)
}

type feedHandler struct {
	kind    core.EventType
	field   string
	handler func(core.Note)
}

// Feed implements core.EventFeed over one multiplexed websocket connection.
//
// Handlers run on the connection's reader goroutine, one message at a time,
// so delivery within a channel keeps arrival order. Close must not be called
// from a handler.
type Feed struct {
	config FeedConfig
	conn   *websocket.Conn

	writeMu sync.Mutex

	mu       sync.Mutex
	handlers map[string]feedHandler
	next     int
	closed   bool
	readErr  error

	closeOnce sync.Once
	done      chan struct{}
}

// DialFeed connects to the realtime endpoint and waits for connection_ack.
func DialFeed(ctx context.Context, config FeedConfig) (*Feed, error) {
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	if config.AckTimeout <= 0 {
		config.AckTimeout = 10 * time.Second
	}
	base := websocket.DefaultDialer
	if config.Dialer != nil {
		base = config.Dialer
	}
	dialer := *base
	dialer.Subprotocols = []string{Subprotocol}

	header := http.Header{}
	if config.APIKey != "" {
		header.Set("x-api-key", config.APIKey)
	}

	conn, resp, err := dialer.DialContext(ctx, config.Endpoint, header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dialing %s (status %s): %w", config.Endpoint, resp.Status, err)
		}
		return nil, fmt.Errorf("dialing %s: %w", config.Endpoint, err)
	}

	f := &Feed{
		config:   config,
		conn:     conn,
		handlers: make(map[string]feedHandler),
		done:     make(chan struct{}),
	}

	if err := f.handshake(); err != nil {
		_ = conn.Close()
		return nil, err
	}

	lifecycle.Go(context.WithoutCancel(ctx), f.readLoop, lifecycle.WithErrorHandler(func(err error) {
		f.reportError(fmt.Errorf("feed reader panic: %w", err))
	}))

	config.Logger.Debug("realtime feed connected", "endpoint", config.Endpoint)
	return f, nil
}

func (f *Feed) handshake() error {
	payload := map[string]string{}
	if f.config.APIKey != "" {
		payload["x-api-key"] = f.config.APIKey
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	if err := f.write(message{Type: msgConnectionInit, Payload: raw}); err != nil {
		return fmt.Errorf("sending connection_init: %w", err)
	}

	if err := f.conn.SetReadDeadline(time.Now().Add(f.config.AckTimeout)); err != nil {
		return err
	}
	for {
		var msg message
		if err := f.conn.ReadJSON(&msg); err != nil {
			return fmt.Errorf("waiting for connection_ack: %w", err)
		}
		switch msg.Type {
		case msgConnectionAck:
			return f.conn.SetReadDeadline(time.Time{})
		case msgKeepAlive:
			continue
		case msgConnectionError:
			return fmt.Errorf("connection refused: %s", string(msg.Payload))
		default:
			f.config.Logger.Debug("ignoring message before ack", "type", msg.Type)
		}
	}
}

// Subscribe implements core.EventFeed.
func (f *Feed) Subscribe(ctx context.Context, kind core.EventType, handler func(core.Note)) (core.Subscription, error) {
	doc, ok := subscriptions[kind]
	if !ok {
		return core.Subscription{}, fmt.Errorf("unsupported event type %q", kind)
	}
	if handler == nil {
		return core.Subscription{}, errors.New("handler is nil")
	}
	if err := ctx.Err(); err != nil {
		return core.Subscription{}, err
	}

	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return core.Subscription{}, core.ErrClosed
	}
	f.next++
	id := strconv.Itoa(f.next)
	f.handlers[id] = feedHandler{kind: kind, field: doc.field, handler: handler}
	f.mu.Unlock()

	payload, err := json.Marshal(request{Query: doc.query, Variables: map[string]any{}})
	if err != nil {
		f.forget(id)
		return core.Subscription{}, err
	}
	if err := f.write(message{Type: msgStart, ID: id, Payload: payload}); err != nil {
		f.forget(id)
		return core.Subscription{}, fmt.Errorf("starting %s subscription: %w", doc.field, err)
	}

	f.config.Logger.Debug("subscription started", "id", id, "field", doc.field)
	return core.Subscription{ID: id, Kind: kind}, nil
}

// Unsubscribe implements core.EventFeed. It is a no-op once the feed is closed.
func (f *Feed) Unsubscribe(sub core.Subscription) error {
	f.mu.Lock()
	_, ok := f.handlers[sub.ID]
	delete(f.handlers, sub.ID)
	closed := f.closed
	f.mu.Unlock()

	if closed {
		return nil
	}
	if !ok {
		return fmt.Errorf("unknown subscription %q", sub.ID)
	}
	if err := f.write(message{Type: msgStop, ID: sub.ID}); err != nil {
		return fmt.Errorf("stopping subscription %s: %w", sub.ID, err)
	}
	return nil
}

// Close terminates the connection and waits for the reader to exit.
func (f *Feed) Close() error {
	var err error
	f.closeOnce.Do(func() {
		f.mu.Lock()
		f.closed = true
		f.mu.Unlock()

		_ = f.write(message{Type: msgConnectionTerminate})
		err = f.conn.Close()
		<-f.done
	})
	return err
}

// Done is closed when the connection reader exits.
func (f *Feed) Done() <-chan struct{} {
	return f.done
}

// Err returns the error that ended the reader, if any.
func (f *Feed) Err() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.readErr
}

func (f *Feed) readLoop(ctx context.Context) error {
	defer close(f.done)

	for {
		var msg message
		if err := f.conn.ReadJSON(&msg); err != nil {
			f.mu.Lock()
			closed := f.closed
			if !closed {
				f.readErr = err
			}
			f.mu.Unlock()
			if closed {
				return nil
			}
			f.reportError(fmt.Errorf("realtime connection lost: %w", err))
			return err
		}

		switch msg.Type {
		case msgData:
			f.dispatch(msg)
		case msgKeepAlive:
		case msgComplete:
			f.forget(msg.ID)
		case msgError, msgConnectionError:
			f.reportError(fmt.Errorf("subscription %s: %s", msg.ID, string(msg.Payload)))
		default:
			f.config.Logger.Debug("ignoring realtime message", "type", msg.Type)
		}
	}
}

func (f *Feed) dispatch(msg message) {
	f.mu.Lock()
	h, ok := f.handlers[msg.ID]
	f.mu.Unlock()
	if !ok {
		return
	}

	var payload struct {
		Data   map[string]json.RawMessage `json:"data"`
		Errors []ErrorEntry               `json:"errors"`
	}
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		f.reportError(fmt.Errorf("decoding %s payload: %w", h.field, err))
		return
	}
	if len(payload.Errors) > 0 {
		f.reportError(&Error{Entries: payload.Errors})
		return
	}
	raw, ok := payload.Data[h.field]
	if !ok || string(raw) == "null" {
		return
	}

	var note core.Note
	if err := json.Unmarshal(raw, &note); err != nil {
		f.reportError(fmt.Errorf("decoding %s note: %w", h.field, err))
		return
	}
	h.handler(note)
}

func (f *Feed) write(msg message) error {
	f.writeMu.Lock()
	defer f.writeMu.Unlock()
	return f.conn.WriteJSON(msg)
}

func (f *Feed) forget(id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.handlers, id)
}

func (f *Feed) reportError(err error) {
	f.config.Logger.Error("realtime feed error", "error", err)
	if f.config.ErrorHandler != nil {
		f.config.ErrorHandler(err)
	}
}

// FeedState exposes internal state for observability.
type FeedState struct {
	Endpoint      string `json:"endpoint"`
	Subscriptions int    `json:"subscriptions"`
	Connected     bool   `json:"connected"`
}

// State implements introspection.Introspectable.
func (f *Feed) State() any {
	f.mu.Lock()
	defer f.mu.Unlock()

	connected := !f.closed && f.readErr == nil
	return FeedState{
		Endpoint:      f.config.Endpoint,
		Subscriptions: len(f.handlers),
		Connected:     connected,
	}
}

// ComponentType implements introspection.Component.
func (f *Feed) ComponentType() string {
	return "graphql-ws"
}

var (
	_ core.EventFeed               = (*Feed)(nil)
	_ introspection.Introspectable = (*Feed)(nil)
	_ introspection.Component      = (*Feed)(nil)
)
