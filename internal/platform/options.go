package platform

import (
	"log/slog"
	"time"

	"github.com/aretw0/notely/pkg/core"
)

// options holds the internal configuration for a replica session.
type options struct {
	remote   core.RemoteAPI
	feed     core.EventFeed
	logger   *slog.Logger
	adapter  string
	clientID core.ClientID
	config   map[string]interface{}
}

// Option defines a functional option for configuring notely.
type Option func(*options)

// defaultOptions returns the default configuration.
func defaultOptions() *options {
	return &options{
		adapter: "graphql",
		config:  make(map[string]interface{}),
	}
}

// WithLogger sets the logger for the store and its adapters.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithClientID fixes the session identifier used for echo suppression.
// By default a random one is generated per session.
func WithClientID(id core.ClientID) Option {
	return func(o *options) {
		o.clientID = id
	}
}

// WithRemote injects a custom RemoteAPI (e.g. mock). It takes precedence
// over the adapter.
func WithRemote(api core.RemoteAPI) Option {
	return func(o *options) {
		o.remote = api
	}
}

// WithFeed injects a custom EventFeed. It takes precedence over the adapter.
func WithFeed(feed core.EventFeed) Option {
	return func(o *options) {
		o.feed = feed
	}
}

// WithAdapter selects the backend adapter by name: "graphql" (default) or
// "memory".
func WithAdapter(name string) Option {
	return func(o *options) {
		o.adapter = name
	}
}

// WithAPIKey sets the API key sent with every request and on the realtime
// connection.
func WithAPIKey(key string) Option {
	return func(o *options) {
		o.config["api_key"] = key
	}
}

// WithRealtimeEndpoint sets the websocket endpoint for subscriptions.
// Defaults to the GraphQL endpoint with a ws/wss scheme.
func WithRealtimeEndpoint(endpoint string) Option {
	return func(o *options) {
		o.config["realtime_endpoint"] = endpoint
	}
}

// WithRealtime enables or disables the realtime feed. One-shot commands
// that never call Start can skip the websocket connection.
func WithRealtime(enabled bool) Option {
	return func(o *options) {
		o.config["realtime"] = enabled
	}
}

// WithRetryMax sets how many times the HTTP transport retries a request on
// connection errors and 5xx responses.
func WithRetryMax(n int) Option {
	return func(o *options) {
		o.config["retry_max"] = n
	}
}

// WithPageSize sets the page size used when listing notes.
func WithPageSize(n int) Option {
	return func(o *options) {
		o.config["page_size"] = n
	}
}

// WithAckTimeout bounds the wait for the realtime connection_ack.
func WithAckTimeout(d time.Duration) Option {
	return func(o *options) {
		o.config["ack_timeout"] = d
	}
}

// WithMutationErrorHandler registers a callback for create, update and
// delete requests that fail after the local change was applied. Those
// failures are otherwise only logged.
func WithMutationErrorHandler(fn func(error)) Option {
	return func(o *options) {
		o.config["mutation_error_handler"] = fn
	}
}

// WithFeedErrorHandler registers a callback for realtime connection errors.
func WithFeedErrorHandler(fn func(error)) Option {
	return func(o *options) {
		o.config["feed_error_handler"] = fn
	}
}

// WithIDGenerator overrides how note IDs are generated.
func WithIDGenerator(fn func() string) Option {
	return func(o *options) {
		o.config["id_generator"] = fn
	}
}
