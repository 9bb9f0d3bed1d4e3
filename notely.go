package notely

import (
	"context"
	"log/slog"
	"time"

	"github.com/aretw0/notely/internal/platform"
	"github.com/aretw0/notely/pkg/core"
)

// --- Types ---

// Note is a public alias for the domain entity.
type Note = core.Note

// FormDraft is a public alias for the user's input before creation.
type FormDraft = core.FormDraft

// State is a public alias for a replica snapshot.
type State = core.State

// ClientID is a public alias for the session identifier.
type ClientID = core.ClientID

// Replica is a Store together with the adapters it owns.
type Replica = platform.Replica

// --- Configuration ---

// Option defines a functional option for configuring notely.
type Option = platform.Option

// FileConfig is the content of a notely.yaml file.
type FileConfig = platform.FileConfig

// WithLogger sets the logger for the store and its adapters.
func WithLogger(logger *slog.Logger) Option {
	return platform.WithLogger(logger)
}

// WithClientID fixes the session identifier used for echo suppression.
func WithClientID(id ClientID) Option {
	return platform.WithClientID(id)
}

// WithRemote injects a custom RemoteAPI.
func WithRemote(api core.RemoteAPI) Option {
	return platform.WithRemote(api)
}

// WithFeed injects a custom EventFeed.
func WithFeed(feed core.EventFeed) Option {
	return platform.WithFeed(feed)
}

// WithAdapter selects the backend adapter by name.
func WithAdapter(name string) Option {
	return platform.WithAdapter(name)
}

// WithAPIKey sets the backend API key.
func WithAPIKey(key string) Option {
	return platform.WithAPIKey(key)
}

// WithRealtimeEndpoint sets the websocket endpoint for subscriptions.
func WithRealtimeEndpoint(endpoint string) Option {
	return platform.WithRealtimeEndpoint(endpoint)
}

// WithRealtime enables or disables the realtime feed.
func WithRealtime(enabled bool) Option {
	return platform.WithRealtime(enabled)
}

// WithRetryMax sets the HTTP transport retry budget.
func WithRetryMax(n int) Option {
	return platform.WithRetryMax(n)
}

// WithPageSize sets the page size used when listing notes.
func WithPageSize(n int) Option {
	return platform.WithPageSize(n)
}

// WithAckTimeout bounds the wait for the realtime handshake.
func WithAckTimeout(d time.Duration) Option {
	return platform.WithAckTimeout(d)
}

// WithMutationErrorHandler registers a callback for failed remote mutations.
func WithMutationErrorHandler(fn func(error)) Option {
	return platform.WithMutationErrorHandler(fn)
}

// WithFeedErrorHandler registers a callback for realtime connection errors.
func WithFeedErrorHandler(fn func(error)) Option {
	return platform.WithFeedErrorHandler(fn)
}

// WithIDGenerator overrides how note IDs are generated.
func WithIDGenerator(fn func() string) Option {
	return platform.WithIDGenerator(fn)
}

// --- Factory ---

// New wires a replica for the given endpoint.
func New(ctx context.Context, endpoint string, opts ...Option) (*Replica, error) {
	return platform.New(ctx, endpoint, opts...)
}

// --- Config ---

// LoadConfig reads a notely.yaml file.
func LoadConfig(path string) (FileConfig, error) {
	return platform.LoadConfig(path)
}

// FindConfig recursively looks upwards for a notely.yaml file.
func FindConfig(startDir string) (string, error) {
	return platform.FindConfig(startDir)
}
