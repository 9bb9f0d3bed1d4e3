package core

import (
	"github.com/aretw0/introspection"
)

// StoreState exposes internal state for observability.
type StoreState struct {
	ClientID         string `json:"client_id"`
	Notes            int    `json:"notes"`
	Loading          bool   `json:"loading"`
	FetchFailed      bool   `json:"fetch_failed"`
	Subscriptions    int    `json:"subscriptions"`
	PendingRequests  int64  `json:"pending_requests"`
	MutationFailures int64  `json:"mutation_failures"`
	Closed           bool   `json:"closed"`
	RemoteType       string `json:"remote_type"`
	FeedType         string `json:"feed_type"`
}

// State implements introspection.Introspectable.
func (s *Store) State() any {
	s.mu.Lock()
	defer s.mu.Unlock()

	return StoreState{
		ClientID:         string(s.config.ClientID),
		Notes:            len(s.notes),
		Loading:          s.loading,
		FetchFailed:      s.err != nil,
		Subscriptions:    len(s.subs),
		PendingRequests:  s.pending.Load(),
		MutationFailures: s.failures.Load(),
		Closed:           s.closed,
		RemoteType:       componentType(s.api, "remote"),
		FeedType:         componentType(s.feed, "feed"),
	}
}

// ComponentType implements introspection.Component.
func (s *Store) ComponentType() string {
	return "replica"
}

func componentType(v any, fallback string) string {
	if comp, ok := v.(introspection.Component); ok {
		return comp.ComponentType()
	}
	return fallback
}

var _ introspection.Introspectable = (*Store)(nil)
var _ introspection.Component = (*Store)(nil)
