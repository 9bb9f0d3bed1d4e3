package core

import "context"

// RemoteAPI defines the request/response contract of the backend.
// Transport, authentication and encoding belong to the implementation.
type RemoteAPI interface {
	// ListNotes returns the full current collection.
	ListNotes(ctx context.Context) ([]Note, error)

	// CreateNote persists a note that was already created locally.
	CreateNote(ctx context.Context, n Note) error

	// UpdateNote changes the completed flag of a note.
	UpdateNote(ctx context.Context, u NoteUpdate) error

	// DeleteNote removes a note by its ID.
	DeleteNote(ctx context.Context, id string) error
}

// Subscription is the handle returned by EventFeed.Subscribe.
type Subscription struct {
	ID   string
	Kind EventType
}

// EventFeed delivers change notifications, one channel per EventType.
// Ordering within a channel follows arrival order; across channels it is
// not guaranteed.
type EventFeed interface {
	// Subscribe registers handler for every note pushed on the kind channel.
	Subscribe(ctx context.Context, kind EventType, handler func(Note)) (Subscription, error)

	// Unsubscribe stops delivery for the given handle.
	Unsubscribe(sub Subscription) error
}
