package core

import "github.com/google/uuid"

// Note is the central entity of the domain.
// It mirrors one record of the remote collection.
type Note struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Completed   bool   `json:"completed"`

	// OriginClientID identifies the client instance that created the note.
	// It is only used to drop the echo of our own creations.
	OriginClientID ClientID `json:"clientId,omitempty"`
}

// NoteUpdate is the partial update sent when a note is toggled.
type NoteUpdate struct {
	ID        string `json:"id"`
	Completed bool   `json:"completed"`
}

// FormDraft holds the user's input before it becomes a Note.
type FormDraft struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Draft field names accepted by SetInput.
const (
	FieldName        = "name"
	FieldDescription = "description"
)

// ClientID identifies one client session.
type ClientID string

// NewClientID returns a fresh random client identifier.
func NewClientID() ClientID {
	return ClientID(uuid.NewString())
}

// EventType represents the kind of change pushed by the backend.
type EventType string

const (
	EventCreate EventType = "CREATE"
	EventUpdate EventType = "UPDATE"
	EventDelete EventType = "DELETE"
)

// EventTypes lists every kind a store subscribes to, in subscription order.
var EventTypes = []EventType{EventCreate, EventUpdate, EventDelete}

// State is an immutable snapshot of the replica handed to renderers.
type State struct {
	Notes   []Note
	Loading bool
	Err     error
	Draft   FormDraft
}
