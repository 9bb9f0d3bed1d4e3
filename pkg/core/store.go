package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/aretw0/lifecycle"
	"github.com/google/uuid"
)

// Config holds the configuration for a Store.
type Config struct {
	// ClientID identifies this session. A random one is generated when empty.
	ClientID ClientID
	Logger   *slog.Logger
	// ErrorHandler receives every MutationError after it has been logged.
	ErrorHandler func(error)
	// NewID generates note IDs. Defaults to random UUIDs.
	NewID func() string
}

// Store is the local replica of the remote note collection.
//
// Local actions are applied optimistically and confirmed with the RemoteAPI
// in the background; remote events from the EventFeed are reconciled into
// the same list. Every change replaces the list instead of mutating it, so
// snapshots handed out earlier never change under the reader.
type Store struct {
	api    RemoteAPI
	feed   EventFeed
	config Config

	mu       sync.Mutex
	notes    []Note
	draft    FormDraft
	loading  bool
	err      error
	subs     []Subscription
	started  bool
	closed   bool
	watchers map[chan State]struct{}
	done     chan struct{}

	closeOnce sync.Once
	inflight  sync.WaitGroup
	pending   atomic.Int64
	failures  atomic.Int64
}

// NewStore creates an empty, loading Store.
func NewStore(api RemoteAPI, feed EventFeed, config Config) *Store {
	if config.ClientID == "" {
		config.ClientID = NewClientID()
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	if config.NewID == nil {
		config.NewID = uuid.NewString
	}
	return &Store{
		api:      api,
		feed:     feed,
		config:   config,
		notes:    []Note{},
		loading:  true,
		watchers: make(map[chan State]struct{}),
		done:     make(chan struct{}),
	}
}

// ClientID returns the session identifier used for echo suppression.
func (s *Store) ClientID() ClientID {
	return s.config.ClientID
}

// Start subscribes the store to the create, update and delete channels.
func (s *Store) Start(ctx context.Context) error {
	if s.feed == nil {
		return errors.New("store has no event feed")
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	if s.started {
		s.mu.Unlock()
		return errors.New("store already started")
	}
	s.started = true
	s.mu.Unlock()

	handlers := map[EventType]func(Note){
		EventCreate: s.OnRemoteCreate,
		EventUpdate: s.OnRemoteUpdate,
		EventDelete: s.OnRemoteDelete,
	}

	subs := make([]Subscription, 0, len(EventTypes))
	for _, kind := range EventTypes {
		sub, err := s.feed.Subscribe(ctx, kind, handlers[kind])
		if err != nil {
			s.unsubscribe(subs)
			return fmt.Errorf("failed to subscribe to %s events: %w", kind, err)
		}
		subs = append(subs, sub)
	}

	s.mu.Lock()
	if s.closed {
		// Close ran while we were subscribing.
		s.mu.Unlock()
		s.unsubscribe(subs)
		return ErrClosed
	}
	s.subs = subs
	s.mu.Unlock()

	s.config.Logger.Debug("subscribed to note events", "client_id", s.config.ClientID)
	return nil
}

// Close releases the subscriptions and ends every Watch stream.
// Only the first call has an effect. In-flight requests are not cancelled.
func (s *Store) Close() error {
	var err error
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		subs := s.subs
		s.subs = nil
		for ch := range s.watchers {
			delete(s.watchers, ch)
			close(ch)
		}
		close(s.done)
		s.mu.Unlock()

		err = s.unsubscribe(subs)
	})
	return err
}

func (s *Store) unsubscribe(subs []Subscription) error {
	var errs []error
	for _, sub := range subs {
		if err := s.feed.Unsubscribe(sub); err != nil {
			errs = append(errs, fmt.Errorf("failed to unsubscribe %s: %w", sub.Kind, err))
		}
	}
	return errors.Join(errs...)
}

// LoadAll replaces the local list with the full remote collection.
// A failure is kept in the state and returned; it is not retried.
func (s *Store) LoadAll(ctx context.Context) ([]Note, error) {
	notes, err := s.api.ListNotes(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.loading = false
	if err != nil {
		fetchErr := &FetchError{Err: err}
		s.err = fetchErr
		s.config.Logger.Error("failed to fetch notes", "error", err)
		s.publishLocked()
		return nil, fetchErr
	}

	s.notes = append([]Note{}, notes...)
	s.err = nil
	s.publishLocked()
	return slices.Clone(s.notes), nil
}

// Create validates the draft, prepends the new note and confirms it remotely.
func (s *Store) Create(ctx context.Context, draft FormDraft) (Note, error) {
	if draft.Name == "" {
		return Note{}, &ValidationError{Field: FieldName}
	}
	if draft.Description == "" {
		return Note{}, &ValidationError{Field: FieldDescription}
	}

	note := Note{
		ID:             s.config.NewID(),
		Name:           draft.Name,
		Description:    draft.Description,
		Completed:      false,
		OriginClientID: s.config.ClientID,
	}

	s.mu.Lock()
	s.notes = prepend(s.notes, note)
	s.draft = FormDraft{}
	s.publishLocked()
	s.mu.Unlock()

	s.dispatch(ctx, EventCreate, note.ID, func(ctx context.Context) error {
		return s.api.CreateNote(ctx, note)
	})
	return note, nil
}

// Submit creates a note from the current draft.
func (s *Store) Submit(ctx context.Context) (Note, error) {
	return s.Create(ctx, s.Draft())
}

// SetInput updates one field of the current draft.
func (s *Store) SetInput(field, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch field {
	case FieldName:
		s.draft.Name = value
	case FieldDescription:
		s.draft.Description = value
	default:
		return fmt.Errorf("unknown draft field %q", field)
	}
	s.publishLocked()
	return nil
}

// Delete removes the note locally and asks the backend to delete it.
func (s *Store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	if indexOf(s.notes, id) < 0 {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	s.notes = without(s.notes, id)
	s.publishLocked()
	s.mu.Unlock()

	s.dispatch(ctx, EventDelete, id, func(ctx context.Context) error {
		return s.api.DeleteNote(ctx, id)
	})
	return nil
}

// ToggleCompleted flips the completed flag of a note and sends the new value.
func (s *Store) ToggleCompleted(ctx context.Context, id string) (Note, error) {
	s.mu.Lock()
	idx := indexOf(s.notes, id)
	if idx < 0 {
		s.mu.Unlock()
		return Note{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	notes := slices.Clone(s.notes)
	notes[idx].Completed = !notes[idx].Completed
	updated := notes[idx]
	s.notes = notes
	s.publishLocked()
	s.mu.Unlock()

	s.dispatch(ctx, EventUpdate, id, func(ctx context.Context) error {
		return s.api.UpdateNote(ctx, NoteUpdate{ID: id, Completed: updated.Completed})
	})
	return updated, nil
}

// OnRemoteCreate prepends a note created by another client.
// Our own creations are already in the list and are dropped.
func (s *Store) OnRemoteCreate(n Note) {
	if n.OriginClientID == s.config.ClientID {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}

	// A note we already hold (e.g. returned by a concurrent LoadAll) keeps
	// its position so the ID stays unique.
	if idx := indexOf(s.notes, n.ID); idx >= 0 {
		s.notes = replaceAt(s.notes, idx, n)
	} else {
		s.notes = prepend(s.notes, n)
	}
	s.publishLocked()
}

// OnRemoteUpdate replaces the matching note in place. Unknown IDs are ignored.
func (s *Store) OnRemoteUpdate(n Note) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}

	idx := indexOf(s.notes, n.ID)
	if idx < 0 {
		s.config.Logger.Debug("ignoring update for unknown note", "id", n.ID)
		return
	}
	s.notes = replaceAt(s.notes, idx, n)
	s.publishLocked()
}

// OnRemoteDelete removes the matching note. Unknown IDs are ignored.
func (s *Store) OnRemoteDelete(n Note) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}

	if indexOf(s.notes, n.ID) < 0 {
		s.config.Logger.Debug("ignoring delete for unknown note", "id", n.ID)
		return
	}
	s.notes = without(s.notes, n.ID)
	s.publishLocked()
}

// Notes returns a copy of the current list.
func (s *Store) Notes() []Note {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.notes)
}

// Draft returns the current draft.
func (s *Store) Draft() FormDraft {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.draft
}

// Snapshot returns the full current state.
func (s *Store) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Watch streams a snapshot after every change, starting with the current one.
// Slow readers only see the latest state. The channel is closed when ctx is
// done or the store is closed.
func (s *Store) Watch(ctx context.Context) <-chan State {
	ch := make(chan State, 1)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		close(ch)
		return ch
	}
	s.watchers[ch] = struct{}{}
	ch <- s.snapshotLocked()
	s.mu.Unlock()

	go func() {
		select {
		case <-ctx.Done():
		case <-s.done:
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		if _, ok := s.watchers[ch]; ok {
			delete(s.watchers, ch)
			close(ch)
		}
	}()
	return ch
}

// Wait blocks until every in-flight remote request has finished.
func (s *Store) Wait() {
	s.inflight.Wait()
}

// dispatch runs a remote mutation in the background. The request is detached
// from ctx cancellation and always runs to completion or failure.
func (s *Store) dispatch(ctx context.Context, op EventType, id string, call func(context.Context) error) {
	s.inflight.Add(1)
	s.pending.Add(1)

	lifecycle.Go(context.WithoutCancel(ctx), func(ctx context.Context) error {
		defer s.inflight.Done()
		defer s.pending.Add(-1)

		if err := call(ctx); err != nil {
			s.reportMutation(&MutationError{Op: op, ID: id, Err: err})
			return nil
		}
		s.config.Logger.Debug("note mutation confirmed", "op", op, "id", id)
		return nil
	}, lifecycle.WithErrorHandler(func(err error) {
		s.reportMutation(&MutationError{Op: op, ID: id, Err: err})
	}))
}

func (s *Store) reportMutation(err *MutationError) {
	s.failures.Add(1)
	s.config.Logger.Error("note mutation failed", "op", err.Op, "id", err.ID, "error", err.Err)
	if s.config.ErrorHandler != nil {
		s.config.ErrorHandler(err)
	}
}

func (s *Store) snapshotLocked() State {
	return State{
		Notes:   slices.Clone(s.notes),
		Loading: s.loading,
		Err:     s.err,
		Draft:   s.draft,
	}
}

func (s *Store) publishLocked() {
	if len(s.watchers) == 0 {
		return
	}
	st := s.snapshotLocked()
	for ch := range s.watchers {
		// Replace a pending snapshot the reader has not picked up yet.
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- st:
		default:
		}
	}
}

func indexOf(notes []Note, id string) int {
	return slices.IndexFunc(notes, func(n Note) bool { return n.ID == id })
}

func prepend(notes []Note, n Note) []Note {
	out := make([]Note, 0, len(notes)+1)
	out = append(out, n)
	return append(out, notes...)
}

func replaceAt(notes []Note, idx int, n Note) []Note {
	out := slices.Clone(notes)
	out[idx] = n
	return out
}

func without(notes []Note, id string) []Note {
	out := make([]Note, 0, len(notes))
	for _, n := range notes {
		if n.ID != id {
			out = append(out, n)
		}
	}
	return out
}
