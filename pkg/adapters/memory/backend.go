// Package memory provides an in-process backend implementing both
// core.RemoteAPI and core.EventFeed.
//
// Every store connected to the same Backend sees the changes of the others,
// which makes it the reference collaborator for tests and examples.
package memory

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/aretw0/introspection"

	"github.com/aretw0/notely/pkg/core"
)

// Op names a backend operation for fault injection.
type Op string

const (
	OpList   Op = "list"
	OpCreate Op = "create"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
)

// ErrConditionalCheck mirrors the backend refusing a write on a missing or
// duplicated key.
var ErrConditionalCheck = errors.New("conditional request failed")

type subscriber struct {
	kind    core.EventType
	handler func(core.Note)
}

// Backend is a thread-safe in-memory note collection with change fan-out.
type Backend struct {
	mu       sync.Mutex
	notes    []core.Note
	subs     map[string]subscriber
	order    []string
	failures map[Op]error
	next     int

	// deliver keeps events in the order their writes were applied.
	deliver sync.Mutex
}

// New creates an empty Backend.
func New() *Backend {
	return &Backend{
		subs:     make(map[string]subscriber),
		failures: make(map[Op]error),
	}
}

// Seed stores notes without publishing events. The first argument ends up
// first in ListNotes.
func (b *Backend) Seed(notes ...core.Note) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.notes = append(slices.Clone(notes), b.notes...)
}

// FailWith makes every following call of op return err. A nil err clears it.
func (b *Backend) FailWith(op Op, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err == nil {
		delete(b.failures, op)
		return
	}
	b.failures[op] = err
}

// ListNotes implements core.RemoteAPI.
func (b *Backend) ListNotes(ctx context.Context) ([]core.Note, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.failures[OpList]; err != nil {
		return nil, err
	}
	return slices.Clone(b.notes), nil
}

// CreateNote implements core.RemoteAPI.
func (b *Backend) CreateNote(ctx context.Context, n core.Note) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.mu.Lock()
	if err := b.failures[OpCreate]; err != nil {
		b.mu.Unlock()
		return err
	}
	if b.indexOf(n.ID) >= 0 {
		b.mu.Unlock()
		return fmt.Errorf("create %s: %w", n.ID, ErrConditionalCheck)
	}
	b.notes = append([]core.Note{n}, b.notes...)
	b.publishUnlock(core.EventCreate, n)
	return nil
}

// UpdateNote implements core.RemoteAPI.
func (b *Backend) UpdateNote(ctx context.Context, u core.NoteUpdate) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.mu.Lock()
	if err := b.failures[OpUpdate]; err != nil {
		b.mu.Unlock()
		return err
	}
	idx := b.indexOf(u.ID)
	if idx < 0 {
		b.mu.Unlock()
		return fmt.Errorf("update %s: %w", u.ID, ErrConditionalCheck)
	}
	b.notes = slices.Clone(b.notes)
	b.notes[idx].Completed = u.Completed
	b.publishUnlock(core.EventUpdate, b.notes[idx])
	return nil
}

// DeleteNote implements core.RemoteAPI.
func (b *Backend) DeleteNote(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.mu.Lock()
	if err := b.failures[OpDelete]; err != nil {
		b.mu.Unlock()
		return err
	}
	idx := b.indexOf(id)
	if idx < 0 {
		b.mu.Unlock()
		return fmt.Errorf("delete %s: %w", id, ErrConditionalCheck)
	}
	removed := b.notes[idx]
	b.notes = slices.Delete(slices.Clone(b.notes), idx, idx+1)
	b.publishUnlock(core.EventDelete, removed)
	return nil
}

// Subscribe implements core.EventFeed.
func (b *Backend) Subscribe(ctx context.Context, kind core.EventType, handler func(core.Note)) (core.Subscription, error) {
	if handler == nil {
		return core.Subscription{}, errors.New("handler is nil")
	}
	if err := ctx.Err(); err != nil {
		return core.Subscription{}, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	b.next++
	id := fmt.Sprintf("%s-%d", kind, b.next)
	b.subs[id] = subscriber{kind: kind, handler: handler}
	b.order = append(b.order, id)
	return core.Subscription{ID: id, Kind: kind}, nil
}

// Unsubscribe implements core.EventFeed.
func (b *Backend) Unsubscribe(sub core.Subscription) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.subs[sub.ID]; !ok {
		return fmt.Errorf("unknown subscription %q", sub.ID)
	}
	delete(b.subs, sub.ID)
	b.order = slices.DeleteFunc(b.order, func(id string) bool { return id == sub.ID })
	return nil
}

// publishUnlock releases b.mu and delivers n to every subscriber of kind.
// It must be called with b.mu held.
func (b *Backend) publishUnlock(kind core.EventType, n core.Note) {
	var targets []func(core.Note)
	for _, id := range b.order {
		if s := b.subs[id]; s.kind == kind {
			targets = append(targets, s.handler)
		}
	}
	b.deliver.Lock()
	b.mu.Unlock()
	defer b.deliver.Unlock()

	for _, h := range targets {
		h(n)
	}
}

func (b *Backend) indexOf(id string) int {
	return slices.IndexFunc(b.notes, func(n core.Note) bool { return n.ID == id })
}

// BackendState exposes internal state for observability.
type BackendState struct {
	Notes       int      `json:"notes"`
	Subscribers int      `json:"subscribers"`
	Failing     []string `json:"failing,omitempty"`
}

// State implements introspection.Introspectable.
func (b *Backend) State() any {
	b.mu.Lock()
	defer b.mu.Unlock()

	failing := make([]string, 0, len(b.failures))
	for op := range b.failures {
		failing = append(failing, string(op))
	}
	slices.Sort(failing)

	return BackendState{
		Notes:       len(b.notes),
		Subscribers: len(b.subs),
		Failing:     failing,
	}
}

// ComponentType implements introspection.Component.
func (b *Backend) ComponentType() string {
	return "memory"
}

var (
	_ core.RemoteAPI               = (*Backend)(nil)
	_ core.EventFeed               = (*Backend)(nil)
	_ introspection.Introspectable = (*Backend)(nil)
	_ introspection.Component      = (*Backend)(nil)
)
