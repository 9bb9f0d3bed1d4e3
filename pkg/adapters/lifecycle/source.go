package lifecycle

import (
	"context"
	"fmt"

	"github.com/aretw0/lifecycle"

	"github.com/aretw0/notely/pkg/core"
)

// ChangeEvent carries a replica snapshot as a lifecycle.Event.
type ChangeEvent struct {
	State core.State
}

func (e ChangeEvent) String() string {
	if e.State.Err != nil {
		return fmt.Sprintf("notes changed: %d note(s), error: %v", len(e.State.Notes), e.State.Err)
	}
	return fmt.Sprintf("notes changed: %d note(s)", len(e.State.Notes))
}

type replicaSource struct {
	states <-chan core.State
	out    chan lifecycle.Event
}

// NewSource creates a lifecycle.Source that emits a ChangeEvent for every
// snapshot received from a Store watch stream. Loading snapshots are skipped.
func NewSource(states <-chan core.State) lifecycle.Source {
	return &replicaSource{
		states: states,
		out:    make(chan lifecycle.Event),
	}
}

func (s *replicaSource) Events() <-chan lifecycle.Event {
	return s.out
}

func (s *replicaSource) Start(ctx context.Context) error {
	lifecycle.Go(ctx, func(ctx context.Context) error {
		defer close(s.out)
		for {
			select {
			case <-ctx.Done():
				return nil
			case st, ok := <-s.states:
				if !ok {
					return nil
				}
				if st.Loading {
					continue
				}
				select {
				case s.out <- ChangeEvent{State: st}:
				case <-ctx.Done():
					return nil
				}
			}
		}
	})
	return nil
}
