// Package session is the client application around the try-on and cart
// state: it owns one value of each, applies events to them in order, tells
// subscribers about new states, and runs the upload, render and cart flows
// against a Transport.
package session

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"
)

// Store owns one state value and serializes every event applied to it.
// Events are applied strictly in Dispatch order.
type Store[S, E any] struct {
	name   string
	reduce func(S, E) S

	mu      sync.Mutex
	state   S
	subs    map[int]func(S)
	nextSub int
}

// NewStore returns a Store holding initial and advanced by reduce.
func NewStore[S, E any](name string, initial S, reduce func(S, E) S) *Store[S, E] {
	return &Store[S, E]{
		name:   name,
		reduce: reduce,
		state:  initial,
		subs:   map[int]func(S){},
	}
}

// State returns the current state.
func (s *Store[S, E]) State() S {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Dispatch applies e and notifies subscribers with the new state before
// returning it. Subscribers run under the store lock and must not call
// Dispatch on the same store.
func (s *Store[S, E]) Dispatch(e E) S {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state = s.reduce(s.state, e)
	log.Debug().Str("store", s.name).Str("event", fmt.Sprintf("%T", e)).Msg("Event applied")

	for _, fn := range s.subs {
		fn(s.state)
	}
	return s.state
}

// Subscribe registers fn to receive every new state. The returned func
// removes the subscription.
func (s *Store[S, E]) Subscribe(fn func(S)) (cancel func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subs, id)
	}
}
