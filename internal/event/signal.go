// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Tooldeck Contributors

// Package event provides synchronous change notification for registries.
//
// A Signal is a single-producer, multi-consumer observer list. Emit calls
// every subscriber in subscription order, on the goroutine that performed
// the triggering mutation, before the mutating call returns. Nothing is
// batched, reordered, or dropped. Subscribers must not call back into the
// component that owns the signal: delivery happens while the owner's lock
// is held.
package event

import "sync"

// Signal fans a value out to its subscribers.
type Signal[T any] struct {
	mu   sync.Mutex
	next int
	subs []subscriber[T]
}

type subscriber[T any] struct {
	id int
	fn func(T)
}

// NewSignal creates an empty signal.
func NewSignal[T any]() *Signal[T] {
	return &Signal[T]{}
}

// Subscribe adds fn to the observer list and returns a cancel function.
// Cancel is idempotent and safe to call from any goroutine.
func (s *Signal[T]) Subscribe(fn func(T)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.next
	s.next++
	s.subs = append(s.subs, subscriber[T]{id: id, fn: fn})

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		for i, sub := range s.subs {
			if sub.id == id {
				s.subs = append(s.subs[:i], s.subs[i+1:]...)
				return
			}
		}
	}
}

// Emit delivers v to every subscriber, synchronously and in subscription
// order.
func (s *Signal[T]) Emit(v T) {
	s.mu.Lock()
	subs := make([]subscriber[T], len(s.subs))
	copy(subs, s.subs)
	s.mu.Unlock()

	for _, sub := range subs {
		sub.fn(v)
	}
}

// Len reports the number of active subscribers.
func (s *Signal[T]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs)
}
