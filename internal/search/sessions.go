package search

import (
	"sync"
)

// DefaultMaxSessions bounds the number of tracked sessions
const DefaultMaxSessions = 1024

// Sessions hands out one Searcher per (user, session) pair, so searches
// within a session supersede each other while separate sessions don't.
type Sessions struct {
	factory func(userID string) *Searcher
	max     int

	mu        sync.Mutex
	searchers map[sessionKey]*Searcher
}

type sessionKey struct {
	userID  string
	session string
}

// NewSessions creates a registry using factory to build searchers
func NewSessions(factory func(userID string) *Searcher) *Sessions {
	return &Sessions{
		factory:   factory,
		max:       DefaultMaxSessions,
		searchers: make(map[sessionKey]*Searcher),
	}
}

// Get returns the searcher for a session. An empty session always yields a
// fresh searcher not shared with anyone.
func (s *Sessions) Get(userID, session string) *Searcher {
	if session == "" {
		return s.factory(userID)
	}

	key := sessionKey{userID: userID, session: session}

	s.mu.Lock()
	defer s.mu.Unlock()

	if searcher, ok := s.searchers[key]; ok {
		return searcher
	}
	if len(s.searchers) >= s.max {
		s.evictIdle()
	}

	searcher := s.factory(userID)
	s.searchers[key] = searcher
	return searcher
}

// Len returns the number of tracked sessions
func (s *Sessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.searchers)
}

// evictIdle drops sessions with nothing in flight. Caller holds mu.
func (s *Sessions) evictIdle() {
	for key, searcher := range s.searchers {
		if searcher.Idle() {
			delete(s.searchers, key)
		}
	}
}
