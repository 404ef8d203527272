// Package inmem is a process-local session.Store.
package inmem

import (
	"context"
	"sync"
	"time"

	"github.com/trezcool/cace/core/session"
)

var nowFunc = time.Now // mockable

type entry struct {
	token   string
	touched time.Time
}

// Store keeps tokens in memory. Entries idle for longer than the TTL are treated as absent
// and dropped on access or by Sweep; a zero TTL keeps them for the life of the process.
type Store struct {
	ttl time.Duration

	mu      sync.Mutex
	entries map[string]entry
}

var (
	_ session.Store   = (*Store)(nil)
	_ session.Sweeper = (*Store)(nil)
)

func New(ttl time.Duration) *Store {
	return &Store{ttl: ttl, entries: make(map[string]entry)}
}

func (s *Store) Save(_ context.Context, sid, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[sid] = entry{token: token, touched: nowFunc()}
	return nil
}

func (s *Store) Read(_ context.Context, sid string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[sid]
	if !ok {
		return "", false, nil
	}
	now := nowFunc()
	if s.ttl > 0 && now.Sub(e.touched) > s.ttl {
		delete(s.entries, sid)
		return "", false, nil
	}
	e.touched = now
	s.entries[sid] = e
	return e.token, true, nil
}

func (s *Store) Clear(_ context.Context, sid string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, sid)
	return nil
}

// Sweep drops the entries idle for longer than the TTL.
func (s *Store) Sweep(context.Context) (int, error) {
	if s.ttl <= 0 {
		return 0, nil
	}
	now := nowFunc()

	s.mu.Lock()
	defer s.mu.Unlock()
	var n int
	for sid, e := range s.entries {
		if now.Sub(e.touched) > s.ttl {
			delete(s.entries, sid)
			n++
		}
	}
	return n, nil
}

// Len returns the number of stored sessions, expired ones included.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
