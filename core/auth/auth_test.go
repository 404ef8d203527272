package auth

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/trezcool/cace/core/school"
	"github.com/trezcool/cace/core/session"
	"github.com/trezcool/cace/storage/session/inmem"
	"github.com/trezcool/cace/tests"
)

// profilesMock answers Me with a fixed profile or error. When gate is set, Me blocks on it.
type profilesMock struct {
	mu    sync.Mutex
	usr   school.User
	err   error
	gate  chan struct{}
	calls int
}

func (p *profilesMock) Me(ctx context.Context) (school.User, error) {
	p.mu.Lock()
	p.calls++
	gate := p.gate
	p.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return school.User{}, ctx.Err()
		}
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.usr, p.err
}

func (p *profilesMock) Calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

var (
	professor = school.User{ID: 1, Name: "A", Email: "a@x.com", Role: "professor"}
	admin     = school.User{ID: 2, Name: "B", Email: "b@x.com", Role: "admin"}
	errDown   = errors.New("connection refused")
)

func newTestContext(t *testing.T, profiles ProfileFetcher) (*Context, session.Slot) {
	t.Helper()
	slot := session.NewSlot(inmem.New(0), session.NewID())
	return NewContext(slot, NewVerifier(profiles), testutil.NopLogger{}), slot
}

func waitSettled(t *testing.T, ac *Context) State {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	st, err := ac.Wait(ctx)
	if err != nil {
		t.Fatalf("Wait() failed: %v", err)
	}
	return st
}
