package auth

import (
	"context"
	"sync"

	"github.com/trezcool/cace/core"
	"github.com/trezcool/cace/core/session"
)

// Context is the authentication state of one browser session.
//
// It starts loading. Init settles it: at once when the session holds no credential,
// otherwise once the stored credential has been verified. Login and Logout move it
// explicitly and hand back the navigation the caller must perform.
type Context struct {
	slot     session.Slot
	verifier *Verifier
	logger   core.Logger

	mu      sync.Mutex
	state   State
	gen     uint64        // bumped by every transition; stale verifications are dropped
	changed chan struct{} // closed and replaced on every state change
}

func NewContext(slot session.Slot, verifier *Verifier, logger core.Logger) *Context {
	return &Context{
		slot:     slot,
		verifier: verifier,
		logger:   logger,
		state:    State{Loading: true},
		changed:  make(chan struct{}),
	}
}

// State returns the current state.
func (c *Context) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Wait blocks until the state is no longer loading or ctx is done.
// It returns the last observed state along with ctx's error in the latter case.
func (c *Context) Wait(ctx context.Context) (State, error) {
	for {
		c.mu.Lock()
		st, changed := c.state, c.changed
		c.mu.Unlock()

		if !st.Loading {
			return st, nil
		}
		select {
		case <-changed:
		case <-ctx.Done():
			return st, ctx.Err()
		}
	}
}

// Init settles the initial state from the stored credential. Without one it resolves to
// signed out without any network call; with one, verification runs in the background and
// the state stays loading until it completes.
func (c *Context) Init(ctx context.Context) {
	token, ok, err := c.slot.Read(ctx)
	if err != nil {
		c.logger.Error("reading session token", err)
		ok = false
	}
	if !ok {
		c.transition(State{})
		return
	}

	gen := c.transition(State{Loading: true})
	go c.verify(context.WithoutCancel(ctx), gen, token)
}

// Login stores token and verifies it before returning. The dashboard is always the target;
// admins are sent on to their own area by the route guard.
func (c *Context) Login(ctx context.Context, token string) Navigation {
	ctx = context.WithoutCancel(ctx)
	gen := c.transition(State{Loading: true})

	if err := c.slot.Save(ctx, token); err != nil {
		c.logger.Error("saving session token", err)
		c.signOut(ctx, gen)
	} else {
		c.verify(ctx, gen, token)
	}
	return Navigation{Path: DashboardPath, Replace: true}
}

// Logout clears the credential and the user. Calling it again changes nothing.
func (c *Context) Logout(ctx context.Context) Navigation {
	c.signOut(ctx, 0)
	return Navigation{Path: LoginPath, Replace: true}
}

func (c *Context) verify(ctx context.Context, gen uint64, token string) {
	usr, err := c.verifier.Verify(ctx, token)
	if err != nil {
		c.logger.Info("session verification failed, signing out", err)
		c.signOut(ctx, gen)
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen {
		return
	}
	c.set(State{User: &usr})
}

// signOut clears the session unless gen is non-zero and no longer current.
func (c *Context) signOut(ctx context.Context, gen uint64) {
	c.mu.Lock()
	if gen != 0 && gen != c.gen {
		c.mu.Unlock()
		return
	}
	c.gen++
	c.set(State{})
	c.mu.Unlock()

	if err := c.slot.Clear(ctx); err != nil {
		c.logger.Error("clearing session token", err)
	}
}

// transition moves to st and returns the new generation.
func (c *Context) transition(st State) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++
	c.set(st)
	return c.gen
}

// set must be called with mu held.
func (c *Context) set(st State) {
	c.state = st
	close(c.changed)
	c.changed = make(chan struct{})
}
