// Package session holds the per-browser-session credential storage.
//
// A browser session is identified by an opaque session id carried in a cookie without an expiry,
// so it lives as long as the browser session does. The credential (the backend's JWT) is kept
// server side under that id.
package session

import (
	"context"

	"github.com/google/uuid"
)

// Store persists one credential per session id.
type Store interface {
	// Save stores token under sid, replacing any previous value.
	Save(ctx context.Context, sid, token string) error
	// Read returns the token stored under sid; ok is false when there is none.
	Read(ctx context.Context, sid string) (token string, ok bool, err error)
	// Clear removes the token stored under sid. Clearing an absent token is not an error.
	Clear(ctx context.Context, sid string) error
}

// Sweeper is a Store that can drop all its expired entries in one pass.
type Sweeper interface {
	// Sweep removes expired entries and returns how many went.
	Sweep(ctx context.Context) (int, error)
}

// Tokens is the token side of a Slot as seen by backend clients.
type Tokens interface {
	Read(ctx context.Context) (string, bool, error)
	Clear(ctx context.Context) error
}

// NewID returns a fresh session id.
func NewID() string {
	return uuid.NewString()
}

// ValidID reports whether sid looks like an id returned by NewID.
func ValidID(sid string) bool {
	_, err := uuid.Parse(sid)
	return err == nil
}

// Slot is a Store bound to a single session id.
type Slot struct {
	store Store
	sid   string
}

func NewSlot(store Store, sid string) Slot {
	return Slot{store: store, sid: sid}
}

func (s Slot) ID() string { return s.sid }

func (s Slot) Save(ctx context.Context, token string) error {
	return s.store.Save(ctx, s.sid, token)
}

func (s Slot) Read(ctx context.Context) (string, bool, error) {
	return s.store.Read(ctx, s.sid)
}

func (s Slot) Clear(ctx context.Context) error {
	return s.store.Clear(ctx, s.sid)
}

// ReadOnly returns s with a Clear that does nothing. Verification clients get this view: a
// rejected token is cleared by the Auth Context, which knows whether the result is still current.
func (s Slot) ReadOnly() Tokens {
	return readOnly{s}
}

type readOnly struct {
	Slot
}

func (readOnly) Clear(context.Context) error { return nil }
