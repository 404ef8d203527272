package auth

import (
	"context"
	"sync"
	"time"

	"github.com/trezcool/cace/core"
	"github.com/trezcool/cace/core/session"
)

// ProfileFetcherFunc builds the profile fetcher of one session. tokens is read only.
type ProfileFetcherFunc func(tokens session.Tokens) ProfileFetcher

type managed struct {
	ctx      *Context
	lastSeen time.Time
}

// Manager owns one Context per browser session. A Context is created and initialised on first
// use; Forget drops it so that the next request starts over from the stored credential.
type Manager struct {
	store    session.Store
	profiles ProfileFetcherFunc
	logger   core.Logger
	idleTTL  time.Duration
	NowFunc  func() time.Time // mockable

	mu       sync.Mutex
	contexts map[string]*managed
}

func NewManager(store session.Store, profiles ProfileFetcherFunc, logger core.Logger, idleTTL time.Duration) *Manager {
	return &Manager{
		store:    store,
		profiles: profiles,
		logger:   logger,
		idleTTL:  idleTTL,
		NowFunc:  time.Now,
		contexts: make(map[string]*managed),
	}
}

// Get returns the Context of sid, creating and initialising it if needed.
func (m *Manager) Get(ctx context.Context, sid string) *Context {
	m.mu.Lock()
	if mc, ok := m.contexts[sid]; ok {
		mc.lastSeen = m.NowFunc()
		m.mu.Unlock()
		return mc.ctx
	}

	slot := session.NewSlot(m.store, sid)
	ac := NewContext(slot, NewVerifier(m.profiles(slot.ReadOnly())), m.logger)
	m.contexts[sid] = &managed{ctx: ac, lastSeen: m.NowFunc()}
	m.mu.Unlock()

	ac.Init(ctx)
	return ac
}

// Forget drops the Context of sid. The stored credential is left as is.
func (m *Manager) Forget(sid string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.contexts, sid)
}

// Len returns the number of live Contexts.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.contexts)
}

// Evict drops the Contexts unused for longer than the idle TTL and returns how many went.
func (m *Manager) Evict() int {
	if m.idleTTL <= 0 {
		return 0
	}
	now := m.NowFunc()

	m.mu.Lock()
	defer m.mu.Unlock()
	var n int
	for sid, mc := range m.contexts {
		if now.Sub(mc.lastSeen) > m.idleTTL {
			delete(m.contexts, sid)
			n++
		}
	}
	return n
}

// Sweep drops the expired entries of the store when it supports it.
func (m *Manager) Sweep(ctx context.Context) (int, error) {
	sw, ok := m.store.(session.Sweeper)
	if !ok {
		return 0, nil
	}
	return sw.Sweep(ctx)
}

// Run evicts idle Contexts and sweeps the store every interval until ctx is done.
func (m *Manager) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := m.Evict(); n > 0 {
				m.logger.Debug("evicted idle sessions", map[string]interface{}{"count": n})
			}
			n, err := m.Sweep(ctx)
			if err != nil {
				m.logger.Error("sweeping session store", err)
			} else if n > 0 {
				m.logger.Debug("swept expired sessions", map[string]interface{}{"count": n})
			}
		}
	}
}
