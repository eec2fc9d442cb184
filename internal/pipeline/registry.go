package pipeline

import (
	"context"
	"sync"
	"time"

	"github.com/printforge/quickorder-backend/pkg/logger"
)

// Registry owns one orchestrator per active session and evicts the ones
// nobody has touched for a while. Draft persistence makes eviction
// safe: the session resumes from its saved draft on the next request.
type Registry struct {
	mu      sync.Mutex
	entries map[string]*registryEntry
	deps    Deps
	idleTTL time.Duration
	logg    *logger.Logger

	stopOnce sync.Once
	stop     chan struct{}
}

type registryEntry struct {
	orch     *Orchestrator
	lastSeen time.Time
}

// NewRegistry builds a registry and starts its eviction janitor.
func NewRegistry(deps Deps, idleTTL time.Duration, logg *logger.Logger) (*Registry, error) {
	if err := deps.validate(); err != nil {
		return nil, err
	}
	if idleTTL <= 0 {
		idleTTL = time.Hour
	}
	r := &Registry{
		entries: map[string]*registryEntry{},
		deps:    deps,
		idleTTL: idleTTL,
		logg:    logg,
		stop:    make(chan struct{}),
	}
	go r.janitor()
	return r, nil
}

// Get returns the session's orchestrator, creating one on first use.
func (r *Registry) Get(sessionID string) (*Orchestrator, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if entry, ok := r.entries[sessionID]; ok {
		entry.lastSeen = time.Now()
		return entry.orch, nil
	}

	orch, err := NewOrchestrator(sessionID, r.deps)
	if err != nil {
		return nil, err
	}
	r.entries[sessionID] = &registryEntry{orch: orch, lastSeen: time.Now()}
	return orch, nil
}

// ActiveSessions reports how many orchestrators are live.
func (r *Registry) ActiveSessions() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Close stops the janitor and closes every live orchestrator, flushing
// pending drafts synchronously so shutdown does not lose work.
func (r *Registry) Close(ctx context.Context) {
	r.stopOnce.Do(func() { close(r.stop) })

	r.mu.Lock()
	entries := make([]*registryEntry, 0, len(r.entries))
	for _, entry := range r.entries {
		entries = append(entries, entry)
	}
	r.entries = map[string]*registryEntry{}
	r.mu.Unlock()

	for _, entry := range entries {
		if err := entry.orch.SaveDraft(ctx); err != nil && r.logg != nil {
			r.logg.Error(ctx, "draft flush on shutdown failed", err)
		}
		entry.orch.Close()
	}
}

func (r *Registry) janitor() {
	ticker := time.NewTicker(r.idleTTL / 4)
	defer ticker.Stop()
	for {
		select {
		case <-r.stop:
			return
		case <-ticker.C:
			r.evictIdle()
		}
	}
}

func (r *Registry) evictIdle() {
	cutoff := time.Now().Add(-r.idleTTL)

	r.mu.Lock()
	var evicted []*registryEntry
	for id, entry := range r.entries {
		if entry.lastSeen.Before(cutoff) {
			evicted = append(evicted, entry)
			delete(r.entries, id)
		}
	}
	r.mu.Unlock()

	for _, entry := range evicted {
		ctx, cancel := context.WithTimeout(context.Background(), backgroundCallTimeout)
		if err := entry.orch.SaveDraft(ctx); err != nil && r.logg != nil {
			r.logg.Error(ctx, "draft flush on eviction failed", err)
		}
		entry.orch.Close()
		cancel()
	}
}
