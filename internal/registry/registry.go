// Package registry is the process-wide session registry: it maps a
// stream_id to the model.StreamIndex built for it, builds indices on
// demand, and evicts ones nobody has touched in a while. The shape
// mirrors internal/relay.Manager's sessions map and cleanupLoop, adapted
// from a relay-session registry to a parsed-index registry, with
// concurrent first-open callers deduplicated through singleflight rather
// than the relay manager's coarser per-channel mutex section.
package registry

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/hlsvod/originserver/internal/model"
)

// Builder constructs a model.StreamIndex for a source path, tagging it
// with the given stream id. internal/streamindex.Builder satisfies this.
type Builder interface {
	Build(ctx context.Context, streamID, sourcePath string) (*model.StreamIndex, error)
}

// Config configures a Registry.
type Config struct {
	Builder Builder

	// InactivityTTL is how long an index may go unaccessed before the
	// sweep evicts it (spec §4.J).
	InactivityTTL time.Duration

	// SweepInterval is how often the sweep goroutine runs (spec §4.J: 60s).
	SweepInterval time.Duration
}

// Registry is the stream_id -> *model.StreamIndex map described by spec
// §4.J. Index construction for a not-yet-seen source is deduplicated
// across concurrent callers, and a background sweep evicts indices that
// have been idle past the configured TTL.
type Registry struct {
	builder Builder
	ttl     time.Duration

	group singleflight.Group

	mu      sync.RWMutex
	entries map[string]*model.StreamIndex

	// bySource lets a caller that already holds an open stream_id for a
	// source reuse it instead of minting a fresh id and re-scanning.
	bySource map[string]string

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a Registry and starts its background sweep goroutine. Call
// Close to stop the sweep and release resources.
func New(cfg Config) *Registry {
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = 60 * time.Second
	}
	if cfg.InactivityTTL <= 0 {
		cfg.InactivityTTL = 5 * time.Minute
	}

	ctx, cancel := context.WithCancel(context.Background())
	r := &Registry{
		builder:  cfg.Builder,
		ttl:      cfg.InactivityTTL,
		entries:  make(map[string]*model.StreamIndex),
		bySource: make(map[string]string),
		ctx:      ctx,
		cancel:   cancel,
	}

	r.wg.Add(1)
	go r.sweepLoop(cfg.SweepInterval)

	return r
}

// Open implements spec §4.J's OpenIndex operation. If sessionID names an
// already-registered index, it is returned directly (after touching
// last_accessed). Otherwise sourcePath is scanned into a new index under
// a freshly minted session id — concurrent Open calls for the same
// sourcePath share one scan via singleflight, so only one of them pays
// the probing cost.
func (r *Registry) Open(ctx context.Context, sessionID, sourcePath string) (*model.StreamIndex, error) {
	if sessionID != "" {
		if si, ok := r.Lookup(sessionID); ok {
			return si, nil
		}
		return nil, fmt.Errorf("registry: session %q not found", sessionID)
	}

	r.mu.RLock()
	if existingID, ok := r.bySource[sourcePath]; ok {
		if si, ok := r.entries[existingID]; ok {
			r.mu.RUnlock()
			si.Touch()
			return si, nil
		}
	}
	r.mu.RUnlock()

	// singleflight keys on sourcePath: the first caller for a given path
	// builds the index, every concurrent caller for the same path waits
	// on that call and shares its result (or its error).
	v, err, _ := r.group.Do(sourcePath, func() (any, error) {
		r.mu.RLock()
		if existingID, ok := r.bySource[sourcePath]; ok {
			if si, ok := r.entries[existingID]; ok {
				r.mu.RUnlock()
				return si, nil
			}
		}
		r.mu.RUnlock()

		streamID := uuid.NewString()
		si, err := r.builder.Build(ctx, streamID, sourcePath)
		if err != nil {
			return nil, err
		}

		r.mu.Lock()
		r.entries[streamID] = si
		r.bySource[sourcePath] = streamID
		r.mu.Unlock()

		return si, nil
	})
	if err != nil {
		return nil, err
	}

	si := v.(*model.StreamIndex)
	si.Touch()
	return si, nil
}

// Lookup returns the index registered under sessionID, touching its
// last_accessed timestamp on a hit.
func (r *Registry) Lookup(sessionID string) (*model.StreamIndex, bool) {
	r.mu.RLock()
	si, ok := r.entries[sessionID]
	r.mu.RUnlock()
	if ok {
		si.Touch()
	}
	return si, ok
}

// Evict removes a session's index immediately, regardless of its TTL.
func (r *Registry) Evict(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	si, ok := r.entries[sessionID]
	if !ok {
		return
	}
	delete(r.entries, sessionID)
	if r.bySource[si.SourcePath] == sessionID {
		delete(r.bySource, si.SourcePath)
	}
}

// Len reports the number of currently registered indices.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// Close stops the sweep goroutine. Registered indices are left intact;
// Close only shuts down the background maintenance, mirroring
// internal/relay.Manager.Close's ctx-cancel-then-wait shape.
func (r *Registry) Close() {
	r.cancel()
	r.wg.Wait()
}

func (r *Registry) sweepLoop(interval time.Duration) {
	defer r.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-r.ctx.Done():
			return
		case <-ticker.C:
			r.sweep()
		}
	}
}

// sweep removes every index whose last_accessed is older than the
// inactivity TTL (spec §4.J).
func (r *Registry) sweep() {
	cutoff := time.Now().Add(-r.ttl)

	r.mu.Lock()
	defer r.mu.Unlock()

	for id, si := range r.entries {
		if si.LastAccessed().Before(cutoff) {
			delete(r.entries, id)
			if r.bySource[si.SourcePath] == id {
				delete(r.bySource, si.SourcePath)
			}
		}
	}
}
