package auth

import (
	"context"
	"log/slog"
	"sync"
)

// State describes how far session resolution has progressed.
type State int

const (
	// StateUnresolved means no resolution has been attempted yet.
	StateUnresolved State = iota
	// StateResolving means a session check and role fetch are in flight.
	StateResolving
	// StateResolved means the session and roles are known, possibly empty.
	StateResolved
)

// View is what guards consume: the current snapshot plus whether it can be
// trusted yet. Guards must never decide access while Loading reports true.
type View struct {
	Snapshot Snapshot
	State    State
}

// Loading reports whether resolution is still pending. True exactly in
// StateUnresolved and StateResolving.
func (v View) Loading() bool {
	return v.State != StateResolved
}

// Resolver tracks per-session authorization state. Each session moves
// Unresolved -> Resolving -> Resolved and re-enters Resolving whenever the
// session binding changes. Duplicate resolutions race safely: completions
// carry the generation they were started under and stale ones are dropped,
// so the last write wins.
type Resolver struct {
	identity  IdentityProvider
	directory RoleDirectory
	logger    *slog.Logger

	mu      sync.Mutex
	entries map[string]*entry
	closed  bool
	ctx     context.Context
	cancel  context.CancelFunc
}

type entry struct {
	state       State
	snap        Snapshot
	hasResolved bool
	gen         uint64
	done        chan struct{}
}

// NewResolver constructs a Resolver over the given collaborators.
func NewResolver(identity IdentityProvider, directory RoleDirectory, logger *slog.Logger) *Resolver {
	ctx, cancel := context.WithCancel(context.Background())
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{
		identity:  identity,
		directory: directory,
		logger:    logger,
		entries:   make(map[string]*entry),
		ctx:       ctx,
		cancel:    cancel,
	}
}

// View returns the current view for a session without triggering resolution.
func (r *Resolver) View(sessionID string) View {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[sessionID]
	if !ok {
		return View{State: StateUnresolved}
	}
	return View{Snapshot: e.snap, State: e.state}
}

// Ensure starts resolution for a session unless one is in flight or a
// resolved snapshot already exists.
func (r *Resolver) Ensure(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	e := r.entry(sessionID)
	if e.state == StateUnresolved {
		r.begin(sessionID, e)
	}
}

// Await ensures resolution is running and blocks until it settles or ctx
// expires, then returns the view as it stands. A view still loading after an
// expired ctx is reported as loading, never guessed at.
func (r *Resolver) Await(ctx context.Context, sessionID string) View {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return View{State: StateUnresolved}
	}
	e := r.entry(sessionID)
	if e.state == StateUnresolved {
		r.begin(sessionID, e)
	}
	if e.state == StateResolved {
		v := View{Snapshot: e.snap, State: e.state}
		r.mu.Unlock()
		return v
	}
	ch := e.done
	r.mu.Unlock()

	if ch != nil {
		select {
		case <-ctx.Done():
		case <-ch:
		}
	}
	return r.View(sessionID)
}

// NotifySessionChange re-enters Resolving for a session whose identity-side
// binding changed (sign-in elsewhere, sign-out, principal refresh).
func (r *Resolver) NotifySessionChange(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	r.begin(sessionID, r.entry(sessionID))
}

// Seed installs a fully resolved snapshot, superseding any in-flight
// resolution for the session. Used on successful login.
func (r *Resolver) Seed(sessionID string, snap Snapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	e := r.entry(sessionID)
	r.supersede(e)
	e.snap = snap
	e.state = StateResolved
	e.hasResolved = true
}

// Reset marks the session definitively signed out. Idempotent.
func (r *Resolver) Reset(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	e := r.entry(sessionID)
	r.supersede(e)
	e.snap = SignedOut()
	e.state = StateResolved
	e.hasResolved = true
}

// Forget drops all state for a destroyed session.
func (r *Resolver) Forget(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.entries[sessionID]; ok {
		r.supersede(e)
		delete(r.entries, sessionID)
	}
}

// Close tears the resolver down. Outstanding resolution tasks are cancelled
// and their eventual completions discarded.
func (r *Resolver) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	r.closed = true
	r.cancel()
	for _, e := range r.entries {
		r.supersede(e)
	}
}

// entry fetches or creates the tracking record for a session. Callers hold mu.
func (r *Resolver) entry(sessionID string) *entry {
	e, ok := r.entries[sessionID]
	if !ok {
		e = &entry{state: StateUnresolved}
		r.entries[sessionID] = e
	}
	return e
}

// supersede invalidates the current generation and wakes waiters. Callers hold mu.
func (r *Resolver) supersede(e *entry) {
	e.gen++
	if e.done != nil {
		close(e.done)
		e.done = nil
	}
}

// begin transitions to Resolving and launches the resolution task. Callers hold mu.
func (r *Resolver) begin(sessionID string, e *entry) {
	r.supersede(e)
	gen := e.gen
	e.state = StateResolving
	e.done = make(chan struct{})
	go r.resolve(sessionID, gen)
}

func (r *Resolver) resolve(sessionID string, gen uint64) {
	principal, err := r.identity.CurrentPrincipal(r.ctx, sessionID)
	if err != nil {
		r.finishErr(sessionID, gen, err)
		return
	}
	if principal == nil {
		r.finish(sessionID, gen, SignedOut())
		return
	}
	roles, err := r.directory.RolesFor(r.ctx, principal.ID)
	if err != nil {
		r.finishErr(sessionID, gen, err)
		return
	}
	r.finish(sessionID, gen, Snapshot{User: principal, Roles: roles})
}

func (r *Resolver) finish(sessionID string, gen uint64, snap Snapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[sessionID]
	if r.closed || !ok || e.gen != gen {
		return
	}
	e.snap = snap
	e.state = StateResolved
	e.hasResolved = true
	if e.done != nil {
		close(e.done)
		e.done = nil
	}
}

// finishErr handles a transport failure. An infrastructure blip must not
// silently sign out an active user, so a previously resolved snapshot is
// kept. Without one the session returns to Unresolved so the next request
// retries.
func (r *Resolver) finishErr(sessionID string, gen uint64, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[sessionID]
	if r.closed || !ok || e.gen != gen {
		return
	}
	if e.hasResolved {
		e.state = StateResolved
		r.logger.Warn("session re-resolution failed, keeping prior snapshot", slog.Any("error", err))
	} else {
		e.state = StateUnresolved
		r.logger.Warn("session resolution failed", slog.Any("error", err))
	}
	if e.done != nil {
		close(e.done)
		e.done = nil
	}
}
