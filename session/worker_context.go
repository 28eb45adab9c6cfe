package session

import (
	"context"
	"sort"
	"sync"

	"github.com/oron-mozes/creo-sub000/core"
)

// WorkerContext is the per-user execution handle. It owns the user's pipeline
// and every SessionMemory created for the user.
type WorkerContext struct {
	userID   string
	pipeline core.Pipeline

	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.RWMutex
	sessions map[string]*core.SessionMemory
	closed   bool

	inflight sync.WaitGroup
}

func newWorkerContext(userID string, pipeline core.Pipeline) *WorkerContext {
	ctx, cancel := context.WithCancel(context.Background())
	return &WorkerContext{
		userID:   userID,
		pipeline: pipeline,
		ctx:      ctx,
		cancel:   cancel,
		sessions: make(map[string]*core.SessionMemory),
	}
}

// UserID returns the owning user.
func (wc *WorkerContext) UserID() string { return wc.userID }

// Pipeline returns the worker pipeline bound to this user.
func (wc *WorkerContext) Pipeline() core.Pipeline { return wc.pipeline }

// Context is cancelled when the context is cleared. Pipeline runs should
// derive from it so a reset stops the user's background work.
func (wc *WorkerContext) Context() context.Context { return wc.ctx }

// Closed reports whether the context has been cleared.
func (wc *WorkerContext) Closed() bool {
	wc.mu.RLock()
	defer wc.mu.RUnlock()
	return wc.closed
}

// Session returns the memory for sessionID, if it exists.
func (wc *WorkerContext) Session(sessionID string) (*core.SessionMemory, bool) {
	wc.mu.RLock()
	defer wc.mu.RUnlock()
	m, ok := wc.sessions[sessionID]
	return m, ok
}

// SessionIDs returns the ids of the user's sessions in no particular order.
func (wc *WorkerContext) SessionIDs() []string {
	wc.mu.RLock()
	defer wc.mu.RUnlock()
	ids := make([]string, 0, len(wc.sessions))
	for id := range wc.sessions {
		ids = append(ids, id)
	}
	return ids
}

// OtherSessions returns summaries of up to limit sessions other than
// excludeID, most recently active first. Each summary is taken under that
// session's own lock only; no two session locks are ever held together.
func (wc *WorkerContext) OtherSessions(excludeID string, limit int) []core.SessionSummary {
	wc.mu.RLock()
	others := make([]*core.SessionMemory, 0, len(wc.sessions))
	for id, m := range wc.sessions {
		if id != excludeID {
			others = append(others, m)
		}
	}
	wc.mu.RUnlock()

	summaries := make([]core.SessionSummary, 0, len(others))
	for _, m := range others {
		summaries = append(summaries, m.Summary())
	}
	sort.Slice(summaries, func(i, j int) bool {
		if summaries[i].LastActive.Equal(summaries[j].LastActive) {
			return summaries[i].SessionID < summaries[j].SessionID
		}
		return summaries[i].LastActive.After(summaries[j].LastActive)
	})
	if limit >= 0 && len(summaries) > limit {
		summaries = summaries[:limit]
	}
	return summaries
}

// ensureSession creates the session if absent and applies hint when given.
func (wc *WorkerContext) ensureSession(sessionID string, hint *core.ProfileHint) (*core.SessionMemory, bool, error) {
	wc.mu.Lock()
	defer wc.mu.Unlock()
	if wc.closed {
		return nil, false, core.ErrContextClosed
	}
	m, ok := wc.sessions[sessionID]
	if !ok {
		m = core.NewSessionMemory(sessionID, wc.userID)
		wc.sessions[sessionID] = m
	}
	if hint != nil {
		m.SetProfileHint(*hint)
	}
	return m, !ok, nil
}

// begin registers an in-flight turn. It fails once the context is closed so
// that close can wait on a WaitGroup that no longer grows.
func (wc *WorkerContext) begin() bool {
	wc.mu.Lock()
	defer wc.mu.Unlock()
	if wc.closed {
		return false
	}
	wc.inflight.Add(1)
	return true
}

func (wc *WorkerContext) end() { wc.inflight.Done() }

// markClosed flips the closed flag and returns the number of sessions dropped.
func (wc *WorkerContext) markClosed() int {
	wc.mu.Lock()
	defer wc.mu.Unlock()
	if wc.closed {
		return 0
	}
	wc.closed = true
	n := len(wc.sessions)
	wc.sessions = map[string]*core.SessionMemory{}
	return n
}

// close cancels background work and waits for in-flight turns to return.
func (wc *WorkerContext) close(ctx context.Context) error {
	wc.markClosed()
	wc.cancel()

	done := make(chan struct{})
	go func() {
		wc.inflight.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// lastActive is the most recent activity across the user's sessions.
func (wc *WorkerContext) lastActive() (latest int64, empty bool) {
	wc.mu.RLock()
	defer wc.mu.RUnlock()
	if len(wc.sessions) == 0 {
		return 0, true
	}
	for _, m := range wc.sessions {
		if ts := m.LastActive().UnixNano(); ts > latest {
			latest = ts
		}
	}
	return latest, false
}
