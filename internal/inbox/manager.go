package inbox

import (
	"context"
	"sync"

	"marketplace-service/internal/store"

	"go.uber.org/zap"
)

// SessionManager holds one reconciler session per viewer identity. Sessions
// are created on first use and keep polling until StopAll.
type SessionManager struct {
	// baseCtx bounds session lifetimes, not individual requests. Request
	// contexts must not leak in here or the polling loop would die with
	// the first request.
	baseCtx context.Context
	source  ProductSource
	store   store.Store
	logger  *zap.Logger
	opts    Options

	mu       sync.Mutex
	sessions map[string]*Reconciler
}

// NewSessionManager creates an empty manager over the shared product source
// and notification store.
func NewSessionManager(ctx context.Context, source ProductSource, st store.Store, logger *zap.Logger, opts Options) *SessionManager {
	return &SessionManager{
		baseCtx:  ctx,
		source:   source,
		store:    st,
		logger:   logger,
		opts:     opts,
		sessions: make(map[string]*Reconciler),
	}
}

// Session returns the viewer's reconciler, starting a new session if none
// exists yet.
func (m *SessionManager) Session(viewer string) *Reconciler {
	m.mu.Lock()
	defer m.mu.Unlock()

	if r, ok := m.sessions[viewer]; ok {
		return r
	}

	r := NewReconciler(viewer, m.source, m.store, m.logger, m.opts)
	r.Start(m.baseCtx)
	m.sessions[viewer] = r

	m.logger.Info("Notification session started", zap.String("viewer", viewer))
	return r
}

// NudgeAll asks every live session to reconcile soon, e.g. after a product
// event arrives on the bus.
func (m *SessionManager) NudgeAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.sessions {
		r.Nudge()
	}
}

// StopAll ends every session. Used on shutdown.
func (m *SessionManager) StopAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for viewer, r := range m.sessions {
		r.Stop()
		delete(m.sessions, viewer)
	}
	m.logger.Info("All notification sessions stopped")
}
