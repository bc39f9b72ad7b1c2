package inbox

import (
	"context"
	"sort"
	"sync"
	"time"

	"marketplace-service/internal/models"
	"marketplace-service/internal/store"
	"marketplace-service/pkg/errors"

	"go.uber.org/zap"
)

// ProductSource is the slice of the marketplace client the reconciler needs.
type ProductSource interface {
	ListProducts(ctx context.Context) ([]models.Product, error)
}

// Options configures a reconciler session.
type Options struct {
	// Interval between reconciliation passes.
	Interval time.Duration
	// ResurrectDeleted restores the legacy behavior where a deleted
	// notification reappears as new on the next pass while its source
	// product still exists. When false (the default) deleted ids are
	// tombstoned per viewer and stay gone.
	ResurrectDeleted bool
	// OnNewNotifications is called with the count of new entries after a
	// pass that found any. Optional.
	OnNewNotifications func(viewer string, count int)
}

// Reconciler maintains one viewer's notification log against the shared
// product collection. A session polls the collection on a fixed interval,
// diffs it against the persisted log, merges new entries and keeps the
// read/unread state. The persisted store is the sole durable copy; the
// in-memory state is rebuilt from it by merge on every pass.
//
// Scheduled passes never overlap: a tick is skipped while one is in flight.
// A pass's read-modify-write of the store is one critical section with the
// mutation operations. A failed pass leaves both in-memory and persisted
// state untouched.
type Reconciler struct {
	viewer string
	source ProductSource
	store  store.Store
	logger *zap.Logger
	opts   Options

	// passMu serializes the store read-modify-write of a pass with
	// MarkRead, MarkAllRead and Remove. A mutation persists immediately,
	// so a pass that enters the critical section after it rebuilds from a
	// log that already carries the mutation.
	passMu sync.Mutex

	mu            sync.Mutex
	notifications []models.Notification
	unread        int
	inFlight      bool
	// generation guards against a pass started before Stop applying its
	// result after the session ended
	generation uint64

	cancel context.CancelFunc
	nudge  chan struct{}
}

// NewReconciler creates a session for one viewer identity. The session is
// idle until Start.
func NewReconciler(viewer string, source ProductSource, st store.Store, logger *zap.Logger, opts Options) *Reconciler {
	if opts.Interval <= 0 {
		opts.Interval = 30 * time.Second
	}
	return &Reconciler{
		viewer: viewer,
		source: source,
		store:  st,
		logger: logger,
		opts:   opts,
		nudge:  make(chan struct{}, 1),
	}
}

// Viewer returns the session's viewer identity.
func (r *Reconciler) Viewer() string { return r.viewer }

// Start primes the in-memory state from the persisted log, runs an immediate
// reconciliation pass in the background, and polls every interval until Stop.
func (r *Reconciler) Start(ctx context.Context) {
	runCtx, cancel := context.WithCancel(ctx)
	r.cancel = cancel

	// Prime from the durable copy so reads and mutations work before the
	// first pass completes
	if persisted, err := r.store.Load(runCtx, r.viewer); err == nil {
		r.mu.Lock()
		r.notifications = persisted
		r.unread = countUnread(persisted)
		r.mu.Unlock()
	} else {
		r.logger.Warn("Failed to load persisted notifications",
			zap.String("viewer", r.viewer),
			zap.Error(err),
		)
	}

	go r.run(runCtx)
}

// Stop cancels the polling timer and discards any in-flight pass result.
func (r *Reconciler) Stop() {
	if r.cancel != nil {
		r.cancel()
	}
	r.mu.Lock()
	r.generation++
	r.mu.Unlock()
}

// Nudge requests an immediate pass, e.g. when a product event arrives.
// It never blocks; a pending nudge coalesces with later ones.
func (r *Reconciler) Nudge() {
	select {
	case r.nudge <- struct{}{}:
	default:
	}
}

func (r *Reconciler) run(ctx context.Context) {
	// Immediate pass on session start, then one per tick
	r.tryPass(ctx)

	ticker := time.NewTicker(r.opts.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.tryPass(ctx)
		case <-r.nudge:
			r.tryPass(ctx)
		}
	}
}

// tryPass runs one pass unless another is already in flight.
func (r *Reconciler) tryPass(ctx context.Context) {
	r.mu.Lock()
	if r.inFlight {
		r.mu.Unlock()
		r.logger.Debug("Skipping reconciliation pass, previous pass still running",
			zap.String("viewer", r.viewer),
		)
		return
	}
	r.inFlight = true
	gen := r.generation
	r.mu.Unlock()

	err := r.pass(ctx, gen)

	r.mu.Lock()
	r.inFlight = false
	r.mu.Unlock()

	if err != nil {
		// Background best-effort refresh: log and wait for the next tick
		r.logger.Warn("Reconciliation pass failed",
			zap.String("viewer", r.viewer),
			zap.Error(err),
		)
	}
}

// RunPass executes one reconciliation pass synchronously. Exposed for the
// handlers' on-demand refresh and for tests; the polling loop goes through
// tryPass. Safe to run while a scheduled pass is in flight.
func (r *Reconciler) RunPass(ctx context.Context) error {
	r.mu.Lock()
	gen := r.generation
	r.mu.Unlock()
	return r.pass(ctx, gen)
}

func (r *Reconciler) pass(ctx context.Context, gen uint64) error {
	// 1. Fetch the current product collection
	products, err := r.source.ListProducts(ctx)
	if err != nil {
		return err
	}

	// 2-3. Drop the viewer's own listings and map the rest to candidates
	candidates := make([]models.Notification, 0, len(products))
	for _, p := range products {
		if p.ExporterEmail == r.viewer {
			continue
		}
		candidates = append(candidates, models.NewProductNotification(p))
	}

	// The remaining steps read the persisted log and write it back.
	// passMu keeps that read-modify-write atomic with respect to the
	// mutation operations, including passes run outside the polling loop.
	r.passMu.Lock()
	defer r.passMu.Unlock()

	// 4. Load the persisted log (and the deleted-id set when deletions are
	// remembered)
	persisted, err := r.store.Load(ctx, r.viewer)
	if err != nil {
		return err
	}

	deleted := map[string]bool{}
	if !r.opts.ResurrectDeleted {
		ids, err := r.store.LoadTombstones(ctx, r.viewer)
		if err != nil {
			return err
		}
		for _, id := range ids {
			deleted[id] = true
		}
	}

	// 5. New entries are candidates absent from the persisted log
	seen := make(map[string]bool, len(persisted))
	for _, n := range persisted {
		seen[n.ID] = true
	}

	newOnes := make([]models.Notification, 0)
	for _, c := range candidates {
		if seen[c.ID] || deleted[c.ID] {
			continue
		}
		newOnes = append(newOnes, c)
	}

	// 6. Merge new-first, then order by timestamp descending
	all := make([]models.Notification, 0, len(newOnes)+len(persisted))
	all = append(all, newOnes...)
	all = append(all, persisted...)
	sort.SliceStable(all, func(i, j int) bool {
		return all[i].Timestamp.After(all[j].Timestamp)
	})

	// 7. Replace in-memory state unless the session ended mid-pass
	r.mu.Lock()
	if r.generation != gen {
		r.mu.Unlock()
		r.logger.Debug("Discarding stale reconciliation result",
			zap.String("viewer", r.viewer),
		)
		return nil
	}
	r.notifications = all
	r.unread = countUnread(all)
	r.mu.Unlock()

	// 8-9. Persist only when the pass found something new; read/delete
	// operations write independently
	if len(newOnes) > 0 {
		r.logger.Info("New products observed",
			zap.String("viewer", r.viewer),
			zap.Int("count", len(newOnes)),
		)
		if r.opts.OnNewNotifications != nil {
			r.opts.OnNewNotifications(r.viewer, len(newOnes))
		}
		if err := r.store.Save(ctx, r.viewer, all); err != nil {
			return err
		}
	}

	return nil
}

// MarkRead sets the read flag on one notification and persists the log.
// The flag is sticky: reconciliation never clears it.
func (r *Reconciler) MarkRead(ctx context.Context, id string) error {
	r.passMu.Lock()
	defer r.passMu.Unlock()

	r.mu.Lock()
	found := false
	for i := range r.notifications {
		if r.notifications[i].ID == id {
			r.notifications[i].Read = true
			found = true
			break
		}
	}
	if !found {
		r.mu.Unlock()
		return errors.NewNotificationNotFound(id)
	}
	r.unread = countUnread(r.notifications)
	snapshot := r.snapshotLocked()
	r.mu.Unlock()

	return r.store.Save(ctx, r.viewer, snapshot)
}

// MarkAllRead sets the read flag on every notification and persists the log.
func (r *Reconciler) MarkAllRead(ctx context.Context) error {
	r.passMu.Lock()
	defer r.passMu.Unlock()

	r.mu.Lock()
	for i := range r.notifications {
		r.notifications[i].Read = true
	}
	r.unread = 0
	snapshot := r.snapshotLocked()
	r.mu.Unlock()

	return r.store.Save(ctx, r.viewer, snapshot)
}

// Remove deletes one notification and persists the log. Unless the session
// runs with ResurrectDeleted, the id is tombstoned so later passes do not
// re-create it.
func (r *Reconciler) Remove(ctx context.Context, id string) error {
	r.passMu.Lock()
	defer r.passMu.Unlock()

	r.mu.Lock()
	kept := make([]models.Notification, 0, len(r.notifications))
	found := false
	for _, n := range r.notifications {
		if n.ID == id {
			found = true
			continue
		}
		kept = append(kept, n)
	}
	if !found {
		r.mu.Unlock()
		return errors.NewNotificationNotFound(id)
	}
	r.notifications = kept
	r.unread = countUnread(kept)
	snapshot := r.snapshotLocked()
	r.mu.Unlock()

	if !r.opts.ResurrectDeleted {
		ids, err := r.store.LoadTombstones(ctx, r.viewer)
		if err != nil {
			return err
		}
		ids = append(ids, id)
		if err := r.store.SaveTombstones(ctx, r.viewer, ids); err != nil {
			return err
		}
	}

	return r.store.Save(ctx, r.viewer, snapshot)
}

// Notifications returns the current notification log, newest first.
func (r *Reconciler) Notifications() []models.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshotLocked()
}

// UnreadCount returns the number of unread notifications.
func (r *Reconciler) UnreadCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.unread
}

func (r *Reconciler) snapshotLocked() []models.Notification {
	out := make([]models.Notification, len(r.notifications))
	copy(out, r.notifications)
	return out
}

func countUnread(notifications []models.Notification) int {
	unread := 0
	for _, n := range notifications {
		if !n.Read {
			unread++
		}
	}
	return unread
}
