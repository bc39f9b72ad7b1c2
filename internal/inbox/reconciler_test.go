package inbox

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"marketplace-service/internal/models"
	"marketplace-service/internal/store"
	"marketplace-service/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const viewer = "importer@example.com"

// fakeSource serves a mutable product collection and can be told to fail.
type fakeSource struct {
	products []models.Product
	fail     bool
}

func (f *fakeSource) ListProducts(context.Context) ([]models.Product, error) {
	if f.fail {
		return nil, errors.NewNetworkError("GET /products", fmt.Errorf("connection refused"))
	}
	out := make([]models.Product, len(f.products))
	copy(out, f.products)
	return out, nil
}

func (f *fakeSource) add(id, name, exporter string, listedAt time.Time) {
	f.products = append(f.products, models.Product{
		ID:            id,
		Name:          name,
		ExporterEmail: exporter,
		CreatedAt:     listedAt,
	})
}

func newTestReconciler(t *testing.T, source *fakeSource, opts Options) (*Reconciler, store.Store) {
	t.Helper()
	st := store.NewMemoryStore()
	return NewReconciler(viewer, source, st, zap.NewNop(), opts), st
}

func TestReconciler_FirstPassNotifiesOtherExportersProducts(t *testing.T) {
	source := &fakeSource{}
	source.add("p1", "Coffee", "exporter@example.com", day(1))
	source.add("p2", "Tea", "exporter@example.com", day(2))

	r, st := newTestReconciler(t, source, Options{})
	require.NoError(t, r.RunPass(context.Background()))

	notifications := r.Notifications()
	require.Len(t, notifications, 2)
	// Newest first
	assert.Equal(t, "p2", notifications[0].ID)
	assert.Equal(t, "p1", notifications[1].ID)
	assert.Equal(t, models.NotificationTypeNewProduct, notifications[0].Type)
	assert.Equal(t, "Tea is now available for import", notifications[0].Message)
	assert.Equal(t, 2, r.UnreadCount())

	// The pass found new entries, so the log is persisted
	persisted, err := st.Load(context.Background(), viewer)
	require.NoError(t, err)
	assert.Len(t, persisted, 2)
}

func TestReconciler_OwnProductsAreExcluded(t *testing.T) {
	source := &fakeSource{}
	source.add("mine", "My Beans", viewer, day(1))
	source.add("theirs", "Their Tea", "exporter@example.com", day(2))

	r, _ := newTestReconciler(t, source, Options{})
	require.NoError(t, r.RunPass(context.Background()))

	notifications := r.Notifications()
	require.Len(t, notifications, 1)
	assert.Equal(t, "theirs", notifications[0].ID)
}

func TestReconciler_SecondPassIsIdempotent(t *testing.T) {
	source := &fakeSource{}
	source.add("p1", "Coffee", "exporter@example.com", day(1))

	r, _ := newTestReconciler(t, source, Options{})
	require.NoError(t, r.RunPass(context.Background()))
	first := r.Notifications()

	require.NoError(t, r.RunPass(context.Background()))
	assert.Equal(t, first, r.Notifications())
	assert.Equal(t, 1, r.UnreadCount())
}

func TestReconciler_NewProductsMergeWithoutDuplicates(t *testing.T) {
	source := &fakeSource{}
	source.add("p1", "Coffee", "exporter@example.com", day(1))

	var notified int
	r, _ := newTestReconciler(t, source, Options{
		OnNewNotifications: func(_ string, count int) { notified += count },
	})
	require.NoError(t, r.RunPass(context.Background()))
	assert.Equal(t, 1, notified)

	source.add("p2", "Tea", "exporter@example.com", day(3))
	require.NoError(t, r.RunPass(context.Background()))

	notifications := r.Notifications()
	require.Len(t, notifications, 2)
	assert.Equal(t, "p2", notifications[0].ID)
	assert.Equal(t, 2, notified)
}

func TestReconciler_ReadFlagIsSticky(t *testing.T) {
	source := &fakeSource{}
	source.add("p1", "Coffee", "exporter@example.com", day(1))

	r, _ := newTestReconciler(t, source, Options{})
	require.NoError(t, r.RunPass(context.Background()))
	require.NoError(t, r.MarkRead(context.Background(), "p1"))
	assert.Equal(t, 0, r.UnreadCount())

	// The source still lists p1; later passes must not flip it back
	source.add("p2", "Tea", "exporter@example.com", day(2))
	require.NoError(t, r.RunPass(context.Background()))

	notifications := r.Notifications()
	require.Len(t, notifications, 2)
	for _, n := range notifications {
		if n.ID == "p1" {
			assert.True(t, n.Read)
		}
	}
	assert.Equal(t, 1, r.UnreadCount())
}

func TestReconciler_MarkRead_UnknownID(t *testing.T) {
	source := &fakeSource{}
	r, _ := newTestReconciler(t, source, Options{})

	err := r.MarkRead(context.Background(), "ghost")
	require.Error(t, err)
	stdErr, ok := err.(*errors.StandardError)
	require.True(t, ok)
	assert.Equal(t, "NotificationNotFound", stdErr.Code)
}

func TestReconciler_MarkAllRead(t *testing.T) {
	source := &fakeSource{}
	source.add("p1", "Coffee", "exporter@example.com", day(1))
	source.add("p2", "Tea", "exporter@example.com", day(2))

	r, st := newTestReconciler(t, source, Options{})
	require.NoError(t, r.RunPass(context.Background()))
	require.NoError(t, r.MarkAllRead(context.Background()))

	assert.Equal(t, 0, r.UnreadCount())
	persisted, err := st.Load(context.Background(), viewer)
	require.NoError(t, err)
	for _, n := range persisted {
		assert.True(t, n.Read)
	}
}

func TestReconciler_RemovedNotificationStaysGone(t *testing.T) {
	source := &fakeSource{}
	source.add("p1", "Coffee", "exporter@example.com", day(1))

	r, _ := newTestReconciler(t, source, Options{})
	require.NoError(t, r.RunPass(context.Background()))
	require.NoError(t, r.Remove(context.Background(), "p1"))
	assert.Empty(t, r.Notifications())

	// p1 is still in the collection but must not come back
	require.NoError(t, r.RunPass(context.Background()))
	assert.Empty(t, r.Notifications())
	assert.Equal(t, 0, r.UnreadCount())
}

func TestReconciler_RemovedNotificationResurrectsWhenConfigured(t *testing.T) {
	source := &fakeSource{}
	source.add("p1", "Coffee", "exporter@example.com", day(1))

	r, _ := newTestReconciler(t, source, Options{ResurrectDeleted: true})
	require.NoError(t, r.RunPass(context.Background()))
	require.NoError(t, r.Remove(context.Background(), "p1"))
	assert.Empty(t, r.Notifications())

	require.NoError(t, r.RunPass(context.Background()))
	notifications := r.Notifications()
	require.Len(t, notifications, 1)
	assert.Equal(t, "p1", notifications[0].ID)
	assert.False(t, notifications[0].Read)
}

func TestReconciler_Remove_UnknownID(t *testing.T) {
	source := &fakeSource{}
	r, _ := newTestReconciler(t, source, Options{})

	err := r.Remove(context.Background(), "ghost")
	require.Error(t, err)
}

func TestReconciler_FailedPassKeepsState(t *testing.T) {
	source := &fakeSource{}
	source.add("p1", "Coffee", "exporter@example.com", day(1))

	r, st := newTestReconciler(t, source, Options{})
	require.NoError(t, r.RunPass(context.Background()))
	before := r.Notifications()

	source.fail = true
	require.Error(t, r.RunPass(context.Background()))

	assert.Equal(t, before, r.Notifications())
	assert.Equal(t, 1, r.UnreadCount())
	persisted, err := st.Load(context.Background(), viewer)
	require.NoError(t, err)
	assert.Len(t, persisted, 1)
}

// countingStore counts durable writes going through Save.
type countingStore struct {
	store.Store
	saves int
}

func (c *countingStore) Save(ctx context.Context, viewer string, notifications []models.Notification) error {
	c.saves++
	return c.Store.Save(ctx, viewer, notifications)
}

func TestReconciler_PassWithoutNewEntriesDoesNotPersist(t *testing.T) {
	source := &fakeSource{}
	source.add("p1", "Coffee", "exporter@example.com", day(1))

	st := &countingStore{Store: store.NewMemoryStore()}
	r := NewReconciler(viewer, source, st, zap.NewNop(), Options{})

	require.NoError(t, r.RunPass(context.Background()))
	assert.Equal(t, 1, st.saves)

	// Nothing new on the second pass, so nothing is written
	require.NoError(t, r.RunPass(context.Background()))
	assert.Equal(t, 1, st.saves)

	// Read operations persist on their own
	require.NoError(t, r.MarkRead(context.Background(), "p1"))
	assert.Equal(t, 2, st.saves)
}

func TestReconciler_TimestampFallsBackToUpdateTime(t *testing.T) {
	source := &fakeSource{}
	source.products = append(source.products, models.Product{
		ID:            "p1",
		Name:          "Coffee",
		ExporterEmail: "exporter@example.com",
		UpdatedAt:     day(7),
	})

	r, _ := newTestReconciler(t, source, Options{})
	require.NoError(t, r.RunPass(context.Background()))

	notifications := r.Notifications()
	require.Len(t, notifications, 1)
	assert.Equal(t, day(7), notifications[0].Timestamp)
}

func TestReconciler_ViewersAreIsolated(t *testing.T) {
	source := &fakeSource{}
	source.add("p1", "Coffee", "other@example.com", day(1))

	st := store.NewMemoryStore()
	a := NewReconciler("a@example.com", source, st, zap.NewNop(), Options{})
	b := NewReconciler("b@example.com", source, st, zap.NewNop(), Options{})

	require.NoError(t, a.RunPass(context.Background()))
	require.NoError(t, b.RunPass(context.Background()))
	require.NoError(t, a.MarkRead(context.Background(), "p1"))
	require.NoError(t, b.Remove(context.Background(), "p1"))

	// a's read flag and b's deletion do not leak into each other
	require.NoError(t, a.RunPass(context.Background()))
	require.NoError(t, b.RunPass(context.Background()))

	aNotifications := a.Notifications()
	require.Len(t, aNotifications, 1)
	assert.True(t, aNotifications[0].Read)
	assert.Empty(t, b.Notifications())
}

// gatedStore can hold one Load call open after reading the underlying
// store, keeping a pass parked between its read and its write-back.
type gatedStore struct {
	store.Store
	mu      sync.Mutex
	entered chan struct{}
	release chan struct{}
}

func (g *gatedStore) arm() (entered, release chan struct{}) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.entered = make(chan struct{})
	g.release = make(chan struct{})
	return g.entered, g.release
}

func (g *gatedStore) Load(ctx context.Context, viewer string) ([]models.Notification, error) {
	g.mu.Lock()
	entered, release := g.entered, g.release
	g.entered, g.release = nil, nil
	g.mu.Unlock()

	notifications, err := g.Store.Load(ctx, viewer)
	if entered != nil {
		close(entered)
		<-release
	}
	return notifications, err
}

func TestReconciler_MarkReadDuringPassSurvives(t *testing.T) {
	source := &fakeSource{}
	source.add("p1", "Coffee", "exporter@example.com", day(1))

	gs := &gatedStore{Store: store.NewMemoryStore()}
	r := NewReconciler(viewer, source, gs, zap.NewNop(), Options{})
	require.NoError(t, r.RunPass(context.Background()))

	// The next pass finds p2 and will write the log back; park it right
	// after it read the log
	source.add("p2", "Tea", "exporter@example.com", day(2))
	entered, release := gs.arm()

	passDone := make(chan error, 1)
	go func() { passDone <- r.RunPass(context.Background()) }()
	<-entered

	markDone := make(chan error, 1)
	go func() { markDone <- r.MarkRead(context.Background(), "p1") }()
	// Give the mutation time to reach the log before the pass resumes
	time.Sleep(20 * time.Millisecond)

	close(release)
	require.NoError(t, <-passDone)
	require.NoError(t, <-markDone)

	for _, n := range r.Notifications() {
		if n.ID == "p1" {
			assert.True(t, n.Read)
		}
	}
	assert.Equal(t, 1, r.UnreadCount())

	persisted, err := gs.Load(context.Background(), viewer)
	require.NoError(t, err)
	require.Len(t, persisted, 2)
	for _, n := range persisted {
		if n.ID == "p1" {
			assert.True(t, n.Read)
		}
	}
}

func TestReconciler_RemoveDuringPassStaysGone(t *testing.T) {
	source := &fakeSource{}
	source.add("p1", "Coffee", "exporter@example.com", day(1))

	gs := &gatedStore{Store: store.NewMemoryStore()}
	r := NewReconciler(viewer, source, gs, zap.NewNop(), Options{})
	require.NoError(t, r.RunPass(context.Background()))

	source.add("p2", "Tea", "exporter@example.com", day(2))
	entered, release := gs.arm()

	passDone := make(chan error, 1)
	go func() { passDone <- r.RunPass(context.Background()) }()
	<-entered

	removeDone := make(chan error, 1)
	go func() { removeDone <- r.Remove(context.Background(), "p1") }()
	time.Sleep(20 * time.Millisecond)

	close(release)
	require.NoError(t, <-passDone)
	require.NoError(t, <-removeDone)

	for _, n := range r.Notifications() {
		assert.NotEqual(t, "p1", n.ID)
	}

	persisted, err := gs.Load(context.Background(), viewer)
	require.NoError(t, err)
	for _, n := range persisted {
		assert.NotEqual(t, "p1", n.ID)
	}

	// The tombstone holds on later passes too
	require.NoError(t, r.RunPass(context.Background()))
	for _, n := range r.Notifications() {
		assert.NotEqual(t, "p1", n.ID)
	}
}

// blockingSource parks every ListProducts call until released and counts
// how many were started.
type blockingSource struct {
	products []models.Product
	release  chan struct{}
	calls    atomic.Int32
}

func (s *blockingSource) ListProducts(ctx context.Context) ([]models.Product, error) {
	s.calls.Add(1)
	select {
	case <-s.release:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	out := make([]models.Product, len(s.products))
	copy(out, s.products)
	return out, nil
}

func TestReconciler_TicksAreSkippedWhilePassInFlight(t *testing.T) {
	source := &blockingSource{release: make(chan struct{})}
	source.products = []models.Product{
		{ID: "p1", Name: "Coffee", ExporterEmail: "exporter@example.com", CreatedAt: day(1)},
	}

	st := store.NewMemoryStore()
	r := NewReconciler(viewer, source, st, zap.NewNop(), Options{Interval: 10 * time.Millisecond})
	r.Start(context.Background())
	defer r.Stop()

	// The immediate pass is stuck in the fetch; several ticks elapse and
	// every one of them is skipped
	time.Sleep(80 * time.Millisecond)
	assert.Equal(t, int32(1), source.calls.Load())

	close(source.release)
	assert.Eventually(t, func() bool { return r.UnreadCount() == 1 },
		time.Second, 5*time.Millisecond)
}

func TestReconciler_NudgeTriggersImmediatePass(t *testing.T) {
	source := &fakeSource{}
	source.add("p1", "Coffee", "exporter@example.com", day(1))

	st := store.NewMemoryStore()
	// The interval is far too long for a tick to fire during the test
	r := NewReconciler(viewer, source, st, zap.NewNop(), Options{Interval: time.Hour})
	r.Start(context.Background())
	defer r.Stop()

	assert.Eventually(t, func() bool { return r.UnreadCount() == 1 },
		time.Second, 5*time.Millisecond)

	source.add("p2", "Tea", "exporter@example.com", day(2))
	r.Nudge()
	assert.Eventually(t, func() bool { return r.UnreadCount() == 2 },
		time.Second, 5*time.Millisecond)
}

func TestReconciler_ResultAfterStopIsDiscarded(t *testing.T) {
	source := &blockingSource{release: make(chan struct{})}
	source.products = []models.Product{
		{ID: "p1", Name: "Coffee", ExporterEmail: "exporter@example.com", CreatedAt: day(1)},
	}

	st := store.NewMemoryStore()
	r := NewReconciler(viewer, source, st, zap.NewNop(), Options{})

	done := make(chan error, 1)
	go func() { done <- r.RunPass(context.Background()) }()
	assert.Eventually(t, func() bool { return source.calls.Load() == 1 },
		time.Second, time.Millisecond)

	// The session ends while the pass is still fetching; its result must
	// not be applied or persisted
	r.Stop()
	close(source.release)
	require.NoError(t, <-done)

	assert.Empty(t, r.Notifications())
	persisted, err := st.Load(context.Background(), viewer)
	require.NoError(t, err)
	assert.Empty(t, persisted)
}

func TestSessionManager_ReusesSessions(t *testing.T) {
	source := &fakeSource{}
	st := store.NewMemoryStore()
	m := NewSessionManager(context.Background(), source, st, zap.NewNop(), Options{Interval: time.Hour})
	defer m.StopAll()

	first := m.Session(viewer)
	second := m.Session(viewer)
	assert.Same(t, first, second)

	other := m.Session("other@example.com")
	assert.NotSame(t, first, other)
}

func day(n int) time.Time {
	return time.Date(2024, 1, n, 0, 0, 0, 0, time.UTC)
}
