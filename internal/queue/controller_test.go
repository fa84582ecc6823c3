package queue_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clinic_queue/internal/audit"
	"clinic_queue/internal/eta"
	"clinic_queue/internal/models"
	"clinic_queue/internal/queue"
	"clinic_queue/internal/storage"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type notifications struct {
	mu       sync.Mutex
	views    []queue.ServerView
	called   []queue.CalledNotice
	sessions []queue.ServerSession
}

func (n *notifications) PublishServerView(v queue.ServerView) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.views = append(n.views, v)
}

func (n *notifications) PublishCalled(c queue.CalledNotice) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.called = append(n.called, c)
}

func (n *notifications) PublishSession(s queue.ServerSession) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sessions = append(n.sessions, s)
}

func (n *notifications) lastView() queue.ServerView {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.views[len(n.views)-1]
}

type fixture struct {
	ctl   *queue.Controller
	store *storage.MemoryStore
	clock *fakeClock
	notes *notifications
	audit *audit.MemoryRepository
}

var start = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

func newFixture(t *testing.T, servers ...string) *fixture {
	t.Helper()
	return newFixtureWithStore(t, storage.NewMemoryStore(), servers...)
}

func newFixtureWithStore(t *testing.T, store *storage.MemoryStore, servers ...string) *fixture {
	t.Helper()
	ctx := context.Background()
	for _, id := range servers {
		require.NoError(t, store.SaveServer(ctx, models.Server{ID: id, Name: "Dr. " + id, IsAccepting: true}))
	}
	logger, _ := test.NewNullLogger()
	f := &fixture{
		store: store,
		clock: &fakeClock{now: start},
		notes: &notifications{},
		audit: &audit.MemoryRepository{},
	}
	f.ctl = queue.NewController(queue.Options{
		Store:    storeFor(t, store),
		Notifier: f.notes,
		Auditor:  audit.NewRecorder(f.audit, logger, time.Second),
		Tracker:  eta.NewTracker(20, 15, 120),
		Logger:   logger,
		Location: time.UTC,
		Clock:    f.clock.Now,
	})
	return f
}

// storeFor lets individual tests swap in a wrapped store.
var storeFor = func(t *testing.T, s *storage.MemoryStore) queue.Store { return s }

func (f *fixture) setAverage(t *testing.T, serverID string, avg int) {
	t.Helper()
	require.NoError(t, f.store.Atomic(context.Background(), func(tx queue.Tx) error {
		return tx.UpdateServerStats(context.Background(), serverID, nil, avg)
	}))
}

func (f *fixture) actions() []string {
	var out []string
	for _, r := range f.audit.Rows() {
		out = append(out, r.Action)
	}
	return out
}

func TestAdmitAssignsPositionsAndETA(t *testing.T) {
	f := newFixture(t, "dr-1")
	f.setAverage(t, "dr-1", 10)
	ctx := context.Background()

	var views []queue.EntryView
	for i, p := range []string{"alice", "bob", "carol"} {
		f.clock.Advance(time.Second)
		v, err := f.ctl.Admit(ctx, p, "dr-1")
		require.NoError(t, err)
		assert.Equal(t, i+1, v.Position)
		assert.Equal(t, i+1, v.SequenceNumber)
		assert.Equal(t, models.StatusWaiting, v.Status)
		assert.Equal(t, "2026-03-02", v.ServiceDay)
		views = append(views, v)
	}
	assert.Equal(t, eta.Range{Min: 17, Max: 23}, views[1].ETA)

	view, err := f.ctl.ServerView(ctx, "dr-1")
	require.NoError(t, err)
	assert.Equal(t, 3, view.TotalWaiting)
	for i, e := range view.Entries {
		assert.Equal(t, i+1, e.Position)
	}
	assert.Equal(t, view, f.notes.lastView())
	assert.Equal(t, []string{"QUEUE_JOIN", "QUEUE_JOIN", "QUEUE_JOIN"}, f.actions())
}

func TestAdmitPreconditions(t *testing.T) {
	f := newFixture(t, "dr-1", "dr-2")
	ctx := context.Background()

	_, err := f.ctl.Admit(ctx, "", "dr-1")
	assert.Equal(t, queue.KindValidation, queue.KindOf(err))

	_, err = f.ctl.Admit(ctx, "alice", "nobody")
	assert.ErrorIs(t, err, queue.ErrNotFound)
	assert.Equal(t, queue.KindNotFound, queue.KindOf(err))

	_, err = f.ctl.SetAccepting(ctx, "dr-2", false, "dr-2")
	require.NoError(t, err)
	_, err = f.ctl.Admit(ctx, "alice", "dr-2")
	assert.ErrorIs(t, err, queue.ErrServerUnavailable)
	assert.Equal(t, queue.KindPrecondition, queue.KindOf(err))

	_, err = f.ctl.Admit(ctx, "alice", "dr-1")
	require.NoError(t, err)
	_, err = f.ctl.Admit(ctx, "alice", "dr-1")
	assert.ErrorIs(t, err, queue.ErrAlreadyQueued)

	require.NoError(t, f.store.SaveServer(ctx, models.Server{ID: "dr-3", Name: "Dr. 3", IsAccepting: true}))
	_, err = f.ctl.Admit(ctx, "alice", "dr-3")
	assert.ErrorIs(t, err, queue.ErrAlreadyQueued)
}

func TestAdvanceLifecycle(t *testing.T) {
	f := newFixture(t, "dr-1")
	ctx := context.Background()

	_, err := f.ctl.Advance(ctx, "dr-1", "dr-1")
	assert.ErrorIs(t, err, queue.ErrQueueEmpty)

	a, err := f.ctl.Admit(ctx, "alice", "dr-1")
	require.NoError(t, err)
	f.clock.Advance(time.Second)
	_, err = f.ctl.Admit(ctx, "bob", "dr-1")
	require.NoError(t, err)

	called, err := f.ctl.Advance(ctx, "dr-1", "dr-1")
	require.NoError(t, err)
	assert.Equal(t, a.ID, called.ID)
	assert.Equal(t, models.StatusServing, called.Status)
	require.NotNil(t, called.ServingStartedAt)

	_, err = f.ctl.Advance(ctx, "dr-1", "dr-1")
	assert.ErrorIs(t, err, queue.ErrAlreadyServing)

	require.Len(t, f.notes.called, 1)
	assert.Equal(t, "alice", f.notes.called[0].ConsumerID)

	view := f.notes.lastView()
	serving, ok := view.Serving()
	require.True(t, ok)
	assert.Equal(t, 0, serving.Position)
	bob, ok := view.Find(view.Entries[1].ID)
	require.True(t, ok)
	assert.Equal(t, "bob", bob.ConsumerID)
	assert.Equal(t, 1, bob.Position)

	status, err := f.ctl.ConsumerStatus(ctx, "alice")
	require.NoError(t, err)
	require.NotNil(t, status.Entry)
	assert.Equal(t, models.StatusServing, status.Entry.Status)
}

func TestAdvanceWorksWhileNotAccepting(t *testing.T) {
	f := newFixture(t, "dr-1")
	ctx := context.Background()
	_, err := f.ctl.Admit(ctx, "alice", "dr-1")
	require.NoError(t, err)
	_, err = f.ctl.SetAccepting(ctx, "dr-1", false, "dr-1")
	require.NoError(t, err)

	_, err = f.ctl.Advance(ctx, "dr-1", "dr-1")
	assert.NoError(t, err)
}

func TestCompleteFeedsMovingAverage(t *testing.T) {
	f := newFixture(t, "dr-1")
	ctx := context.Background()

	serve := func(consumer string, minutes time.Duration) queue.Completion {
		t.Helper()
		_, err := f.ctl.Admit(ctx, consumer, "dr-1")
		require.NoError(t, err)
		called, err := f.ctl.Advance(ctx, "dr-1", "dr-1")
		require.NoError(t, err)
		f.clock.Advance(minutes)
		done, err := f.ctl.Complete(ctx, called.ID, "dr-1")
		require.NoError(t, err)
		return done
	}

	done := serve("alice", 8*time.Minute)
	assert.True(t, done.DurationAccepted)
	assert.Equal(t, 8, done.DurationMinutes)
	assert.Equal(t, 8, done.AverageServiceMinutes)
	assert.Equal(t, models.StatusServed, done.Entry.Status)
	require.NotNil(t, done.Entry.CompletedAt)

	done = serve("bob", 150*time.Minute)
	assert.False(t, done.DurationAccepted)
	assert.Equal(t, 150, done.DurationMinutes)
	assert.Equal(t, 8, done.AverageServiceMinutes)

	server, err := f.store.GetServer(ctx, "dr-1")
	require.NoError(t, err)
	assert.Equal(t, 8, server.AverageServiceMinutes)
	assert.Equal(t, []int{8}, []int(server.RecentServiceMinutes))

	// a served consumer may queue again right away
	_, err = f.ctl.Admit(ctx, "alice", "dr-1")
	assert.NoError(t, err)
}

func TestCompleteRequiresServing(t *testing.T) {
	f := newFixture(t, "dr-1")
	ctx := context.Background()
	v, err := f.ctl.Admit(ctx, "alice", "dr-1")
	require.NoError(t, err)

	_, err = f.ctl.Complete(ctx, v.ID, "dr-1")
	assert.ErrorIs(t, err, queue.ErrInvalidState)

	_, err = f.ctl.Complete(ctx, "missing", "dr-1")
	assert.ErrorIs(t, err, queue.ErrNotFound)
}

func TestSkipAndCancel(t *testing.T) {
	f := newFixture(t, "dr-1")
	ctx := context.Background()

	a, err := f.ctl.Admit(ctx, "alice", "dr-1")
	require.NoError(t, err)
	f.clock.Advance(time.Second)
	b, err := f.ctl.Admit(ctx, "bob", "dr-1")
	require.NoError(t, err)

	skipped, err := f.ctl.Skip(ctx, a.ID, "dr-1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusSkipped, skipped.Status)

	_, err = f.ctl.Skip(ctx, a.ID, "dr-1")
	assert.ErrorIs(t, err, queue.ErrInvalidState)

	_, err = f.ctl.CancelOwn(ctx, b.ID, "alice")
	assert.ErrorIs(t, err, queue.ErrNotFound)

	cancelled, err := f.ctl.CancelOwn(ctx, b.ID, "bob")
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, cancelled.Status)

	// cancel then re-admit gets a fresh, later sequence number
	again, err := f.ctl.Admit(ctx, "bob", "dr-1")
	require.NoError(t, err)
	assert.Equal(t, 3, again.SequenceNumber)
	assert.Equal(t, 1, again.Position)

	assert.Equal(t, []string{"QUEUE_JOIN", "QUEUE_JOIN", "ENTRY_SKIPPED", "QUEUE_CANCEL", "QUEUE_JOIN"}, f.actions())
}

func TestCancelServingEntryFreesServer(t *testing.T) {
	f := newFixture(t, "dr-1")
	ctx := context.Background()
	_, err := f.ctl.Admit(ctx, "alice", "dr-1")
	require.NoError(t, err)
	_, err = f.ctl.Admit(ctx, "bob", "dr-1")
	require.NoError(t, err)
	called, err := f.ctl.Advance(ctx, "dr-1", "dr-1")
	require.NoError(t, err)

	_, err = f.ctl.Cancel(ctx, called.ID, "staff-1")
	require.NoError(t, err)

	next, err := f.ctl.Advance(ctx, "dr-1", "dr-1")
	require.NoError(t, err)
	assert.Equal(t, "bob", next.ConsumerID)
}

func TestConsumerStatusWhenNotQueued(t *testing.T) {
	f := newFixture(t, "dr-1")
	status, err := f.ctl.ConsumerStatus(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Nil(t, status.Entry)
}

func TestSetAcceptingIsIdempotent(t *testing.T) {
	f := newFixture(t, "dr-1")
	ctx := context.Background()

	s, err := f.ctl.SetAccepting(ctx, "dr-1", true, "dr-1")
	require.NoError(t, err)
	assert.True(t, s.IsAccepting)
	assert.Empty(t, f.notes.sessions)

	_, err = f.ctl.SetAccepting(ctx, "dr-1", false, "dr-1")
	require.NoError(t, err)
	require.Len(t, f.notes.sessions, 1)
	assert.False(t, f.notes.sessions[0].IsAccepting)
	assert.Equal(t, []string{"SERVER_SESSION_STOP"}, f.actions())

	_, err = f.ctl.SetAccepting(ctx, "ghost", true, "dr-1")
	assert.ErrorIs(t, err, queue.ErrNotFound)
}

func TestExpireStaleCancelsPreviousDays(t *testing.T) {
	f := newFixture(t, "dr-1")
	ctx := context.Background()
	_, err := f.ctl.Admit(ctx, "alice", "dr-1")
	require.NoError(t, err)
	_, err = f.ctl.Admit(ctx, "bob", "dr-1")
	require.NoError(t, err)
	_, err = f.ctl.Advance(ctx, "dr-1", "dr-1")
	require.NoError(t, err)

	n, err := f.ctl.ExpireStale(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	f.clock.Advance(24 * time.Hour)
	n, err = f.ctl.ExpireStale(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	view, err := f.ctl.ServerView(ctx, "dr-1")
	require.NoError(t, err)
	assert.Empty(t, view.Entries)

	// sequence numbers restart on the new day
	v, err := f.ctl.Admit(ctx, "alice", "dr-1")
	require.NoError(t, err)
	assert.Equal(t, 1, v.SequenceNumber)
	assert.Equal(t, "2026-03-03", v.ServiceDay)
}

func TestDayStats(t *testing.T) {
	f := newFixture(t, "dr-1", "dr-2")
	ctx := context.Background()
	for _, p := range []string{"a", "b", "c"} {
		_, err := f.ctl.Admit(ctx, p, "dr-1")
		require.NoError(t, err)
	}
	called, err := f.ctl.Advance(ctx, "dr-1", "dr-1")
	require.NoError(t, err)
	_, err = f.ctl.Complete(ctx, called.ID, "dr-1")
	require.NoError(t, err)

	stats, err := f.ctl.DayStats(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, "2026-03-02", stats.ServiceDay)
	assert.Equal(t, 2, stats.Totals[models.StatusWaiting])
	assert.Equal(t, 1, stats.Totals[models.StatusServed])
	require.Len(t, stats.Servers, 2)
	for _, s := range stats.Servers {
		if s.ServerID == "dr-1" {
			assert.Equal(t, 2, s.Waiting)
			assert.Equal(t, 1, s.Served)
		} else {
			assert.Zero(t, s.Waiting+s.Served)
		}
	}

	_, err = f.ctl.DayStats(ctx, "yesterday")
	assert.Equal(t, queue.KindValidation, queue.KindOf(err))
}

func TestListServersCountsWaiting(t *testing.T) {
	f := newFixture(t, "dr-1", "dr-2", "dr-3")
	ctx := context.Background()
	for _, p := range []string{"a", "b", "c"} {
		_, err := f.ctl.Admit(ctx, p, "dr-1")
		require.NoError(t, err)
	}
	_, err := f.ctl.Advance(ctx, "dr-1", "dr-1")
	require.NoError(t, err)
	_, err = f.ctl.Admit(ctx, "d", "dr-2")
	require.NoError(t, err)
	_, err = f.ctl.SetAccepting(ctx, "dr-3", false, "s1")
	require.NoError(t, err)

	all, err := f.ctl.ListServers(ctx, false)
	require.NoError(t, err)
	got := map[string]int{}
	for _, s := range all {
		got[s.ID] = s.TotalWaiting
	}
	assert.Equal(t, map[string]int{"dr-1": 2, "dr-2": 1, "dr-3": 0}, got)

	open, err := f.ctl.ListServers(ctx, true)
	require.NoError(t, err)
	require.Len(t, open, 2)
	for _, s := range open {
		assert.True(t, s.IsAccepting)
	}

	one, err := f.ctl.Server(ctx, "dr-1")
	require.NoError(t, err)
	assert.Equal(t, "Dr. dr-1", one.Name)
	assert.Equal(t, 2, one.TotalWaiting)

	_, err = f.ctl.Server(ctx, "dr-9")
	assert.Equal(t, queue.KindNotFound, queue.KindOf(err))
}

func TestConcurrentAdvanceServesOnlyOne(t *testing.T) {
	f := newFixture(t, "dr-1")
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		_, err := f.ctl.Admit(ctx, fmt.Sprintf("p%d", i), "dr-1")
		require.NoError(t, err)
	}

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		others    []error
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.ctl.Advance(ctx, "dr-1", "dr-1")
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				successes++
				return
			}
			others = append(others, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
	for _, err := range others {
		assert.ErrorIs(t, err, queue.ErrAlreadyServing)
	}
	view, err := f.ctl.ServerView(ctx, "dr-1")
	require.NoError(t, err)
	serving := 0
	for _, e := range view.Entries {
		if e.Status == models.StatusServing {
			serving++
		}
	}
	assert.Equal(t, 1, serving)
}

func TestConcurrentAdmitSameConsumer(t *testing.T) {
	f := newFixture(t, "dr-1", "dr-2")
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, server := range []string{"dr-1", "dr-2"} {
		wg.Add(1)
		go func(i int, server string) {
			defer wg.Done()
			_, errs[i] = f.ctl.Admit(ctx, "alice", server)
		}(i, server)
	}
	wg.Wait()

	ok := 0
	for _, err := range errs {
		if err == nil {
			ok++
		} else {
			assert.ErrorIs(t, err, queue.ErrAlreadyQueued)
		}
	}
	assert.Equal(t, 1, ok)
}

func TestConcurrentAdmitsGetDistinctSequence(t *testing.T) {
	f := newFixture(t, "dr-1")
	ctx := context.Background()

	const n = 20
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := f.ctl.Admit(ctx, fmt.Sprintf("p%02d", i), "dr-1")
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	view, err := f.ctl.ServerView(ctx, "dr-1")
	require.NoError(t, err)
	require.Len(t, view.Entries, n)
	seen := map[int]bool{}
	for i, e := range view.Entries {
		assert.Equal(t, i+1, e.Position)
		assert.False(t, seen[e.SequenceNumber])
		seen[e.SequenceNumber] = true
	}
	for i := 1; i <= n; i++ {
		assert.True(t, seen[i], "sequence %d missing", i)
	}
}

// flakyStore fails the first `fails` conditional writes as if another
// writer had won the race.
type flakyStore struct {
	*storage.MemoryStore
	mu    sync.Mutex
	fails int
}

type flakyTx struct {
	queue.Tx
	s *flakyStore
}

func (s *flakyStore) Atomic(ctx context.Context, fn func(tx queue.Tx) error) error {
	return s.MemoryStore.Atomic(ctx, func(tx queue.Tx) error {
		return fn(flakyTx{Tx: tx, s: s})
	})
}

func (t flakyTx) UpdateEntryStatus(ctx context.Context, e *models.QueueEntry, expected models.Status) error {
	t.s.mu.Lock()
	fail := t.s.fails > 0
	if fail {
		t.s.fails--
	}
	t.s.mu.Unlock()
	if fail {
		return queue.ErrStaleStatus
	}
	return t.Tx.UpdateEntryStatus(ctx, e, expected)
}

func withFlakyStore(t *testing.T, fails int) *fixture {
	t.Helper()
	prev := storeFor
	storeFor = func(t *testing.T, s *storage.MemoryStore) queue.Store {
		return &flakyStore{MemoryStore: s, fails: fails}
	}
	t.Cleanup(func() { storeFor = prev })
	return newFixture(t, "dr-1")
}

func TestConflictIsRetriedOnce(t *testing.T) {
	f := withFlakyStore(t, 1)
	ctx := context.Background()
	v, err := f.ctl.Admit(ctx, "alice", "dr-1")
	require.NoError(t, err)

	skipped, err := f.ctl.Skip(ctx, v.ID, "dr-1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusSkipped, skipped.Status)
}

func TestConflictSurfacesAfterRetry(t *testing.T) {
	f := withFlakyStore(t, 2)
	ctx := context.Background()
	v, err := f.ctl.Admit(ctx, "alice", "dr-1")
	require.NoError(t, err)

	_, err = f.ctl.Skip(ctx, v.ID, "dr-1")
	assert.Equal(t, queue.KindConflict, queue.KindOf(err))
	assert.ErrorIs(t, err, queue.ErrConflict)

	got, err := f.ctl.Entry(ctx, v.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusWaiting, got.Status)
	assert.Equal(t, []string{"QUEUE_JOIN"}, f.actions())
}

// pausingStore holds the next view read open until released, after the
// entries have been read but before they reach the notifier.
type pausingStore struct {
	*storage.MemoryStore
	armed   chan struct{}
	paused  chan struct{}
	release chan struct{}
}

func (s *pausingStore) ActiveEntries(ctx context.Context, serverID string) ([]models.QueueEntry, error) {
	entries, err := s.MemoryStore.ActiveEntries(ctx, serverID)
	select {
	case <-s.armed:
		close(s.paused)
		<-s.release
	default:
	}
	return entries, err
}

func withPausingStore(t *testing.T) (*fixture, *pausingStore) {
	t.Helper()
	ps := &pausingStore{
		armed:   make(chan struct{}, 1),
		paused:  make(chan struct{}),
		release: make(chan struct{}),
	}
	prev := storeFor
	storeFor = func(t *testing.T, s *storage.MemoryStore) queue.Store {
		ps.MemoryStore = s
		return ps
	}
	t.Cleanup(func() { storeFor = prev })
	return newFixture(t, "dr-1"), ps
}

func statuses(v queue.ServerView) map[string]models.Status {
	out := map[string]models.Status{}
	for _, e := range v.Entries {
		out[e.ConsumerID] = e.Status
	}
	return out
}

func TestPublishedViewIsNeverOlderThanState(t *testing.T) {
	t.Run("advance during admit", func(t *testing.T) {
		f, ps := withPausingStore(t)
		ctx := context.Background()

		ps.armed <- struct{}{}
		admitted := make(chan error, 1)
		go func() {
			_, err := f.ctl.Admit(ctx, "alice", "dr-1")
			admitted <- err
		}()
		<-ps.paused

		advanced := make(chan error, 1)
		go func() {
			_, err := f.ctl.Advance(ctx, "dr-1", "dr-1")
			advanced <- err
		}()
		select {
		case err := <-advanced:
			t.Fatalf("advance finished while admit's view was still unpublished: %v", err)
		case <-time.After(50 * time.Millisecond):
		}
		close(ps.release)
		require.NoError(t, <-admitted)
		require.NoError(t, <-advanced)

		current, err := f.ctl.ServerView(ctx, "dr-1")
		require.NoError(t, err)
		assert.Equal(t, map[string]models.Status{"alice": models.StatusServing}, statuses(current))
		assert.Equal(t, statuses(current), statuses(f.notes.lastView()))
	})

	t.Run("skip during admit", func(t *testing.T) {
		f, ps := withPausingStore(t)
		ctx := context.Background()
		bob, err := f.ctl.Admit(ctx, "bob", "dr-1")
		require.NoError(t, err)

		ps.armed <- struct{}{}
		admitted := make(chan error, 1)
		go func() {
			_, err := f.ctl.Admit(ctx, "alice", "dr-1")
			admitted <- err
		}()
		<-ps.paused

		skipped := make(chan error, 1)
		go func() {
			_, err := f.ctl.Skip(ctx, bob.ID, "dr-1")
			skipped <- err
		}()
		time.Sleep(50 * time.Millisecond)
		close(ps.release)
		require.NoError(t, <-admitted)
		require.NoError(t, <-skipped)

		current, err := f.ctl.ServerView(ctx, "dr-1")
		require.NoError(t, err)
		assert.Equal(t, map[string]models.Status{"alice": models.StatusWaiting}, statuses(current))
		assert.Equal(t, statuses(current), statuses(f.notes.lastView()))
		assert.Equal(t, 1, f.notes.lastView().TotalWaiting)
	})
}
