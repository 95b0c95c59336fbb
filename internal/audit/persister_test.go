package audit_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"streampay-audit-backend/config"
	"streampay-audit-backend/internal/audit"
	"streampay-audit-backend/internal/model"
)

type fakeStore struct {
	mu        sync.Mutex
	available bool
	failNext  int
	onInsert  func()
	entries   []model.AuditEntry
	calls     int
}

func (s *fakeStore) InsertBatch(_ context.Context, entries []model.AuditEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.onInsert != nil {
		s.onInsert()
	}
	if s.failNext > 0 {
		s.failNext--
		return errors.New("connection reset")
	}
	s.entries = append(s.entries, entries...)
	return nil
}

func (s *fakeStore) Available() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.available
}

func (s *fakeStore) stored() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return messages(s.entries)
}

type fakeMirror struct {
	mu      sync.Mutex
	batches [][]model.AuditEntry
}

func (m *fakeMirror) Publish(_ context.Context, entries []model.AuditEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.batches = append(m.batches, entries)
	return nil
}

type fakeSpill struct {
	mu        sync.Mutex
	saved     []model.AuditEntry
	recovered []model.AuditEntry
	discarded bool
}

func (s *fakeSpill) Load() ([]model.AuditEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.recovered, nil
}

func (s *fakeSpill) Save(entries []model.AuditEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saved = entries
	return nil
}

func (s *fakeSpill) Discard() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.discarded = true
	return nil
}

func (s *fakeSpill) Path() string { return "(in-memory)" }

func newPersisterFixture(store *fakeStore, mirror audit.Mirror, spillMgr *fakeSpill) (*audit.Persister, *audit.Queue) {
	cfg := &config.Config{
		Audit: config.AuditConfig{
			MaxQueueSize:    100,
			OverflowPolicy:  config.OverflowDropIncoming,
			FlushIntervalMs: 3600000, // flushes in tests are driven by Kick and Stop
		},
	}
	queue := audit.NewQueue(&cfg.Audit, nil)
	var p *audit.Persister
	if spillMgr != nil {
		p = audit.NewPersister(cfg, queue, store, mirror, spillMgr, nil)
	} else {
		p = audit.NewPersister(cfg, queue, store, mirror, nil, nil)
	}
	return p, queue
}

func TestPersister_KickFlushesQueue(t *testing.T) {
	store := &fakeStore{available: true}
	p, queue := newPersisterFixture(store, nil, nil)

	queue.Enqueue(entry("a"))
	queue.Enqueue(entry("b"))

	p.Start()
	defer stopPersister(t, p)
	p.Kick()

	require.Eventually(t, func() bool {
		return len(store.stored()) == 2
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, []string{"a", "b"}, store.stored())
	assert.Equal(t, 0, queue.Len())
}

func TestPersister_StoreUnavailableLeavesQueueUntouched(t *testing.T) {
	store := &fakeStore{available: false}
	p, queue := newPersisterFixture(store, nil, &fakeSpill{})

	queue.Enqueue(entry("a"))
	queue.Enqueue(entry("b"))

	p.Start()
	p.Kick()
	time.Sleep(100 * time.Millisecond)

	assert.Equal(t, 2, queue.Len())
	assert.Equal(t, 0, len(store.stored()))
	stopPersister(t, p)
}

func TestPersister_FailedBatchRequeuedAheadOfNewArrivals(t *testing.T) {
	var queue *audit.Queue
	store := &fakeStore{available: true, failNext: 1}
	// Simulate an entry arriving while the doomed write is in flight.
	store.onInsert = func() {
		if store.failNext > 0 {
			queue.Enqueue(entry("late"))
		}
	}
	p, q := newPersisterFixture(store, nil, nil)
	queue = q

	queue.Enqueue(entry("f1"))
	queue.Enqueue(entry("f2"))

	p.Start()
	p.Kick()

	// First cycle fails and requeues f1,f2 ahead of the late arrival;
	// second cycle persists everything in that order.
	require.Eventually(t, func() bool {
		return len(store.stored()) == 0 && queue.Len() == 3
	}, 2*time.Second, 10*time.Millisecond)

	p.Kick()
	require.Eventually(t, func() bool {
		return len(store.stored()) == 3
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, []string{"f1", "f2", "late"}, store.stored())
	stopPersister(t, p)
}

func TestPersister_StopRunsFinalFlush(t *testing.T) {
	store := &fakeStore{available: true}
	p, queue := newPersisterFixture(store, nil, nil)

	p.Start()
	queue.Enqueue(entry("last words"))
	stopPersister(t, p)

	assert.Equal(t, []string{"last words"}, store.stored())
	assert.Equal(t, 0, queue.Len())
}

func TestPersister_StopSpillsWhenStoreUnavailable(t *testing.T) {
	store := &fakeStore{available: false}
	spillMgr := &fakeSpill{}
	p, queue := newPersisterFixture(store, nil, spillMgr)

	p.Start()
	queue.Enqueue(entry("a"))
	queue.Enqueue(entry("b"))
	stopPersister(t, p)

	assert.Equal(t, []string{"a", "b"}, messages(spillMgr.saved))
	assert.Equal(t, 0, queue.Len())
}

func TestPersister_RecoversSpillOnStart(t *testing.T) {
	store := &fakeStore{available: true}
	spillMgr := &fakeSpill{recovered: []model.AuditEntry{entry("old1"), entry("old2")}}
	p, queue := newPersisterFixture(store, nil, spillMgr)

	p.Start()
	assert.Equal(t, 2, queue.Len())
	assert.True(t, spillMgr.discarded)

	p.Kick()
	require.Eventually(t, func() bool {
		return len(store.stored()) == 2
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, []string{"old1", "old2"}, store.stored())
	stopPersister(t, p)
}

func TestPersister_MirrorsPersistedBatches(t *testing.T) {
	store := &fakeStore{available: true}
	mirror := &fakeMirror{}
	p, queue := newPersisterFixture(store, mirror, nil)

	queue.Enqueue(entry("a"))
	p.Start()
	p.Kick()
	require.Eventually(t, func() bool {
		return len(store.stored()) == 1
	}, 2*time.Second, 10*time.Millisecond)
	stopPersister(t, p)

	mirror.mu.Lock()
	defer mirror.mu.Unlock()
	require.Len(t, mirror.batches, 1)
	assert.Equal(t, []string{"a"}, messages(mirror.batches[0]))
}

func stopPersister(t *testing.T, p *audit.Persister) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, p.Stop(ctx))
}
