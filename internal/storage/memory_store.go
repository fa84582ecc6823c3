package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"clinic_queue/internal/models"
	"clinic_queue/internal/queue"
)

// MemoryStore keeps queue state in process memory. Transactions run one at a
// time; their writes go to a journal that is applied only on success.
type MemoryStore struct {
	mu    sync.RWMutex
	state memState
}

type memState struct {
	servers map[string]models.Server
	entries map[string]models.QueueEntry
}

func newMemState() *memState {
	return &memState{
		servers: make(map[string]models.Server),
		entries: make(map[string]models.QueueEntry),
	}
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{state: *newMemState()}
}

func copyServer(s models.Server) models.Server {
	s.RecentServiceMinutes = append(models.Server{}.RecentServiceMinutes, s.RecentServiceMinutes...)
	return s
}

func (s *MemoryStore) Atomic(ctx context.Context, fn func(tx queue.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	journal := newMemState()
	if err := fn(memTx{memReader{st: &s.state, journal: journal}}); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	for id, server := range journal.servers {
		s.state.servers[id] = server
	}
	for id, entry := range journal.entries {
		s.state.entries[id] = entry
	}
	return nil
}

// SaveServer inserts a server or updates its descriptive fields.
func (s *MemoryStore) SaveServer(_ context.Context, server models.Server) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	if cur, ok := s.state.servers[server.ID]; ok {
		cur.Name, cur.Department, cur.UpdatedAt = server.Name, server.Department, now
		s.state.servers[server.ID] = cur
		return nil
	}
	if server.AverageServiceMinutes == 0 {
		server.AverageServiceMinutes = 15
	}
	server.CreatedAt, server.UpdatedAt = now, now
	s.state.servers[server.ID] = copyServer(server)
	return nil
}

func (s *MemoryStore) read() memReader {
	return memReader{st: &s.state}
}

func (s *MemoryStore) GetServer(ctx context.Context, serverID string) (models.Server, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.read().GetServer(ctx, serverID)
}

func (s *MemoryStore) ListServers(ctx context.Context) ([]models.Server, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.read().ListServers(ctx)
}

func (s *MemoryStore) GetEntry(ctx context.Context, entryID string) (models.QueueEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.read().GetEntry(ctx, entryID)
}

func (s *MemoryStore) ActiveEntryForConsumer(ctx context.Context, consumerID string) (models.QueueEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.read().ActiveEntryForConsumer(ctx, consumerID)
}

func (s *MemoryStore) ActiveEntries(ctx context.Context, serverID string) ([]models.QueueEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.read().ActiveEntries(ctx, serverID)
}

func (s *MemoryStore) MaxSequence(ctx context.Context, serverID, serviceDay string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.read().MaxSequence(ctx, serverID, serviceDay)
}

func (s *MemoryStore) StaleActiveEntries(ctx context.Context, serviceDay string) ([]models.QueueEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.read().StaleActiveEntries(ctx, serviceDay)
}

func (s *MemoryStore) CountByStatus(ctx context.Context, serviceDay string) ([]queue.StatusCount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.read().CountByStatus(ctx, serviceDay)
}

func (s *MemoryStore) WaitingCounts(ctx context.Context) (map[string]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.read().WaitingCounts(ctx)
}

// memReader reads committed state, seen through a transaction's journal
// when one is set.
type memReader struct {
	st      *memState
	journal *memState
}

func (r memReader) server(id string) (models.Server, bool) {
	if r.journal != nil {
		if s, ok := r.journal.servers[id]; ok {
			return s, true
		}
	}
	s, ok := r.st.servers[id]
	return s, ok
}

func (r memReader) entry(id string) (models.QueueEntry, bool) {
	if r.journal != nil {
		if e, ok := r.journal.entries[id]; ok {
			return e, true
		}
	}
	e, ok := r.st.entries[id]
	return e, ok
}

func (r memReader) eachServer(fn func(models.Server)) {
	if r.journal != nil {
		for _, s := range r.journal.servers {
			fn(s)
		}
	}
	for id, s := range r.st.servers {
		if r.journal != nil {
			if _, ok := r.journal.servers[id]; ok {
				continue
			}
		}
		fn(s)
	}
}

func (r memReader) eachEntry(fn func(models.QueueEntry)) {
	if r.journal != nil {
		for _, e := range r.journal.entries {
			fn(e)
		}
	}
	for id, e := range r.st.entries {
		if r.journal != nil {
			if _, ok := r.journal.entries[id]; ok {
				continue
			}
		}
		fn(e)
	}
}

func (r memReader) GetServer(_ context.Context, serverID string) (models.Server, error) {
	s, ok := r.server(serverID)
	if !ok {
		return models.Server{}, queue.ErrRecordNotFound
	}
	return copyServer(s), nil
}

func (r memReader) ListServers(_ context.Context) ([]models.Server, error) {
	out := make([]models.Server, 0, len(r.st.servers))
	r.eachServer(func(s models.Server) {
		out = append(out, copyServer(s))
	})
	sort.Slice(out, func(i, j int) bool {
		if out[i].Department != out[j].Department {
			return out[i].Department < out[j].Department
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

func (r memReader) GetEntry(_ context.Context, entryID string) (models.QueueEntry, error) {
	e, ok := r.entry(entryID)
	if !ok {
		return models.QueueEntry{}, queue.ErrRecordNotFound
	}
	return e, nil
}

func (r memReader) ActiveEntryForConsumer(_ context.Context, consumerID string) (models.QueueEntry, error) {
	var (
		found models.QueueEntry
		ok    bool
	)
	r.eachEntry(func(e models.QueueEntry) {
		if !ok && e.ConsumerID == consumerID && e.Status.IsActive() {
			found, ok = e, true
		}
	})
	if !ok {
		return models.QueueEntry{}, queue.ErrRecordNotFound
	}
	return found, nil
}

func (r memReader) ActiveEntries(_ context.Context, serverID string) ([]models.QueueEntry, error) {
	var out []models.QueueEntry
	r.eachEntry(func(e models.QueueEntry) {
		if e.ServerID == serverID && e.Status.IsActive() {
			out = append(out, e)
		}
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out, nil
}

func (r memReader) WaitingCounts(_ context.Context) (map[string]int, error) {
	out := map[string]int{}
	r.eachEntry(func(e models.QueueEntry) {
		if e.Status == models.StatusWaiting {
			out[e.ServerID]++
		}
	})
	return out, nil
}

func (r memReader) MaxSequence(_ context.Context, serverID, serviceDay string) (int, error) {
	max := 0
	r.eachEntry(func(e models.QueueEntry) {
		if e.ServerID == serverID && e.ServiceDay == serviceDay && e.SequenceNumber > max {
			max = e.SequenceNumber
		}
	})
	return max, nil
}

func (r memReader) StaleActiveEntries(_ context.Context, serviceDay string) ([]models.QueueEntry, error) {
	var out []models.QueueEntry
	r.eachEntry(func(e models.QueueEntry) {
		if e.ServiceDay < serviceDay && e.Status.IsActive() {
			out = append(out, e)
		}
	})
	sort.Slice(out, func(i, j int) bool {
		if out[i].ServiceDay != out[j].ServiceDay {
			return out[i].ServiceDay < out[j].ServiceDay
		}
		return out[i].Before(out[j])
	})
	return out, nil
}

func (r memReader) CountByStatus(_ context.Context, serviceDay string) ([]queue.StatusCount, error) {
	type key struct {
		server string
		status models.Status
	}
	counts := map[key]int{}
	r.eachEntry(func(e models.QueueEntry) {
		if e.ServiceDay == serviceDay {
			counts[key{e.ServerID, e.Status}]++
		}
	})
	out := make([]queue.StatusCount, 0, len(counts))
	for k, n := range counts {
		out = append(out, queue.StatusCount{ServerID: k.server, Status: k.status, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ServerID != out[j].ServerID {
			return out[i].ServerID < out[j].ServerID
		}
		return out[i].Status < out[j].Status
	})
	return out, nil
}

// memTx writes only to its journal.
type memTx struct {
	memReader
}

func (t memTx) CreateEntry(_ context.Context, entry *models.QueueEntry) error {
	if _, ok := t.entry(entry.ID); ok {
		return queue.ErrDuplicateSequence
	}
	var dup bool
	t.eachEntry(func(e models.QueueEntry) {
		if e.ServerID == entry.ServerID && e.ServiceDay == entry.ServiceDay && e.SequenceNumber == entry.SequenceNumber {
			dup = true
		}
	})
	if dup {
		return queue.ErrDuplicateSequence
	}
	if err := t.checkGuards(*entry); err != nil {
		return err
	}
	now := time.Now().UTC()
	entry.CreatedAt, entry.UpdatedAt = now, now
	t.journal.entries[entry.ID] = *entry
	return nil
}

func (t memTx) UpdateEntryStatus(_ context.Context, entry *models.QueueEntry, expected models.Status) error {
	cur, ok := t.entry(entry.ID)
	if !ok || cur.Status != expected {
		return queue.ErrStaleStatus
	}
	if err := t.checkGuards(*entry); err != nil {
		return err
	}
	cur.Status = entry.Status
	cur.ServingStartedAt = entry.ServingStartedAt
	cur.CompletedAt = entry.CompletedAt
	cur.ActiveConsumerID = entry.ActiveConsumerID
	cur.ServingServerID = entry.ServingServerID
	cur.UpdatedAt = time.Now().UTC()
	t.journal.entries[entry.ID] = cur
	*entry = cur
	return nil
}

// checkGuards mirrors the unique indexes on the guard columns.
func (t memTx) checkGuards(entry models.QueueEntry) error {
	var err error
	t.eachEntry(func(e models.QueueEntry) {
		if err != nil || e.ID == entry.ID {
			return
		}
		if entry.ActiveConsumerID != nil && e.ActiveConsumerID != nil && *e.ActiveConsumerID == *entry.ActiveConsumerID {
			err = queue.ErrDuplicateActiveConsumer
		} else if entry.ServingServerID != nil && e.ServingServerID != nil && *e.ServingServerID == *entry.ServingServerID {
			err = queue.ErrDuplicateServing
		}
	})
	return err
}

func (t memTx) UpdateServerStats(_ context.Context, serverID string, window []int, averageMinutes int) error {
	s, ok := t.server(serverID)
	if !ok {
		return queue.ErrRecordNotFound
	}
	s = copyServer(s)
	s.RecentServiceMinutes = append(models.Server{}.RecentServiceMinutes, window...)
	s.AverageServiceMinutes = averageMinutes
	s.UpdatedAt = time.Now().UTC()
	t.journal.servers[serverID] = s
	return nil
}

func (t memTx) SetAccepting(_ context.Context, serverID string, accepting bool) error {
	s, ok := t.server(serverID)
	if !ok {
		return queue.ErrRecordNotFound
	}
	s = copyServer(s)
	s.IsAccepting = accepting
	s.UpdatedAt = time.Now().UTC()
	t.journal.servers[serverID] = s
	return nil
}
