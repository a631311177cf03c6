package matching

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/fern/pkg/models"
)

func testLogger() ectologger.Logger {
	return ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
}

func strPtr(s string) *string     { return &s }
func intPtr(i int) *int           { return &i }
func floatPtr(f float64) *float64 { return &f }

type fakeHistoryPool struct {
	entries []models.PoolEntry
	err     error
	queries []HistoryPoolQuery
}

func (p *fakeHistoryPool) HistoryPool(_ context.Context, query HistoryPoolQuery) ([]models.PoolEntry, error) {
	p.queries = append(p.queries, query)
	return p.entries, p.err
}

type fakeBulkPool struct {
	entries []models.PoolEntry
	err     error
	queries []BulkPoolQuery
}

func (p *fakeBulkPool) BulkPool(_ context.Context, query BulkPoolQuery) ([]models.PoolEntry, error) {
	p.queries = append(p.queries, query)
	entries := p.entries
	if query.Limit > 0 && len(entries) > query.Limit {
		entries = entries[:query.Limit]
	}
	return entries, p.err
}

type fakeAliases struct {
	canonical map[string]string
	err       error
	requested []string
}

func (a *fakeAliases) CanonicalNames(_ context.Context, normalized []string) (map[string]string, error) {
	a.requested = append(a.requested, normalized...)
	if a.err != nil {
		return nil, a.err
	}
	out := map[string]string{}
	for _, n := range normalized {
		if c, ok := a.canonical[n]; ok {
			out[n] = c
		}
	}
	return out, nil
}

// fakeStore keeps records in memory and answers pool queries the way the
// database does: constituency equality plus a loose name prefilter.
type fakeStore struct {
	mu          sync.Mutex
	records     map[string]*models.CandidateRecord
	histories   map[string]models.CandidateHistory
	bulkCalls   int
	bulkWrites  int
	listErr     error
	bulkEntries []models.PoolEntry
}

func newFakeStore(records ...models.CandidateRecord) *fakeStore {
	s := &fakeStore{
		records:   map[string]*models.CandidateRecord{},
		histories: map[string]models.CandidateHistory{},
	}
	for i := range records {
		r := records[i]
		s.records[r.ID] = &r
	}
	return s
}

func (s *fakeStore) HistoryPool(_ context.Context, query HistoryPoolQuery) ([]models.PoolEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []models.PoolEntry
	for _, r := range s.records {
		if r.ConstituencyName == nil || !equalFold(r.ConstituencyName, &query.Constituency) {
			continue
		}
		out = append(out, r.ToPoolEntry())
	}
	return out, nil
}

func (s *fakeStore) BulkPool(_ context.Context, query BulkPoolQuery) ([]models.PoolEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bulkCalls++
	return s.bulkEntries, nil
}

func (s *fakeStore) GetByID(_ context.Context, id string, _ bool) (*models.CandidateRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.records[id]
	if !ok {
		return nil, nil
	}
	cp := *r
	return &cp, nil
}

func (s *fakeStore) UpdateHistory(_ context.Context, id string, history models.CandidateHistory) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.histories[id] = history
	return nil
}

func (s *fakeStore) ListAfter(_ context.Context, afterID string, limit int) ([]models.CandidateRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listErr != nil {
		return nil, s.listErr
	}

	ids := make([]string, 0, len(s.records))
	for id := range s.records {
		if id > afterID {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	if len(ids) > limit {
		ids = ids[:limit]
	}

	out := make([]models.CandidateRecord, 0, len(ids))
	for _, id := range ids {
		out = append(out, *s.records[id])
	}
	return out, nil
}

func (s *fakeStore) BulkUpdateHistories(_ context.Context, updates []models.HistoryUpdate) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bulkWrites++
	for _, u := range updates {
		s.histories[u.ID] = u.History
	}
	return len(updates), nil
}

type fakeLocker struct {
	err   error
	calls int
	key   string
	ttl   time.Duration
}

func (l *fakeLocker) WithLock(_ context.Context, key string, ttl time.Duration, fn func() error) error {
	l.calls++
	l.key = key
	l.ttl = ttl
	if l.err != nil {
		return l.err
	}
	return fn()
}

type fakeCache struct {
	entries map[string][]models.PoolEntry
	hits    int
}

func (c *fakeCache) Get(_ context.Context, key string) ([]models.PoolEntry, bool) {
	e, ok := c.entries[key]
	if ok {
		c.hits++
	}
	return e, ok
}

func (c *fakeCache) Set(_ context.Context, key string, entries []models.PoolEntry) {
	c.entries[key] = entries
}

type fakeNotifier struct {
	records []string
	results []models.RecomputeResult
}

func (n *fakeNotifier) HistoryRecomputed(_ context.Context, record *models.CandidateRecord) {
	n.records = append(n.records, record.ID)
}

func (n *fakeNotifier) HistoriesRecomputed(_ context.Context, result models.RecomputeResult) {
	n.results = append(n.results, result)
}
