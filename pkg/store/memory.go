package store

import (
	"context"
	"sort"
	"sync"

	"klunkaz/pkg/registry"
)

// MemoryStore keeps every committed change in memory so a registry can be
// rebuilt from it with registry.Restore.
type MemoryStore struct {
	mu       sync.Mutex
	bikes    map[registry.BikeID]registry.Bike
	reviews  map[int64]registry.Review
	txs      []registry.Transaction
	counters registry.Counters
	commits  int
	failWith error
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		bikes:   make(map[registry.BikeID]registry.Bike),
		reviews: make(map[int64]registry.Review),
	}
}

// FailWith makes every later Commit return err. Pass nil to recover.
func (s *MemoryStore) FailWith(err error) {
	s.mu.Lock()
	s.failWith = err
	s.mu.Unlock()
}

func (s *MemoryStore) Commit(_ context.Context, c registry.Change) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failWith != nil {
		return s.failWith
	}
	if c.Bike != nil {
		s.bikes[c.Bike.ID] = copyBike(*c.Bike)
	}
	if c.Review != nil {
		s.reviews[c.Review.ID] = *c.Review
	}
	if c.Transaction != nil {
		s.txs = append(s.txs, *c.Transaction)
	}
	s.counters = maxCounters(s.counters, c.Counters)
	s.commits++
	return nil
}

// Commits returns how many changes have been committed.
func (s *MemoryStore) Commits() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.commits
}

func (s *MemoryStore) Snapshot() registry.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := registry.Snapshot{
		Bikes:        make([]registry.Bike, 0, len(s.bikes)),
		Reviews:      make([]registry.Review, 0, len(s.reviews)),
		Transactions: make([]registry.Transaction, len(s.txs)),
		Counters:     s.counters,
	}
	for _, b := range s.bikes {
		snap.Bikes = append(snap.Bikes, copyBike(b))
	}
	sort.Slice(snap.Bikes, func(i, j int) bool { return snap.Bikes[i].ID < snap.Bikes[j].ID })
	for _, rv := range s.reviews {
		snap.Reviews = append(snap.Reviews, rv)
	}
	sort.Slice(snap.Reviews, func(i, j int) bool { return snap.Reviews[i].ID < snap.Reviews[j].ID })
	copy(snap.Transactions, s.txs)
	return snap
}

func copyBike(b registry.Bike) registry.Bike {
	if rs := b.Listing.Rental; rs != nil {
		c := *rs
		if rs.EndTime != nil {
			t := *rs.EndTime
			c.EndTime = &t
		}
		b.Listing.Rental = &c
	}
	return b
}

// maxCounters keeps counters monotonic when commits for different bikes
// arrive out of order.
func maxCounters(a, b registry.Counters) registry.Counters {
	if b.NextBikeID > a.NextBikeID {
		a.NextBikeID = b.NextBikeID
	}
	if b.NextReviewID > a.NextReviewID {
		a.NextReviewID = b.NextReviewID
	}
	if b.NextSeq > a.NextSeq {
		a.NextSeq = b.NextSeq
	}
	return a
}
