package registry

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
)

const DefaultDayLength = 24 * time.Hour

// Registry is the bike registry. It is safe for concurrent use: operations on
// the same bike are serialized by a per-bike mutex, operations on different
// bikes only share the short apply step under mu.
type Registry struct {
	mu         sync.RWMutex
	bikes      map[BikeID]*Bike
	order      []BikeID
	byOwner    map[Identity][]BikeID
	byCategory map[string][]BikeID
	reviews    map[BikeID][]*Review
	byReviewer map[Identity][]reviewKey
	numReviews int
	history    []Transaction
	counters   Counters
	locks      map[BikeID]*sync.Mutex
	lanes      map[BikeID]*sync.Mutex

	clock     Clock
	dayLength time.Duration
	settler   Settler
	store     Store
	sinks     []EventSink
	log       Logger
	recorder  Recorder
	validate  *validator.Validate
}

type Option func(*Registry)

func WithClock(c Clock) Option { return func(r *Registry) { r.clock = c } }

func WithDayLength(d time.Duration) Option {
	return func(r *Registry) {
		if d > 0 {
			r.dayLength = d
		}
	}
}

func WithSettler(s Settler) Option { return func(r *Registry) { r.settler = s } }

func WithStore(s Store) Option { return func(r *Registry) { r.store = s } }

func WithEventSink(s EventSink) Option { return func(r *Registry) { r.sinks = append(r.sinks, s) } }

func WithLogger(l Logger) Option { return func(r *Registry) { r.log = l } }

func WithRecorder(rec Recorder) Option { return func(r *Registry) { r.recorder = rec } }

func New(opts ...Option) *Registry {
	r := &Registry{
		bikes:      make(map[BikeID]*Bike),
		byOwner:    make(map[Identity][]BikeID),
		byCategory: make(map[string][]BikeID),
		reviews:    make(map[BikeID][]*Review),
		byReviewer: make(map[Identity][]reviewKey),
		locks:      make(map[BikeID]*sync.Mutex),
		lanes:      make(map[BikeID]*sync.Mutex),
		counters:   Counters{NextBikeID: 1, NextReviewID: 1, NextSeq: 1},
		clock:      systemClock{},
		dayLength:  DefaultDayLength,
		settler:    freeSettler{},
		store:      discardStore{},
		log:        nopLogger{},
		recorder:   nopRecorder{},
		validate:   validator.New(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Restore builds a registry from a previously committed snapshot.
func Restore(s Snapshot, opts ...Option) (*Registry, error) {
	r := New(opts...)
	r.counters = r.counters.max(s.Counters)

	bikes := make([]Bike, len(s.Bikes))
	copy(bikes, s.Bikes)
	for i := range bikes {
		b := bikes[i].clone()
		if _, dup := r.bikes[b.ID]; dup {
			return nil, fmt.Errorf("restore: duplicate bike %d", b.ID)
		}
		if b.Owner == "" {
			return nil, fmt.Errorf("restore: bike %d has no owner", b.ID)
		}
		r.insertBike(&b)
	}

	for i := range s.Reviews {
		rv := s.Reviews[i]
		if rv.BikeID <= 0 {
			return nil, fmt.Errorf("restore: review %d has invalid bike id %d", rv.ID, rv.BikeID)
		}
		if rv.Index != len(r.reviews[rv.BikeID]) {
			return nil, fmt.Errorf("restore: review %d out of order for bike %d", rv.ID, rv.BikeID)
		}
		r.appendReview(&rv)
	}

	r.history = append(r.history, s.Transactions...)
	return r, nil
}

// reviewKey locates one review from the by-reviewer index.
type reviewKey struct {
	id     int64
	bikeID BikeID
}

// change is a staged mutation. Nothing in it is visible until apply.
type change struct {
	op        string
	bike      *Bike
	newBike   bool
	review    *Review
	newReview bool
	tx        *Transaction
	payment   *Payment
	events    []Event
}

// commit settles, persists and applies a staged change, in that order. The
// caller must hold the bike's lock, or the review lane for review changes.
func (r *Registry) commit(ctx context.Context, c *change) error {
	if c.payment != nil && c.payment.Amount > 0 {
		if err := r.settler.Settle(ctx, *c.payment); err != nil {
			r.log.Warnf("%s: settlement for bike %d failed: %s", c.op, c.payment.BikeID, err)
			return fmt.Errorf("%w: %v", ErrSettlement, err)
		}
	}

	r.mu.RLock()
	counters := r.counters
	r.mu.RUnlock()

	err := r.store.Commit(ctx, Change{
		Op:          c.op,
		Bike:        c.bike,
		Review:      c.review,
		Transaction: c.tx,
		Counters:    counters,
	})
	if err != nil {
		r.log.Errorf("%s: commit failed: %s", c.op, err)
		if c.payment != nil && c.payment.Amount > 0 {
			if rev, ok := r.settler.(Reverser); ok {
				if rerr := rev.Reverse(ctx, *c.payment); rerr != nil {
					r.log.Errorf("%s: reverse payment %s failed: %s", c.op, c.payment.Reference, rerr)
				}
			}
		}
		return fmt.Errorf("commit %s: %w", c.op, err)
	}

	r.mu.Lock()
	r.apply(c)
	r.mu.Unlock()

	for _, e := range c.events {
		for _, s := range r.sinks {
			s.Publish(e)
		}
	}
	return nil
}

// apply installs a committed change. Callers hold mu for writing.
func (r *Registry) apply(c *change) {
	if c.bike != nil {
		b := c.bike.clone()
		if c.newBike {
			r.insertBike(&b)
		} else {
			old := r.bikes[b.ID]
			r.bikes[b.ID] = &b
			if old.Owner != b.Owner {
				r.byOwner[old.Owner] = removeID(r.byOwner[old.Owner], b.ID)
				if len(r.byOwner[old.Owner]) == 0 {
					delete(r.byOwner, old.Owner)
				}
				r.addOwned(b.Owner, b.ID)
			}
		}
	}
	if c.review != nil {
		rv := *c.review
		if c.newReview {
			r.appendReview(&rv)
		} else {
			r.reviews[rv.BikeID][rv.Index] = &rv
		}
	}
	if c.tx != nil {
		r.history = append(r.history, *c.tx)
	}
}

func (r *Registry) insertBike(b *Bike) {
	r.bikes[b.ID] = b
	r.order = insertSorted(r.order, b.ID, func(a, c BikeID) bool { return a < c })
	r.byCategory[b.Metadata.Category] = insertSorted(r.byCategory[b.Metadata.Category], b.ID, func(a, c BikeID) bool { return a < c })
	r.addOwned(b.Owner, b.ID)
	r.locks[b.ID] = &sync.Mutex{}
}

// addOwned keeps each owner's list in acquisition order. Sequence numbers are
// taken before commit, so concurrent transfers can arrive out of order.
func (r *Registry) addOwned(owner Identity, id BikeID) {
	r.byOwner[owner] = insertSorted(r.byOwner[owner], id, func(a, c BikeID) bool {
		return r.bikes[a].OwnerSeq < r.bikes[c].OwnerSeq
	})
}

func (r *Registry) appendReview(rv *Review) {
	r.reviews[rv.BikeID] = append(r.reviews[rv.BikeID], rv)
	r.byReviewer[rv.Reviewer] = insertSorted(r.byReviewer[rv.Reviewer], reviewKey{id: rv.ID, bikeID: rv.BikeID}, func(a, c reviewKey) bool {
		return a.id < c.id
	})
	r.numReviews++
}

// insertSorted appends v and moves it back past any larger elements. Lists
// are almost always already in order, so this is O(1) in practice.
func insertSorted[T any](list []T, v T, less func(a, b T) bool) []T {
	list = append(list, v)
	i := sort.Search(len(list)-1, func(i int) bool { return less(v, list[i]) })
	if i < len(list)-1 {
		copy(list[i+1:], list[i:len(list)-1])
		list[i] = v
	}
	return list
}

func removeID(ids []BikeID, id BikeID) []BikeID {
	for i, v := range ids {
		if v == id {
			return append(ids[:i:i], ids[i+1:]...)
		}
	}
	return ids
}

// mutate runs fn against a private copy of the bike while holding the bike's
// lock, then commits whatever fn staged.
func (r *Registry) mutate(ctx context.Context, op string, id BikeID, fn func(b Bike, now time.Time) (*change, error)) (err error) {
	defer func() { r.observe(op, err) }()

	r.mu.RLock()
	l, ok := r.locks[id]
	r.mu.RUnlock()
	if !ok {
		return newError(KindNotFound, op, ReasonBikeNotFound)
	}

	l.Lock()
	defer l.Unlock()

	r.mu.RLock()
	cur := r.bikes[id].clone()
	r.mu.RUnlock()

	c, err := fn(cur, r.clock.Now())
	if err != nil {
		return err
	}
	if c == nil {
		return nil
	}
	c.op = op
	return r.commit(ctx, c)
}

// mutateReviews serializes review writes for one ID. Reviews are keyed by ID
// alone and may exist for IDs that were never listed.
func (r *Registry) mutateReviews(ctx context.Context, op string, id BikeID, fn func(now time.Time) (*change, error)) (err error) {
	defer func() { r.observe(op, err) }()

	if id <= 0 {
		return newError(KindInvalidArgument, op, ReasonInvalidBikeID)
	}

	r.mu.Lock()
	l, ok := r.lanes[id]
	if !ok {
		l = &sync.Mutex{}
		r.lanes[id] = l
	}
	r.mu.Unlock()

	l.Lock()
	defer l.Unlock()

	c, err := fn(r.clock.Now())
	if err != nil {
		return err
	}
	c.op = op
	return r.commit(ctx, c)
}

func (r *Registry) observe(op string, err error) {
	r.recorder.ObserveOperation(op, err)
	if err != nil {
		r.log.Debugf("%s rejected: %s", op, err)
	}
}

func (r *Registry) nextSeq() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	seq := r.counters.NextSeq
	r.counters.NextSeq++
	return seq
}

func requireCaller(op string, caller Identity) error {
	if caller == "" {
		return newError(KindUnauthorized, op, "Caller identity is required")
	}
	return nil
}

func requireOwner(op string, b Bike, caller Identity) error {
	if caller == "" || b.Owner != caller {
		return newError(KindUnauthorized, op, ReasonNotOwner)
	}
	return nil
}
