package registry

import (
	"sort"
	"time"
)

// view returns a detached copy of b with an elapsed rental shown as idle.
func view(b *Bike, now time.Time) Bike {
	v := b.clone()
	if rs := v.Listing.Rental; rs != nil && !rs.ActiveAt(now) {
		rs.Renter = ""
		rs.EndTime = nil
	}
	return v
}

func (r *Registry) GetBike(id BikeID) (Bike, error) {
	now := r.clock.Now()

	r.mu.RLock()
	defer r.mu.RUnlock()

	b, ok := r.bikes[id]
	if !ok {
		return Bike{}, newError(KindNotFound, "get_bike", ReasonBikeNotFound)
	}
	return view(b, now), nil
}

func (r *Registry) OwnerOf(id BikeID) (Identity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	b, ok := r.bikes[id]
	if !ok {
		return "", newError(KindNotFound, "owner_of", ReasonBikeNotFound)
	}
	return b.Owner, nil
}

// AllBikes returns every bike in ID order.
func (r *Registry) AllBikes() []Bike {
	return r.collect(func() []BikeID { return r.order })
}

// UserBikes returns the bikes owner holds now, in the order they were acquired.
func (r *Registry) UserBikes(owner Identity) []Bike {
	return r.collect(func() []BikeID { return r.byOwner[owner] })
}

func (r *Registry) BikesByCategory(category string) []Bike {
	return r.collect(func() []BikeID { return r.byCategory[category] })
}

func (r *Registry) collect(ids func() []BikeID) []Bike {
	now := r.clock.Now()

	r.mu.RLock()
	defer r.mu.RUnlock()

	list := ids()
	out := make([]Bike, 0, len(list))
	for _, id := range list {
		out = append(out, view(r.bikes[id], now))
	}
	return out
}

// TransactionHistory returns every recorded transaction in commit order.
func (r *Registry) TransactionHistory() []Transaction {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Transaction, len(r.history))
	copy(out, r.history)
	return out
}

// UserTransactions returns the transactions where who is buyer or seller.
func (r *Registry) UserTransactions(who Identity) []Transaction {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := []Transaction{}
	for _, tx := range r.history {
		if tx.Buyer == who || tx.Seller == who {
			out = append(out, tx)
		}
	}
	return out
}

// Counters returns the next bike, review and ownership sequence numbers.
func (r *Registry) Counters() Counters {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.counters
}

func (r *Registry) Stats() Stats {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return Stats{
		Counters:          r.counters,
		TotalBikes:        len(r.bikes),
		TotalReviews:      r.numReviews,
		TotalTransactions: len(r.history),
	}
}

// Snapshot returns the raw committed state, including rental fields that
// have expired but were never cleared.
func (r *Registry) Snapshot() Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s := Snapshot{
		Bikes:        make([]Bike, 0, len(r.order)),
		Transactions: make([]Transaction, len(r.history)),
		Counters:     r.counters,
	}
	for _, id := range r.order {
		s.Bikes = append(s.Bikes, r.bikes[id].clone())
	}
	reviews := make([]Review, 0, r.numReviews)
	for _, list := range r.reviews {
		for _, rv := range list {
			reviews = append(reviews, *rv)
		}
	}
	// global review IDs are creation order
	sort.Slice(reviews, func(i, j int) bool { return reviews[i].ID < reviews[j].ID })
	s.Reviews = reviews
	copy(s.Transactions, r.history)
	return s
}
