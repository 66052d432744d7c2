package registry

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// List registers a new bike owned by caller and returns its ID.
func (r *Registry) List(ctx context.Context, caller Identity, in ListInput) (id BikeID, err error) {
	const op = "list"
	defer func() { r.observe(op, err) }()

	if err := requireCaller(op, caller); err != nil {
		return 0, err
	}
	if err := r.validate.Struct(in); err != nil {
		return 0, newError(KindInvalidArgument, op, invalidReason(err))
	}

	now := r.clock.Now()

	r.mu.Lock()
	id = r.counters.NextBikeID
	r.counters.NextBikeID++
	seq := r.counters.NextSeq
	r.counters.NextSeq++
	r.mu.Unlock()

	b := &Bike{
		ID:        id,
		Owner:     caller,
		Price:     in.Price,
		Details:   in.Details,
		Metadata:  in.Metadata,
		Listing:   in.Listing.listing(),
		OwnerSeq:  seq,
		CreatedAt: now,
		UpdatedAt: now,
	}
	c := &change{
		op:      op,
		bike:    b,
		newBike: true,
		events:  []Event{{Type: EventListed, BikeID: id, Actor: caller, Amount: in.Price, At: now}},
	}
	if err := r.commit(ctx, c); err != nil {
		return 0, err
	}

	r.log.Infof("bike %d listed by %s for %d", id, caller, in.Price)
	return id, nil
}

func (r *Registry) UpdatePrice(ctx context.Context, caller Identity, id BikeID, price int64) error {
	const op = "update_price"
	if price < 0 {
		r.observe(op, ErrInvalidArgument)
		return newError(KindInvalidArgument, op, "Price must not be negative")
	}
	return r.mutate(ctx, op, id, func(b Bike, now time.Time) (*change, error) {
		if err := requireOwner(op, b, caller); err != nil {
			return nil, err
		}
		if b.RentedAt(now) {
			return nil, newError(KindInvalidState, op, ReasonRentalActive)
		}
		b.Price = price
		b.UpdatedAt = now
		return &change{
			bike:   &b,
			events: []Event{{Type: EventPriceUpdated, BikeID: id, Actor: caller, Amount: price, At: now}},
		}, nil
	})
}

// UpdateListing switches a bike between sale and rent terms.
func (r *Registry) UpdateListing(ctx context.Context, caller Identity, id BikeID, in ListingInput) error {
	const op = "update_listing"
	if err := r.validate.Struct(in); err != nil {
		r.observe(op, ErrInvalidArgument)
		return newError(KindInvalidArgument, op, invalidReason(err))
	}
	return r.mutate(ctx, op, id, func(b Bike, now time.Time) (*change, error) {
		if err := requireOwner(op, b, caller); err != nil {
			return nil, err
		}
		if b.RentedAt(now) {
			return nil, newError(KindInvalidState, op, ReasonRentalActive)
		}
		b.Listing = in.listing()
		b.UpdatedAt = now
		return &change{
			bike:   &b,
			events: []Event{{Type: EventListingUpdated, BikeID: id, Actor: caller, At: now}},
		}, nil
	})
}

func (r *Registry) MarkAsStolen(ctx context.Context, caller Identity, id BikeID) error {
	const op = "mark_stolen"
	return r.mutate(ctx, op, id, func(b Bike, now time.Time) (*change, error) {
		if err := requireOwner(op, b, caller); err != nil {
			return nil, err
		}
		b.Stolen = true
		b.UpdatedAt = now
		return &change{
			bike:   &b,
			events: []Event{{Type: EventStolen, BikeID: id, Actor: caller, At: now}},
		}, nil
	})
}

// UnflagAsStolen clears the stolen flag. Unlike MarkAsStolen it is not
// idempotent: the flag must currently be set.
func (r *Registry) UnflagAsStolen(ctx context.Context, caller Identity, id BikeID) error {
	const op = "unflag_stolen"
	return r.mutate(ctx, op, id, func(b Bike, now time.Time) (*change, error) {
		if err := requireOwner(op, b, caller); err != nil {
			return nil, err
		}
		if !b.Stolen {
			return nil, newError(KindInvalidState, op, ReasonNotStolen)
		}
		b.Stolen = false
		b.UpdatedAt = now
		return &change{
			bike:   &b,
			events: []Event{{Type: EventRecovered, BikeID: id, Actor: caller, At: now}},
		}, nil
	})
}

func (r *Registry) RegisterTracker(ctx context.Context, caller Identity, id BikeID, tracker Identity) error {
	const op = "register_tracker"
	return r.mutate(ctx, op, id, func(b Bike, now time.Time) (*change, error) {
		if err := requireOwner(op, b, caller); err != nil {
			return nil, err
		}
		if tracker == "" {
			return nil, newError(KindInvalidArgument, op, "Tracker is required")
		}
		b.Tracker = tracker
		b.UpdatedAt = now
		return &change{
			bike:   &b,
			events: []Event{{Type: EventTrackerRegistered, BikeID: id, Actor: caller, Counterparty: tracker, At: now}},
		}, nil
	})
}

// InsureBike marks a bike as insured. There is no way to clear it.
func (r *Registry) InsureBike(ctx context.Context, caller Identity, id BikeID) error {
	const op = "insure"
	return r.mutate(ctx, op, id, func(b Bike, now time.Time) (*change, error) {
		if err := requireOwner(op, b, caller); err != nil {
			return nil, err
		}
		b.Insured = true
		b.UpdatedAt = now
		return &change{
			bike:   &b,
			events: []Event{{Type: EventInsured, BikeID: id, Actor: caller, At: now}},
		}, nil
	})
}

func invalidReason(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		parts = append(parts, fmt.Sprintf("%s failed %s", fe.Namespace(), fe.Tag()))
	}
	return strings.Join(parts, "; ")
}
