package registry

import (
	"context"
	"math"
	"time"
)

// RentBike starts a rental of days days for caller and charges dailyRate*days
// to the owner's benefit.
func (r *Registry) RentBike(ctx context.Context, caller Identity, id BikeID, days int64) error {
	const op = "rent"
	if err := requireCaller(op, caller); err != nil {
		r.observe(op, err)
		return err
	}
	if days <= 0 || days > int64(math.MaxInt64/r.dayLength) {
		r.observe(op, ErrInvalidArgument)
		return newError(KindInvalidArgument, op, "Rental duration is out of range")
	}

	return r.mutate(ctx, op, id, func(b Bike, now time.Time) (*change, error) {
		if b.Listing.Mode != ModeRent {
			return nil, newError(KindInvalidState, op, ReasonNotForRent)
		}
		if b.RentedAt(now) {
			return nil, newError(KindConflict, op, ReasonAlreadyRented)
		}
		if b.Stolen {
			return nil, newError(KindInvalidState, op, ReasonStolen)
		}
		if caller == b.Owner {
			return nil, newError(KindInvalidArgument, op, ReasonOwnerIsBuyer)
		}

		rs := b.Listing.Rental
		if days < rs.MinRentalDays {
			return nil, newError(KindInvalidArgument, op, "Rental is shorter than the minimum period")
		}
		if rs.DailyRate > 0 && days > math.MaxInt64/rs.DailyRate {
			return nil, newError(KindInvalidArgument, op, "Rental total overflows")
		}
		total := rs.DailyRate * days

		end := now.Add(time.Duration(days) * r.dayLength)
		rs.Renter = caller
		rs.EndTime = &end
		b.UpdatedAt = now

		tx := newTransaction(b.ID, TxRental, total, caller, b.Owner, days, now)
		return &change{
			bike: &b,
			tx:   tx,
			payment: &Payment{
				BikeID:    b.ID,
				Payer:     caller,
				Payee:     b.Owner,
				Amount:    total,
				Reference: tx.ID,
			},
			events: []Event{{
				Type: EventRented, BikeID: id, Actor: caller, Counterparty: b.Owner, Amount: total, At: now,
			}},
		}, nil
	})
}

// ReturnBike ends the running rental. Either the renter or the owner may call it.
func (r *Registry) ReturnBike(ctx context.Context, caller Identity, id BikeID) error {
	const op = "return"
	return r.mutate(ctx, op, id, func(b Bike, now time.Time) (*change, error) {
		if !b.RentedAt(now) {
			return nil, newError(KindInvalidState, op, ReasonNotRented)
		}
		rs := b.Listing.Rental
		if caller == "" || (caller != rs.Renter && caller != b.Owner) {
			return nil, newError(KindUnauthorized, op, ReasonNotRenter)
		}

		renter := rs.Renter
		rs.Renter = ""
		rs.EndTime = nil
		b.UpdatedAt = now

		tx := newTransaction(b.ID, TxReturn, 0, renter, b.Owner, 0, now)
		return &change{
			bike: &b,
			tx:   tx,
			events: []Event{{
				Type: EventReturned, BikeID: id, Actor: caller, Counterparty: renter, At: now,
			}},
		}, nil
	})
}

// RentalStatus reports the rental state of a bike as of now.
func (r *Registry) RentalStatus(id BikeID) (RentalStatus, error) {
	b, err := r.GetBike(id)
	if err != nil {
		return RentalStatus{}, err
	}
	st := RentalStatus{BikeID: id}
	if rs := b.Listing.Rental; rs != nil {
		st.DailyRate = rs.DailyRate
		st.Rented = rs.Renter != ""
		st.Renter = rs.Renter
		st.EndTime = rs.EndTime
	}
	return st, nil
}
