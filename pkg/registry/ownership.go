package registry

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Approve lets spender move the bike once. An empty spender clears the approval.
func (r *Registry) Approve(ctx context.Context, caller Identity, id BikeID, spender Identity) error {
	const op = "approve"
	return r.mutate(ctx, op, id, func(b Bike, now time.Time) (*change, error) {
		if err := requireOwner(op, b, caller); err != nil {
			return nil, err
		}
		if spender == b.Owner {
			return nil, newError(KindInvalidArgument, op, "Cannot approve the current owner")
		}
		b.Approved = spender
		b.UpdatedAt = now
		return &change{
			bike:   &b,
			events: []Event{{Type: EventApproved, BikeID: id, Actor: caller, Counterparty: spender, At: now}},
		}, nil
	})
}

// Transfer moves a bike from its owner (the caller) to another identity.
func (r *Registry) Transfer(ctx context.Context, caller Identity, id BikeID, to Identity) error {
	return r.transfer(ctx, "transfer", caller, id, caller, to)
}

// TransferFrom moves a bike on behalf of its owner. The caller must be the
// owner or the approved identity, and from must be the recorded owner.
func (r *Registry) TransferFrom(ctx context.Context, caller Identity, id BikeID, from, to Identity) error {
	return r.transfer(ctx, "transfer_from", caller, id, from, to)
}

func (r *Registry) transfer(ctx context.Context, op string, caller Identity, id BikeID, from, to Identity) error {
	return r.mutate(ctx, op, id, func(b Bike, now time.Time) (*change, error) {
		if caller == "" || (caller != b.Owner && caller != b.Approved) {
			return nil, newError(KindUnauthorized, op, ReasonNotApproved)
		}
		if from != b.Owner {
			return nil, newError(KindUnauthorized, op, ReasonFromNotOwner)
		}
		if to == "" {
			return nil, newError(KindInvalidArgument, op, "Recipient is required")
		}
		if b.RentedAt(now) {
			return nil, newError(KindInvalidState, op, ReasonRentalActive)
		}

		seller := b.Owner
		r.handOver(&b, to, now)
		tx := newTransaction(b.ID, TxTransfer, 0, to, seller, 0, now)
		return &change{
			bike: &b,
			tx:   tx,
			events: []Event{{
				Type: EventTransferred, BikeID: id, Actor: caller, Counterparty: to, At: now,
			}},
		}, nil
	})
}

// Buy purchases a bike listed for sale at its current price.
func (r *Registry) Buy(ctx context.Context, caller Identity, id BikeID) error {
	const op = "buy"
	if err := requireCaller(op, caller); err != nil {
		r.observe(op, err)
		return err
	}
	return r.mutate(ctx, op, id, func(b Bike, now time.Time) (*change, error) {
		if b.Listing.Mode != ModeSale {
			return nil, newError(KindInvalidState, op, ReasonNotForSale)
		}
		if b.Stolen {
			return nil, newError(KindInvalidState, op, ReasonStolen)
		}
		if caller == b.Owner {
			return nil, newError(KindInvalidArgument, op, ReasonOwnerIsBuyer)
		}

		seller := b.Owner
		price := b.Price
		r.handOver(&b, caller, now)
		tx := newTransaction(b.ID, TxPurchase, price, caller, seller, 0, now)
		return &change{
			bike: &b,
			tx:   tx,
			payment: &Payment{
				BikeID:    b.ID,
				Payer:     caller,
				Payee:     seller,
				Amount:    price,
				Reference: tx.ID,
			},
			events: []Event{{
				Type: EventPurchased, BikeID: id, Actor: caller, Counterparty: seller, Amount: price, At: now,
			}},
		}, nil
	})
}

// handOver is the single ownership change shared by every transfer path.
func (r *Registry) handOver(b *Bike, to Identity, now time.Time) {
	b.Owner = to
	b.Approved = ""
	b.OwnerSeq = r.nextSeq()
	b.UpdatedAt = now
}

func newTransaction(id BikeID, typ TransactionType, amount int64, buyer, seller Identity, days int64, now time.Time) *Transaction {
	return &Transaction{
		ID:           uuid.NewString(),
		BikeID:       id,
		Type:         typ,
		Amount:       amount,
		Buyer:        buyer,
		Seller:       seller,
		DurationDays: days,
		Status:       TxCompleted,
		Timestamp:    now,
	}
}
