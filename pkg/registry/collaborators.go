package registry

import (
	"context"
	"errors"
	"time"
)

// ErrSettlement wraps any failure reported by the Settler.
var ErrSettlement = errors.New("settlement failed")

type Payment struct {
	BikeID    BikeID
	Payer     Identity
	Payee     Identity
	Amount    int64
	Reference string
}

// Settler moves value between identities for purchases and rentals.
type Settler interface {
	Settle(ctx context.Context, p Payment) error
}

// Reverser is implemented by settlers that can undo a payment when the
// registry fails to commit the state change it paid for.
type Reverser interface {
	Reverse(ctx context.Context, p Payment) error
}

// Change is one atomic state transition handed to the Store.
type Change struct {
	Op          string
	Bike        *Bike
	Review      *Review
	Transaction *Transaction
	Counters    Counters
}

// Store durably records committed changes.
type Store interface {
	Commit(ctx context.Context, c Change) error
}

type EventType string

const (
	EventListed            EventType = "listed"
	EventPriceUpdated      EventType = "price_updated"
	EventListingUpdated    EventType = "listing_updated"
	EventApproved          EventType = "approved"
	EventTransferred       EventType = "transferred"
	EventPurchased         EventType = "purchased"
	EventStolen            EventType = "stolen"
	EventRecovered         EventType = "recovered"
	EventTrackerRegistered EventType = "tracker_registered"
	EventInsured           EventType = "insured"
	EventRented            EventType = "rented"
	EventReturned          EventType = "returned"
	EventReviewed          EventType = "reviewed"
	EventReviewLiked       EventType = "review_liked"
)

type Event struct {
	Type         EventType `json:"type"`
	BikeID       BikeID    `json:"bike_id"`
	Actor        Identity  `json:"actor"`
	Counterparty Identity  `json:"counterparty,omitempty"`
	Amount       int64     `json:"amount,omitempty"`
	ReviewIndex  int       `json:"review_index,omitempty"`
	At           time.Time `json:"at"`
}

// EventSink receives events after their change has been committed.
// Publish must not block for long.
type EventSink interface {
	Publish(e Event)
}

// Logger matches the levelled methods of *logger.L.
type Logger interface {
	Debugf(format string, arguments ...interface{})
	Infof(format string, arguments ...interface{})
	Warnf(format string, arguments ...interface{})
	Errorf(format string, arguments ...interface{})
}

// Recorder observes the outcome of every registry operation.
type Recorder interface {
	ObserveOperation(op string, err error)
}

type Clock interface {
	Now() time.Time
}

type ClockFunc func() time.Time

func (f ClockFunc) Now() time.Time { return f() }

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }

type freeSettler struct{}

func (freeSettler) Settle(context.Context, Payment) error { return nil }

type discardStore struct{}

func (discardStore) Commit(context.Context, Change) error { return nil }

type nopLogger struct{}

func (nopLogger) Debugf(string, ...interface{}) {}
func (nopLogger) Infof(string, ...interface{})  {}
func (nopLogger) Warnf(string, ...interface{})  {}
func (nopLogger) Errorf(string, ...interface{}) {}

type nopRecorder struct{}

func (nopRecorder) ObserveOperation(string, error) {}
