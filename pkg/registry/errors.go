package registry

import "errors"

// Kind classifies a registry failure so callers can tell them apart.
type Kind int

const (
	KindNotFound Kind = iota + 1
	KindUnauthorized
	KindInvalidState
	KindConflict
	KindInvalidArgument
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindUnauthorized:
		return "unauthorized"
	case KindInvalidState:
		return "invalid_state"
	case KindConflict:
		return "conflict"
	case KindInvalidArgument:
		return "invalid_argument"
	default:
		return "unknown"
	}
}

// Reject reasons surfaced verbatim to callers.
const (
	ReasonNotOwner       = "Not the bike owner"
	ReasonNotStolen      = "Bike is not marked as stolen"
	ReasonBikeNotFound   = "Bike does not exist"
	ReasonReviewNotFound = "Review does not exist"
	ReasonNotApproved    = "Not the bike owner or approved"
	ReasonFromNotOwner   = "From address is not the bike owner"
	ReasonNotForRent     = "Bike is not listed for rent"
	ReasonNotForSale     = "Bike is not listed for sale"
	ReasonAlreadyRented  = "Bike is already rented"
	ReasonNotRented      = "Bike is not currently rented"
	ReasonRentalActive   = "Bike has an active rental"
	ReasonNotRenter      = "Not the renter or bike owner"
	ReasonOwnerIsBuyer   = "Owner cannot buy or rent their own bike"
	ReasonStolen         = "Bike is marked as stolen"
	ReasonInvalidBikeID  = "Bike id must be positive"
)

// Error is the failure type returned by every registry operation.
type Error struct {
	Kind   Kind
	Op     string
	Reason string
}

func (e *Error) Error() string {
	return e.Reason
}

// Is matches another *Error by kind, so errors.Is(err, ErrNotFound) works for any reason.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

var (
	ErrNotFound        = &Error{Kind: KindNotFound, Reason: "not found"}
	ErrUnauthorized    = &Error{Kind: KindUnauthorized, Reason: "unauthorized"}
	ErrInvalidState    = &Error{Kind: KindInvalidState, Reason: "invalid state"}
	ErrConflict        = &Error{Kind: KindConflict, Reason: "conflict"}
	ErrInvalidArgument = &Error{Kind: KindInvalidArgument, Reason: "invalid argument"}
)

func newError(kind Kind, op, reason string) *Error {
	return &Error{Kind: kind, Op: op, Reason: reason}
}

// KindOf returns the kind of a registry error, or 0 for anything else.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

func IsNotFound(err error) bool        { return KindOf(err) == KindNotFound }
func IsUnauthorized(err error) bool    { return KindOf(err) == KindUnauthorized }
func IsInvalidState(err error) bool    { return KindOf(err) == KindInvalidState }
func IsConflict(err error) bool        { return KindOf(err) == KindConflict }
func IsInvalidArgument(err error) bool { return KindOf(err) == KindInvalidArgument }
