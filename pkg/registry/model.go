package registry

import "time"

// Identity is an opaque caller identity, typically a wallet address.
type Identity string

type BikeID int64

type ListingMode string

const (
	ModeSale ListingMode = "sale"
	ModeRent ListingMode = "rent"
)

type Details struct {
	Brand string `json:"brand"`
	Title string `json:"title"`
	Size  string `json:"size"`
	Color string `json:"color"`
	Frame string `json:"frame"`
	Fork  string `json:"fork"`
	Shock string `json:"shock"`
}

type Metadata struct {
	Category string `json:"category"`
	Images   string `json:"images"`
	Address  string `json:"address"`
	Features string `json:"features"`
}

// RentalState exists only on bikes listed for rent.
type RentalState struct {
	DailyRate     int64      `json:"daily_rate"`
	MinRentalDays int64      `json:"min_rental_days"`
	Deposit       int64      `json:"deposit"`
	Renter        Identity   `json:"renter,omitempty"`
	EndTime       *time.Time `json:"end_time,omitempty"`
}

// ActiveAt reports whether a rental is running at now. A rental whose end time
// has passed is idle even though its fields are still set.
func (s *RentalState) ActiveAt(now time.Time) bool {
	if s == nil || s.Renter == "" || s.EndTime == nil {
		return false
	}
	return !now.After(*s.EndTime)
}

func (s *RentalState) clone() *RentalState {
	if s == nil {
		return nil
	}
	c := *s
	if s.EndTime != nil {
		t := *s.EndTime
		c.EndTime = &t
	}
	return &c
}

// Listing is a tagged variant: Rental is nil for ModeSale and set for ModeRent.
type Listing struct {
	Mode   ListingMode  `json:"mode"`
	Rental *RentalState `json:"rental,omitempty"`
}

func SaleListing() Listing {
	return Listing{Mode: ModeSale}
}

func RentListing(dailyRate, minRentalDays, deposit int64) Listing {
	return Listing{
		Mode: ModeRent,
		Rental: &RentalState{
			DailyRate:     dailyRate,
			MinRentalDays: minRentalDays,
			Deposit:       deposit,
		},
	}
}

func (l Listing) clone() Listing {
	return Listing{Mode: l.Mode, Rental: l.Rental.clone()}
}

type Bike struct {
	ID        BikeID    `json:"id"`
	Owner     Identity  `json:"owner"`
	Approved  Identity  `json:"approved,omitempty"`
	Price     int64     `json:"price"`
	Details   Details   `json:"details"`
	Metadata  Metadata  `json:"metadata"`
	Listing   Listing   `json:"listing"`
	Stolen    bool      `json:"is_stolen"`
	Insured   bool      `json:"is_insured"`
	Tracker   Identity  `json:"tracker,omitempty"`
	OwnerSeq  int64     `json:"-"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (b Bike) clone() Bike {
	b.Listing = b.Listing.clone()
	return b
}

// RentedAt reports whether the bike has a running rental at now.
func (b Bike) RentedAt(now time.Time) bool {
	return b.Listing.Mode == ModeRent && b.Listing.Rental.ActiveAt(now)
}

type Review struct {
	ID        int64     `json:"id"`
	BikeID    BikeID    `json:"bike_id"`
	Index     int       `json:"index"`
	Reviewer  Identity  `json:"reviewer"`
	Rating    int       `json:"rating"`
	Comment   string    `json:"comment"`
	Likes     int64     `json:"likes"`
	CreatedAt time.Time `json:"created_at"`
}

type TransactionType string

const (
	TxPurchase TransactionType = "purchase"
	TxRental   TransactionType = "rental"
	TxReturn   TransactionType = "return"
	TxTransfer TransactionType = "transfer"
)

type TransactionStatus string

const (
	TxCompleted TransactionStatus = "completed"
	TxPending   TransactionStatus = "pending"
	TxFailed    TransactionStatus = "failed"
)

type Transaction struct {
	ID           string            `json:"id"`
	BikeID       BikeID            `json:"bike_id"`
	Type         TransactionType   `json:"type"`
	Amount       int64             `json:"amount"`
	Buyer        Identity          `json:"buyer"`
	Seller       Identity          `json:"seller"`
	DurationDays int64             `json:"duration_days,omitempty"`
	Status       TransactionStatus `json:"status"`
	Timestamp    time.Time         `json:"timestamp"`
}

// Counters are the registry-wide sequences. They only ever grow.
type Counters struct {
	NextBikeID   BikeID `json:"next_bike_id"`
	NextReviewID int64  `json:"next_review_id"`
	NextSeq      int64  `json:"next_seq"`
}

func (c Counters) max(o Counters) Counters {
	if o.NextBikeID > c.NextBikeID {
		c.NextBikeID = o.NextBikeID
	}
	if o.NextReviewID > c.NextReviewID {
		c.NextReviewID = o.NextReviewID
	}
	if o.NextSeq > c.NextSeq {
		c.NextSeq = o.NextSeq
	}
	return c
}

type Stats struct {
	Counters
	TotalBikes        int `json:"total_bikes"`
	TotalReviews      int `json:"total_reviews"`
	TotalTransactions int `json:"total_transactions"`
}

type RentalStatus struct {
	BikeID    BikeID     `json:"bike_id"`
	Rented    bool       `json:"rented"`
	Renter    Identity   `json:"renter,omitempty"`
	EndTime   *time.Time `json:"end_time,omitempty"`
	DailyRate int64      `json:"daily_rate"`
}

// Snapshot is the full durable state of a registry.
type Snapshot struct {
	Bikes        []Bike        `json:"bikes"`
	Reviews      []Review      `json:"reviews"`
	Transactions []Transaction `json:"transactions"`
	Counters     Counters      `json:"counters"`
}

type ListingInput struct {
	Mode          ListingMode `json:"mode" validate:"omitempty,oneof=sale rent"`
	DailyRate     int64       `json:"daily_rate" validate:"gte=0"`
	MinRentalDays int64       `json:"min_rental_days" validate:"gte=0"`
	Deposit       int64       `json:"deposit" validate:"gte=0"`
}

func (in ListingInput) listing() Listing {
	if in.Mode == ModeRent {
		return RentListing(in.DailyRate, in.MinRentalDays, in.Deposit)
	}
	return SaleListing()
}

type ListInput struct {
	Price    int64        `json:"price" validate:"gte=0"`
	Details  Details      `json:"details"`
	Metadata Metadata     `json:"metadata"`
	Listing  ListingInput `json:"listing"`
}
