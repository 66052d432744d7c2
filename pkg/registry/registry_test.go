package registry

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const (
	alice Identity = "0xA11CE"
	bob   Identity = "0xB0B"
	carol Identity = "0xCA401"
)

const oneEther = int64(1_000_000_000_000_000_000)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type mockSettler struct {
	mock.Mock
}

func (m *mockSettler) Settle(ctx context.Context, p Payment) error {
	args := m.Called(ctx, p)
	return args.Error(0)
}

func (m *mockSettler) Reverse(ctx context.Context, p Payment) error {
	args := m.Called(ctx, p)
	return args.Error(0)
}

type mockStore struct {
	mock.Mock
}

func (m *mockStore) Commit(ctx context.Context, c Change) error {
	args := m.Called(ctx, c)
	return args.Error(0)
}

type recordingSink struct {
	mu     sync.Mutex
	events []Event
}

func (s *recordingSink) Publish(e Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
}

func (s *recordingSink) types() []EventType {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]EventType, len(s.events))
	for i, e := range s.events {
		out[i] = e.Type
	}
	return out
}

func sampleInput(price int64) ListInput {
	return ListInput{
		Price: price,
		Details: Details{
			Brand: "Trek",
			Title: "Mountain Explorer",
			Size:  "Large",
			Color: "Blue",
			Frame: "Carbon",
			Fork:  "RockShox",
			Shock: "Fox",
		},
		Metadata: Metadata{
			Category: "Mountain",
			Images:   "ipfs://QmTest",
			Address:  "123 Bike Street",
			Features: "Disc brakes",
		},
	}
}

func rentalInput(price, dailyRate, minDays int64) ListInput {
	in := sampleInput(price)
	in.Listing = ListingInput{Mode: ModeRent, DailyRate: dailyRate, MinRentalDays: minDays, Deposit: 50}
	return in
}

func listBike(t *testing.T, r *Registry, owner Identity, in ListInput) BikeID {
	t.Helper()
	id, err := r.List(context.Background(), owner, in)
	require.NoError(t, err)
	return id
}

func TestRegistry_ListAndGet(t *testing.T) {
	r := New()

	id := listBike(t, r, alice, sampleInput(oneEther))
	require.Equal(t, BikeID(1), id)

	bike, err := r.GetBike(id)
	require.NoError(t, err)
	require.Equal(t, alice, bike.Owner)
	require.Equal(t, oneEther, bike.Price)
	require.Equal(t, "Trek", bike.Details.Brand)
	require.Equal(t, "Mountain", bike.Metadata.Category)
	require.Equal(t, ModeSale, bike.Listing.Mode)
	require.Nil(t, bike.Listing.Rental)
	require.False(t, bike.Stolen)
	require.False(t, bike.Insured)
	require.Empty(t, bike.Tracker)

	owner, err := r.OwnerOf(id)
	require.NoError(t, err)
	require.Equal(t, alice, owner)
}

func TestRegistry_ListAssignsIncreasingIDs(t *testing.T) {
	r := New()

	first := listBike(t, r, alice, sampleInput(1))
	second := listBike(t, r, bob, sampleInput(2))

	require.Equal(t, BikeID(1), first)
	require.Equal(t, BikeID(2), second)
	require.Equal(t, BikeID(3), r.Stats().NextBikeID)
}

func TestRegistry_ListRejectsNegativePrice(t *testing.T) {
	r := New()

	_, err := r.List(context.Background(), alice, sampleInput(-1))

	require.ErrorIs(t, err, ErrInvalidArgument)
	require.Empty(t, r.AllBikes())
}

func TestRegistry_ListRejectsNegativeRentalTerms(t *testing.T) {
	r := New()

	_, err := r.List(context.Background(), alice, rentalInput(1, -5, 1))

	require.ErrorIs(t, err, ErrInvalidArgument)
}

func TestRegistry_ListRequiresCaller(t *testing.T) {
	r := New()

	_, err := r.List(context.Background(), "", sampleInput(1))

	require.ErrorIs(t, err, ErrUnauthorized)
}

func TestRegistry_UnknownBike(t *testing.T) {
	r := New()
	ctx := context.Background()

	_, err := r.GetBike(42)
	require.ErrorIs(t, err, ErrNotFound)

	_, err = r.OwnerOf(42)
	require.ErrorIs(t, err, ErrNotFound)

	require.ErrorIs(t, r.UpdatePrice(ctx, alice, 42, 1), ErrNotFound)
	require.ErrorIs(t, r.MarkAsStolen(ctx, alice, 42), ErrNotFound)
	require.ErrorIs(t, r.Transfer(ctx, alice, 42, bob), ErrNotFound)
}

// list at 1.0, read it back
func TestRegistry_ScenarioA(t *testing.T) {
	r := New()

	id := listBike(t, r, alice, sampleInput(oneEther))

	bike, err := r.GetBike(id)
	require.NoError(t, err)
	require.Equal(t, alice, bike.Owner)
	require.Equal(t, oneEther, bike.Price)

	owner, err := r.OwnerOf(id)
	require.NoError(t, err)
	require.Equal(t, alice, owner)
}

// approve, transferFrom, old owner loses rights
func TestRegistry_ScenarioB(t *testing.T) {
	r := New()
	ctx := context.Background()
	id := listBike(t, r, alice, sampleInput(oneEther))

	require.NoError(t, r.Approve(ctx, alice, id, bob))
	require.NoError(t, r.TransferFrom(ctx, bob, id, alice, bob))

	owner, err := r.OwnerOf(id)
	require.NoError(t, err)
	require.Equal(t, bob, owner)

	err = r.UpdatePrice(ctx, alice, id, 2*oneEther)
	require.ErrorIs(t, err, ErrUnauthorized)
	require.EqualError(t, err, ReasonNotOwner)

	require.NoError(t, r.UpdatePrice(ctx, bob, id, 2*oneEther))
}

// stolen flag round trip with the exact reject reasons
func TestRegistry_ScenarioC(t *testing.T) {
	r := New()
	ctx := context.Background()
	id := listBike(t, r, alice, sampleInput(oneEther))

	require.NoError(t, r.MarkAsStolen(ctx, alice, id))
	bike, err := r.GetBike(id)
	require.NoError(t, err)
	require.True(t, bike.Stolen)

	err = r.UnflagAsStolen(ctx, bob, id)
	require.ErrorIs(t, err, ErrUnauthorized)
	require.EqualError(t, err, "Not the bike owner")

	require.NoError(t, r.UnflagAsStolen(ctx, alice, id))
	bike, err = r.GetBike(id)
	require.NoError(t, err)
	require.False(t, bike.Stolen)

	err = r.UnflagAsStolen(ctx, alice, id)
	require.ErrorIs(t, err, ErrInvalidState)
	require.EqualError(t, err, "Bike is not marked as stolen")
}

// review then like
func TestRegistry_ScenarioD(t *testing.T) {
	r := New()
	ctx := context.Background()
	id := listBike(t, r, alice, sampleInput(oneEther))

	idx, err := r.AddReview(ctx, carol, id, 4, "Great bike!")
	require.NoError(t, err)
	require.Equal(t, 0, idx)

	reviews, err := r.AssetReviews(id)
	require.NoError(t, err)
	require.Len(t, reviews, 1)
	require.Equal(t, carol, reviews[0].Reviewer)
	require.Equal(t, 4, reviews[0].Rating)
	require.Equal(t, "Great bike!", reviews[0].Comment)
	require.Equal(t, int64(0), reviews[0].Likes)

	require.NoError(t, r.LikeReview(ctx, bob, id, 0))

	reviews, err = r.AssetReviews(id)
	require.NoError(t, err)
	require.Equal(t, int64(1), reviews[0].Likes)
}

func TestRegistry_MarkAsStolenRequiresOwner(t *testing.T) {
	r := New()
	id := listBike(t, r, alice, sampleInput(1))

	err := r.MarkAsStolen(context.Background(), bob, id)

	require.ErrorIs(t, err, ErrUnauthorized)
	require.EqualError(t, err, ReasonNotOwner)
}

func TestRegistry_UnflagNonOwnerBeforeState(t *testing.T) {
	r := New()
	id := listBike(t, r, alice, sampleInput(1))

	// flag is false, but the caller check wins
	err := r.UnflagAsStolen(context.Background(), bob, id)

	require.ErrorIs(t, err, ErrUnauthorized)
}

func TestRegistry_RegisterTracker(t *testing.T) {
	r := New()
	ctx := context.Background()
	id := listBike(t, r, alice, sampleInput(1))
	other := listBike(t, r, alice, sampleInput(1))

	require.NoError(t, r.RegisterTracker(ctx, alice, id, "0x7AC"))
	require.NoError(t, r.RegisterTracker(ctx, alice, id, "0x7AD"))
	// same tracker on another bike is allowed
	require.NoError(t, r.RegisterTracker(ctx, alice, other, "0x7AD"))

	bike, err := r.GetBike(id)
	require.NoError(t, err)
	require.Equal(t, Identity("0x7AD"), bike.Tracker)

	require.ErrorIs(t, r.RegisterTracker(ctx, bob, id, "0x7AE"), ErrUnauthorized)
	require.ErrorIs(t, r.RegisterTracker(ctx, alice, id, ""), ErrInvalidArgument)
}

func TestRegistry_InsureBike(t *testing.T) {
	r := New()
	ctx := context.Background()
	id := listBike(t, r, alice, sampleInput(1))

	require.ErrorIs(t, r.InsureBike(ctx, bob, id), ErrUnauthorized)
	require.NoError(t, r.InsureBike(ctx, alice, id))
	require.NoError(t, r.InsureBike(ctx, alice, id))

	bike, err := r.GetBike(id)
	require.NoError(t, err)
	require.True(t, bike.Insured)
}

func TestRegistry_UpdatePrice(t *testing.T) {
	r := New()
	ctx := context.Background()
	id := listBike(t, r, alice, sampleInput(1))

	require.ErrorIs(t, r.UpdatePrice(ctx, alice, id, -3), ErrInvalidArgument)
	require.ErrorIs(t, r.UpdatePrice(ctx, bob, id, 3), ErrUnauthorized)
	require.NoError(t, r.UpdatePrice(ctx, alice, id, 3))

	bike, err := r.GetBike(id)
	require.NoError(t, err)
	require.Equal(t, int64(3), bike.Price)
}

func TestRegistry_DirectTransfer(t *testing.T) {
	r := New()
	ctx := context.Background()
	id := listBike(t, r, alice, sampleInput(1))

	require.ErrorIs(t, r.Transfer(ctx, bob, id, bob), ErrUnauthorized)
	require.NoError(t, r.Transfer(ctx, alice, id, bob))

	owner, err := r.OwnerOf(id)
	require.NoError(t, err)
	require.Equal(t, bob, owner)
	require.Empty(t, r.UserBikes(alice))
	require.Len(t, r.UserBikes(bob), 1)

	history := r.TransactionHistory()
	require.Len(t, history, 1)
	require.Equal(t, TxTransfer, history[0].Type)
	require.Equal(t, alice, history[0].Seller)
	require.Equal(t, bob, history[0].Buyer)
}

func TestRegistry_TransferFromChecksFrom(t *testing.T) {
	r := New()
	ctx := context.Background()
	id := listBike(t, r, alice, sampleInput(1))
	require.NoError(t, r.Approve(ctx, alice, id, bob))

	err := r.TransferFrom(ctx, bob, id, carol, bob)

	require.ErrorIs(t, err, ErrUnauthorized)
	require.EqualError(t, err, ReasonFromNotOwner)
}

func TestRegistry_TransferFromWithoutApproval(t *testing.T) {
	r := New()
	id := listBike(t, r, alice, sampleInput(1))

	err := r.TransferFrom(context.Background(), bob, id, alice, bob)

	require.ErrorIs(t, err, ErrUnauthorized)
}

func TestRegistry_ApprovalClearsOnTransfer(t *testing.T) {
	r := New()
	ctx := context.Background()
	id := listBike(t, r, alice, sampleInput(1))

	require.NoError(t, r.Approve(ctx, alice, id, bob))
	require.NoError(t, r.Transfer(ctx, alice, id, carol))

	bike, err := r.GetBike(id)
	require.NoError(t, err)
	require.Empty(t, bike.Approved)

	// bob's old approval is gone
	require.ErrorIs(t, r.TransferFrom(ctx, bob, id, carol, bob), ErrUnauthorized)
}

func TestRegistry_ApproveOverwrites(t *testing.T) {
	r := New()
	ctx := context.Background()
	id := listBike(t, r, alice, sampleInput(1))

	require.NoError(t, r.Approve(ctx, alice, id, bob))
	require.NoError(t, r.Approve(ctx, alice, id, carol))

	require.ErrorIs(t, r.TransferFrom(ctx, bob, id, alice, bob), ErrUnauthorized)
	require.NoError(t, r.TransferFrom(ctx, carol, id, alice, carol))
	require.ErrorIs(t, r.Approve(ctx, carol, id, carol), ErrInvalidArgument)
	require.ErrorIs(t, r.Approve(ctx, bob, id, bob), ErrUnauthorized)
}

func TestRegistry_BuySettlesThenTransfers(t *testing.T) {
	settler := new(mockSettler)
	r := New(WithSettler(settler))
	ctx := context.Background()
	id := listBike(t, r, alice, sampleInput(100))

	settler.On("Settle", mock.Anything, mock.MatchedBy(func(p Payment) bool {
		return p.Payer == bob && p.Payee == alice && p.Amount == 100 && p.BikeID == id
	})).Return(nil).Once()

	require.NoError(t, r.Buy(ctx, bob, id))

	owner, err := r.OwnerOf(id)
	require.NoError(t, err)
	require.Equal(t, bob, owner)

	history := r.TransactionHistory()
	require.Len(t, history, 1)
	require.Equal(t, TxPurchase, history[0].Type)
	require.Equal(t, int64(100), history[0].Amount)
	require.Equal(t, TxCompleted, history[0].Status)
	settler.AssertExpectations(t)
}

func TestRegistry_BuySettlementFailureLeavesNoTrace(t *testing.T) {
	settler := new(mockSettler)
	sink := &recordingSink{}
	r := New(WithSettler(settler), WithEventSink(sink))
	ctx := context.Background()
	id := listBike(t, r, alice, sampleInput(100))
	require.NoError(t, r.Approve(ctx, alice, id, carol))

	settler.On("Settle", mock.Anything, mock.Anything).Return(errors.New("insufficient funds")).Once()

	err := r.Buy(ctx, bob, id)

	require.ErrorIs(t, err, ErrSettlement)
	bike, gerr := r.GetBike(id)
	require.NoError(t, gerr)
	require.Equal(t, alice, bike.Owner)
	require.Equal(t, carol, bike.Approved)
	require.Empty(t, r.TransactionHistory())
	require.Empty(t, r.UserBikes(bob))
	require.Equal(t, []EventType{EventListed, EventApproved}, sink.types())
	settler.AssertExpectations(t)
}

func TestRegistry_StoreFailureReversesPayment(t *testing.T) {
	settler := new(mockSettler)
	store := new(mockStore)
	r := New(WithSettler(settler), WithStore(store))
	ctx := context.Background()

	store.On("Commit", mock.Anything, mock.MatchedBy(func(c Change) bool { return c.Op == "list" })).Return(nil).Once()
	id := listBike(t, r, alice, sampleInput(100))

	settler.On("Settle", mock.Anything, mock.Anything).Return(nil).Once()
	settler.On("Reverse", mock.Anything, mock.MatchedBy(func(p Payment) bool { return p.Amount == 100 })).Return(nil).Once()
	store.On("Commit", mock.Anything, mock.MatchedBy(func(c Change) bool { return c.Op == "buy" })).Return(errors.New("db down")).Once()

	err := r.Buy(ctx, bob, id)

	require.Error(t, err)
	owner, oerr := r.OwnerOf(id)
	require.NoError(t, oerr)
	require.Equal(t, alice, owner)
	require.Empty(t, r.TransactionHistory())
	settler.AssertExpectations(t)
	store.AssertExpectations(t)
}

func TestRegistry_StoreReceivesChange(t *testing.T) {
	store := new(mockStore)
	r := New(WithStore(store))

	store.On("Commit", mock.Anything, mock.MatchedBy(func(c Change) bool {
		return c.Op == "list" && c.Bike != nil && c.Bike.ID == 1 && c.Bike.Owner == alice && c.Counters.NextBikeID == 2
	})).Return(nil).Once()

	listBike(t, r, alice, sampleInput(5))

	store.AssertExpectations(t)
}

func TestRegistry_BuyRules(t *testing.T) {
	r := New()
	ctx := context.Background()
	sale := listBike(t, r, alice, sampleInput(1))
	rent := listBike(t, r, alice, rentalInput(1, 10, 1))

	require.ErrorIs(t, r.Buy(ctx, alice, sale), ErrInvalidArgument)
	require.ErrorIs(t, r.Buy(ctx, bob, rent), ErrInvalidState)
	require.ErrorIs(t, r.Buy(ctx, "", sale), ErrUnauthorized)

	require.NoError(t, r.MarkAsStolen(ctx, alice, sale))
	require.ErrorIs(t, r.Buy(ctx, bob, sale), ErrInvalidState)
}

func TestRegistry_IndicesFollowOwnership(t *testing.T) {
	r := New()
	ctx := context.Background()
	mountain := listBike(t, r, alice, sampleInput(1))
	road := sampleInput(2)
	road.Metadata.Category = "Road"
	roadID := listBike(t, r, alice, road)
	bobs := listBike(t, r, bob, sampleInput(3))

	require.NoError(t, r.Transfer(ctx, alice, mountain, bob))

	ids := func(bikes []Bike) []BikeID {
		out := make([]BikeID, len(bikes))
		for i, b := range bikes {
			out[i] = b.ID
		}
		return out
	}

	require.Equal(t, []BikeID{roadID}, ids(r.UserBikes(alice)))
	require.Equal(t, []BikeID{bobs, mountain}, ids(r.UserBikes(bob)))
	require.Equal(t, []BikeID{mountain, bobs}, ids(r.BikesByCategory("Mountain")))
	require.Equal(t, []BikeID{roadID}, ids(r.BikesByCategory("Road")))
	require.Equal(t, []BikeID{mountain, roadID, bobs}, ids(r.AllBikes()))
	require.Empty(t, r.BikesByCategory("BMX"))
}

func TestRegistry_UserTransactions(t *testing.T) {
	r := New()
	ctx := context.Background()
	id := listBike(t, r, alice, sampleInput(1))
	other := listBike(t, r, carol, sampleInput(1))

	require.NoError(t, r.Transfer(ctx, alice, id, bob))
	require.NoError(t, r.Transfer(ctx, carol, other, carol))

	require.Len(t, r.UserTransactions(alice), 1)
	require.Len(t, r.UserTransactions(bob), 1)
	require.Len(t, r.UserTransactions(carol), 1)
	require.Len(t, r.TransactionHistory(), 2)

	none := r.UserTransactions("0xD00D")
	require.NotNil(t, none)
	require.Empty(t, none)
}

func TestRegistry_Counters(t *testing.T) {
	r := New()
	ctx := context.Background()
	require.Equal(t, Counters{NextBikeID: 1, NextReviewID: 1, NextSeq: 1}, r.Counters())

	id := listBike(t, r, alice, sampleInput(1))
	_, err := r.AddReview(ctx, bob, id, 5, "")
	require.NoError(t, err)
	require.NoError(t, r.Transfer(ctx, alice, id, bob))

	c := r.Counters()
	require.Equal(t, BikeID(2), c.NextBikeID)
	require.Equal(t, int64(2), c.NextReviewID)
	require.Equal(t, r.Stats().Counters, c)
}

func TestRegistry_EventsPublishedAfterCommit(t *testing.T) {
	sink := &recordingSink{}
	r := New(WithEventSink(sink))
	ctx := context.Background()
	id := listBike(t, r, alice, sampleInput(1))

	require.NoError(t, r.MarkAsStolen(ctx, alice, id))
	require.Error(t, r.MarkAsStolen(ctx, bob, id))
	require.NoError(t, r.UnflagAsStolen(ctx, alice, id))

	require.Equal(t, []EventType{EventListed, EventStolen, EventRecovered}, sink.types())
}

func TestRegistry_ReturnedBikesAreCopies(t *testing.T) {
	r := New(WithClock(newFakeClock()))
	id := listBike(t, r, alice, rentalInput(1, 10, 1))

	bike, err := r.GetBike(id)
	require.NoError(t, err)
	bike.Owner = bob
	bike.Listing.Rental.DailyRate = 0

	again, err := r.GetBike(id)
	require.NoError(t, err)
	require.Equal(t, alice, again.Owner)
	require.Equal(t, int64(10), again.Listing.Rental.DailyRate)
}

func TestRegistry_ConcurrentTransfersKeepOneOwner(t *testing.T) {
	r := New()
	ctx := context.Background()
	id := listBike(t, r, alice, sampleInput(1))
	require.NoError(t, r.Approve(ctx, alice, id, bob))

	var wg sync.WaitGroup
	results := make(chan error, 2)
	for _, caller := range []Identity{alice, bob} {
		wg.Add(1)
		go func(caller Identity) {
			defer wg.Done()
			results <- r.TransferFrom(ctx, caller, id, alice, caller+"-dest")
		}(caller)
	}
	wg.Wait()
	close(results)

	succeeded := 0
	for err := range results {
		if err == nil {
			succeeded++
		} else {
			require.ErrorIs(t, err, ErrUnauthorized)
		}
	}
	require.Equal(t, 1, succeeded)

	owner, err := r.OwnerOf(id)
	require.NoError(t, err)
	require.Len(t, r.UserBikes(owner), 1)
	require.Empty(t, r.UserBikes(alice))
}

func TestRegistry_ConcurrentListsAllocateDistinctIDs(t *testing.T) {
	r := New()
	ctx := context.Background()

	const n = 50
	var wg sync.WaitGroup
	ids := make(chan BikeID, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id, err := r.List(ctx, alice, sampleInput(1))
			if err == nil {
				ids <- id
			}
		}()
	}
	wg.Wait()
	close(ids)

	seen := make(map[BikeID]bool)
	for id := range ids {
		require.False(t, seen[id])
		seen[id] = true
	}
	require.Len(t, seen, n)
	require.Len(t, r.AllBikes(), n)
	require.Len(t, r.UserBikes(alice), n)
}

func TestRegistry_SnapshotRestoreRoundTrip(t *testing.T) {
	clock := newFakeClock()
	r := New(WithClock(clock))
	ctx := context.Background()

	a := listBike(t, r, alice, sampleInput(1))
	b := listBike(t, r, bob, rentalInput(5, 10, 1))
	c := listBike(t, r, alice, sampleInput(7))
	require.NoError(t, r.Transfer(ctx, alice, a, bob))
	require.NoError(t, r.Approve(ctx, alice, c, carol))
	require.NoError(t, r.MarkAsStolen(ctx, alice, c))
	require.NoError(t, r.RentBike(ctx, carol, b, 2))
	_, err := r.AddReview(ctx, carol, b, 5, "smooth")
	require.NoError(t, err)
	_, err = r.AddReview(ctx, carol, a, 3, "ok")
	require.NoError(t, err)
	require.NoError(t, r.LikeReview(ctx, bob, b, 0))

	snap := r.Snapshot()
	restored, err := Restore(snap, WithClock(clock))
	require.NoError(t, err)

	require.Equal(t, snap, restored.Snapshot())
	require.Equal(t, r.AllBikes(), restored.AllBikes())
	require.Equal(t, r.UserBikes(bob), restored.UserBikes(bob))
	require.Equal(t, r.UserReviews(carol), restored.UserReviews(carol))
	require.Equal(t, r.Stats(), restored.Stats())

	// counters continue where they left off
	next := listBike(t, restored, alice, sampleInput(1))
	require.Equal(t, BikeID(4), next)
}

func TestRestore_RejectsBrokenSnapshot(t *testing.T) {
	_, err := Restore(Snapshot{Bikes: []Bike{{ID: 1}}})
	require.Error(t, err)

	_, err = Restore(Snapshot{
		Bikes:   []Bike{{ID: 1, Owner: alice}},
		Reviews: []Review{{ID: 1, BikeID: 2, Index: 1}},
	})
	require.Error(t, err)

	_, err = Restore(Snapshot{Reviews: []Review{{ID: 1, BikeID: 0}}})
	require.Error(t, err)
}

func TestRestore_ReviewsOnUnlistedIDs(t *testing.T) {
	r := New()
	ctx := context.Background()
	_, err := r.AddReview(ctx, bob, 9, 3, "not listed yet")
	require.NoError(t, err)
	id := listBike(t, r, alice, sampleInput(1))
	_, err = r.AddReview(ctx, carol, id, 5, "")
	require.NoError(t, err)

	restored, err := Restore(r.Snapshot())
	require.NoError(t, err)

	require.Equal(t, r.Snapshot(), restored.Snapshot())
	reviews, err := restored.AssetReviews(9)
	require.NoError(t, err)
	require.Len(t, reviews, 1)
	require.Equal(t, []BikeID{9}, restored.UserReviews(bob))
}

func TestKindOf(t *testing.T) {
	require.Equal(t, KindConflict, KindOf(newError(KindConflict, "rent", ReasonAlreadyRented)))
	require.Equal(t, Kind(0), KindOf(errors.New("plain")))
	require.True(t, IsNotFound(newError(KindNotFound, "x", "y")))
	require.False(t, IsNotFound(ErrConflict))
	require.Equal(t, "invalid_state", KindInvalidState.String())
}
