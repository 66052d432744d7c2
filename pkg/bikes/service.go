package bikes

import (
	"context"

	"klunkaz/pkg/registry"
)

// BikeService is the part of the registry the bike routes use.
type BikeService interface {
	List(ctx context.Context, caller registry.Identity, in registry.ListInput) (registry.BikeID, error)
	GetBike(id registry.BikeID) (registry.Bike, error)
	OwnerOf(id registry.BikeID) (registry.Identity, error)
	AllBikes() []registry.Bike
	UserBikes(owner registry.Identity) []registry.Bike
	BikesByCategory(category string) []registry.Bike
	UpdatePrice(ctx context.Context, caller registry.Identity, id registry.BikeID, price int64) error
	UpdateListing(ctx context.Context, caller registry.Identity, id registry.BikeID, in registry.ListingInput) error
	Approve(ctx context.Context, caller registry.Identity, id registry.BikeID, spender registry.Identity) error
	Transfer(ctx context.Context, caller registry.Identity, id registry.BikeID, to registry.Identity) error
	TransferFrom(ctx context.Context, caller registry.Identity, id registry.BikeID, from, to registry.Identity) error
	Buy(ctx context.Context, caller registry.Identity, id registry.BikeID) error
	MarkAsStolen(ctx context.Context, caller registry.Identity, id registry.BikeID) error
	UnflagAsStolen(ctx context.Context, caller registry.Identity, id registry.BikeID) error
	RegisterTracker(ctx context.Context, caller registry.Identity, id registry.BikeID, tracker registry.Identity) error
	InsureBike(ctx context.Context, caller registry.Identity, id registry.BikeID) error
	Stats() registry.Stats
}
