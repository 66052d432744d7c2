package registry

import (
	"context"
	"time"
)

// AddReview appends a review by caller and returns its index within the
// bike's review list. Any identity may review any positive ID, listed or not.
func (r *Registry) AddReview(ctx context.Context, caller Identity, id BikeID, rating int, comment string) (int, error) {
	const op = "add_review"
	if err := requireCaller(op, caller); err != nil {
		r.observe(op, err)
		return 0, err
	}

	var index int
	err := r.mutateReviews(ctx, op, id, func(now time.Time) (*change, error) {
		r.mu.Lock()
		index = len(r.reviews[id])
		reviewID := r.counters.NextReviewID
		r.counters.NextReviewID++
		r.mu.Unlock()

		return &change{
			review: &Review{
				ID:        reviewID,
				BikeID:    id,
				Index:     index,
				Reviewer:  caller,
				Rating:    rating,
				Comment:   comment,
				CreatedAt: now,
			},
			newReview: true,
			events: []Event{{
				Type: EventReviewed, BikeID: id, Actor: caller, ReviewIndex: index, At: now,
			}},
		}, nil
	})
	if err != nil {
		return 0, err
	}
	return index, nil
}

// LikeReview adds one like. Repeated likes from the same caller all count.
func (r *Registry) LikeReview(ctx context.Context, caller Identity, id BikeID, index int) error {
	const op = "like_review"
	if err := requireCaller(op, caller); err != nil {
		r.observe(op, err)
		return err
	}
	return r.mutateReviews(ctx, op, id, func(now time.Time) (*change, error) {
		r.mu.RLock()
		list := r.reviews[id]
		var cur Review
		found := index >= 0 && index < len(list)
		if found {
			cur = *list[index]
		}
		r.mu.RUnlock()
		if !found {
			return nil, newError(KindNotFound, op, ReasonReviewNotFound)
		}

		cur.Likes++
		return &change{
			review: &cur,
			events: []Event{{
				Type: EventReviewLiked, BikeID: id, Actor: caller, Counterparty: cur.Reviewer, ReviewIndex: index, At: now,
			}},
		}, nil
	})
}

// AssetReviews returns the reviews for id in the order they were added. An ID
// nobody has reviewed yields an empty list.
func (r *Registry) AssetReviews(id BikeID) ([]Review, error) {
	if id <= 0 {
		return nil, newError(KindInvalidArgument, "asset_reviews", ReasonInvalidBikeID)
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	list := r.reviews[id]
	out := make([]Review, len(list))
	for i, rv := range list {
		out[i] = *rv
	}
	return out, nil
}

// UserReviews returns the bike IDs reviewer has reviewed, in call order,
// repeating a bike for every review of it.
func (r *Registry) UserReviews(reviewer Identity) []BikeID {
	r.mu.RLock()
	defer r.mu.RUnlock()

	keys := r.byReviewer[reviewer]
	out := make([]BikeID, len(keys))
	for i, k := range keys {
		out[i] = k.bikeID
	}
	return out
}
