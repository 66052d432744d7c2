package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"klunkaz/pkg/registry"
)

// PostgresStore writes every change in a single database transaction.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) Commit(ctx context.Context, c registry.Change) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if c.Bike != nil {
		if err := upsertBike(ctx, tx, c.Bike); err != nil {
			return fmt.Errorf("upsert bike %d: %w", c.Bike.ID, err)
		}
	}
	if c.Review != nil {
		if err := upsertReview(ctx, tx, c.Review); err != nil {
			return fmt.Errorf("upsert review %d: %w", c.Review.ID, err)
		}
	}
	if c.Transaction != nil {
		if err := insertTransaction(ctx, tx, c.Transaction); err != nil {
			return fmt.Errorf("insert transaction %s: %w", c.Transaction.ID, err)
		}
	}

	query := `UPDATE registry_counters
              SET next_bike_id = GREATEST(next_bike_id, $1),
                  next_review_id = GREATEST(next_review_id, $2),
                  next_seq = GREATEST(next_seq, $3)
              WHERE id = 1`
	if _, err := tx.Exec(ctx, query, int64(c.Counters.NextBikeID), c.Counters.NextReviewID, c.Counters.NextSeq); err != nil {
		return fmt.Errorf("update counters: %w", err)
	}

	return tx.Commit(ctx)
}

func upsertBike(ctx context.Context, tx pgx.Tx, b *registry.Bike) error {
	var (
		rate, minDays, deposit int64
		renter                 string
		end                    *time.Time
	)
	if rs := b.Listing.Rental; rs != nil {
		rate, minDays, deposit = rs.DailyRate, rs.MinRentalDays, rs.Deposit
		renter = string(rs.Renter)
		end = rs.EndTime
	}

	query := `INSERT INTO bikes (id, owner, approved, price, brand, title, size, color, frame, fork, shock,
                  category, images, address, features, listing_mode, daily_rate, min_rental_days, deposit,
                  renter, rental_end, is_stolen, is_insured, tracker, owner_seq, created_at, updated_at)
              VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19,
                  $20, $21, $22, $23, $24, $25, $26, $27)
              ON CONFLICT (id) DO UPDATE SET
                  owner = EXCLUDED.owner, approved = EXCLUDED.approved, price = EXCLUDED.price,
                  category = EXCLUDED.category, images = EXCLUDED.images, address = EXCLUDED.address,
                  features = EXCLUDED.features, listing_mode = EXCLUDED.listing_mode,
                  daily_rate = EXCLUDED.daily_rate, min_rental_days = EXCLUDED.min_rental_days,
                  deposit = EXCLUDED.deposit, renter = EXCLUDED.renter, rental_end = EXCLUDED.rental_end,
                  is_stolen = EXCLUDED.is_stolen, is_insured = EXCLUDED.is_insured, tracker = EXCLUDED.tracker,
                  owner_seq = EXCLUDED.owner_seq, updated_at = EXCLUDED.updated_at`

	_, err := tx.Exec(ctx, query,
		int64(b.ID), string(b.Owner), string(b.Approved), b.Price,
		b.Details.Brand, b.Details.Title, b.Details.Size, b.Details.Color, b.Details.Frame, b.Details.Fork, b.Details.Shock,
		b.Metadata.Category, b.Metadata.Images, b.Metadata.Address, b.Metadata.Features,
		string(b.Listing.Mode), rate, minDays, deposit, renter, end,
		b.Stolen, b.Insured, string(b.Tracker), b.OwnerSeq, b.CreatedAt, b.UpdatedAt)
	return err
}

func upsertReview(ctx context.Context, tx pgx.Tx, rv *registry.Review) error {
	query := `INSERT INTO reviews (id, bike_id, idx, reviewer, rating, comment, likes, created_at)
              VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
              ON CONFLICT (id) DO UPDATE SET likes = EXCLUDED.likes`
	_, err := tx.Exec(ctx, query, rv.ID, int64(rv.BikeID), rv.Index, string(rv.Reviewer), rv.Rating, rv.Comment, rv.Likes, rv.CreatedAt)
	return err
}

func insertTransaction(ctx context.Context, tx pgx.Tx, t *registry.Transaction) error {
	query := `INSERT INTO transactions (id, bike_id, type, amount, buyer, seller, duration_days, status, created_at)
              VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := tx.Exec(ctx, query, t.ID, int64(t.BikeID), string(t.Type), t.Amount, string(t.Buyer), string(t.Seller), t.DurationDays, string(t.Status), t.Timestamp)
	return err
}

// Load reads the full committed state back, ready for registry.Restore.
func (s *PostgresStore) Load(ctx context.Context) (registry.Snapshot, error) {
	var snap registry.Snapshot

	var nextBike int64
	row := s.pool.QueryRow(ctx, `SELECT next_bike_id, next_review_id, next_seq FROM registry_counters WHERE id = 1`)
	if err := row.Scan(&nextBike, &snap.Counters.NextReviewID, &snap.Counters.NextSeq); err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return registry.Snapshot{}, fmt.Errorf("load counters: %w", err)
	}
	snap.Counters.NextBikeID = registry.BikeID(nextBike)

	bikes, err := s.loadBikes(ctx)
	if err != nil {
		return registry.Snapshot{}, err
	}
	snap.Bikes = bikes

	if snap.Reviews, err = s.loadReviews(ctx); err != nil {
		return registry.Snapshot{}, err
	}
	if snap.Transactions, err = s.loadTransactions(ctx); err != nil {
		return registry.Snapshot{}, err
	}
	return snap, nil
}

func (s *PostgresStore) loadBikes(ctx context.Context) ([]registry.Bike, error) {
	query := `SELECT id, owner, approved, price, brand, title, size, color, frame, fork, shock,
                  category, images, address, features, listing_mode, daily_rate, min_rental_days, deposit,
                  renter, rental_end, is_stolen, is_insured, tracker, owner_seq, created_at, updated_at
              FROM bikes ORDER BY id`
	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("load bikes: %w", err)
	}
	defer rows.Close()

	var bikes []registry.Bike
	for rows.Next() {
		var (
			b                        registry.Bike
			id                       int64
			owner, approved, tracker string
			mode, renter             string
			rate, minDays, deposit   int64
			end                      *time.Time
		)
		if err := rows.Scan(&id, &owner, &approved, &b.Price,
			&b.Details.Brand, &b.Details.Title, &b.Details.Size, &b.Details.Color, &b.Details.Frame, &b.Details.Fork, &b.Details.Shock,
			&b.Metadata.Category, &b.Metadata.Images, &b.Metadata.Address, &b.Metadata.Features,
			&mode, &rate, &minDays, &deposit, &renter, &end,
			&b.Stolen, &b.Insured, &tracker, &b.OwnerSeq, &b.CreatedAt, &b.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan bike: %w", err)
		}
		b.ID = registry.BikeID(id)
		b.Owner = registry.Identity(owner)
		b.Approved = registry.Identity(approved)
		b.Tracker = registry.Identity(tracker)
		if registry.ListingMode(mode) == registry.ModeRent {
			b.Listing = registry.RentListing(rate, minDays, deposit)
			b.Listing.Rental.Renter = registry.Identity(renter)
			b.Listing.Rental.EndTime = end
		} else {
			b.Listing = registry.SaleListing()
		}
		bikes = append(bikes, b)
	}
	return bikes, rows.Err()
}

func (s *PostgresStore) loadReviews(ctx context.Context) ([]registry.Review, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, bike_id, idx, reviewer, rating, comment, likes, created_at FROM reviews ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("load reviews: %w", err)
	}
	defer rows.Close()

	var reviews []registry.Review
	for rows.Next() {
		var (
			rv       registry.Review
			bikeID   int64
			reviewer string
		)
		if err := rows.Scan(&rv.ID, &bikeID, &rv.Index, &reviewer, &rv.Rating, &rv.Comment, &rv.Likes, &rv.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan review: %w", err)
		}
		rv.BikeID = registry.BikeID(bikeID)
		rv.Reviewer = registry.Identity(reviewer)
		reviews = append(reviews, rv)
	}
	return reviews, rows.Err()
}

func (s *PostgresStore) loadTransactions(ctx context.Context) ([]registry.Transaction, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, bike_id, type, amount, buyer, seller, duration_days, status, created_at FROM transactions ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("load transactions: %w", err)
	}
	defer rows.Close()

	var txs []registry.Transaction
	for rows.Next() {
		var (
			t                          registry.Transaction
			bikeID                     int64
			typ, buyer, seller, status string
		)
		if err := rows.Scan(&t.ID, &bikeID, &typ, &t.Amount, &buyer, &seller, &t.DurationDays, &status, &t.Timestamp); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		t.BikeID = registry.BikeID(bikeID)
		t.Type = registry.TransactionType(typ)
		t.Buyer = registry.Identity(buyer)
		t.Seller = registry.Identity(seller)
		t.Status = registry.TransactionStatus(status)
		txs = append(txs, t)
	}
	return txs, rows.Err()
}
