package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/mvarga/waylog/internal/core/domain"
)

// TripRepo implements ports.TripRepository with pgx.
type TripRepo struct {
	db *DB
}

// NewTripRepo creates a new TripRepo.
func NewTripRepo(db *DB) *TripRepo {
	return &TripRepo{db: db}
}

// Create inserts a trip with its destinations and expenses in one
// transaction.
func (r *TripRepo) Create(ctx context.Context, trip *domain.Trip) error {
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	err = tx.QueryRow(ctx, `
		INSERT INTO trips (slug, title, description, start_date, end_date, companions)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at
	`, trip.Slug, trip.Title, trip.Description, trip.StartDate, trip.EndDate, trip.Companions).
		Scan(&trip.ID, &trip.CreatedAt, &trip.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert trip: %w", err)
	}

	if err := insertDestinations(ctx, tx, trip.ID, trip.Destinations); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// Update rewrites a trip's own columns; destinations are replaced
// separately via ReplaceDestinations.
func (r *TripRepo) Update(ctx context.Context, trip *domain.Trip) error {
	tag, err := r.db.Pool.Exec(ctx, `
		UPDATE trips
		SET slug = $2, title = $3, description = $4, start_date = $5,
		    end_date = $6, companions = $7, updated_at = now()
		WHERE id = $1
	`, trip.ID, trip.Slug, trip.Title, trip.Description, trip.StartDate, trip.EndDate, trip.Companions)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("trip %s not found", trip.ID)
	}
	return nil
}

// Delete removes a trip; destinations and expenses go with it via cascade.
func (r *TripRepo) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Pool.Exec(ctx, `DELETE FROM trips WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("trip %s not found", id)
	}
	return nil
}

// GetByID returns one trip with destinations and expenses loaded.
func (r *TripRepo) GetByID(ctx context.Context, id string) (*domain.Trip, error) {
	return r.getOne(ctx, `WHERE id = $1`, id)
}

// GetBySlug returns one trip with destinations and expenses loaded.
func (r *TripRepo) GetBySlug(ctx context.Context, slug string) (*domain.Trip, error) {
	return r.getOne(ctx, `WHERE slug = $1`, slug)
}

func (r *TripRepo) getOne(ctx context.Context, where string, arg any) (*domain.Trip, error) {
	trip := &domain.Trip{}
	err := r.db.Pool.QueryRow(ctx, `
		SELECT id, slug, title, COALESCE(description, ''), start_date, end_date,
		       COALESCE(companions, '{}'), created_at, updated_at
		FROM trips `+where,
		arg).Scan(&trip.ID, &trip.Slug, &trip.Title, &trip.Description,
		&trip.StartDate, &trip.EndDate, &trip.Companions, &trip.CreatedAt, &trip.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if err := r.loadDestinations(ctx, trip); err != nil {
		return nil, err
	}
	return trip, nil
}

// List returns all trips, newest first, fully loaded.
func (r *TripRepo) List(ctx context.Context) ([]domain.Trip, error) {
	return r.list(ctx, ``)
}

// ListByYear returns trips starting in the given year, newest first.
func (r *TripRepo) ListByYear(ctx context.Context, year int) ([]domain.Trip, error) {
	return r.list(ctx, `WHERE extract(year FROM start_date) = $1`, year)
}

func (r *TripRepo) list(ctx context.Context, where string, args ...any) ([]domain.Trip, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT id, slug, title, COALESCE(description, ''), start_date, end_date,
		       COALESCE(companions, '{}'), created_at, updated_at
		FROM trips `+where+`
		ORDER BY start_date DESC`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var trips []domain.Trip
	for rows.Next() {
		var trip domain.Trip
		if err := rows.Scan(&trip.ID, &trip.Slug, &trip.Title, &trip.Description,
			&trip.StartDate, &trip.EndDate, &trip.Companions, &trip.CreatedAt, &trip.UpdatedAt); err != nil {
			return nil, err
		}
		trips = append(trips, trip)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range trips {
		if err := r.loadDestinations(ctx, &trips[i]); err != nil {
			return nil, err
		}
	}
	return trips, nil
}

// ReplaceDestinations swaps a trip's destination sequence atomically.
func (r *TripRepo) ReplaceDestinations(ctx context.Context, tripID string, dests []domain.Destination) error {
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM destinations WHERE trip_id = $1`, tripID); err != nil {
		return fmt.Errorf("clear destinations: %w", err)
	}
	if err := insertDestinations(ctx, tx, tripID, dests); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// UpdateDestinationLocation sets resolved coordinates on a destination.
// Called by the geocoding worker.
func (r *TripRepo) UpdateDestinationLocation(ctx context.Context, destinationID string, loc domain.GeoPoint) error {
	tag, err := r.db.Pool.Exec(ctx, `
		UPDATE destinations
		SET lat = $2, lon = $3, geocoded = true
		WHERE id = $1
	`, destinationID, loc.Lat, loc.Lon)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("destination %s not found", destinationID)
	}
	return nil
}

// insertDestinations writes the destination rows (and their expenses) in
// visit order within the caller's transaction.
func insertDestinations(ctx context.Context, tx pgx.Tx, tripID string, dests []domain.Destination) error {
	for i := range dests {
		d := &dests[i]
		mode := string(d.ArrivalMode)
		if mode == "" {
			mode = string(domain.ModeNone)
		}
		err := tx.QueryRow(ctx, `
			INSERT INTO destinations (trip_id, seq, city, country, lat, lon, geocoded, arrival_mode, nights)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			RETURNING id
		`, tripID, i, d.City, d.Country, d.Location.Lat, d.Location.Lon, d.Geocoded, mode, d.Nights).
			Scan(&d.ID)
		if err != nil {
			return fmt.Errorf("insert destination %d: %w", i, err)
		}

		if len(d.Expenses) == 0 {
			continue
		}
		batch := &pgx.Batch{}
		for _, e := range d.Expenses {
			batch.Queue(`
				INSERT INTO expenses (destination_id, category, amount, currency)
				VALUES ($1, $2, $3, $4)
			`, d.ID, e.Category, e.Amount, e.Currency)
		}
		br := tx.SendBatch(ctx, batch)
		for range d.Expenses {
			if _, err := br.Exec(); err != nil {
				br.Close()
				return fmt.Errorf("insert expenses: %w", err)
			}
		}
		if err := br.Close(); err != nil {
			return err
		}
	}
	return nil
}

// loadDestinations attaches the ordered destination list, with expenses,
// to a trip.
func (r *TripRepo) loadDestinations(ctx context.Context, trip *domain.Trip) error {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT id, trip_id, seq, city, country, lat, lon, geocoded,
		       COALESCE(arrival_mode, 'none'), nights, created_at
		FROM destinations
		WHERE trip_id = $1
		ORDER BY seq
	`, trip.ID)
	if err != nil {
		return err
	}
	defer rows.Close()

	var dests []domain.Destination
	for rows.Next() {
		var d domain.Destination
		var mode string
		if err := rows.Scan(&d.ID, &d.TripID, &d.Seq, &d.City, &d.Country,
			&d.Location.Lat, &d.Location.Lon, &d.Geocoded, &mode, &d.Nights, &d.CreatedAt); err != nil {
			return err
		}
		d.ArrivalMode = domain.TransportMode(mode)
		dests = append(dests, d)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	for i := range dests {
		if err := r.loadExpenses(ctx, &dests[i]); err != nil {
			return err
		}
	}
	trip.Destinations = dests
	return nil
}

func (r *TripRepo) loadExpenses(ctx context.Context, d *domain.Destination) error {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT id, destination_id, category, amount, COALESCE(currency, 'EUR')
		FROM expenses
		WHERE destination_id = $1
		ORDER BY category
	`, d.ID)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var e domain.Expense
		if err := rows.Scan(&e.ID, &e.DestinationID, &e.Category, &e.Amount, &e.Currency); err != nil {
			return err
		}
		d.Expenses = append(d.Expenses, e)
	}
	return rows.Err()
}
