package event

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"
)

type Repository interface {
	ListEvents(ctx context.Context, category *Category, search string) ([]Event, error)
	GetEvent(ctx context.Context, uid string) (*Event, error)
	CreateEvent(ctx context.Context, event Event) (int, error)
	UpdateEvent(ctx context.Context, uid string, fields Fields, updatedAt time.Time) (bool, error)
	DeleteEvent(ctx context.Context, uid string, now time.Time) (int, bool, error)
}

type RepositoryImpl struct {
	db *pgxpool.Pool
}

func NewEventRepo(db *pgxpool.Pool) *RepositoryImpl {
	return &RepositoryImpl{db: db}
}

const eventColumns = `e.id, e.uid, e.name, e.description, e.category, to_char(e.date, 'YYYY-MM-DD'), e.time, e.venue,
			   e.capacity, e.registered_count, e.created_by, u.uid, e.created_at, e.updated_at`

func (r *RepositoryImpl) ListEvents(ctx context.Context, category *Category, search string) ([]Event, error) {
	query := `SELECT ` + eventColumns + `
			  FROM events e
			  JOIN users u ON e.created_by = u.id
			  WHERE ($1::text IS NULL OR e.category = $1)
			    AND ($2::text = '' OR e.name ILIKE '%' || $2 || '%')
			  ORDER BY e.date, e.time, e.id`

	var categoryParam *string
	if category != nil {
		value := string(*category)
		categoryParam = &value
	}

	rows, err := r.db.Query(ctx, query, categoryParam, search)
	if err != nil {
		err := fmt.Errorf("could not query events: %w", err)
		log.Error(err)
		return nil, err
	}
	defer rows.Close()

	events := make([]Event, 0)
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		err := fmt.Errorf("error iterating over events: %w", err)
		log.Error(err)
		return nil, err
	}
	return events, nil
}

func (r *RepositoryImpl) GetEvent(ctx context.Context, uid string) (*Event, error) {
	query := `SELECT ` + eventColumns + `
			  FROM events e
			  JOIN users u ON e.created_by = u.id
			  WHERE e.uid = $1`

	event, err := scanEvent(r.db.QueryRow(ctx, query, uid))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &event, nil
}

func (r *RepositoryImpl) CreateEvent(ctx context.Context, event Event) (int, error) {
	query := `INSERT INTO events (uid, name, description, category, date, time, venue, capacity, registered_count,
				created_by, created_at, updated_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12) RETURNING id`

	var id int
	err := r.db.QueryRow(ctx, query,
		event.Uid,
		event.Name,
		event.Description,
		event.Category,
		event.Date,
		event.Time,
		event.Venue,
		event.Capacity,
		event.RegisteredCount,
		event.CreatedBy,
		event.CreatedAt,
		event.UpdatedAt,
	).Scan(&id)
	if err != nil {
		err := fmt.Errorf("could not insert event: %w", err)
		log.Error(err)
		return 0, err
	}
	return id, nil
}

// UpdateEvent replaces the editable fields only; registered_count, created_by
// and created_at are untouchable through this path.
func (r *RepositoryImpl) UpdateEvent(ctx context.Context, uid string, fields Fields, updatedAt time.Time) (bool, error) {
	query := `UPDATE events SET name = $2, description = $3, category = $4, date = $5, time = $6, venue = $7,
				capacity = $8, updated_at = $9
			  WHERE uid = $1`

	tag, err := r.db.Exec(ctx, query,
		uid,
		fields.Name,
		fields.Description,
		fields.Category,
		fields.Date,
		fields.Time,
		fields.Venue,
		fields.Capacity,
		updatedAt,
	)
	if err != nil {
		err := fmt.Errorf("could not update event: %w", err)
		log.Error(err)
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// DeleteEvent cancels every registration of the event and removes the event
// row in a single transaction, so readers never observe the event gone while
// its registrations are still active. Returns the number of registrations
// that were cancelled by the cascade.
func (r *RepositoryImpl) DeleteEvent(ctx context.Context, uid string, now time.Time) (int, bool, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return 0, false, err
	}
	defer tx.Rollback(ctx)

	var eventId int
	err = tx.QueryRow(ctx, `SELECT id FROM events WHERE uid = $1 FOR UPDATE`, uid).Scan(&eventId)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, false, nil
		}
		err := fmt.Errorf("could not lock event for deletion: %w", err)
		log.Error(err)
		return 0, false, err
	}

	cancelQuery := `UPDATE registrations SET status = 'cancelled', updated_at = $2 WHERE event_id = $1`
	tag, err := tx.Exec(ctx, cancelQuery, eventId, now)
	if err != nil {
		err := fmt.Errorf("could not cancel registrations of event %s: %w", uid, err)
		log.Error(err)
		return 0, false, err
	}
	cancelled := int(tag.RowsAffected())

	if _, err := tx.Exec(ctx, `DELETE FROM events WHERE id = $1`, eventId); err != nil {
		err := fmt.Errorf("could not delete event %s: %w", uid, err)
		log.Error(err)
		return 0, false, err
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, false, fmt.Errorf("could not commit transaction: %w", err)
	}
	return cancelled, true, nil
}

func scanEvent(row pgx.Row) (Event, error) {
	var event Event
	err := row.Scan(
		&event.Id,
		&event.Uid,
		&event.Name,
		&event.Description,
		&event.Category,
		&event.Date,
		&event.Time,
		&event.Venue,
		&event.Capacity,
		&event.RegisteredCount,
		&event.CreatedBy,
		&event.CreatedByUid,
		&event.CreatedAt,
		&event.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Event{}, err
		}
		wrapped := fmt.Errorf("error scanning event row: %w", err)
		log.Error(wrapped)
		return Event{}, wrapped
	}
	return event, nil
}
