package registration

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"
	"github.com/utsav/utsav/pkg/event"
	"github.com/utsav/utsav/pkg/user"
)

// Repository is the transactional boundary of the registration ledger: every
// mutation that changes a registration's active/cancelled classification
// updates the event's registered_count in the same transaction. The event row
// is locked FOR UPDATE first in all mutations, which serializes counter
// changes per event and keeps the lock ordering deadlock-free.
type Repository interface {
	Create(ctx context.Context, userId int, uid string, eventUid string, now time.Time) (Registration, error)
	GetByUid(ctx context.Context, uid string) (*Registration, error)
	Cancel(ctx context.Context, uid string, now time.Time) (Registration, error)
	SetStatus(ctx context.Context, uid string, status Status, now time.Time) (Registration, error)
	ListByUser(ctx context.Context, userId int) ([]WithEvent, error)
	ListAll(ctx context.Context, filter Filter) ([]Details, error)
}

type RepositoryImpl struct {
	db *pgxpool.Pool
}

func NewRegistrationRepo(db *pgxpool.Pool) *RepositoryImpl {
	return &RepositoryImpl{db: db}
}

func (r *RepositoryImpl) Create(ctx context.Context, userId int, uid string, eventUid string, now time.Time) (Registration, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return Registration{}, err
	}
	defer tx.Rollback(ctx)

	var eventId, capacity, registeredCount int
	err = tx.QueryRow(ctx, `SELECT id, capacity, registered_count FROM events WHERE uid = $1 FOR UPDATE`, eventUid).
		Scan(&eventId, &capacity, &registeredCount)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Registration{}, event.ErrEventNotFound
		}
		err := fmt.Errorf("could not lock event %s: %w", eventUid, err)
		log.Error(err)
		return Registration{}, err
	}

	var hasActive bool
	err = tx.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM registrations WHERE user_id = $1 AND event_id = $2 AND status != 'cancelled')`,
		userId, eventId).Scan(&hasActive)
	if err != nil {
		err := fmt.Errorf("could not check existing registration: %w", err)
		log.Error(err)
		return Registration{}, err
	}
	if hasActive {
		return Registration{}, ErrAlreadyRegistered
	}

	if registeredCount >= capacity {
		return Registration{}, ErrEventFull
	}

	registration := Registration{
		Uid:          uid,
		UserId:       userId,
		EventId:      eventId,
		EventUid:     eventUid,
		Status:       StatusPending,
		RegisteredAt: now,
		UpdatedAt:    now,
	}
	err = tx.QueryRow(ctx,
		`INSERT INTO registrations (uid, user_id, event_id, status, registered_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
		registration.Uid, userId, eventId, registration.Status, now, now).Scan(&registration.Id)
	if err != nil {
		err := fmt.Errorf("could not insert registration: %w", err)
		log.Error(err)
		return Registration{}, err
	}

	_, err = tx.Exec(ctx,
		`UPDATE events SET registered_count = registered_count + 1, updated_at = $2 WHERE id = $1`,
		eventId, now)
	if err != nil {
		err := fmt.Errorf("could not increment registered count: %w", err)
		log.Error(err)
		return Registration{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return Registration{}, fmt.Errorf("could not commit transaction: %w", err)
	}
	return registration, nil
}

func (r *RepositoryImpl) GetByUid(ctx context.Context, uid string) (*Registration, error) {
	query := `SELECT r.id, r.uid, r.user_id, r.event_id, COALESCE(e.uid, ''), r.status, r.registered_at, r.updated_at
			  FROM registrations r
			  LEFT JOIN events e ON r.event_id = e.id
			  WHERE r.uid = $1`

	var registration Registration
	err := r.db.QueryRow(ctx, query, uid).Scan(
		&registration.Id,
		&registration.Uid,
		&registration.UserId,
		&registration.EventId,
		&registration.EventUid,
		&registration.Status,
		&registration.RegisteredAt,
		&registration.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		err := fmt.Errorf("could not read registration: %w", err)
		log.Error(err)
		return nil, err
	}
	return &registration, nil
}

func (r *RepositoryImpl) Cancel(ctx context.Context, uid string, now time.Time) (Registration, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return Registration{}, err
	}
	defer tx.Rollback(ctx)

	registration, eventExists, err := lockForStatusChange(ctx, tx, uid)
	if err != nil {
		return Registration{}, err
	}
	if registration.Status == StatusCancelled {
		return Registration{}, ErrAlreadyCancelled
	}

	_, err = tx.Exec(ctx, `UPDATE registrations SET status = 'cancelled', updated_at = $2 WHERE id = $1`,
		registration.Id, now)
	if err != nil {
		err := fmt.Errorf("could not cancel registration: %w", err)
		log.Error(err)
		return Registration{}, err
	}

	// Decrement is clamped at zero as a defensive guard against counter drift.
	if eventExists {
		_, err = tx.Exec(ctx,
			`UPDATE events SET registered_count = GREATEST(registered_count - 1, 0), updated_at = $2 WHERE id = $1`,
			registration.EventId, now)
		if err != nil {
			err := fmt.Errorf("could not decrement registered count: %w", err)
			log.Error(err)
			return Registration{}, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return Registration{}, fmt.Errorf("could not commit transaction: %w", err)
	}
	registration.Status = StatusCancelled
	registration.UpdatedAt = now
	return registration, nil
}

func (r *RepositoryImpl) SetStatus(ctx context.Context, uid string, status Status, now time.Time) (Registration, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return Registration{}, err
	}
	defer tx.Rollback(ctx)

	registration, eventExists, err := lockForStatusChange(ctx, tx, uid)
	if err != nil {
		return Registration{}, err
	}

	if eventExists {
		switch {
		case registration.Status.IsActive() && status == StatusCancelled:
			_, err = tx.Exec(ctx,
				`UPDATE events SET registered_count = GREATEST(registered_count - 1, 0), updated_at = $2 WHERE id = $1`,
				registration.EventId, now)
		case registration.Status == StatusCancelled && status.IsActive():
			var capacity, registeredCount int
			err = tx.QueryRow(ctx, `SELECT capacity, registered_count FROM events WHERE id = $1`, registration.EventId).
				Scan(&capacity, &registeredCount)
			if err == nil {
				if registeredCount >= capacity {
					// Transition rejected, registration left unchanged.
					return Registration{}, ErrEventFull
				}
				_, err = tx.Exec(ctx,
					`UPDATE events SET registered_count = registered_count + 1, updated_at = $2 WHERE id = $1`,
					registration.EventId, now)
			}
		}
		if err != nil {
			err := fmt.Errorf("could not adjust registered count: %w", err)
			log.Error(err)
			return Registration{}, err
		}
	}

	// Status is written after the counter mutation succeeded, so a rejected
	// un-cancel never leaves the registration half-transitioned.
	_, err = tx.Exec(ctx, `UPDATE registrations SET status = $2, updated_at = $3 WHERE id = $1`,
		registration.Id, status, now)
	if err != nil {
		err := fmt.Errorf("could not update registration status: %w", err)
		log.Error(err)
		return Registration{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return Registration{}, fmt.Errorf("could not commit transaction: %w", err)
	}
	registration.Status = status
	registration.UpdatedAt = now
	return registration, nil
}

// lockForStatusChange locks the registration's event row first (same ordering
// as Create) and then the registration row, returning the current state.
func lockForStatusChange(ctx context.Context, tx pgx.Tx, uid string) (Registration, bool, error) {
	var registration Registration
	err := tx.QueryRow(ctx,
		`SELECT id, uid, user_id, event_id, status, registered_at, updated_at FROM registrations WHERE uid = $1`, uid).
		Scan(&registration.Id, &registration.Uid, &registration.UserId, &registration.EventId,
			&registration.Status, &registration.RegisteredAt, &registration.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Registration{}, false, ErrRegistrationNotFound
		}
		err := fmt.Errorf("could not read registration: %w", err)
		log.Error(err)
		return Registration{}, false, err
	}

	eventExists := true
	var eventUid string
	err = tx.QueryRow(ctx, `SELECT uid FROM events WHERE id = $1 FOR UPDATE`, registration.EventId).Scan(&eventUid)
	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			err := fmt.Errorf("could not lock event: %w", err)
			log.Error(err)
			return Registration{}, false, err
		}
		// Event already deleted; the registration can still change status.
		eventExists = false
	}
	registration.EventUid = eventUid

	// Re-read under the registration lock: the status may have changed while
	// we waited for the event lock.
	err = tx.QueryRow(ctx, `SELECT status FROM registrations WHERE id = $1 FOR UPDATE`, registration.Id).
		Scan(&registration.Status)
	if err != nil {
		err := fmt.Errorf("could not lock registration: %w", err)
		log.Error(err)
		return Registration{}, false, err
	}

	return registration, eventExists, nil
}

const eventSnapshotColumns = `e.id, e.uid, e.name, e.description, e.category,
			to_char(e.date, 'YYYY-MM-DD'), e.time, e.venue, e.capacity, e.registered_count,
			e.created_by, cu.uid, e.created_at, e.updated_at`

func (r *RepositoryImpl) ListByUser(ctx context.Context, userId int) ([]WithEvent, error) {
	query := `SELECT r.id, r.uid, r.user_id, r.event_id, r.status, r.registered_at, r.updated_at,
			` + eventSnapshotColumns + `
			  FROM registrations r
			  LEFT JOIN events e ON r.event_id = e.id
			  LEFT JOIN users cu ON e.created_by = cu.id
			  WHERE r.user_id = $1
			  ORDER BY r.registered_at DESC`

	rows, err := r.db.Query(ctx, query, userId)
	if err != nil {
		err := fmt.Errorf("could not query registrations: %w", err)
		log.Error(err)
		return nil, err
	}
	defer rows.Close()

	result := make([]WithEvent, 0)
	for rows.Next() {
		var registration Registration
		eventScan := newEventSnapshotScan()
		dest := []any{
			&registration.Id, &registration.Uid, &registration.UserId, &registration.EventId,
			&registration.Status, &registration.RegisteredAt, &registration.UpdatedAt,
		}
		dest = append(dest, eventScan.dest()...)
		if err := rows.Scan(dest...); err != nil {
			err := fmt.Errorf("error scanning registration row: %w", err)
			log.Error(err)
			return nil, err
		}
		snapshot := eventScan.event()
		if snapshot != nil {
			registration.EventUid = snapshot.Uid
		}
		result = append(result, WithEvent{Registration: registration, Event: snapshot})
	}
	if err := rows.Err(); err != nil {
		err := fmt.Errorf("error iterating over registrations: %w", err)
		log.Error(err)
		return nil, err
	}
	return result, nil
}

func (r *RepositoryImpl) ListAll(ctx context.Context, filter Filter) ([]Details, error) {
	query := `SELECT r.id, r.uid, r.user_id, r.event_id, r.status, r.registered_at, r.updated_at,
			` + eventSnapshotColumns + `,
			u.id, u.uid, u.clerk_id, u.email, u.name, u.role, u.created_at
			  FROM registrations r
			  LEFT JOIN events e ON r.event_id = e.id
			  LEFT JOIN users cu ON e.created_by = cu.id
			  JOIN users u ON r.user_id = u.id`

	args := []any{}
	switch {
	case filter.EventUid != nil:
		query += ` WHERE e.uid = $1`
		args = append(args, *filter.EventUid)
	case filter.Status != nil:
		query += ` WHERE r.status = $1`
		args = append(args, *filter.Status)
	}
	query += ` ORDER BY r.registered_at DESC`

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		err := fmt.Errorf("could not query registrations: %w", err)
		log.Error(err)
		return nil, err
	}
	defer rows.Close()

	result := make([]Details, 0)
	for rows.Next() {
		var registration Registration
		var registrant user.User
		eventScan := newEventSnapshotScan()
		dest := []any{
			&registration.Id, &registration.Uid, &registration.UserId, &registration.EventId,
			&registration.Status, &registration.RegisteredAt, &registration.UpdatedAt,
		}
		dest = append(dest, eventScan.dest()...)
		dest = append(dest,
			&registrant.Id, &registrant.Uid, &registrant.ClerkId, &registrant.Email,
			&registrant.Name, &registrant.Role, &registrant.CreatedAt,
		)
		if err := rows.Scan(dest...); err != nil {
			err := fmt.Errorf("error scanning registration row: %w", err)
			log.Error(err)
			return nil, err
		}
		snapshot := eventScan.event()
		if snapshot != nil {
			registration.EventUid = snapshot.Uid
		}
		result = append(result, Details{Registration: registration, Event: snapshot, User: &registrant})
	}
	if err := rows.Err(); err != nil {
		err := fmt.Errorf("error iterating over registrations: %w", err)
		log.Error(err)
		return nil, err
	}
	return result, nil
}

// eventSnapshotScan collects the nullable columns of a LEFT JOINed event row.
type eventSnapshotScan struct {
	id              sql.NullInt64
	uid             sql.NullString
	name            sql.NullString
	description     sql.NullString
	category        sql.NullString
	date            sql.NullString
	time            sql.NullString
	venue           sql.NullString
	capacity        sql.NullInt64
	registeredCount sql.NullInt64
	createdBy       sql.NullInt64
	createdByUid    sql.NullString
	createdAt       sql.NullTime
	updatedAt       sql.NullTime
}

func newEventSnapshotScan() *eventSnapshotScan {
	return &eventSnapshotScan{}
}

func (s *eventSnapshotScan) dest() []any {
	return []any{
		&s.id, &s.uid, &s.name, &s.description, &s.category, &s.date, &s.time, &s.venue,
		&s.capacity, &s.registeredCount, &s.createdBy, &s.createdByUid, &s.createdAt, &s.updatedAt,
	}
}

func (s *eventSnapshotScan) event() *event.Event {
	if !s.id.Valid {
		return nil
	}
	return &event.Event{
		Id:              int(s.id.Int64),
		Uid:             s.uid.String,
		Name:            s.name.String,
		Description:     s.description.String,
		Category:        event.Category(s.category.String),
		Date:            s.date.String,
		Time:            s.time.String,
		Venue:           s.venue.String,
		Capacity:        int(s.capacity.Int64),
		RegisteredCount: int(s.registeredCount.Int64),
		CreatedBy:       int(s.createdBy.Int64),
		CreatedByUid:    s.createdByUid.String,
		CreatedAt:       s.createdAt.Time,
		UpdatedAt:       s.updatedAt.Time,
	}
}
