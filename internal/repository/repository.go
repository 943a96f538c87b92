// Package repository implements the PostgreSQL queries for users, events
// and event memberships. It uses pgx directly (no ORM).
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Shivanand-hulikatti/event-scheduler/internal/model"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// UserRepository handles persistence for users.
type UserRepository struct {
	db *pgxpool.Pool
}

// NewUserRepository constructs a UserRepository.
func NewUserRepository(db *pgxpool.Pool) *UserRepository {
	return &UserRepository{db: db}
}

// CreateUser inserts a user. The unique index on email decides duplicates,
// so two concurrent registrations of one address cannot both succeed.
func (r *UserRepository) CreateUser(ctx context.Context, u model.User) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO users (id, name, email, password_hash, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		u.ID, u.Name, u.Email, u.PasswordHash, u.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return model.ErrEmailTaken
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

// GetUserByEmail returns the user including its password hash.
func (r *UserRepository) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.getUser(ctx, `WHERE email = $1`, email)
}

// GetUserByID returns the user including its password hash.
func (r *UserRepository) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	return r.getUser(ctx, `WHERE id = $1`, id)
}

func (r *UserRepository) getUser(ctx context.Context, where string, arg string) (*model.User, error) {
	var u model.User
	err := r.db.QueryRow(ctx,
		`SELECT id::text, name, email, password_hash, created_at FROM users `+where,
		arg,
	).Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrUserNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &u, nil
}

// EventRepository handles persistence for events.
type EventRepository struct {
	db *pgxpool.Pool
}

// NewEventRepository constructs an EventRepository.
func NewEventRepository(db *pgxpool.Pool) *EventRepository {
	return &EventRepository{db: db}
}

// CreateEvent inserts a new event. Date and time arrive pre-normalised.
func (r *EventRepository) CreateEvent(ctx context.Context, e model.Event) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO events (id, title, description, event_date, event_time, location, creator_id, created_at)
		 VALUES ($1, $2, $3, $4::text::date, $5::text::time, $6, $7, $8)`,
		e.ID, e.Title, e.Description, e.EventDate, e.EventTime, e.Location, e.CreatorID, e.CreatedAt,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return model.ErrUserNotFound
		}
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

const eventColumns = `e.id::text, e.title, e.description,
	to_char(e.event_date, 'YYYY-MM-DD'), to_char(e.event_time, 'HH24:MI'),
	e.location, e.creator_id::text, e.created_at, COALESCE(u.name, '')`

// ListEvents returns every event with its creator name and attendee count,
// ordered by schedule.
func (r *EventRepository) ListEvents(ctx context.Context) ([]model.EventSummary, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+eventColumns+`, COUNT(ea.id)
		 FROM events e
		 LEFT JOIN users u ON u.id = e.creator_id
		 LEFT JOIN event_attendees ea ON ea.event_id = e.id
		 GROUP BY e.id, u.name
		 ORDER BY e.event_date, e.event_time, e.created_at`,
	)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var events []model.EventSummary
	for rows.Next() {
		var s model.EventSummary
		if err := rows.Scan(
			&s.ID, &s.Title, &s.Description, &s.EventDate, &s.EventTime,
			&s.Location, &s.CreatorID, &s.CreatedAt, &s.CreatorName, &s.AttendeeCount,
		); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	return events, nil
}

// GetEventDetail returns an event and its attendees ordered by join time.
// Both reads run in one repeatable-read transaction so the attendee list
// matches the event snapshot.
func (r *EventRepository) GetEventDetail(ctx context.Context, id string) (*model.EventDetail, error) {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly})
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var d model.EventDetail
	err = tx.QueryRow(ctx,
		`SELECT `+eventColumns+`
		 FROM events e
		 LEFT JOIN users u ON u.id = e.creator_id
		 WHERE e.id = $1`,
		id,
	).Scan(
		&d.ID, &d.Title, &d.Description, &d.EventDate, &d.EventTime,
		&d.Location, &d.CreatorID, &d.CreatedAt, &d.CreatorName,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) || isInvalidText(err) {
			return nil, model.ErrEventNotFound
		}
		return nil, fmt.Errorf("get event: %w", err)
	}

	rows, err := tx.Query(ctx,
		`SELECT u.id::text, u.name, u.email, ea.joined_at
		 FROM event_attendees ea
		 JOIN users u ON u.id = ea.user_id
		 WHERE ea.event_id = $1
		 ORDER BY ea.joined_at, ea.id`,
		id,
	)
	if err != nil {
		return nil, fmt.Errorf("list attendees: %w", err)
	}
	defer rows.Close()

	d.Attendees = []model.Attendee{}
	for rows.Next() {
		var a model.Attendee
		if err := rows.Scan(&a.ID, &a.Name, &a.Email, &a.JoinedAt); err != nil {
			return nil, fmt.Errorf("scan attendee: %w", err)
		}
		d.Attendees = append(d.Attendees, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list attendees: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}
	return &d, nil
}

// MembershipRepository handles persistence for event memberships.
type MembershipRepository struct {
	db *pgxpool.Pool
}

// NewMembershipRepository constructs a MembershipRepository.
func NewMembershipRepository(db *pgxpool.Pool) *MembershipRepository {
	return &MembershipRepository{db: db}
}

// AddAttendee records a membership in a single statement.
//
// The existence check and the insert are one INSERT ... SELECT, and the
// (event_id, user_id) unique constraint arbitrates concurrent joins: of two
// racing inserts for the same pair exactly one commits and the other gets
// a unique violation, reported as ErrAlreadyJoined. Zero inserted rows
// means the event does not exist.
func (r *MembershipRepository) AddAttendee(ctx context.Context, m model.Membership) error {
	tag, err := r.db.Exec(ctx,
		`INSERT INTO event_attendees (id, event_id, user_id, joined_at)
		 SELECT $1::uuid, $2::uuid, $3::uuid, $4::timestamptz
		 WHERE EXISTS (SELECT 1 FROM events WHERE id = $2::uuid)`,
		m.ID, m.EventID, m.UserID, m.JoinedAt,
	)
	if err != nil {
		switch {
		case isUniqueViolation(err):
			return model.ErrAlreadyJoined
		case isForeignKeyViolation(err):
			return model.ErrUserNotFound
		case isInvalidText(err):
			return model.ErrEventNotFound
		}
		return fmt.Errorf("insert attendee: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrEventNotFound
	}
	return nil
}

// RemoveAttendee deletes a membership. Deleting a missing row is not an error.
func (r *MembershipRepository) RemoveAttendee(ctx context.Context, eventID, userID string) error {
	_, err := r.db.Exec(ctx,
		`DELETE FROM event_attendees WHERE event_id = $1 AND user_id = $2`,
		eventID, userID,
	)
	if err != nil {
		if isInvalidText(err) {
			return nil
		}
		return fmt.Errorf("delete attendee: %w", err)
	}
	return nil
}

// StatusRepository answers health probes against the database.
type StatusRepository struct {
	db *pgxpool.Pool
}

// NewStatusRepository constructs a StatusRepository.
func NewStatusRepository(db *pgxpool.Pool) *StatusRepository {
	return &StatusRepository{db: db}
}

// DatabaseTime returns the database server clock.
func (r *StatusRepository) DatabaseTime(ctx context.Context) (time.Time, error) {
	var now time.Time
	if err := r.db.QueryRow(ctx, `SELECT NOW()`).Scan(&now); err != nil {
		return time.Time{}, fmt.Errorf("select now: %w", err)
	}
	return now, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23503"
}

// isInvalidText reports a malformed literal, such as a non-UUID id.
func isInvalidText(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "22P02"
}
