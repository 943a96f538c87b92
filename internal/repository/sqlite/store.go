// Package sqlite implements the user, event and membership stores over an
// embedded SQLite database. It backs STORE_DRIVER=sqlite and the tests.
package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/Shivanand-hulikatti/event-scheduler/internal/model"
	sqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

//go:embed schema.sql
var schema string

// toMillis normalizes timestamps into millisecond precision for storage.
func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

// fromMillis restores millisecond precision and keeps UTC normalization.
func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// Store implements every persistence interface the services need.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) a SQLite database file and applies the schema.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}

	dsn := filepath.Clean(path) +
		"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// SQLite serialises writers; one connection keeps lock handling simple.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// CreateUser inserts a user; the unique email index decides duplicates.
func (s *Store) CreateUser(ctx context.Context, u model.User) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (id, name, email, password_hash, created_at) VALUES (?, ?, ?, ?, ?)`,
		u.ID, u.Name, u.Email, u.PasswordHash, toMillis(u.CreatedAt),
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
func (s *Store) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	return s.getUser(ctx, `WHERE email = ?`, email)
}

// GetUserByID returns the user including its password hash.
func (s *Store) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	return s.getUser(ctx, `WHERE id = ?`, id)
}

func (s *Store) getUser(ctx context.Context, where, arg string) (*model.User, error) {
	var (
		u       model.User
		created int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, email, password_hash, created_at FROM users `+where, arg,
	).Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &created)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrUserNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	u.CreatedAt = fromMillis(created)
	return &u, nil
}

// CreateEvent inserts a new event.
func (s *Store) CreateEvent(ctx context.Context, e model.Event) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO events (id, title, description, event_date, event_time, location, creator_id, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Title, e.Description, e.EventDate, e.EventTime, e.Location, e.CreatorID, toMillis(e.CreatedAt),
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return model.ErrUserNotFound
		}
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

const eventColumns = `e.id, e.title, e.description, e.event_date, e.event_time,
	e.location, e.creator_id, e.created_at, COALESCE(u.name, '')`

// ListEvents returns every event with creator name and attendee count,
// ordered by schedule.
func (s *Store) ListEvents(ctx context.Context) ([]model.EventSummary, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+eventColumns+`, COUNT(ea.id)
		 FROM events e
		 LEFT JOIN users u ON u.id = e.creator_id
		 LEFT JOIN event_attendees ea ON ea.event_id = e.id
		 GROUP BY e.id
		 ORDER BY e.event_date, e.event_time, e.created_at, e.rowid`,
	)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var events []model.EventSummary
	for rows.Next() {
		var (
			e       model.EventSummary
			created int64
		)
		if err := rows.Scan(
			&e.ID, &e.Title, &e.Description, &e.EventDate, &e.EventTime,
			&e.Location, &e.CreatorID, &created, &e.CreatorName, &e.AttendeeCount,
		); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		e.CreatedAt = fromMillis(created)
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	return events, nil
}

// GetEventDetail returns an event and its attendees ordered by join time,
// read inside one transaction.
func (s *Store) GetEventDetail(ctx context.Context, id string) (*model.EventDetail, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var (
		d       model.EventDetail
		created int64
	)
	err = tx.QueryRowContext(ctx,
		`SELECT `+eventColumns+`
		 FROM events e
		 LEFT JOIN users u ON u.id = e.creator_id
		 WHERE e.id = ?`,
		id,
	).Scan(
		&d.ID, &d.Title, &d.Description, &d.EventDate, &d.EventTime,
		&d.Location, &d.CreatorID, &created, &d.CreatorName,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrEventNotFound
		}
		return nil, fmt.Errorf("get event: %w", err)
	}
	d.CreatedAt = fromMillis(created)

	rows, err := tx.QueryContext(ctx,
		`SELECT u.id, u.name, u.email, ea.joined_at
		 FROM event_attendees ea
		 JOIN users u ON u.id = ea.user_id
		 WHERE ea.event_id = ?
		 ORDER BY ea.joined_at, ea.rowid`,
		id,
	)
	if err != nil {
		return nil, fmt.Errorf("list attendees: %w", err)
	}
	defer rows.Close()

	d.Attendees = []model.Attendee{}
	for rows.Next() {
		var (
			a      model.Attendee
			joined int64
		)
		if err := rows.Scan(&a.ID, &a.Name, &a.Email, &joined); err != nil {
			return nil, fmt.Errorf("scan attendee: %w", err)
		}
		a.JoinedAt = fromMillis(joined)
		d.Attendees = append(d.Attendees, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list attendees: %w", err)
	}
	if err := rows.Close(); err != nil {
		return nil, fmt.Errorf("list attendees: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}
	return &d, nil
}

// AddAttendee records a membership with a single INSERT ... SELECT. The
// UNIQUE(event_id, user_id) constraint decides concurrent duplicates; no
// inserted row means the event does not exist.
func (s *Store) AddAttendee(ctx context.Context, m model.Membership) error {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO event_attendees (id, event_id, user_id, joined_at)
		 SELECT ?, ?, ?, ?
		 WHERE EXISTS (SELECT 1 FROM events WHERE id = ?)`,
		m.ID, m.EventID, m.UserID, toMillis(m.JoinedAt), m.EventID,
	)
	if err != nil {
		switch {
		case isUniqueViolation(err):
			return model.ErrAlreadyJoined
		case isForeignKeyViolation(err):
			return model.ErrUserNotFound
		}
		return fmt.Errorf("insert attendee: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("insert attendee: %w", err)
	}
	if n == 0 {
		return model.ErrEventNotFound
	}
	return nil
}

// RemoveAttendee deletes a membership. Deleting a missing row is not an error.
func (s *Store) RemoveAttendee(ctx context.Context, eventID, userID string) error {
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM event_attendees WHERE event_id = ? AND user_id = ?`,
		eventID, userID,
	); err != nil {
		return fmt.Errorf("delete attendee: %w", err)
	}
	return nil
}

// DatabaseTime returns the database clock, for health probes.
func (s *Store) DatabaseTime(ctx context.Context) (time.Time, error) {
	var unix int64
	if err := s.db.QueryRowContext(ctx, `SELECT CAST(strftime('%s', 'now') AS INTEGER)`).Scan(&unix); err != nil {
		return time.Time{}, fmt.Errorf("select now: %w", err)
	}
	return time.Unix(unix, 0).UTC(), nil
}

func sqliteCode(err error) (int, string, bool) {
	var sqliteErr *sqlite.Error
	if !errors.As(err, &sqliteErr) {
		return 0, "", false
	}
	return sqliteErr.Code(), sqliteErr.Error(), true
}

func isUniqueViolation(err error) bool {
	code, msg, ok := sqliteCode(err)
	if !ok {
		return false
	}
	switch code {
	case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
		return true
	case sqlite3.SQLITE_CONSTRAINT:
		return strings.Contains(msg, "UNIQUE constraint failed")
	}
	return false
}

func isForeignKeyViolation(err error) bool {
	code, msg, ok := sqliteCode(err)
	if !ok {
		return false
	}
	switch code {
	case sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY:
		return true
	case sqlite3.SQLITE_CONSTRAINT:
		return strings.Contains(msg, "FOREIGN KEY constraint failed")
	}
	return false
}
