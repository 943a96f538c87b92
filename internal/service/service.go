// Package service implements business logic, validation, and orchestration
// between HTTP handlers and the storage layer.
package service

import (
	"context"
	"strings"

	"github.com/Shivanand-hulikatti/event-scheduler/internal/model"
)

// UserStore persists user accounts. Implementations report a duplicate
// email as model.ErrEmailTaken and a missing user as model.ErrUserNotFound.
type UserStore interface {
	CreateUser(ctx context.Context, u model.User) error
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	GetUserByID(ctx context.Context, id string) (*model.User, error)
}

// EventStore persists events and serves the aggregated read views.
type EventStore interface {
	CreateEvent(ctx context.Context, e model.Event) error
	ListEvents(ctx context.Context) ([]model.EventSummary, error)
	GetEventDetail(ctx context.Context, id string) (*model.EventDetail, error)
}

// MembershipStore persists RSVP rows. AddAttendee must enforce uniqueness of
// the (event, user) pair atomically and report model.ErrAlreadyJoined or
// model.ErrEventNotFound.
type MembershipStore interface {
	AddAttendee(ctx context.Context, m model.Membership) error
	RemoveAttendee(ctx context.Context, eventID, userID string) error
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// isValidEmail does a basic structural check.
func isValidEmail(email string) bool {
	parts := strings.Split(email, "@")
	if len(parts) != 2 {
		return false
	}
	domain := parts[1]
	return len(parts[0]) > 0 &&
		strings.Contains(domain, ".") &&
		!strings.HasPrefix(domain, ".") &&
		!strings.HasSuffix(domain, ".") &&
		!strings.ContainsAny(email, " \t\r\n")
}
