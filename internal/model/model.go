// Package model defines the core domain types for the event scheduler.
package model

import "time"

// User is a registered account. PasswordHash never leaves the service layer.
type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// Public returns the caller-facing projection of the user.
func (u User) Public() PublicUser {
	return PublicUser{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		CreatedAt: u.CreatedAt,
	}
}

// PublicUser is a User without its credential.
type PublicUser struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

// Event is a scheduled gathering created by a user.
// EventDate is formatted as YYYY-MM-DD and EventTime as HH:MM.
type Event struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	EventDate   string    `json:"event_date"`
	EventTime   string    `json:"event_time"`
	Location    string    `json:"location"`
	CreatorID   string    `json:"creator_id"`
	CreatedAt   time.Time `json:"created_at"`
}

// EventSummary is a list row: the event plus derived attendance.
type EventSummary struct {
	Event
	CreatorName   string `json:"creator_name"`
	AttendeeCount int    `json:"attendee_count"`
}

// EventDetail is a single event with its attendees ordered by join time.
type EventDetail struct {
	Event
	CreatorName string     `json:"creator_name"`
	Attendees   []Attendee `json:"attendees"`
}

// Attendee is a user holding a membership for an event.
type Attendee struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Email       string    `json:"email"`
	JoinedAt    time.Time `json:"joined_at"`
	IsOrganizer bool      `json:"is_organizer"`
}

// Membership is the RSVP edge between a user and an event.
type Membership struct {
	ID       string    `json:"id"`
	EventID  string    `json:"event_id"`
	UserID   string    `json:"user_id"`
	JoinedAt time.Time `json:"joined_at"`
}

// RegisterRequest is the payload for creating an account.
type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginRequest is the payload for exchanging credentials for a token.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResponse is returned by register and login.
type AuthResponse struct {
	Token     string     `json:"token"`
	ExpiresAt time.Time  `json:"expires_at"`
	User      PublicUser `json:"user"`
}

// CreateEventRequest is the payload for creating a new event.
type CreateEventRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	EventDate   string `json:"event_date"`
	EventTime   string `json:"event_time"`
	Location    string `json:"location"`
}

// CreateEventResponse wraps a freshly created event.
type CreateEventResponse struct {
	Message string `json:"message"`
	Event   Event  `json:"event"`
}

// MessageResponse is a plain acknowledgement.
type MessageResponse struct {
	Message string `json:"message"`
}

// ErrorResponse is a standard JSON error envelope.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}
