package service

import (
	"context"
	"strings"
	"time"

	"github.com/Shivanand-hulikatti/event-scheduler/internal/clock"
	"github.com/Shivanand-hulikatti/event-scheduler/internal/model"
	"github.com/google/uuid"
)

const (
	dateLayout = "2006-01-02"
	timeLayout = "15:04"
)

// EventService creates events, serves the list and detail views, and
// manages memberships.
type EventService struct {
	events  EventStore
	members MembershipStore
	clock   clock.Clock
}

// NewEventService constructs an EventService with its dependencies.
func NewEventService(events EventStore, members MembershipStore, clk clock.Clock) *EventService {
	return &EventService{events: events, members: members, clock: clk}
}

// CreateEvent validates the request and stores a new event owned by creatorID.
// Dates in the past are accepted.
func (s *EventService) CreateEvent(ctx context.Context, creatorID string, req model.CreateEventRequest) (*model.Event, error) {
	title := strings.TrimSpace(req.Title)
	location := strings.TrimSpace(req.Location)
	date := strings.TrimSpace(req.EventDate)
	at := strings.TrimSpace(req.EventTime)
	if title == "" || date == "" || at == "" || location == "" {
		return nil, model.Validation("title, date, time, and location are required")
	}

	day, err := time.Parse(dateLayout, date)
	if err != nil {
		return nil, model.Validation("event_date must be formatted as YYYY-MM-DD")
	}
	clockTime, err := parseClock(at)
	if err != nil {
		return nil, model.Validation("event_time must be formatted as HH:MM")
	}

	event := model.Event{
		ID:          uuid.NewString(),
		Title:       title,
		Description: strings.TrimSpace(req.Description),
		EventDate:   day.Format(dateLayout),
		EventTime:   clockTime.Format(timeLayout),
		Location:    location,
		CreatorID:   creatorID,
		CreatedAt:   s.clock.Now(),
	}
	if err := s.events.CreateEvent(ctx, event); err != nil {
		return nil, model.WrapStore(err)
	}
	return &event, nil
}

// ListEvents returns all events ordered by date and time. Never nil.
func (s *EventService) ListEvents(ctx context.Context) ([]model.EventSummary, error) {
	events, err := s.events.ListEvents(ctx)
	if err != nil {
		return nil, model.WrapStore(err)
	}
	if events == nil {
		events = []model.EventSummary{}
	}
	return events, nil
}

// GetEvent returns a single event with its attendees in join order.
func (s *EventService) GetEvent(ctx context.Context, id string) (*model.EventDetail, error) {
	if !isUUID(id) {
		return nil, model.ErrEventNotFound
	}
	detail, err := s.events.GetEventDetail(ctx, id)
	if err != nil {
		return nil, model.WrapStore(err)
	}
	if detail.Attendees == nil {
		detail.Attendees = []model.Attendee{}
	}
	for i := range detail.Attendees {
		detail.Attendees[i].IsOrganizer = detail.Attendees[i].ID == detail.CreatorID
	}
	return detail, nil
}

// Join adds userID to the event. A second join of the same pair fails with
// model.ErrAlreadyJoined; the store decides, so concurrent joins cannot both win.
func (s *EventService) Join(ctx context.Context, eventID, userID string) error {
	if !isUUID(eventID) {
		return model.ErrEventNotFound
	}
	err := s.members.AddAttendee(ctx, model.Membership{
		ID:       uuid.NewString(),
		EventID:  eventID,
		UserID:   userID,
		JoinedAt: s.clock.Now(),
	})
	return model.WrapStore(err)
}

// Leave removes userID from the event. Leaving an event one has not joined
// succeeds without effect.
func (s *EventService) Leave(ctx context.Context, eventID, userID string) error {
	if !isUUID(eventID) {
		return nil
	}
	return model.WrapStore(s.members.RemoveAttendee(ctx, eventID, userID))
}

func parseClock(v string) (time.Time, error) {
	t, err := time.Parse(timeLayout, v)
	if err == nil {
		return t, nil
	}
	return time.Parse("15:04:05", v)
}

func isUUID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
