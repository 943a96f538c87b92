package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Shivanand-hulikatti/event-scheduler/internal/model"
	"github.com/rs/zerolog"
)

const (
	validToken = "good-token"
	testUserID = "8d3c1e2a-0000-4000-8000-000000000001"
)

// stubIdentity accepts validToken and returns canned results otherwise.
type stubIdentity struct {
	registerErr error
	loginErr    error
}

func (s *stubIdentity) Register(_ context.Context, req model.RegisterRequest) (*model.AuthResponse, error) {
	if s.registerErr != nil {
		return nil, s.registerErr
	}
	return &model.AuthResponse{Token: validToken, User: model.PublicUser{ID: testUserID, Name: req.Name, Email: req.Email}}, nil
}

func (s *stubIdentity) Login(context.Context, model.LoginRequest) (*model.AuthResponse, error) {
	if s.loginErr != nil {
		return nil, s.loginErr
	}
	return &model.AuthResponse{Token: validToken, User: model.PublicUser{ID: testUserID}}, nil
}

func (s *stubIdentity) VerifyToken(token string) (string, error) {
	switch token {
	case "":
		return "", model.ErrMissingToken
	case validToken:
		return testUserID, nil
	}
	return "", model.ErrInvalidToken
}

func (s *stubIdentity) CurrentUser(_ context.Context, userID string) (*model.PublicUser, error) {
	return &model.PublicUser{ID: userID, Name: "Alice"}, nil
}

// stubEvents records the caller and returns err from every operation.
type stubEvents struct {
	err       error
	gotUserID string
	gotID     string
}

func (s *stubEvents) CreateEvent(_ context.Context, creatorID string, req model.CreateEventRequest) (*model.Event, error) {
	s.gotUserID = creatorID
	if s.err != nil {
		return nil, s.err
	}
	return &model.Event{ID: "e1", Title: req.Title, CreatorID: creatorID}, nil
}

func (s *stubEvents) ListEvents(context.Context) ([]model.EventSummary, error) {
	return nil, s.err
}

func (s *stubEvents) GetEvent(_ context.Context, id string) (*model.EventDetail, error) {
	s.gotID = id
	if s.err != nil {
		return nil, s.err
	}
	return &model.EventDetail{Event: model.Event{ID: id}, Attendees: []model.Attendee{}}, nil
}

func (s *stubEvents) Join(_ context.Context, eventID, userID string) error {
	s.gotID, s.gotUserID = eventID, userID
	return s.err
}

func (s *stubEvents) Leave(_ context.Context, eventID, userID string) error {
	s.gotID, s.gotUserID = eventID, userID
	return s.err
}

type stubProbe struct {
	now time.Time
	err error
}

func (p stubProbe) DatabaseTime(context.Context) (time.Time, error) { return p.now, p.err }

func newStubRouter(identity IdentityManager, events EventManager, probe StatusProbe) http.Handler {
	return NewRouter(RouterConfig{
		Identity:       identity,
		Events:         events,
		Status:         probe,
		Logger:         zerolog.Nop(),
		CORSOrigins:    []string{"http://localhost:5173"},
		RequestTimeout: 5 * time.Second,
	})
}

func doRequest(t *testing.T, h http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	default:
		raw, err := json.Marshal(b)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) model.ErrorResponse {
	t.Helper()
	var body model.ErrorResponse
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	return body
}

func TestWriteServiceError_StatusMapping(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		err      error
		status   int
		code     string
		contains string
	}{
		{"validation", model.Validation("title is required"), http.StatusBadRequest, "validation", "title is required"},
		{"auth", model.ErrInvalidCredentials, http.StatusUnauthorized, "auth", "invalid email or password"},
		{"not found", model.ErrEventNotFound, http.StatusNotFound, "not_found", "event not found"},
		{"conflict", model.ErrAlreadyJoined, http.StatusConflict, "conflict", "already joined this event"},
		{"store", model.WrapStore(errors.New("pq: password authentication failed for user app")), http.StatusInternalServerError, "store", "internal error"},
		{"unclassified", errors.New("boom"), http.StatusInternalServerError, "store", "internal error"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			rec := httptest.NewRecorder()
			writeServiceError(rec, httptest.NewRequest(http.MethodGet, "/", nil), tt.err)

			if rec.Code != tt.status {
				t.Fatalf("expected status %d, got %d", tt.status, rec.Code)
			}
			body := decodeError(t, rec)
			if body.Code != tt.code || body.Error != tt.contains {
				t.Fatalf("unexpected body %+v", body)
			}
		})
	}
}

func TestEventHandler_ProtectedRoutesRequireToken(t *testing.T) {
	t.Parallel()

	events := &stubEvents{}
	router := newStubRouter(&stubIdentity{}, events, nil)

	routes := []struct{ method, path string }{
		{http.MethodPost, "/api/events"},
		{http.MethodPost, "/api/events/e1/join"},
		{http.MethodPost, "/api/events/e1/leave"},
		{http.MethodGet, "/api/auth/me"},
	}
	for _, route := range routes {
		for _, token := range []string{"", "forged"} {
			rec := doRequest(t, router, route.method, route.path, token, map[string]string{})
			if rec.Code != http.StatusUnauthorized {
				t.Fatalf("%s %s token=%q: expected 401, got %d", route.method, route.path, token, rec.Code)
			}
			if body := decodeError(t, rec); body.Code != "auth" {
				t.Fatalf("expected auth code, got %+v", body)
			}
		}
	}
	if events.gotUserID != "" || events.gotID != "" {
		t.Fatalf("service must not be reached without a valid token")
	}
}

func TestEventHandler_PassesCallerIdentity(t *testing.T) {
	t.Parallel()

	events := &stubEvents{}
	router := newStubRouter(&stubIdentity{}, events, nil)

	rec := doRequest(t, router, http.MethodPost, "/api/events", validToken, model.CreateEventRequest{
		Title: "Meetup", EventDate: "2030-01-01", EventTime: "18:00", Location: "Cafe",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var created model.CreateEventResponse
	if err := json.NewDecoder(rec.Body).Decode(&created); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if created.Message != "Event created successfully" || created.Event.CreatorID != testUserID {
		t.Fatalf("unexpected response %+v", created)
	}

	rec = doRequest(t, router, http.MethodPost, "/api/events/abc/join", validToken, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if events.gotID != "abc" || events.gotUserID != testUserID {
		t.Fatalf("unexpected join call event=%q user=%q", events.gotID, events.gotUserID)
	}
}

func TestEventHandler_ErrorResponses(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		err    error
		method string
		path   string
		status int
	}{
		{"join conflict", model.ErrAlreadyJoined, http.MethodPost, "/api/events/e1/join", http.StatusConflict},
		{"join missing", model.ErrEventNotFound, http.MethodPost, "/api/events/e1/join", http.StatusNotFound},
		{"get missing", model.ErrEventNotFound, http.MethodGet, "/api/events/e1", http.StatusNotFound},
		{"list store failure", model.WrapStore(errors.New("connection reset")), http.MethodGet, "/api/events", http.StatusInternalServerError},
		{"leave store failure", model.WrapStore(errors.New("connection reset")), http.MethodPost, "/api/events/e1/leave", http.StatusInternalServerError},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			router := newStubRouter(&stubIdentity{}, &stubEvents{err: tt.err}, nil)
			rec := doRequest(t, router, tt.method, tt.path, validToken, nil)
			if rec.Code != tt.status {
				t.Fatalf("expected %d, got %d", tt.status, rec.Code)
			}
			body := decodeError(t, rec)
			if body.Error != model.MessageOf(tt.err) {
				t.Fatalf("unexpected message %q", body.Error)
			}
		})
	}
}

func TestEventHandler_ListEmptyIsArray(t *testing.T) {
	t.Parallel()

	router := newStubRouter(&stubIdentity{}, &stubEvents{}, nil)
	rec := doRequest(t, router, http.MethodGet, "/api/events", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if got := bytes.TrimSpace(rec.Body.Bytes()); string(got) != "[]" {
		t.Fatalf("expected [], got %s", got)
	}
}

func TestEventHandler_RejectsMalformedBody(t *testing.T) {
	t.Parallel()

	router := newStubRouter(&stubIdentity{}, &stubEvents{}, nil)

	for _, body := range []string{"{", `{"title":"x","unknown":1}`} {
		rec := doRequest(t, router, http.MethodPost, "/api/events", validToken, body)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("body %q: expected 400, got %d", body, rec.Code)
		}
		if got := decodeError(t, rec); got.Code != "validation" {
			t.Fatalf("body %q: unexpected error %+v", body, got)
		}
	}
}

func TestAuthHandler_RegisterAndLogin(t *testing.T) {
	t.Parallel()

	router := newStubRouter(&stubIdentity{}, &stubEvents{}, nil)
	rec := doRequest(t, router, http.MethodPost, "/api/auth/register", "", model.RegisterRequest{
		Name: "Alice", Email: "alice@x.com", Password: "secret1",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
	var resp model.AuthResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Token != validToken || resp.User.Name != "Alice" {
		t.Fatalf("unexpected response %+v", resp)
	}

	failing := newStubRouter(&stubIdentity{loginErr: model.ErrInvalidCredentials, registerErr: model.ErrEmailTaken}, &stubEvents{}, nil)
	rec = doRequest(t, failing, http.MethodPost, "/api/auth/login", "", model.LoginRequest{Email: "alice@x.com", Password: "nope"})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	rec = doRequest(t, failing, http.MethodPost, "/api/auth/register", "", model.RegisterRequest{Name: "A", Email: "alice@x.com", Password: "p"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for duplicate email, got %d", rec.Code)
	}
	if body := decodeError(t, rec); body.Error != "email is already registered" {
		t.Fatalf("unexpected message %q", body.Error)
	}
}

func TestHealthRoutes(t *testing.T) {
	t.Parallel()

	now := time.Date(2030, 1, 1, 12, 0, 0, 0, time.UTC)
	router := newStubRouter(&stubIdentity{}, &stubEvents{}, stubProbe{now: now})

	rec := doRequest(t, router, http.MethodGet, "/api/health", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	rec = doRequest(t, router, http.MethodGet, "/api/health/db", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["timestamp"] != "2030-01-01T12:00:00Z" {
		t.Fatalf("unexpected timestamp %q", body["timestamp"])
	}

	down := newStubRouter(&stubIdentity{}, &stubEvents{}, stubProbe{err: errors.New("connection refused")})
	rec = doRequest(t, down, http.MethodGet, "/api/health/db", "", nil)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	if body := decodeError(t, rec); body.Error != "Database connection failed" {
		t.Fatalf("unexpected message %q", body.Error)
	}
}

func TestRouter_UnknownRoute(t *testing.T) {
	t.Parallel()

	router := newStubRouter(&stubIdentity{}, &stubEvents{}, nil)
	rec := doRequest(t, router, http.MethodGet, "/api/nope", "", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}
