package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/Shivanand-hulikatti/event-scheduler/internal/auth"
	"github.com/Shivanand-hulikatti/event-scheduler/internal/clock"
	"github.com/Shivanand-hulikatti/event-scheduler/internal/model"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// maxPasswordBytes is the bcrypt input limit.
const maxPasswordBytes = 72

// TokenIssuer signs and verifies session tokens.
type TokenIssuer interface {
	Issue(userID, name string) (string, time.Time, error)
	Verify(token string) (string, error)
}

// IdentityService registers users, checks credentials and verifies tokens.
type IdentityService struct {
	users  UserStore
	tokens TokenIssuer
	clock  clock.Clock
	cost   int

	dummyOnce sync.Once
	dummyHash []byte
}

// IdentityOption customises an IdentityService.
type IdentityOption func(*IdentityService)

// WithBcryptCost overrides bcrypt.DefaultCost.
func WithBcryptCost(cost int) IdentityOption {
	return func(s *IdentityService) {
		if cost >= bcrypt.MinCost && cost <= bcrypt.MaxCost {
			s.cost = cost
		}
	}
}

// NewIdentityService constructs an IdentityService.
func NewIdentityService(users UserStore, tokens TokenIssuer, clk clock.Clock, opts ...IdentityOption) *IdentityService {
	s := &IdentityService{
		users:  users,
		tokens: tokens,
		clock:  clk,
		cost:   bcrypt.DefaultCost,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register creates an account and returns a session for it.
func (s *IdentityService) Register(ctx context.Context, req model.RegisterRequest) (*model.AuthResponse, error) {
	name := strings.TrimSpace(req.Name)
	email := normalizeEmail(req.Email)
	if name == "" || email == "" || req.Password == "" {
		return nil, model.Validation("name, email, and password are required")
	}
	if !isValidEmail(email) {
		return nil, model.Validation("email is not a valid email address")
	}
	if len(req.Password) > maxPasswordBytes {
		return nil, model.Validation(fmt.Sprintf("password must be at most %d bytes", maxPasswordBytes))
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.cost)
	if err != nil {
		return nil, model.WrapStore(fmt.Errorf("hash password: %w", err))
	}

	user := model.User{
		ID:           uuid.NewString(),
		Name:         name,
		Email:        email,
		PasswordHash: string(hash),
		CreatedAt:    s.clock.Now(),
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		return nil, model.WrapStore(err)
	}
	return s.session(user)
}

// Login exchanges credentials for a session. Unknown email and wrong
// password yield the same error and cost the same bcrypt comparison.
func (s *IdentityService) Login(ctx context.Context, req model.LoginRequest) (*model.AuthResponse, error) {
	email := normalizeEmail(req.Email)
	if email == "" || req.Password == "" {
		return nil, model.ErrInvalidCredentials
	}

	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			_ = bcrypt.CompareHashAndPassword(s.dummy(), []byte(req.Password))
			return nil, model.ErrInvalidCredentials
		}
		return nil, model.WrapStore(err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, model.ErrInvalidCredentials
	}
	return s.session(*user)
}

// VerifyToken returns the user ID carried by a valid token.
func (s *IdentityService) VerifyToken(token string) (string, error) {
	userID, err := s.tokens.Verify(token)
	if err != nil {
		if errors.Is(err, auth.ErrMissingToken) {
			return "", model.ErrMissingToken
		}
		return "", &model.Error{Kind: model.KindAuth, Message: model.ErrInvalidToken.Message, Err: err}
	}
	return userID, nil
}

// CurrentUser returns the public record of an authenticated user.
func (s *IdentityService) CurrentUser(ctx context.Context, userID string) (*model.PublicUser, error) {
	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return nil, model.WrapStore(err)
	}
	pub := user.Public()
	return &pub, nil
}

func (s *IdentityService) session(user model.User) (*model.AuthResponse, error) {
	token, expiresAt, err := s.tokens.Issue(user.ID, user.Name)
	if err != nil {
		return nil, model.WrapStore(err)
	}
	return &model.AuthResponse{
		Token:     token,
		ExpiresAt: expiresAt,
		User:      user.Public(),
	}, nil
}

// dummy returns a hash to compare against when the email is unknown.
func (s *IdentityService) dummy() []byte {
	s.dummyOnce.Do(func() {
		h, err := bcrypt.GenerateFromPassword([]byte("not-a-real-password"), s.cost)
		if err == nil {
			s.dummyHash = h
		}
	})
	return s.dummyHash
}
