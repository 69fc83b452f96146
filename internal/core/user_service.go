package core

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"vitalog.app/health-tracker/internal/apperr"
	"vitalog.app/health-tracker/internal/auth"
	"vitalog.app/health-tracker/internal/store"
)

const minPasswordLength = 8

type RegisterInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

type LoginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SettingsInput updates only the sections that are present.
type SettingsInput struct {
	Settings *store.Settings `json:"settings"`
	Goals    *store.Goals    `json:"goals"`
	Profile  *store.Profile  `json:"profile"`
}

type AuthResult struct {
	Token string      `json:"token"`
	User  *store.User `json:"user"`
}

type UserService struct {
	store     store.Store
	jwtSecret string
	tokenTTL  time.Duration
	now       func() time.Time
}

func NewUserService(s store.Store, jwtSecret string, tokenTTL time.Duration) *UserService {
	return &UserService{
		store:     s,
		jwtSecret: jwtSecret,
		tokenTTL:  tokenTTL,
		now:       func() time.Time { return store.NormalizeTime(time.Now()) },
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *UserService) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	email := normalizeEmail(in.Email)
	var fields []apperr.FieldError
	if _, err := mail.ParseAddress(email); err != nil {
		fields = append(fields, apperr.FieldError{Field: "email", Message: "must be a valid email address"})
	}
	if len(in.Password) < minPasswordLength {
		fields = append(fields, apperr.FieldError{Field: "password", Message: fmt.Sprintf("must be at least %d characters", minPasswordLength)})
	}
	if strings.TrimSpace(in.Name) == "" {
		fields = append(fields, apperr.FieldError{Field: "name", Message: "is required"})
	}
	if len(fields) > 0 {
		return nil, apperr.Validation("invalid registration", fields...)
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	user := &store.User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: hash,
		Name:         strings.TrimSpace(in.Name),
		Settings:     store.Settings{Units: "metric", Notifications: true},
		CreatedAt:    s.now(),
	}
	if err := s.store.CreateUser(ctx, user); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, apperr.Conflict("email is already registered")
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return s.issue(user)
}

func (s *UserService) Login(ctx context.Context, in LoginInput) (*AuthResult, error) {
	user, err := s.store.GetUserByEmail(ctx, normalizeEmail(in.Email))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.Unauthorized("invalid email or password")
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	if !auth.CheckPasswordHash(in.Password, user.PasswordHash) {
		return nil, apperr.Unauthorized("invalid email or password")
	}
	return s.issue(user)
}

func (s *UserService) issue(user *store.User) (*AuthResult, error) {
	token, err := auth.GenerateJWT(s.jwtSecret, user.ID, s.tokenTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to issue token: %w", err)
	}
	return &AuthResult{Token: token, User: user}, nil
}

func (s *UserService) Me(ctx context.Context, userID string) (*store.User, error) {
	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.NotFound("user not found")
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	return user, nil
}

// Exists backs the auth middleware's user check.
func (s *UserService) Exists(ctx context.Context, userID string) (bool, error) {
	_, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (s *UserService) UpdateSettings(ctx context.Context, userID string, in SettingsInput) (*store.User, error) {
	user, err := s.Me(ctx, userID)
	if err != nil {
		return nil, err
	}
	if in.Settings != nil {
		if u := in.Settings.Units; u != "" && u != "metric" && u != "imperial" {
			return nil, apperr.Validation("invalid settings", apperr.FieldError{Field: "settings.units", Message: "must be metric or imperial"})
		}
		user.Settings = *in.Settings
	}
	if in.Goals != nil {
		user.Goals = *in.Goals
	}
	if in.Profile != nil {
		user.Profile = *in.Profile
	}

	if err := s.store.UpdateUserSettings(ctx, userID, user.Settings, user.Goals, user.Profile); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.NotFound("user not found")
		}
		return nil, fmt.Errorf("failed to update settings: %w", err)
	}
	return user, nil
}
