package services

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"rightsnet/app/auth"
	"rightsnet/app/models"
	"rightsnet/app/repositories"
)

// SignupInput is the payload of a signup request.
type SignupInput struct {
	Email       string             `json:"email"`
	Username    string             `json:"username"`
	Password    string             `json:"password"`
	DisplayName string             `json:"display_name"`
	CountryCode string             `json:"country_code"`
	AccountType models.AccountType `json:"account_type"`
}

// ProfileInput holds the profile fields a user may change. Nil fields are
// left untouched.
type ProfileInput struct {
	DisplayName *string `json:"display_name"`
	Bio         *string `json:"bio"`
	CountryCode *string `json:"country_code"`
}

// Session is returned by signup and login.
type Session struct {
	User      *models.User `json:"user"`
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
}

// AuthService handles accounts and bearer tokens
type AuthService struct {
	users      repositories.UserRepository
	tokens     *auth.TokenIssuer
	bcryptCost int
}

// NewAuthService creates a new AuthService
func NewAuthService(users repositories.UserRepository, tokens *auth.TokenIssuer, bcryptCost int) *AuthService {
	return &AuthService{users: users, tokens: tokens, bcryptCost: bcryptCost}
}

// Signup registers a user and opens a session.
func (s *AuthService) Signup(in SignupInput) (*Session, error) {
	if len(in.Password) < auth.MinPasswordLength {
		return nil, invalidf("password: must be at least %d characters", auth.MinPasswordLength)
	}

	user := &models.User{
		Email:       in.Email,
		Username:    in.Username,
		DisplayName: in.DisplayName,
		CountryCode: in.CountryCode,
		AccountType: in.AccountType,
	}
	user.BeforeCreate()
	if err := user.Validate(); err != nil {
		return nil, invalid(err)
	}

	hash, err := auth.HashPassword(in.Password, s.bcryptCost)
	if err != nil {
		return nil, err
	}
	user.PasswordHash = hash

	if err := s.users.Create(user); err != nil {
		if errors.Is(err, repositories.ErrConflict) {
			return nil, fmt.Errorf("email or username already taken: %w", err)
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return s.session(user)
}

// Login checks credentials and opens a session.
func (s *AuthService) Login(email, password string) (*Session, error) {
	user, err := s.users.GetByEmail(strings.ToLower(strings.TrimSpace(email)))
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, fmt.Errorf("invalid credentials: %w", ErrUnauthorized)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	if !auth.CheckPassword(user.PasswordHash, password) {
		return nil, fmt.Errorf("invalid credentials: %w", ErrUnauthorized)
	}
	return s.session(user)
}

func (s *AuthService) session(user *models.User) (*Session, error) {
	token, expires, err := s.tokens.Issue(user.ID)
	if err != nil {
		return nil, err
	}
	user.PasswordHash = ""
	return &Session{User: user, Token: token, ExpiresAt: expires}, nil
}

// Authenticate resolves a bearer token to a user id.
func (s *AuthService) Authenticate(token string) (int, error) {
	id, err := s.tokens.Parse(token)
	if err != nil {
		return 0, fmt.Errorf("%v: %w", err, ErrUnauthorized)
	}
	return id, nil
}

// Parse makes AuthService usable as a realtime.TokenParser.
func (s *AuthService) Parse(token string) (int, error) {
	return s.Authenticate(token)
}

// Me returns the caller's own account.
func (s *AuthService) Me(userID int) (*models.User, error) {
	user, err := s.users.GetByID(userID)
	if err != nil {
		return nil, err
	}
	user.PasswordHash = ""
	return user, nil
}

// GetUser returns another user's public profile.
func (s *AuthService) GetUser(id int) (*models.User, error) {
	user, err := s.users.GetByID(id)
	if err != nil {
		return nil, err
	}
	user.PasswordHash = ""
	user.Email = ""
	return user, nil
}

// ListUsers pages through public profiles in signup order.
func (s *AuthService) ListUsers(page, perPage int) ([]*models.User, error) {
	limit, offset := pageBounds(page, perPage)
	users, err := s.users.List(limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	if users == nil {
		users = []*models.User{}
	}
	for _, u := range users {
		u.PasswordHash = ""
		u.Email = ""
	}
	return users, nil
}

// UpdateProfile applies profile changes for the caller.
func (s *AuthService) UpdateProfile(userID int, in ProfileInput) (*models.User, error) {
	user, err := s.users.GetByID(userID)
	if err != nil {
		return nil, err
	}
	if in.DisplayName != nil {
		user.DisplayName = *in.DisplayName
	}
	if in.Bio != nil {
		user.Bio = strings.TrimSpace(*in.Bio)
	}
	if in.CountryCode != nil {
		user.CountryCode = *in.CountryCode
	}
	user.Normalize()
	if err := user.Validate(); err != nil {
		return nil, invalid(err)
	}
	if err := s.users.Update(user); err != nil {
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}
	user.PasswordHash = ""
	return user, nil
}
