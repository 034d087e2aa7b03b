package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"dopamine-dashboard/internal/auth"
	"dopamine-dashboard/internal/domain"
)

// RegisterInput is a password registration request.
type RegisterInput struct {
	Name     string `json:"name" validate:"required,max=100"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

// LoginInput is a password login request.
type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// Session is a signed token with the user it was issued to.
type Session struct {
	Token string      `json:"token"`
	User  domain.User `json:"user"`
}

// AuthService registers and authenticates users.
type AuthService struct {
	deps     Deps
	issuer   *auth.Issuer
	verifier auth.GoogleVerifier
}

func NewAuthService(deps Deps, issuer *auth.Issuer, verifier auth.GoogleVerifier) *AuthService {
	return &AuthService{deps: deps.withDefaults(), issuer: issuer, verifier: verifier}
}

// Register creates a student account with a password.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (Session, error) {
	user, err := s.CreateUser(ctx, in, domain.RoleStudent)
	if err != nil {
		return Session{}, err
	}
	return s.issue(user)
}

// CreateUser stores a password account with the given role.
func (s *AuthService) CreateUser(ctx context.Context, in RegisterInput, role string) (domain.User, error) {
	in.Email = normalizeEmail(in.Email)
	in.Name = strings.TrimSpace(in.Name)
	if err := validateStruct(in); err != nil {
		return domain.User{}, err
	}
	if role != domain.RoleStudent && role != domain.RoleAdmin {
		return domain.User{}, domain.NewValidationError("unknown role",
			domain.FieldError{Field: "role", Message: "must be one of: student admin"})
	}
	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return domain.User{}, err
	}
	user := domain.User{
		ID:           s.deps.NewID(),
		Email:        in.Email,
		Name:         in.Name,
		Role:         role,
		PasswordHash: hash,
		CreatedAt:    s.deps.now(),
	}
	if err := s.deps.Users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			return domain.User{}, fmt.Errorf("%w: email already registered", domain.ErrConflict)
		}
		return domain.User{}, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}

// Login checks a password and issues a token.
func (s *AuthService) Login(ctx context.Context, in LoginInput) (Session, error) {
	in.Email = normalizeEmail(in.Email)
	if err := validateStruct(in); err != nil {
		return Session{}, err
	}
	user, err := s.deps.Users.FindUserByEmail(ctx, in.Email)
	if errors.Is(err, domain.ErrNotFound) {
		return Session{}, fmt.Errorf("%w: invalid credentials", domain.ErrUnauthorized)
	}
	if err != nil {
		return Session{}, err
	}
	if err := auth.CheckPassword(user.PasswordHash, in.Password); err != nil {
		return Session{}, err
	}
	return s.issue(user)
}

// GoogleLogin verifies a Google ID token, creating the account on first sign-in or
// linking it to an existing account with the same email.
func (s *AuthService) GoogleLogin(ctx context.Context, idToken string) (Session, error) {
	if strings.TrimSpace(idToken) == "" {
		return Session{}, domain.NewValidationError("id token is required",
			domain.FieldError{Field: "idToken", Message: "is required"})
	}
	identity, err := s.verifier.Verify(ctx, idToken)
	if err != nil {
		return Session{}, err
	}

	user, err := s.deps.Users.FindUserByGoogleID(ctx, identity.Subject)
	if err == nil {
		return s.issue(user)
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return Session{}, err
	}

	email := normalizeEmail(identity.Email)
	user, err = s.deps.Users.FindUserByEmail(ctx, email)
	switch {
	case err == nil:
		user.GoogleID = identity.Subject
		if err := s.deps.Users.UpdateUser(ctx, user); err != nil {
			return Session{}, fmt.Errorf("link google account: %w", err)
		}
	case errors.Is(err, domain.ErrNotFound):
		name := identity.Name
		if name == "" {
			name = email
		}
		user = domain.User{
			ID:        s.deps.NewID(),
			Email:     email,
			Name:      name,
			Role:      domain.RoleStudent,
			GoogleID:  identity.Subject,
			CreatedAt: s.deps.now(),
		}
		if err := s.deps.Users.CreateUser(ctx, user); err != nil {
			return Session{}, fmt.Errorf("create google user: %w", err)
		}
	default:
		return Session{}, err
	}
	return s.issue(user)
}

// Me returns the user behind a token subject.
func (s *AuthService) Me(ctx context.Context, userID string) (domain.User, error) {
	user, err := s.deps.Users.GetUser(ctx, userID)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.User{}, fmt.Errorf("%w: account no longer exists", domain.ErrUnauthorized)
	}
	return user, err
}

// Authenticate parses a session token.
func (s *AuthService) Authenticate(token string) (auth.Claims, error) {
	return s.issuer.Parse(token)
}

func (s *AuthService) issue(user domain.User) (Session, error) {
	token, err := s.issuer.Generate(user)
	if err != nil {
		return Session{}, err
	}
	return Session{Token: token, User: user}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
