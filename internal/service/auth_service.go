package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"pkt.systems/pslog"

	"github.com/Leganyst/docwatch/internal/auth"
	"github.com/Leganyst/docwatch/internal/identity"
	"github.com/Leganyst/docwatch/internal/model"
	"github.com/Leganyst/docwatch/internal/repository"
)

type SignupInput struct {
	FullName string
	Email    string
	Password string
	Phone    string
	Country  string
}

// Session is an authenticated user together with a freshly issued token.
type Session struct {
	User  *model.User
	Token string
}

type AuthService struct {
	users     repository.UserRepository
	tokens    *auth.Tokens
	verifiers map[model.AuthProvider]auth.IdentityVerifier
	logger    pslog.Logger
}

func NewAuthService(
	users repository.UserRepository,
	tokens *auth.Tokens,
	verifiers map[model.AuthProvider]auth.IdentityVerifier,
	logger pslog.Logger,
) *AuthService {
	if logger == nil {
		logger = pslog.NoopLogger()
	}
	return &AuthService{users: users, tokens: tokens, verifiers: verifiers, logger: logger}
}

func (s *AuthService) Signup(ctx context.Context, in SignupInput) (*Session, error) {
	in.FullName = strings.TrimSpace(in.FullName)
	in.Email = repository.NormalizeEmail(in.Email)
	if in.FullName == "" {
		return nil, invalid("full name is required")
	}
	if _, err := mail.ParseAddress(in.Email); err != nil {
		return nil, invalid("email is invalid")
	}

	hash, err := auth.HashPassword(in.Password)
	if errors.Is(err, auth.ErrPasswordTooShort) {
		return nil, invalid(err.Error())
	}
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	if _, err := s.users.FindByEmail(ctx, in.Email); err == nil {
		return nil, fmt.Errorf("%w: email already registered", ErrConflict)
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("find user: %w", err)
	}

	u := &model.User{
		FullName:     in.FullName,
		Email:        in.Email,
		Phone:        in.Phone,
		Country:      strings.TrimSpace(in.Country),
		PasswordHash: hash,
		Provider:     model.AuthProviderLocal,
	}
	if err := s.users.Create(ctx, u); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, fmt.Errorf("%w: email already registered", ErrConflict)
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	s.logger.Info("auth.signup", "user_id", u.ID.String())
	return s.session(u)
}

func (s *AuthService) Login(ctx context.Context, email, password string) (*Session, error) {
	u, err := s.users.FindByEmail(ctx, email)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: invalid email or password", ErrUnauthorized)
	}
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	// OAuth-only accounts have no password hash and never match.
	if !auth.CheckPassword(u.PasswordHash, password) {
		return nil, fmt.Errorf("%w: invalid email or password", ErrUnauthorized)
	}
	return s.session(u)
}

// OAuth signs in through an external provider. A known provider identity is
// reused; otherwise an account with the same email is linked, or a new one
// is created.
func (s *AuthService) OAuth(ctx context.Context, provider model.AuthProvider, token string) (*Session, error) {
	verifier, ok := s.verifiers[provider]
	if !ok || verifier == nil {
		return nil, invalid(fmt.Sprintf("unsupported provider %q", provider))
	}
	if strings.TrimSpace(token) == "" {
		return nil, invalid("token is required")
	}

	ident, err := verifier.Verify(ctx, token)
	if errors.Is(err, auth.ErrOAuthRejected) {
		return nil, fmt.Errorf("%w: %s token rejected", ErrUnauthorized, provider)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: verify %s token: %v", ErrUpstream, provider, err)
	}

	u, err := s.users.FindByProvider(ctx, ident.Provider, ident.ProviderID)
	switch {
	case err == nil:
		return s.session(u)
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, fmt.Errorf("find user by provider: %w", err)
	}

	u, err = s.users.FindByEmail(ctx, ident.Email)
	switch {
	case err == nil:
		if err := s.users.LinkProvider(ctx, u.ID, ident.Provider, ident.ProviderID); err != nil {
			return nil, fmt.Errorf("link provider: %w", err)
		}
		u.Provider, u.ProviderID = ident.Provider, ident.ProviderID
		s.logger.Info("auth.oauth.linked", "user_id", u.ID.String(), "provider", string(provider))
		return s.session(u)
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, fmt.Errorf("find user: %w", err)
	}

	name := strings.TrimSpace(ident.FullName)
	if name == "" {
		name = ident.Email
	}
	u = &model.User{
		FullName:   name,
		Email:      ident.Email,
		Provider:   ident.Provider,
		ProviderID: ident.ProviderID,
	}
	if err := s.users.Create(ctx, u); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	s.logger.Info("auth.oauth.signup", "user_id", u.ID.String(), "provider", string(provider))
	return s.session(u)
}

// Authenticate verifies a token and resolves the user it names.
// Every failure is ErrUnauthorized except storage errors.
func (s *AuthService) Authenticate(ctx context.Context, token string) (*model.User, error) {
	if token == "" {
		return nil, fmt.Errorf("%w: missing credentials", ErrUnauthorized)
	}
	id, _, err := s.tokens.Parse(token)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid or expired token", ErrUnauthorized)
	}
	u, err := identity.Resolve(ctx, s.users, id)
	if errors.Is(err, identity.ErrUserNotFound) || errors.Is(err, identity.ErrInvalidUserID) {
		return nil, fmt.Errorf("%w: user no longer exists", ErrUnauthorized)
	}
	if err != nil {
		return nil, fmt.Errorf("resolve user: %w", err)
	}
	return u, nil
}

func (s *AuthService) Me(ctx context.Context, userID uuid.UUID) (*model.User, error) {
	u, err := identity.Resolve(ctx, s.users, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: user no longer exists", ErrUnauthorized)
	}
	return u, nil
}

func (s *AuthService) session(u *model.User) (*Session, error) {
	tok, err := s.tokens.Issue(u.ID, u.Email)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}
	return &Session{User: u, Token: tok}, nil
}
