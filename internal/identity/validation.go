package identity

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Leganyst/docwatch/internal/model"
)

// Errors for the identity a token refers to.
var (
	ErrInvalidUserID = errors.New("invalid user id")
	ErrUserNotFound  = errors.New("user not found")
)

// UserStore is where users are looked up. The database in production, a fake in tests.
type UserStore interface {
	FindByID(ctx context.Context, id uuid.UUID) (*model.User, error)
}

// Resolve checks the id and loads the user it names.
// A user deleted after the token was issued yields ErrUserNotFound.
func Resolve(ctx context.Context, store UserStore, id uuid.UUID) (*model.User, error) {
	if id == uuid.Nil {
		return nil, ErrInvalidUserID
	}

	u, err := store.FindByID(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, ErrUserNotFound
	}
	return u, nil
}

type ctxKey struct{}

// WithUser attaches the resolved user to ctx.
func WithUser(ctx context.Context, u *model.User) context.Context {
	return context.WithValue(ctx, ctxKey{}, u)
}

// FromContext returns the user attached by WithUser.
func FromContext(ctx context.Context) (*model.User, bool) {
	u, ok := ctx.Value(ctxKey{}).(*model.User)
	return u, ok && u != nil
}
