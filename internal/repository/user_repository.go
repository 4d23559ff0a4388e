package repository

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Leganyst/docwatch/internal/model"
)

type UserRepository interface {
	Create(ctx context.Context, u *model.User) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.User, error)
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	// Looks up a user created through an OAuth provider.
	FindByProvider(ctx context.Context, provider model.AuthProvider, providerID string) (*model.User, error)
	LinkProvider(ctx context.Context, id uuid.UUID, provider model.AuthProvider, providerID string) error
}

type GormUserRepository struct {
	db *gorm.DB
}

func NewGormUserRepository(db *gorm.DB) *GormUserRepository {
	return &GormUserRepository{db: db}
}

// NormalizeEmail lower-cases and trims an address; emails are unique case-insensitively.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func normalizePhone(phone string) string {
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return ""
	}
	// Keep a leading plus and digits; ignore formatting characters.
	b := make([]byte, 0, len(phone))
	for i := 0; i < len(phone); i++ {
		c := phone[i]
		if (c >= '0' && c <= '9') || (c == '+' && len(b) == 0) {
			b = append(b, c)
		}
	}
	return string(b)
}

func (r *GormUserRepository) Create(ctx context.Context, u *model.User) error {
	u.Email = NormalizeEmail(u.Email)
	u.Phone = normalizePhone(u.Phone)
	if u.Provider == "" {
		u.Provider = model.AuthProviderLocal
	}
	return r.db.WithContext(ctx).Create(u).Error
}

func (r *GormUserRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	var u model.User
	if err := r.db.WithContext(ctx).First(&u, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *GormUserRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	var u model.User
	if err := r.db.WithContext(ctx).Where("email = ?", NormalizeEmail(email)).First(&u).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *GormUserRepository) FindByProvider(ctx context.Context, provider model.AuthProvider, providerID string) (*model.User, error) {
	var u model.User
	err := r.db.WithContext(ctx).
		Where("provider = ? AND provider_id = ?", provider, providerID).
		First(&u).Error
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *GormUserRepository) LinkProvider(ctx context.Context, id uuid.UUID, provider model.AuthProvider, providerID string) error {
	return r.db.WithContext(ctx).
		Model(&model.User{}).
		Where("id = ?", id).
		Updates(map[string]any{"provider": provider, "provider_id": providerID}).
		Error
}
