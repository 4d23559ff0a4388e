package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Leganyst/docwatch/internal/model"
)

// ErrPaymentRecorded means a payment with this reference already exists.
var ErrPaymentRecorded = errors.New("payment reference already recorded")

type PaymentRepository interface {
	FindByReference(ctx context.Context, reference string) (*model.Payment, error)
	// Records the payment and extends the document in one transaction.
	RecordAndExtend(ctx context.Context, payment *model.Payment, extend func(doc *model.Document)) (*model.Document, error)
}

type GormPaymentRepository struct {
	db *gorm.DB
}

func NewGormPaymentRepository(db *gorm.DB) *GormPaymentRepository {
	return &GormPaymentRepository{db: db}
}

func (r *GormPaymentRepository) FindByReference(ctx context.Context, reference string) (*model.Payment, error) {
	var p model.Payment
	if err := r.db.WithContext(ctx).Where("reference = ?", reference).First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

// RecordAndExtend inserts the payment and applies extend to the locked target
// document. If the reference is already present, either found up front or
// through the unique index, nothing changes and ErrPaymentRecorded is returned.
func (r *GormPaymentRepository) RecordAndExtend(
	ctx context.Context,
	payment *model.Payment,
	extend func(doc *model.Document),
) (*model.Document, error) {
	var doc model.Document
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var seen int64
		if err := tx.Model(&model.Payment{}).Where("reference = ?", payment.Reference).Count(&seen).Error; err != nil {
			return err
		}
		if seen > 0 {
			return ErrPaymentRecorded
		}

		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&doc, "id = ? AND user_id = ?", payment.DocumentID, payment.UserID).Error; err != nil {
			return err
		}

		if err := tx.Create(payment).Error; err != nil {
			return err
		}

		extend(&doc)
		return tx.Save(&doc).Error
	})
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return nil, ErrPaymentRecorded
	}
	if err != nil {
		return nil, err
	}
	return &doc, nil
}
