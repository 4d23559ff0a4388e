package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/Leganyst/docwatch/internal/model"
	"github.com/Leganyst/docwatch/internal/testutil"
)

func seedDocument(t *testing.T, db *gorm.DB, u *model.User, expiry time.Time) *model.Document {
	t.Helper()
	d := &model.Document{
		UserID:     u.ID,
		Country:    "NG",
		Type:       "passport",
		Number:     "A" + expiry.Format("20060102150405"),
		IssueDate:  expiry.AddDate(-5, 0, 0),
		ExpiryDate: expiry,
		Status:     model.DocumentStatusValid,
	}
	require.NoError(t, db.Create(d).Error)
	return d
}

func TestGormPaymentRepository_RecordAndExtend_OnlyOnce(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewGormPaymentRepository(db)
	ctx := context.Background()
	u := testutil.CreateUser(t, db, "u@example.com")
	expiry := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	doc := seedDocument(t, db, u, expiry)

	extensions := 0
	extend := func(d *model.Document) {
		extensions++
		d.ExpiryDate = d.ExpiryDate.AddDate(1, 0, 0)
	}

	pay := func() *model.Payment {
		return &model.Payment{
			UserID: u.ID, DocumentID: doc.ID, Amount: 5000, Currency: "THB",
			Reference: "chrg_1", TransactionID: "trxn_1",
			Status: model.PaymentStatusSuccess, PaidAt: time.Now().UTC(),
		}
	}

	updated, err := repo.RecordAndExtend(ctx, pay(), extend)
	require.NoError(t, err)
	assert.True(t, updated.ExpiryDate.Equal(expiry.AddDate(1, 0, 0)))

	_, err = repo.RecordAndExtend(ctx, pay(), extend)
	assert.ErrorIs(t, err, ErrPaymentRecorded)
	assert.Equal(t, 1, extensions)

	stored, err := repo.FindByReference(ctx, "chrg_1")
	require.NoError(t, err)
	assert.Equal(t, doc.ID, stored.DocumentID)

	var reloaded model.Document
	require.NoError(t, db.First(&reloaded, "id = ?", doc.ID).Error)
	assert.True(t, reloaded.ExpiryDate.Equal(expiry.AddDate(1, 0, 0)))
}

func TestGormPaymentRepository_RecordAndExtend_ForeignDocument(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewGormPaymentRepository(db)
	owner := testutil.CreateUser(t, db, "owner@example.com")
	intruder := testutil.CreateUser(t, db, "x@example.com")
	doc := seedDocument(t, db, owner, time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC))

	_, err := repo.RecordAndExtend(context.Background(), &model.Payment{
		UserID: intruder.ID, DocumentID: doc.ID, Amount: 1, Currency: "THB",
		Reference: "chrg_x", Status: model.PaymentStatusSuccess, PaidAt: time.Now().UTC(),
	}, func(*model.Document) { t.Fatal("must not extend a foreign document") })
	assert.True(t, errors.Is(err, gorm.ErrRecordNotFound))

	_, err = repo.FindByReference(context.Background(), "chrg_x")
	assert.True(t, errors.Is(err, gorm.ErrRecordNotFound))
}

func TestPaymentReferenceIndex_IsUnique(t *testing.T) {
	db := testutil.NewDB(t)
	u := testutil.CreateUser(t, db, "u@example.com")
	doc := seedDocument(t, db, u, time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC))

	p := model.Payment{UserID: u.ID, DocumentID: doc.ID, Amount: 1, Currency: "THB", Reference: "dup", Status: model.PaymentStatusSuccess, PaidAt: time.Now().UTC()}
	require.NoError(t, db.Create(&p).Error)
	p2 := p
	p2.ID = uuid.Nil
	err := db.Create(&p2).Error
	assert.True(t, errors.Is(err, gorm.ErrDuplicatedKey), "got %v", err)
}
