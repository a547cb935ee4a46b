package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"example.com/checkout/internal/coupon"
)

// setupMockDB создаёт мок базы данных с GORM.
func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err, "Ошибка создания sqlmock")

	dialector := mysql.New(mysql.Config{
		Conn:                      db,
		SkipInitializeWithVersion: true,
	})

	gormDB, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err, "Ошибка инициализации GORM")

	return gormDB, mock, func() { _ = db.Close() }
}

func TestCouponRepository_GetCoupon(t *testing.T) {
	gormDB, mock, cleanup := setupMockDB(t)
	defer cleanup()

	repo := NewCouponRepository(gormDB)
	endsAt := time.Date(2026, 12, 31, 23, 59, 59, 0, time.UTC)

	rows := sqlmock.NewRows([]string{"id", "code", "kind", "value", "starts_at", "ends_at", "plan", "billing", "min_order_cents", "max_uses", "uses"}).
		AddRow(1, "LAUNCH50", "percent", 50, nil, endsAt, "pro", "", 0, 100, 7)

	mock.ExpectQuery("SELECT .* FROM `coupons` WHERE UPPER\\(code\\) = .*").
		WithArgs("LAUNCH50", 1).
		WillReturnRows(rows)

	c, err := repo.GetCoupon(context.Background(), "launch50")
	require.NoError(t, err)

	assert.Equal(t, "LAUNCH50", c.Code)
	assert.Equal(t, coupon.SourceGeneral, c.Source)
	assert.Equal(t, coupon.KindPercent, c.Kind)
	assert.Equal(t, int64(50), c.Value)
	assert.Equal(t, 100, c.MaxUses)
	assert.Equal(t, 7, c.Uses)
	require.NotNil(t, c.EndsAt)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCouponRepository_GetCoupon_NotFound(t *testing.T) {
	gormDB, mock, cleanup := setupMockDB(t)
	defer cleanup()

	repo := NewCouponRepository(gormDB)

	mock.ExpectQuery("SELECT .* FROM `coupons`").
		WillReturnError(gorm.ErrRecordNotFound)

	_, err := repo.GetCoupon(context.Background(), "NOPE")
	assert.ErrorIs(t, err, coupon.ErrCouponNotFound)
}

func TestCouponRepository_GetGiftCoupon(t *testing.T) {
	gormDB, mock, cleanup := setupMockDB(t)
	defer cleanup()

	repo := NewCouponRepository(gormDB)

	rows := sqlmock.NewRows([]string{"id", "code", "discord_id", "kind", "value", "ends_at", "max_uses", "uses"}).
		AddRow(1, "GIFT1", "user-1", "target_total", 1, nil, 1, 0)

	mock.ExpectQuery("SELECT .* FROM `gift_coupons` WHERE UPPER\\(code\\) = .* AND discord_id = .*").
		WithArgs("GIFT1", "user-1", 1).
		WillReturnRows(rows)

	c, err := repo.GetGiftCoupon(context.Background(), "gift1", "user-1")
	require.NoError(t, err)

	assert.Equal(t, coupon.SourceGift, c.Source)
	assert.Equal(t, "user-1", c.OwnerDiscordID)
	assert.Equal(t, coupon.KindTargetTotal, c.Kind)
}

func TestCouponRepository_GetGiftCoupon_WrongOwner(t *testing.T) {
	gormDB, mock, cleanup := setupMockDB(t)
	defer cleanup()

	repo := NewCouponRepository(gormDB)

	// Чужой подарочный купон неотличим от отсутствующего
	mock.ExpectQuery("SELECT .* FROM `gift_coupons`").
		WillReturnError(gorm.ErrRecordNotFound)

	_, err := repo.GetGiftCoupon(context.Background(), "GIFT1", "stranger")
	assert.ErrorIs(t, err, coupon.ErrCouponNotFound)
}

func TestCouponRepository_ClaimCoupon(t *testing.T) {
	tests := []struct {
		name        string
		claimed     int
		wantClaimed bool
	}{
		{name: "успешный claim", claimed: 1, wantClaimed: true},
		{name: "лимит исчерпан", claimed: 0, wantClaimed: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gormDB, mock, cleanup := setupMockDB(t)
			defer cleanup()

			repo := NewCouponRepository(gormDB)

			mock.ExpectQuery(regexp.QuoteMeta("CALL claim_coupon(?, ?, ?)")).
				WithArgs("PROMO", "user-1", "general").
				WillReturnRows(sqlmock.NewRows([]string{"claimed"}).AddRow(tt.claimed))

			claimed, err := repo.ClaimCoupon(context.Background(), "promo", "user-1", coupon.SourceGeneral)
			require.NoError(t, err)
			assert.Equal(t, tt.wantClaimed, claimed)
		})
	}
}
