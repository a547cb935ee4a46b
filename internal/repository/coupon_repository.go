package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"example.com/checkout/internal/coupon"
)

// CouponRepository — доступ к купонам и атомарному claim в MySQL.
type CouponRepository interface {
	coupon.Repository

	// ClaimCoupon атомарно увеличивает счётчик применений купона.
	// Атомарность лимита применений обеспечивает хранимая процедура claim_coupon
	// на стороне MySQL. Возвращает false, если лимит исчерпан.
	ClaimCoupon(ctx context.Context, code, discordID string, source coupon.Source) (bool, error)
}

// couponRepository — GORM реализация CouponRepository.
type couponRepository struct {
	db *gorm.DB
}

// NewCouponRepository создаёт новый репозиторий купонов.
func NewCouponRepository(db *gorm.DB) CouponRepository {
	return &couponRepository{db: db}
}

// GetGiftCoupon возвращает подарочный купон по коду и владельцу.
// Купон другого пользователя неотличим от отсутствующего — не раскрываем
// существование чужих подарочных кодов.
func (r *couponRepository) GetGiftCoupon(ctx context.Context, code, discordID string) (*coupon.Coupon, error) {
	var model GiftCouponModel

	err := r.db.WithContext(ctx).
		Where("UPPER(code) = ? AND discord_id = ?", coupon.NormalizeCode(code), discordID).
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, coupon.ErrCouponNotFound
		}
		return nil, err
	}

	return model.toDomain(), nil
}

// GetCoupon возвращает общий купон по коду.
func (r *couponRepository) GetCoupon(ctx context.Context, code string) (*coupon.Coupon, error) {
	var model CouponModel

	err := r.db.WithContext(ctx).
		Where("UPPER(code) = ?", coupon.NormalizeCode(code)).
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, coupon.ErrCouponNotFound
		}
		return nil, err
	}

	return model.toDomain(), nil
}

// claimResult — строка результата хранимой процедуры claim_coupon.
type claimResult struct {
	Claimed int `gorm:"column:claimed"`
}

// ClaimCoupon вызывает хранимую процедуру claim_coupon.
// Процедура инкрементирует uses только если лимит не исчерпан
// (UPDATE ... WHERE uses < max_uses) и возвращает claimed = 0/1.
func (r *couponRepository) ClaimCoupon(ctx context.Context, code, discordID string, source coupon.Source) (bool, error) {
	var result claimResult

	err := r.db.WithContext(ctx).
		Raw("CALL claim_coupon(?, ?, ?)", coupon.NormalizeCode(code), discordID, string(source)).
		Scan(&result).Error
	if err != nil {
		return false, fmt.Errorf("ошибка вызова claim_coupon: %w", err)
	}

	return result.Claimed == 1, nil
}
