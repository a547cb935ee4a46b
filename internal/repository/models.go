// Package repository содержит доступ к данным MySQL через GORM.
package repository

import (
	"time"

	"example.com/checkout/internal/coupon"
	"example.com/checkout/internal/pricing"
)

// CouponModel — GORM модель для таблицы общих купонов.
type CouponModel struct {
	ID            uint       `gorm:"column:id;primaryKey;autoIncrement"`
	Code          string     `gorm:"column:code;type:varchar(64);uniqueIndex;not null"`
	Kind          string     `gorm:"column:kind;type:varchar(20);not null"`
	Value         int64      `gorm:"column:value;not null"`
	StartsAt      *time.Time `gorm:"column:starts_at"`
	EndsAt        *time.Time `gorm:"column:ends_at"`
	Plan          string     `gorm:"column:plan;type:varchar(20)"`
	Billing       string     `gorm:"column:billing;type:varchar(20)"`
	MinOrderCents int64      `gorm:"column:min_order_cents;not null;default:0"`
	MaxUses       int        `gorm:"column:max_uses;not null;default:0"`
	Uses          int        `gorm:"column:uses;not null;default:0"`
	CreatedAt     time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName возвращает имя таблицы в БД.
func (CouponModel) TableName() string {
	return "coupons"
}

// toDomain конвертирует GORM модель в доменную сущность.
func (m *CouponModel) toDomain() *coupon.Coupon {
	return &coupon.Coupon{
		Code:          coupon.NormalizeCode(m.Code),
		Source:        coupon.SourceGeneral,
		Kind:          coupon.Kind(m.Kind),
		Value:         m.Value,
		StartsAt:      m.StartsAt,
		EndsAt:        m.EndsAt,
		Plan:          pricing.Plan(m.Plan),
		Billing:       pricing.Billing(m.Billing),
		MinOrderCents: m.MinOrderCents,
		MaxUses:       m.MaxUses,
		Uses:          m.Uses,
	}
}

// GiftCouponModel — GORM модель для таблицы подарочных купонов.
// Подарочный купон эксклюзивен для одного Discord-пользователя
// и ведёт собственный счётчик применений.
type GiftCouponModel struct {
	ID        uint       `gorm:"column:id;primaryKey;autoIncrement"`
	Code      string     `gorm:"column:code;type:varchar(64);uniqueIndex;not null"`
	DiscordID string     `gorm:"column:discord_id;type:varchar(32);not null;index"`
	Kind      string     `gorm:"column:kind;type:varchar(20);not null"`
	Value     int64      `gorm:"column:value;not null"`
	EndsAt    *time.Time `gorm:"column:ends_at"`
	MaxUses   int        `gorm:"column:max_uses;not null;default:1"`
	Uses      int        `gorm:"column:uses;not null;default:0"`
	CreatedAt time.Time  `gorm:"column:created_at;autoCreateTime"`
}

// TableName возвращает имя таблицы в БД.
func (GiftCouponModel) TableName() string {
	return "gift_coupons"
}

// toDomain конвертирует GORM модель в доменную сущность.
func (m *GiftCouponModel) toDomain() *coupon.Coupon {
	return &coupon.Coupon{
		Code:           coupon.NormalizeCode(m.Code),
		Source:         coupon.SourceGift,
		Kind:           coupon.Kind(m.Kind),
		Value:          m.Value,
		EndsAt:         m.EndsAt,
		MaxUses:        m.MaxUses,
		Uses:           m.Uses,
		OwnerDiscordID: m.DiscordID,
	}
}

// PlanFeatureModel — GORM модель для таблицы фич тарифов.
// Страница checkout показывает матрицу возможностей по тарифам.
type PlanFeatureModel struct {
	ID       uint   `gorm:"column:id;primaryKey;autoIncrement"`
	Plan     string `gorm:"column:plan;type:varchar(20);not null;index"`
	Feature  string `gorm:"column:feature;type:varchar(255);not null"`
	Position int    `gorm:"column:position;not null;default:0"`
}

// TableName возвращает имя таблицы в БД.
func (PlanFeatureModel) TableName() string {
	return "plan_features"
}

// DiscordUserModel — GORM модель для таблицы пользователей Discord.
// Запись создаётся/обновляется в OAuth callback.
type DiscordUserModel struct {
	DiscordID  string    `gorm:"column:discord_id;type:varchar(32);primaryKey"`
	Username   string    `gorm:"column:username;type:varchar(100);not null"`
	GlobalName string    `gorm:"column:global_name;type:varchar(100)"`
	Avatar     string    `gorm:"column:avatar;type:varchar(100)"`
	Email      string    `gorm:"column:email;type:varchar(255)"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName возвращает имя таблицы в БД.
func (DiscordUserModel) TableName() string {
	return "discord_users"
}

// DevPermissionModel — GORM модель для таблицы доступа к dev-режиму.
// Пользователи из этой таблицы могут переопределять статус платежа
// вне production (для отладки checkout-флоу).
type DevPermissionModel struct {
	DiscordID string    `gorm:"column:discord_id;type:varchar(32);primaryKey"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

// TableName возвращает имя таблицы в БД.
func (DevPermissionModel) TableName() string {
	return "dev_permission"
}
