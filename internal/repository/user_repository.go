package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrUserNotFound — пользователь Discord не найден в БД.
var ErrUserNotFound = errors.New("пользователь не найден")

// DiscordUser — пользователь Discord в системе.
type DiscordUser struct {
	DiscordID  string
	Username   string
	GlobalName string
	Avatar     string
	Email      string
}

// UserRepository определяет интерфейс для работы с пользователями Discord.
type UserRepository interface {
	// Upsert создаёт или обновляет пользователя (вызывается из OAuth callback).
	Upsert(ctx context.Context, user *DiscordUser) error

	// GetByDiscordID возвращает пользователя по Discord ID.
	GetByDiscordID(ctx context.Context, discordID string) (*DiscordUser, error)

	// HasDevPermission проверяет наличие записи в dev_permission.
	HasDevPermission(ctx context.Context, discordID string) (bool, error)
}

// userRepository — GORM реализация UserRepository.
type userRepository struct {
	db *gorm.DB
}

// NewUserRepository создаёт новый репозиторий пользователей.
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

// Upsert создаёт или обновляет пользователя.
// Профиль Discord меняется между логинами (ник, аватар), поэтому
// при конфликте по discord_id обновляем все поля профиля.
func (r *userRepository) Upsert(ctx context.Context, user *DiscordUser) error {
	model := &DiscordUserModel{
		DiscordID:  user.DiscordID,
		Username:   user.Username,
		GlobalName: user.GlobalName,
		Avatar:     user.Avatar,
		Email:      user.Email,
	}

	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "discord_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"username", "global_name", "avatar", "email", "updated_at"}),
		}).
		Create(model).Error
}

// GetByDiscordID возвращает пользователя по Discord ID.
func (r *userRepository) GetByDiscordID(ctx context.Context, discordID string) (*DiscordUser, error) {
	var model DiscordUserModel

	err := r.db.WithContext(ctx).
		Where("discord_id = ?", discordID).
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	return &DiscordUser{
		DiscordID:  model.DiscordID,
		Username:   model.Username,
		GlobalName: model.GlobalName,
		Avatar:     model.Avatar,
		Email:      model.Email,
	}, nil
}

// HasDevPermission проверяет наличие записи в dev_permission.
func (r *userRepository) HasDevPermission(ctx context.Context, discordID string) (bool, error) {
	var count int64

	err := r.db.WithContext(ctx).
		Model(&DevPermissionModel{}).
		Where("discord_id = ?", discordID).
		Count(&count).Error
	if err != nil {
		return false, err
	}

	return count > 0, nil
}
