package repository

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestUserRepository_Upsert(t *testing.T) {
	gormDB, mock, cleanup := setupMockDB(t)
	defer cleanup()

	repo := NewUserRepository(gormDB)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO `discord_users` .* ON DUPLICATE KEY UPDATE .*").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.Upsert(context.Background(), &DiscordUser{
		DiscordID: "42",
		Username:  "tester",
		Email:     "t@example.com",
	})
	require.NoError(t, err)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_GetByDiscordID(t *testing.T) {
	gormDB, mock, cleanup := setupMockDB(t)
	defer cleanup()

	repo := NewUserRepository(gormDB)

	rows := sqlmock.NewRows([]string{"discord_id", "username", "global_name", "avatar", "email"}).
		AddRow("42", "tester", "Tester", "abc", "t@example.com")

	mock.ExpectQuery("SELECT .* FROM `discord_users` WHERE discord_id = .*").
		WithArgs("42", 1).
		WillReturnRows(rows)

	user, err := repo.GetByDiscordID(context.Background(), "42")
	require.NoError(t, err)

	assert.Equal(t, "42", user.DiscordID)
	assert.Equal(t, "tester", user.Username)
	assert.Equal(t, "t@example.com", user.Email)
}

func TestUserRepository_GetByDiscordID_NotFound(t *testing.T) {
	gormDB, mock, cleanup := setupMockDB(t)
	defer cleanup()

	repo := NewUserRepository(gormDB)

	mock.ExpectQuery("SELECT .* FROM `discord_users`").
		WillReturnError(gorm.ErrRecordNotFound)

	_, err := repo.GetByDiscordID(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestUserRepository_HasDevPermission(t *testing.T) {
	tests := []struct {
		name  string
		count int64
		want  bool
	}{
		{name: "доступ есть", count: 1, want: true},
		{name: "доступа нет", count: 0, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gormDB, mock, cleanup := setupMockDB(t)
			defer cleanup()

			repo := NewUserRepository(gormDB)

			mock.ExpectQuery("SELECT count\\(\\*\\) FROM `dev_permission` WHERE discord_id = .*").
				WithArgs("42").
				WillReturnRows(sqlmock.NewRows([]string{"count(*)"}).AddRow(tt.count))

			got, err := repo.HasDevPermission(context.Background(), "42")
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
