package database

import (
	"context"
	"fmt"

	"github.com/mediabanai/telegram-social-downloader/internal/models"
	"gorm.io/gorm/clause"
)

// EnsureUser appends the user on first contact; existing rows are left
// untouched (append-only registry).
func (s *SQLiteDatabase) EnsureUser(ctx context.Context, chatID int64, name string) error {
	user := models.User{ChatID: chatID, Name: name}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "chat_id"}},
		DoNothing: true,
	}).Create(&user).Error
	if err != nil {
		return fmt.Errorf("register user: %w", err)
	}
	return nil
}

func (s *SQLiteDatabase) GetUserCount(ctx context.Context) (int64, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return count, nil
}
