package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/mediabanai/telegram-social-downloader/internal/models"
	"gorm.io/gorm"
)

// getOrCreateAdminConfig loads the row for adminID, creating the default
// record on first use so update paths never race a missing row.
func (s *SQLiteDatabase) getOrCreateAdminConfig(ctx context.Context, adminID int64) (*models.AdminConfig, error) {
	var cfg models.AdminConfig
	err := s.db.WithContext(ctx).Where("id = ?", adminID).First(&cfg).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		cfg = models.AdminConfig{ID: adminID, Mode: models.ModeWebhook, LastLikedID: "0"}
		if createErr := s.db.WithContext(ctx).Create(&cfg).Error; createErr != nil {
			return nil, fmt.Errorf("create admin config: %w", createErr)
		}
		return &cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load admin config: %w", err)
	}
	return &cfg, nil
}

func (s *SQLiteDatabase) GetAdminConfig(ctx context.Context, adminID int64) (*models.AdminConfig, error) {
	return s.getOrCreateAdminConfig(ctx, adminID)
}

func (s *SQLiteDatabase) SetTwitterAPI(ctx context.Context, adminID int64, apiKey, targetHandle string) error {
	if _, err := s.getOrCreateAdminConfig(ctx, adminID); err != nil {
		return err
	}
	return s.updateAdminColumns(ctx, adminID, map[string]any{
		"api_key":       apiKey,
		"target_handle": targetHandle,
		"mode":          models.ModeAPI,
		"last_liked_id": "0",
	})
}

func (s *SQLiteDatabase) SetMode(ctx context.Context, adminID int64, mode string) error {
	if mode != models.ModeAPI && mode != models.ModeWebhook {
		return fmt.Errorf("invalid mode %q", mode)
	}
	if _, err := s.getOrCreateAdminConfig(ctx, adminID); err != nil {
		return err
	}
	return s.updateAdminColumns(ctx, adminID, map[string]any{"mode": mode})
}

func (s *SQLiteDatabase) UpdateLastLikedID(ctx context.Context, adminID int64, id string) error {
	return s.updateAdminColumns(ctx, adminID, map[string]any{"last_liked_id": id})
}

func (s *SQLiteDatabase) SetRedditFeed(ctx context.Context, adminID int64, feedURL string) error {
	if _, err := s.getOrCreateAdminConfig(ctx, adminID); err != nil {
		return err
	}
	return s.updateAdminColumns(ctx, adminID, map[string]any{
		"reddit_feed_url": feedURL,
		"reddit_active":   true,
		"last_post_id":    "",
	})
}

func (s *SQLiteDatabase) DisableRedditFeed(ctx context.Context, adminID int64) error {
	return s.updateAdminColumns(ctx, adminID, map[string]any{"reddit_active": false})
}

func (s *SQLiteDatabase) UpdateLastPostID(ctx context.Context, adminID int64, id string) error {
	return s.updateAdminColumns(ctx, adminID, map[string]any{"last_post_id": id})
}

func (s *SQLiteDatabase) updateAdminColumns(ctx context.Context, adminID int64, columns map[string]any) error {
	err := s.db.WithContext(ctx).
		Model(&models.AdminConfig{}).
		Where("id = ?", adminID).
		Updates(columns).Error
	if err != nil {
		return fmt.Errorf("update admin config: %w", err)
	}
	return nil
}
