package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/mediabanai/telegram-social-downloader/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

func (s *SQLiteDatabase) GetCache(ctx context.Context, sourceURL string) (*models.CacheEntry, error) {
	var entry models.CacheEntry
	err := s.db.WithContext(ctx).Where("source_url = ?", sourceURL).First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("cache lookup: %w", err)
	}
	return &entry, nil
}

func (s *SQLiteDatabase) PutCache(ctx context.Context, sourceURL, mediaKind, fileID string) error {
	entry := models.CacheEntry{
		SourceURL: sourceURL,
		MediaKind: mediaKind,
		FileID:    fileID,
	}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "source_url"}},
		DoUpdates: clause.AssignmentColumns([]string{"media_kind", "file_id", "updated_at"}),
	}).Create(&entry).Error
	if err != nil {
		return fmt.Errorf("cache store: %w", err)
	}
	return nil
}
