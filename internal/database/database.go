package database

import (
	"context"

	"github.com/mediabanai/telegram-social-downloader/internal/config"
	"github.com/mediabanai/telegram-social-downloader/internal/models"
)

// CacheStore is the read/write subset used by the delivery pipeline.
// GetCache returns (nil, nil) for an unseen URL; PutCache upserts.
type CacheStore interface {
	GetCache(ctx context.Context, sourceURL string) (*models.CacheEntry, error)
	PutCache(ctx context.Context, sourceURL, mediaKind, fileID string) error
}

// AdminStore covers the automation configuration and its high-water marks.
type AdminStore interface {
	GetAdminConfig(ctx context.Context, adminID int64) (*models.AdminConfig, error)
	SetTwitterAPI(ctx context.Context, adminID int64, apiKey, targetHandle string) error
	SetMode(ctx context.Context, adminID int64, mode string) error
	UpdateLastLikedID(ctx context.Context, adminID int64, id string) error
	SetRedditFeed(ctx context.Context, adminID int64, feedURL string) error
	DisableRedditFeed(ctx context.Context, adminID int64) error
	UpdateLastPostID(ctx context.Context, adminID int64, id string) error
}

// UserStore is the append-only user registry.
type UserStore interface {
	EnsureUser(ctx context.Context, chatID int64, name string) error
	GetUserCount(ctx context.Context) (int64, error)
}

type Database interface {
	CacheStore
	AdminStore
	UserStore
	Init(config *config.Config) error
}

var GlobalDB Database

func InitDatabase(cfg *config.Config) error {
	db := NewSQLiteDatabase()
	if err := db.Init(cfg); err != nil {
		return err
	}
	GlobalDB = db
	return nil
}
