package models

import "time"

// User is an append-only registry of everyone who ever talked to the bot.
type User struct {
	ID        uint      `json:"id"         gorm:"primaryKey"`
	ChatID    int64     `json:"chat_id"    gorm:"not null;uniqueIndex"`
	Name      string    `json:"name"       gorm:"not null"`
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
}

// CacheEntry maps a normalized source URL to the Telegram file handle issued
// after a successful upload, so repeat requests skip the download entirely.
type CacheEntry struct {
	ID        uint      `json:"id"         gorm:"primaryKey"`
	SourceURL string    `json:"source_url" gorm:"not null;uniqueIndex"`
	MediaKind string    `json:"media_kind" gorm:"not null"`
	FileID    string    `json:"file_id"    gorm:"not null"`
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// AdminConfig holds the per-admin automation settings: the Twitter likes
// watcher and the Reddit saved-posts feed watcher, each with its own
// high-water mark.
type AdminConfig struct {
	ID           int64  `json:"id"             gorm:"primaryKey"` // admin chat id
	Mode         string `json:"mode"           gorm:"not null;default:'webhook'"`
	APIKey       string `json:"api_key"        gorm:""`
	TargetHandle string `json:"target_handle"  gorm:""`
	LastLikedID  string `json:"last_liked_id"  gorm:"not null;default:'0'"`

	RedditFeedURL string `json:"reddit_feed_url" gorm:""`
	RedditActive  bool   `json:"reddit_active"   gorm:"not null;default:false"`
	LastPostID    string `json:"last_post_id"    gorm:""`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

const (
	ModeAPI     = "api"
	ModeWebhook = "webhook"
)
