package database

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/mediabanai/telegram-social-downloader/internal/config"
	"github.com/mediabanai/telegram-social-downloader/internal/models"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const dbDirMode = 0o755

type SQLiteDatabase struct {
	db *gorm.DB
}

func NewSQLiteDatabase() *SQLiteDatabase {
	return &SQLiteDatabase{}
}

func (s *SQLiteDatabase) Init(cfg *config.Config) error {
	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), dbDirMode); err != nil {
		return fmt.Errorf("create database directory: %w", err)
	}

	db, err := gorm.Open(sqlite.Open(cfg.DBPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	s.db = db

	if err := s.runMigrations(); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	logrus.Info("Database initialized successfully")
	return nil
}

func (s *SQLiteDatabase) runMigrations() error {
	if err := s.db.AutoMigrate(&models.User{}, &models.CacheEntry{}, &models.AdminConfig{}); err != nil {
		return fmt.Errorf("auto migration failed: %w", err)
	}
	return nil
}
