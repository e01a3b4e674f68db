package config

import (
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	DefaultTwitterPollInterval = 60 * time.Second
	DefaultRedditPollInterval  = 2 * time.Minute
	DefaultWatcherItemDelay    = 2 * time.Second
)

// UAAndroidBrowser is sent on generic platform requests; several sources
// block obvious server user agents.
const UAAndroidBrowser = "Mozilla/5.0 (Linux; Android 10; K) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Mobile Safari/537.36"

// UARedditApp mimics the official Android client; reddit's JSON endpoint
// rejects most other agents.
const UARedditApp = "Reddit/Version 2024.17.0/Build 1521017/Android 13"

// UADesktopBrowser is used for feed fetches, where a mobile agent gets
// redirected to the mobile site.
const UADesktopBrowser = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

var defaultRedditMirrors = []string{
	"https://redlib.catsarch.com",
	"https://redlib.vlingit.com",
	"https://libreddit.kavin.rocks",
	"https://redlib.tux.pizza",
}

type Config struct {
	BotToken    string
	AdminID     int64
	DownloadDir string
	DBPath      string
	CookiePath  string
	RawCookies  string
	ListenAddr  string
	LogLevel    string

	YtdlpPath  string
	FfmpegPath string

	RedditMirrors []string

	WatcherSettings WatcherConfig
}

type WatcherConfig struct {
	TwitterPollInterval time.Duration
	RedditPollInterval  time.Duration
	ItemDelay           time.Duration
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value, exists := os.LookupEnv(key); exists {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvList(key string, defaultValue []string) []string {
	value, exists := os.LookupEnv(key)
	if !exists || strings.TrimSpace(value) == "" {
		return defaultValue
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, strings.TrimSuffix(trimmed, "/"))
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}

func NewConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	downloadDir := getEnv("DOWNLOAD_DIR", "./downloads")

	config := &Config{
		BotToken:    getEnv("BOT_TOKEN", ""),
		AdminID:     getEnvInt64("ADMIN_ID", 0),
		DownloadDir: downloadDir,
		DBPath:      getEnv("DB_PATH", filepath.Join(downloadDir, "socialsaver.db")),
		CookiePath:  getEnv("COOKIE_PATH", "./cookies.txt"),
		RawCookies:  getEnv("REDDIT_COOKIES", ""),
		ListenAddr:  getEnv("LISTEN_ADDR", ":3000"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),

		YtdlpPath:  getEnv("YTDLP_PATH", "yt-dlp"),
		FfmpegPath: getEnv("FFMPEG_PATH", "ffmpeg"),

		RedditMirrors: getEnvList("REDDIT_MIRRORS", defaultRedditMirrors),

		WatcherSettings: WatcherConfig{
			TwitterPollInterval: getEnvDuration("TWITTER_POLL_INTERVAL", DefaultTwitterPollInterval),
			RedditPollInterval:  getEnvDuration("REDDIT_POLL_INTERVAL", DefaultRedditPollInterval),
			ItemDelay:           getEnvDuration("WATCHER_ITEM_DELAY", DefaultWatcherItemDelay),
		},
	}

	if err := config.validate(); err != nil {
		log.Printf("Configuration validation failed: %v", err)
		return nil, err
	}

	return config, nil
}
