package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	tsdapi "github.com/mediabanai/telegram-social-downloader/internal/api"
	tsdbot "github.com/mediabanai/telegram-social-downloader/internal/bot"
	tsdconfig "github.com/mediabanai/telegram-social-downloader/internal/config"
	"github.com/mediabanai/telegram-social-downloader/internal/database"
	"github.com/mediabanai/telegram-social-downloader/internal/downloadmanager"
	"github.com/mediabanai/telegram-social-downloader/internal/extractor"
	"github.com/mediabanai/telegram-social-downloader/internal/handlers"
	"github.com/mediabanai/telegram-social-downloader/internal/logging"
	"github.com/mediabanai/telegram-social-downloader/internal/pipeline"
	"github.com/mediabanai/telegram-social-downloader/internal/poller"
	"github.com/mediabanai/telegram-social-downloader/internal/splitter"
	"github.com/mediabanai/telegram-social-downloader/internal/ytdlp"
	"github.com/sirupsen/logrus"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	cfg, err := tsdconfig.NewConfig()
	if err != nil {
		logrus.WithError(err).Fatal("Failed to initialize configuration")
	}

	logging.Setup(cfg.LogLevel)
	logrus.WithFields(logrus.Fields{
		"version":    Version,
		"build_time": BuildTime,
	}).Info("Starting Telegram Social Downloader")

	if err := os.MkdirAll(cfg.DownloadDir, 0o755); err != nil {
		logrus.WithError(err).Fatal("Failed to create download directory")
	}

	if err := database.InitDatabase(cfg); err != nil {
		logrus.WithError(err).Fatal("Failed to initialize the database")
	}
	db := database.GlobalDB

	if err := ytdlp.WriteCookieFile(cfg.RawCookies, cfg.CookiePath); err != nil {
		logrus.WithError(err).Fatal("Failed to write the cookie file")
	}

	botInstance, err := tsdbot.InitBot(cfg)
	if err != nil {
		logrus.WithError(err).Fatal("Bot initialization failed")
	}

	tool := ytdlp.NewClient(cfg)
	router := extractor.NewRouter(cfg, tool)
	manager := downloadmanager.New(cfg, tool)
	pipe := pipeline.New(db, manager, splitter.New(cfg))
	handler := handlers.New(botInstance, cfg, db, router, pipe)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	adminNotify := botInstance.NewResponder(cfg.AdminID, 0)
	go poller.NewTwitterWatcher(cfg, db, handler, adminNotify).Run(ctx)
	go poller.NewRedditWatcher(cfg, db, handler, adminNotify).Run(ctx)

	go func() {
		if err := tsdapi.NewServer(cfg, handler).Run(ctx); err != nil {
			logrus.WithError(err).Error("Trigger endpoint stopped")
		}
	}()

	go processUpdates(ctx, botInstance, handler)

	logrus.Info("Telegram Social Downloader started successfully")

	<-sigChan
	logrus.Info("Received shutdown signal, starting graceful shutdown...")
	cancel()
	logrus.Info("Telegram Social Downloader shutdown complete")
}

func processUpdates(ctx context.Context, botInstance *tsdbot.Bot, handler *handlers.Handler) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := botInstance.Api.GetUpdatesChan(u)

	for {
		select {
		case update := <-updates:
			go handler.HandleUpdate(ctx, update)
		case <-ctx.Done():
			logrus.Info("Stopping update processing")
			return
		}
	}
}
