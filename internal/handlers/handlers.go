package handlers

import (
	"context"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/mediabanai/telegram-social-downloader/internal/bot"
	"github.com/mediabanai/telegram-social-downloader/internal/config"
	"github.com/mediabanai/telegram-social-downloader/internal/database"
	"github.com/mediabanai/telegram-social-downloader/internal/extractor"
	"github.com/mediabanai/telegram-social-downloader/internal/pipeline"
	"github.com/sirupsen/logrus"
)

const (
	msgAnalyzing = "🔍 Analyzing..."
	msgStart     = "👋 Send me a Reddit, Twitter/X, TikTok or Instagram link and I will fetch the media for you."
	msgHelp      = "Send a supported link, pick a quality from the menu, and the file arrives right here.\n\n" +
		"Supported: Reddit, Twitter/X, TikTok, Instagram, SoundCloud, Spotify.\n" +
		"Add text after the link to use it as the caption."
	msgLinkLost = "❌ Expired or link not found"
)

// Handler routes bot updates to the message, command, and callback flows.
type Handler struct {
	bot    *bot.Bot
	cfg    *config.Config
	db     database.Database
	router *extractor.Router
	pipe   *pipeline.Pipeline
}

func New(b *bot.Bot, cfg *config.Config, db database.Database, router *extractor.Router, pipe *pipeline.Pipeline) *Handler {
	return &Handler{bot: b, cfg: cfg, db: db, router: router, pipe: pipe}
}

func (h *Handler) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	switch {
	case update.CallbackQuery != nil:
		h.registerUser(ctx, update.CallbackQuery.From)
		h.handleCallback(ctx, update.CallbackQuery)
	case update.Message != nil:
		h.registerUser(ctx, update.Message.From)
		if update.Message.IsCommand() {
			h.handleCommand(ctx, update.Message)
		} else {
			h.handleMessage(ctx, update.Message)
		}
	}
}

func (h *Handler) registerUser(ctx context.Context, from *tgbotapi.User) {
	if from == nil {
		return
	}
	name := from.UserName
	if name == "" {
		name = strings.TrimSpace(from.FirstName + " " + from.LastName)
	}
	if err := h.db.EnsureUser(ctx, from.ID, name); err != nil {
		logrus.WithError(err).Warn("Failed to register user")
	}
}

func (h *Handler) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	switch strings.ToLower(msg.Command()) {
	case "start":
		h.reply(msg.Chat.ID, msgStart)
	case "help":
		h.reply(msg.Chat.ID, msgHelp)
	case "setup_api", "mode", "reddit_feed", "feed_off", "stats":
		h.handleAdminCommand(ctx, msg)
	default:
		// Unknown commands are ignored, like any other non-link message.
		logrus.WithField("command", msg.Command()).Debug("Ignoring unknown command")
	}
}

func (h *Handler) reply(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true
	if _, err := h.bot.Api.Send(msg); err != nil {
		logrus.WithError(err).Error("Failed to send reply")
	}
}
