package handlers

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/mediabanai/telegram-social-downloader/internal/models"
	"github.com/sirupsen/logrus"
)

// handleAdminCommand serves the automation configuration commands. Non-admin
// senders are ignored silently.
func (h *Handler) handleAdminCommand(ctx context.Context, msg *tgbotapi.Message) {
	if msg.From == nil || msg.From.ID != h.cfg.AdminID {
		logrus.WithField("from", msg.From).Debug("Ignoring admin command from non-admin")
		return
	}
	chatID := msg.Chat.ID
	args := strings.Fields(msg.Text)

	switch strings.ToLower(msg.Command()) {
	case "setup_api":
		if len(args) < 3 {
			h.reply(chatID, "⚠️ Usage: /setup_api KEY USERNAME")
			return
		}
		if err := h.db.SetTwitterAPI(ctx, h.cfg.AdminID, args[1], strings.TrimPrefix(args[2], "@")); err != nil {
			h.bot.SendErrorMessage(chatID, "❌ Failed to store API settings")
			return
		}
		h.reply(chatID, "✅ <b>API mode configured!</b>\nLikes are checked every minute. The first run only syncs IDs, nothing is downloaded.")

	case "mode":
		if len(args) < 2 || (args[1] != models.ModeAPI && args[1] != models.ModeWebhook) {
			h.reply(chatID, "⚠️ Usage: /mode api or /mode webhook")
			return
		}
		if err := h.db.SetMode(ctx, h.cfg.AdminID, args[1]); err != nil {
			h.bot.SendErrorMessage(chatID, "❌ Failed to switch mode")
			return
		}
		h.reply(chatID, fmt.Sprintf("🔄 Mode switched to: <b>%s</b>", strings.ToUpper(args[1])))

	case "reddit_feed":
		if len(args) < 2 || !isAbsoluteURL(args[1]) {
			h.reply(chatID, "⚠️ Usage: /reddit_feed FEED_URL")
			return
		}
		if err := h.db.SetRedditFeed(ctx, h.cfg.AdminID, args[1]); err != nil {
			h.bot.SendErrorMessage(chatID, "❌ Failed to store feed URL")
			return
		}
		h.reply(chatID, "✅ <b>Reddit feed watcher enabled.</b>\nNew saved posts will be fetched automatically.")

	case "feed_off":
		if err := h.db.DisableRedditFeed(ctx, h.cfg.AdminID); err != nil {
			h.bot.SendErrorMessage(chatID, "❌ Failed to disable the feed")
			return
		}
		h.reply(chatID, "🛑 Reddit feed watcher disabled.")

	case "stats":
		count, err := h.db.GetUserCount(ctx)
		if err != nil {
			h.bot.SendErrorMessage(chatID, "❌ Failed to read stats")
			return
		}
		h.reply(chatID, fmt.Sprintf("👥 Users seen: <b>%d</b>", count))
	}
}

func isAbsoluteURL(raw string) bool {
	parsed, err := url.Parse(raw)
	return err == nil && (parsed.Scheme == "http" || parsed.Scheme == "https") && parsed.Host != ""
}
