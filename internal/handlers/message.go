package handlers

import (
	"context"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/mediabanai/telegram-social-downloader/internal/linkutil"
	"github.com/mediabanai/telegram-social-downloader/internal/pipeline"
	"github.com/mediabanai/telegram-social-downloader/internal/selector"
	"github.com/sirupsen/logrus"
)

// handleMessage runs the link preview flow: detect a supported link, resolve
// it, and offer the quality menu. Messages without a supported link are
// ignored.
func (h *Handler) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg.Text == "" {
		return
	}
	link, ok := linkutil.Detect(msg.Text)
	if !ok {
		return
	}
	// Everything around the link becomes the user's custom caption.
	customBody := strings.TrimSpace(strings.Replace(msg.Text, link, "", 1))

	logrus.WithFields(logrus.Fields{"chat": msg.Chat.ID, "url": link}).Info("Link request")

	rsp := h.bot.NewResponder(msg.Chat.ID, msg.MessageID)
	statusID, err := rsp.SendText(msgAnalyzing)
	if err != nil {
		logrus.WithError(err).Error("Failed to send status message")
		return
	}

	normalized := linkutil.Normalize(ctx, link)
	caption := BuildCaption(customBody, normalized)

	// A cached URL skips the menu entirely.
	if h.pipe.RedeliverCached(ctx, rsp, normalized, caption) {
		rsp.DeleteMessage(statusID)
		return
	}

	ext, ok := h.router.Route(normalized)
	if !ok {
		if err := rsp.EditText(statusID, pipeline.MsgFailed); err != nil {
			logrus.WithError(err).Debug("Failed to edit status")
		}
		return
	}

	desc := ext.Extract(ctx, normalized)
	if desc == nil {
		if err := rsp.EditText(statusID, pipeline.MsgFailed); err != nil {
			logrus.WithError(err).Debug("Failed to edit status")
		}
		return
	}

	if customBody == "" {
		caption = BuildCaption(desc.Title, normalized)
	}

	choices := selector.Select(desc)
	if len(choices) == 0 {
		rsp.EditText(statusID, pipeline.MsgFailed)
		return
	}

	edit := tgbotapi.NewEditMessageTextAndMarkup(msg.Chat.ID, statusID, caption, choicesKeyboard(choices))
	edit.ParseMode = tgbotapi.ModeHTML
	edit.DisableWebPagePreview = true
	if _, err := h.bot.Api.Send(edit); err != nil {
		logrus.WithError(err).Error("Failed to present quality menu")
	}
}

// choicesKeyboard lays the menu out one button per row.
func choicesKeyboard(choices []selector.Choice) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(choices))
	for _, choice := range choices {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(choice.Label, choice.Data),
		))
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}
