package handlers

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/mediabanai/telegram-social-downloader/internal/media"
	"github.com/mediabanai/telegram-social-downloader/internal/pipeline"
	"github.com/mediabanai/telegram-social-downloader/internal/selector"
	"github.com/sirupsen/logrus"
)

// handleCallback honors a quality menu button press. The canonical URL is
// recovered from the menu message's link entity; without it the request is
// refused rather than guessed.
func (h *Handler) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	action, label, formatID, err := selector.ParseData(cb.Data)
	if err != nil {
		logrus.WithError(err).Warn("Malformed callback data")
		h.bot.AnswerCallback(cb.ID, msgLinkLost)
		return
	}

	sourceURL := SourceURLFromMessage(cb.Message)
	if sourceURL == "" {
		h.bot.AnswerCallback(cb.ID, msgLinkLost)
		return
	}

	logrus.WithFields(logrus.Fields{
		"url":    sourceURL,
		"action": action,
		"label":  label,
	}).Info("Quality selected")
	h.bot.AnswerCallback(cb.ID, "🚀 Downloading...")

	chatID := cb.Message.Chat.ID
	rsp := h.bot.NewResponder(chatID, 0)

	// Metadata is re-extracted so the final caption carries the title, and
	// album delivery gets its item list. A custom caption survives in the
	// menu message's blockquote, but re-resolution keeps the data fresh.
	var desc *media.Descriptor
	title := ""
	if ext, ok := h.router.Route(sourceURL); ok {
		if desc = ext.Extract(ctx, sourceURL); desc != nil {
			title = desc.Title
		}
	}

	job := pipeline.Job{
		SourceURL: sourceURL,
		Action:    action,
		FormatID:  formatID,
		Caption:   BuildCaption(title, sourceURL),
		Desc:      desc,
		StatusID:  cb.Message.MessageID,
	}
	if err := h.pipe.Deliver(ctx, rsp, job); err != nil {
		logrus.WithError(err).WithField("url", sourceURL).Error("Delivery failed")
	}
}
