package bot

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/mediabanai/telegram-social-downloader/internal/config"
	"github.com/sirupsen/logrus"
)

type Bot struct {
	Api *tgbotapi.BotAPI
}

func InitBot(cfg *config.Config) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		logrus.WithError(err).Error("Error creating bot")
		return nil, fmt.Errorf("error creating bot: %v", err)
	}
	logrus.Infof("Authorized on account %s", api.Self.UserName)
	return &Bot{Api: api}, nil
}

func (b *Bot) SendErrorMessage(chatID int64, message string) {
	logrus.Error(message)
	msg := tgbotapi.NewMessage(chatID, message)
	if _, err := b.Api.Send(msg); err != nil {
		logrus.WithError(err).Errorf("Message (%s) not sent", message)
	}
}

// AnswerCallback acknowledges a callback query, optionally with a toast.
func (b *Bot) AnswerCallback(callbackID, text string) {
	if _, err := b.Api.Request(tgbotapi.NewCallback(callbackID, text)); err != nil {
		logrus.WithError(err).Warn("Failed to answer callback query")
	}
}
