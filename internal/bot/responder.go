package bot

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"
)

// Responder is the delivery capability handed to the pipeline. Chat
// messages, feed watcher ticks, and web triggers all speak through the same
// interface, bound to one destination chat.
type Responder interface {
	SendText(text string) (messageID int, err error)
	EditText(messageID int, text string) error
	DeleteMessage(messageID int)

	SendVideoFile(path, caption string) (fileID string, err error)
	SendVideoByID(fileID, caption string) error
	SendPhotoFile(path, caption string) (fileID string, err error)
	SendPhotoByID(fileID, caption string) error
	SendAudioFile(path, caption string) (fileID string, err error)
	SendAudioByID(fileID, caption string) error
	SendDocumentFile(path, caption string) (fileID string, err error)
	SendDocumentURL(url, caption string) error
}

type chatResponder struct {
	bot     *Bot
	chatID  int64
	replyTo int
}

// NewResponder binds delivery to a chat. replyTo may be zero when there is
// no originating message to thread under.
func (b *Bot) NewResponder(chatID int64, replyTo int) Responder {
	return &chatResponder{bot: b, chatID: chatID, replyTo: replyTo}
}

func (r *chatResponder) SendText(text string) (int, error) {
	msg := tgbotapi.NewMessage(r.chatID, text)
	msg.ReplyToMessageID = r.replyTo
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true
	sent, err := r.bot.Api.Send(msg)
	if err != nil {
		return 0, err
	}
	return sent.MessageID, nil
}

func (r *chatResponder) EditText(messageID int, text string) error {
	edit := tgbotapi.NewEditMessageText(r.chatID, messageID, text)
	edit.ParseMode = tgbotapi.ModeHTML
	edit.DisableWebPagePreview = true
	_, err := r.bot.Api.Send(edit)
	return err
}

func (r *chatResponder) DeleteMessage(messageID int) {
	if _, err := r.bot.Api.Request(tgbotapi.NewDeleteMessage(r.chatID, messageID)); err != nil {
		logrus.WithError(err).Debug("Failed to delete message")
	}
}

func (r *chatResponder) SendVideoFile(path, caption string) (string, error) {
	video := tgbotapi.NewVideo(r.chatID, tgbotapi.FilePath(path))
	video.Caption = caption
	video.ParseMode = tgbotapi.ModeHTML
	video.SupportsStreaming = true
	video.ReplyToMessageID = r.replyTo
	sent, err := r.bot.Api.Send(video)
	if err != nil {
		return "", err
	}
	return videoFileID(sent), nil
}

func (r *chatResponder) SendVideoByID(fileID, caption string) error {
	video := tgbotapi.NewVideo(r.chatID, tgbotapi.FileID(fileID))
	video.Caption = caption
	video.ParseMode = tgbotapi.ModeHTML
	video.SupportsStreaming = true
	video.ReplyToMessageID = r.replyTo
	_, err := r.bot.Api.Send(video)
	return err
}

func (r *chatResponder) SendPhotoFile(path, caption string) (string, error) {
	photo := tgbotapi.NewPhoto(r.chatID, tgbotapi.FilePath(path))
	photo.Caption = caption
	photo.ParseMode = tgbotapi.ModeHTML
	photo.ReplyToMessageID = r.replyTo
	sent, err := r.bot.Api.Send(photo)
	if err != nil {
		return "", err
	}
	return photoFileID(sent), nil
}

func (r *chatResponder) SendPhotoByID(fileID, caption string) error {
	photo := tgbotapi.NewPhoto(r.chatID, tgbotapi.FileID(fileID))
	photo.Caption = caption
	photo.ParseMode = tgbotapi.ModeHTML
	photo.ReplyToMessageID = r.replyTo
	_, err := r.bot.Api.Send(photo)
	return err
}

func (r *chatResponder) SendAudioFile(path, caption string) (string, error) {
	audio := tgbotapi.NewAudio(r.chatID, tgbotapi.FilePath(path))
	audio.Caption = caption
	audio.ParseMode = tgbotapi.ModeHTML
	audio.ReplyToMessageID = r.replyTo
	sent, err := r.bot.Api.Send(audio)
	if err != nil {
		return "", err
	}
	if sent.Audio != nil {
		return sent.Audio.FileID, nil
	}
	return "", nil
}

func (r *chatResponder) SendAudioByID(fileID, caption string) error {
	audio := tgbotapi.NewAudio(r.chatID, tgbotapi.FileID(fileID))
	audio.Caption = caption
	audio.ParseMode = tgbotapi.ModeHTML
	audio.ReplyToMessageID = r.replyTo
	_, err := r.bot.Api.Send(audio)
	return err
}

func (r *chatResponder) SendDocumentFile(path, caption string) (string, error) {
	doc := tgbotapi.NewDocument(r.chatID, tgbotapi.FilePath(path))
	doc.Caption = caption
	doc.ParseMode = tgbotapi.ModeHTML
	doc.ReplyToMessageID = r.replyTo
	sent, err := r.bot.Api.Send(doc)
	if err != nil {
		return "", err
	}
	if sent.Document != nil {
		return sent.Document.FileID, nil
	}
	return "", nil
}

func (r *chatResponder) SendDocumentURL(url, caption string) error {
	doc := tgbotapi.NewDocument(r.chatID, tgbotapi.FileURL(url))
	doc.Caption = caption
	doc.ParseMode = tgbotapi.ModeHTML
	doc.ReplyToMessageID = r.replyTo
	_, err := r.bot.Api.Send(doc)
	return err
}

func videoFileID(msg tgbotapi.Message) string {
	if msg.Video != nil {
		return msg.Video.FileID
	}
	// Some transfers come back classified as animations or documents.
	if msg.Animation != nil {
		return msg.Animation.FileID
	}
	if msg.Document != nil {
		return msg.Document.FileID
	}
	return ""
}

func photoFileID(msg tgbotapi.Message) string {
	if len(msg.Photo) > 0 {
		// The last size is the largest rendition.
		return msg.Photo[len(msg.Photo)-1].FileID
	}
	if msg.Document != nil {
		return msg.Document.FileID
	}
	return ""
}
