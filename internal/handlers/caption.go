package handlers

import (
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/mediabanai/telegram-social-downloader/internal/linkutil"
)

const defaultCaptionBody = "Media Content"

// BuildCaption renders the delivery caption: a platform header with the
// source link, then the body in a blockquote. The href entity doubles as the
// carrier of the canonical URL for later callbacks.
func BuildCaption(body, sourceURL string) string {
	text := strings.TrimSpace(body)
	if text == "" {
		text = defaultCaptionBody
	}
	return fmt.Sprintf("<b>🎬 %s Media</b> | <a href=\"%s\">Source</a>\n\n<blockquote>%s</blockquote>",
		linkutil.Platform(sourceURL), sourceURL, escapeHTML(text))
}

func escapeHTML(s string) string {
	s = strings.ReplaceAll(s, "&", "&amp;")
	s = strings.ReplaceAll(s, "<", "&lt;")
	s = strings.ReplaceAll(s, ">", "&gt;")
	return s
}

// SourceURLFromMessage recovers the canonical URL a menu message was built
// for, from its rendered text_link entity. Empty means the link is lost and
// the callback cannot be honored.
func SourceURLFromMessage(msg *tgbotapi.Message) string {
	if msg == nil {
		return ""
	}
	for _, entity := range msg.Entities {
		if entity.Type == "text_link" && entity.URL != "" {
			return entity.URL
		}
	}
	return ""
}
