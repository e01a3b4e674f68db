package handlers

import (
	"context"
	"fmt"

	"github.com/mediabanai/telegram-social-downloader/internal/linkutil"
	"github.com/mediabanai/telegram-social-downloader/internal/media"
	"github.com/mediabanai/telegram-social-downloader/internal/pipeline"
	"github.com/mediabanai/telegram-social-downloader/internal/selector"
	"github.com/mediabanai/telegram-social-downloader/internal/ytdlp"
)

// ProcessURL runs the full resolve-and-deliver flow without user
// interaction: best quality, no menu. Feed watchers and the web trigger use
// it, so unsupported links are a reported error here, not a silent no-op.
func (h *Handler) ProcessURL(ctx context.Context, chatID int64, rawURL string) error {
	rsp := h.bot.NewResponder(chatID, 0)
	normalized := linkutil.Normalize(ctx, rawURL)

	ext, ok := h.router.Route(normalized)
	if !ok {
		return fmt.Errorf("unsupported link %q", rawURL)
	}

	if h.pipe.RedeliverCached(ctx, rsp, normalized, BuildCaption("", normalized)) {
		return nil
	}

	desc := ext.Extract(ctx, normalized)
	if desc == nil {
		return fmt.Errorf("no media resolved for %q", normalized)
	}

	job := pipeline.Job{
		SourceURL: normalized,
		Action:    actionForKind(desc.Kind),
		FormatID:  ytdlp.BestFormat,
		Caption:   BuildCaption(desc.Title, normalized),
		Desc:      desc,
	}
	return h.pipe.Deliver(ctx, rsp, job)
}

func actionForKind(kind media.Kind) string {
	switch kind {
	case media.KindAudio:
		return selector.ActionAudio
	case media.KindImage:
		return selector.ActionImage
	case media.KindGallery:
		return selector.ActionAlbum
	default:
		return selector.ActionVideo
	}
}
