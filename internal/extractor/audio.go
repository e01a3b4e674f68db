package extractor

import (
	"context"

	"github.com/mediabanai/telegram-social-downloader/internal/media"
	"github.com/sirupsen/logrus"
)

// AudioExtractor serves track platforms where the only sensible delivery is
// an extracted audio file.
type AudioExtractor struct {
	tool InfoFetcher
}

func NewAudioExtractor(tool InfoFetcher) *AudioExtractor {
	return &AudioExtractor{tool: tool}
}

func (e *AudioExtractor) Extract(ctx context.Context, rawURL string) *media.Descriptor {
	info, err := e.tool.GetInfo(ctx, rawURL)
	if err != nil {
		logrus.WithError(err).Debug("Audio metadata query failed")
		return nil
	}

	return &media.Descriptor{
		Title:      info.Title,
		SourceURL:  rawURL,
		Kind:       media.KindAudio,
		PrimaryURL: rawURL,
		CoverURL:   info.Thumbnail,
	}
}
