package extractor

import (
	"context"
	"strings"

	"github.com/mediabanai/telegram-social-downloader/internal/media"
	"github.com/sirupsen/logrus"
)

// ToolExtractor covers platforms whose pages carry no usable public API, so
// classification is delegated entirely to the extraction tool's metadata
// query.
type ToolExtractor struct {
	tool InfoFetcher
	name string
}

func NewToolExtractor(tool InfoFetcher, name string) *ToolExtractor {
	return &ToolExtractor{tool: tool, name: name}
}

func (e *ToolExtractor) Extract(ctx context.Context, rawURL string) *media.Descriptor {
	info, err := e.tool.GetInfo(ctx, rawURL)
	if err != nil {
		logrus.WithError(err).WithField("platform", e.name).Debug("Metadata query failed")
		return nil
	}

	desc := &media.Descriptor{
		Title:     info.Title,
		SourceURL: rawURL,
		CoverURL:  info.Thumbnail,
	}

	switch {
	case len(info.Entries) > 0:
		desc.Kind = media.KindGallery
		for _, entry := range info.Entries {
			kind := media.KindImage
			if strings.EqualFold(entry.Ext, "mp4") {
				kind = media.KindVideo
			}
			desc.Items = append(desc.Items, media.GalleryItem{Kind: kind, URL: entry.URL})
		}
	case info.URL != "":
		desc.Kind = media.KindVideo
		desc.PrimaryURL = info.URL
		desc.Formats = FormatsFromInfo(info)
	case len(info.Thumbnails) > 0:
		// Image posts surface only thumbnails; the last one is the largest.
		desc.Kind = media.KindImage
		desc.PrimaryURL = info.Thumbnails[len(info.Thumbnails)-1].URL
	default:
		// Let the download stage hand the original page URL to the tool.
		desc.Kind = media.KindVideo
		desc.PrimaryURL = rawURL
		desc.Formats = FormatsFromInfo(info)
	}
	return desc
}
