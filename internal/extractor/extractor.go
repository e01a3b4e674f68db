package extractor

import (
	"context"
	"strings"

	"github.com/mediabanai/telegram-social-downloader/internal/config"
	"github.com/mediabanai/telegram-social-downloader/internal/media"
	"github.com/mediabanai/telegram-social-downloader/internal/ytdlp"
)

// Extractor resolves a normalized URL to a media descriptor. A nil result
// means "content unavailable"; extractors fail soft and never panic on bad
// upstream data.
type Extractor interface {
	Extract(ctx context.Context, rawURL string) *media.Descriptor
}

// InfoFetcher is the slice of the extraction-tool client the extractors
// need: the JSON metadata query.
type InfoFetcher interface {
	GetInfo(ctx context.Context, rawURL string) (*ytdlp.Info, error)
}

type route struct {
	hosts     []string
	extractor Extractor
}

// Router dispatches a URL to the platform extractor whose host fragment
// matches first. The priority order is fixed.
type Router struct {
	routes []route
}

func NewRouter(cfg *config.Config, tool InfoFetcher) *Router {
	return &Router{
		routes: []route{
			{hosts: []string{"reddit.com", "redd.it"}, extractor: NewRedditExtractor(cfg)},
			{hosts: []string{"twitter.com", "x.com"}, extractor: NewTwitterExtractor(tool)},
			{hosts: []string{"tiktok.com"}, extractor: NewToolExtractor(tool, "TikTok")},
			{hosts: []string{"instagram.com"}, extractor: NewToolExtractor(tool, "Instagram")},
			{hosts: []string{"soundcloud.com", "spotify.com"}, extractor: NewAudioExtractor(tool)},
		},
	}
}

// Route returns the extractor for the URL's platform. The second result is
// false for unsupported hosts; ordinary chat messages treat that as a silent
// no-op, automation triggers report it as an error.
func (r *Router) Route(rawURL string) (Extractor, bool) {
	lower := strings.ToLower(rawURL)
	for _, rt := range r.routes {
		for _, host := range rt.hosts {
			if strings.Contains(lower, host) {
				return rt.extractor, true
			}
		}
	}
	return nil, false
}
