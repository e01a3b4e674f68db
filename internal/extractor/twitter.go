package extractor

import (
	"context"
	"encoding/json"
	"net/url"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/mediabanai/telegram-social-downloader/internal/config"
	"github.com/mediabanai/telegram-social-downloader/internal/media"
	"github.com/mediabanai/telegram-social-downloader/internal/ytdlp"
	"github.com/sirupsen/logrus"
)

const (
	twitterAPITimeout = 5 * time.Second
	defaultFxHost     = "api.fxtwitter.com"
)

// TwitterExtractor queries the embed-friendly fxtwitter mirror by
// substituting the canonical host, then best-effort augments video results
// with the extraction tool's richer format list.
type TwitterExtractor struct {
	client  *resty.Client
	tool    InfoFetcher
	apiHost string
}

func NewTwitterExtractor(tool InfoFetcher) *TwitterExtractor {
	return &TwitterExtractor{
		client:  resty.New().SetHeader("User-Agent", config.UADesktopBrowser).SetTimeout(twitterAPITimeout),
		tool:    tool,
		apiHost: defaultFxHost,
	}
}

type fxResponse struct {
	Tweet *struct {
		Text   string `json:"text"`
		Author *struct {
			Name string `json:"name"`
		} `json:"author"`
		Media *struct {
			All []struct {
				Type string `json:"type"`
				URL  string `json:"url"`
			} `json:"all"`
			Photos []struct {
				URL string `json:"url"`
			} `json:"photos"`
			Videos []struct {
				URL string `json:"url"`
			} `json:"videos"`
		} `json:"media"`
	} `json:"tweet"`
}

// apiURL rewrites the tweet URL onto the mirror API host.
func (e *TwitterExtractor) apiURL(rawURL string) (string, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}
	switch parsed.Hostname() {
	case "twitter.com", "www.twitter.com", "x.com", "www.x.com", "mobile.twitter.com":
		parsed.Host = e.apiHost
	}
	return parsed.String(), nil
}

func (e *TwitterExtractor) Extract(ctx context.Context, rawURL string) *media.Descriptor {
	endpoint, err := e.apiURL(rawURL)
	if err != nil {
		logrus.WithError(err).Warn("Invalid twitter URL")
		return nil
	}

	resp, err := e.client.R().SetContext(ctx).Get(endpoint)
	if err != nil {
		logrus.WithError(err).WithField("url", rawURL).Warn("Twitter mirror API request failed")
		return nil
	}
	if resp.IsError() {
		logrus.WithField("status", resp.StatusCode()).Warn("Twitter mirror API returned error status")
		return nil
	}

	var payload fxResponse
	if err := json.Unmarshal(resp.Body(), &payload); err != nil {
		logrus.WithError(err).Warn("Twitter mirror API returned unparseable body")
		return nil
	}

	tweet := payload.Tweet
	if tweet == nil || tweet.Media == nil {
		return nil
	}

	base := media.Descriptor{
		Title:     tweet.Text,
		SourceURL: rawURL,
	}
	if base.Title == "" {
		base.Title = "Twitter Media"
	}
	if tweet.Author != nil {
		base.Author = tweet.Author.Name
	}

	// Shape checks in priority order: gallery, single photo, single video.
	if len(tweet.Media.All) > 1 {
		items := make([]media.GalleryItem, 0, len(tweet.Media.All))
		for _, m := range tweet.Media.All {
			kind := media.KindImage
			if m.Type == "video" || m.Type == "gif" {
				kind = media.KindVideo
			}
			items = append(items, media.GalleryItem{Kind: kind, URL: m.URL})
		}
		base.Kind = media.KindGallery
		base.Items = items
		return &base
	}

	if len(tweet.Media.Photos) > 0 {
		base.Kind = media.KindImage
		base.PrimaryURL = tweet.Media.Photos[0].URL
		return &base
	}

	if len(tweet.Media.Videos) > 0 {
		base.Kind = media.KindVideo
		base.PrimaryURL = tweet.Media.Videos[0].URL
		base.Formats = e.fetchFormats(ctx, rawURL)
		return &base
	}

	return nil
}

// fetchFormats asks the extraction tool for the quality list. Failure here
// degrades to an empty list; the UI then offers a single "best" choice.
func (e *TwitterExtractor) fetchFormats(ctx context.Context, rawURL string) []media.FormatOption {
	if e.tool == nil {
		return nil
	}
	info, err := e.tool.GetInfo(ctx, rawURL)
	if err != nil {
		logrus.WithError(err).Debug("Twitter quality probe failed, falling back to direct link")
		return nil
	}
	return FormatsFromInfo(info)
}

// FormatsFromInfo converts the tool's format entries, keeping only mp4
// variants with a known height.
func FormatsFromInfo(info *ytdlp.Info) []media.FormatOption {
	if info == nil {
		return nil
	}
	var out []media.FormatOption
	for _, f := range info.Formats {
		if f.Ext != "mp4" || f.Height <= 0 {
			continue
		}
		out = append(out, media.FormatOption{
			Height:    f.Height,
			FormatID:  f.FormatID,
			SizeBytes: f.Size(),
		})
	}
	return out
}
