package downloadmanager

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/go-resty/resty/v2"
	"github.com/mediabanai/telegram-social-downloader/internal/config"
	"github.com/mediabanai/telegram-social-downloader/internal/media"
	"github.com/mediabanai/telegram-social-downloader/internal/ytdlp"
	"github.com/sirupsen/logrus"
)

// Tool is the slice of the extraction-tool client the manager drives.
type Tool interface {
	DownloadVideo(ctx context.Context, rawURL, formatID, stem string) error
	DownloadAudio(ctx context.Context, rawURL, stem string) error
}

// Request names one file to materialize on disk.
type Request struct {
	SourceURL string
	Kind      media.Kind
	FormatID  string
	Stem      string
}

// Manager materializes media files in the download directory. Video and
// audio go through the extraction tool; images are fetched directly over
// HTTP with headers that keep image CDNs from refusing the request.
type Manager struct {
	dir    string
	tool   Tool
	client *resty.Client
}

func New(cfg *config.Config, tool Tool) *Manager {
	return &Manager{
		dir:  cfg.DownloadDir,
		tool: tool,
		client: resty.New().
			SetHeader("User-Agent", config.UAAndroidBrowser).
			SetHeader("Referer", "https://www.instagram.com/").
			SetHeader("Accept", "image/avif,image/webp,image/apng,image/svg+xml,image/*,*/*;q=0.8"),
	}
}

// Download fetches the requested media and returns the resulting file path.
// Gallery descriptors are downloaded per item through FetchItem.
func (m *Manager) Download(ctx context.Context, req Request) (string, error) {
	stem := filepath.Join(m.dir, req.Stem)

	switch req.Kind {
	case media.KindVideo:
		// Bare media links need no tool invocation.
		if isBest(req.FormatID) && strings.HasSuffix(strings.ToLower(urlPath(req.SourceURL)), ".mp4") {
			return m.fetchDirect(ctx, req.SourceURL, stem+".mp4")
		}
		if err := m.tool.DownloadVideo(ctx, req.SourceURL, req.FormatID, stem); err != nil {
			os.Remove(stem + ".mp4")
			return "", err
		}
		return verifyProduced(stem + ".mp4")
	case media.KindAudio:
		if isBest(req.FormatID) && strings.HasSuffix(strings.ToLower(urlPath(req.SourceURL)), ".mp3") {
			return m.fetchDirect(ctx, req.SourceURL, stem+".mp3")
		}
		if err := m.tool.DownloadAudio(ctx, req.SourceURL, stem); err != nil {
			os.Remove(stem + ".mp3")
			return "", err
		}
		return verifyProduced(stem + ".mp3")
	case media.KindImage:
		return m.fetchDirect(ctx, req.SourceURL, stem+extFromURL(req.SourceURL))
	default:
		return "", fmt.Errorf("cannot download descriptor kind %q directly", req.Kind)
	}
}

// FetchItem downloads one gallery item. Both item kinds are direct CDN
// links, so neither goes through the extraction tool.
func (m *Manager) FetchItem(ctx context.Context, item media.GalleryItem, stemName string) (string, error) {
	stem := filepath.Join(m.dir, stemName)
	if item.Kind == media.KindVideo {
		return m.fetchDirect(ctx, item.URL, stem+".mp4")
	}
	return m.fetchDirect(ctx, item.URL, stem+extFromURL(item.URL))
}

func (m *Manager) fetchDirect(ctx context.Context, rawURL, destPath string) (string, error) {
	logrus.WithFields(logrus.Fields{"url": rawURL, "dest": destPath}).Debug("Direct download")

	resp, err := m.client.R().SetContext(ctx).SetOutput(destPath).Get(rawURL)
	if err != nil {
		os.Remove(destPath)
		return "", fmt.Errorf("%w: direct download: %v", ytdlp.ErrMediaUnavailable, err)
	}
	if resp.IsError() {
		os.Remove(destPath)
		if resp.StatusCode() == 403 {
			return "", fmt.Errorf("%w: direct download got status 403", ytdlp.ErrSourceRefused)
		}
		return "", fmt.Errorf("%w: direct download got status %d", ytdlp.ErrMediaUnavailable, resp.StatusCode())
	}
	return verifyProduced(destPath)
}

// verifyProduced guards against the tool exiting zero without writing the
// expected file.
func verifyProduced(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("%w: expected output %s missing", ytdlp.ErrMediaUnavailable, filepath.Base(path))
	}
	if info.Size() == 0 {
		os.Remove(path)
		return "", fmt.Errorf("%w: output %s is empty", ytdlp.ErrMediaUnavailable, filepath.Base(path))
	}
	return path, nil
}

var knownImageExts = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".webp": true,
	".mp4":  true,
}

func isBest(formatID string) bool {
	return formatID == "" || formatID == ytdlp.BestFormat
}

func urlPath(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return parsed.Path
}

func extFromURL(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return ".jpg"
	}
	ext := strings.ToLower(path.Ext(parsed.Path))
	if knownImageExts[ext] {
		return ext
	}
	return ".jpg"
}
