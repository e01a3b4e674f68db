package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/mediabanai/telegram-social-downloader/internal/bot"
	"github.com/mediabanai/telegram-social-downloader/internal/database"
	"github.com/mediabanai/telegram-social-downloader/internal/downloadmanager"
	"github.com/mediabanai/telegram-social-downloader/internal/media"
	"github.com/mediabanai/telegram-social-downloader/internal/selector"
	"github.com/mediabanai/telegram-social-downloader/internal/splitter"
	"github.com/mediabanai/telegram-social-downloader/internal/ytdlp"
	"github.com/sirupsen/logrus"
)

// User-facing outcome messages.
const (
	MsgFailed      = "❌ Failed. Content unavailable."
	MsgRefused     = "⚠️ The source refused the connection. Please try again later."
	MsgTooLarge    = "⚠️ File is too large for Telegram upload (max 50 MB)."
	msgUploading   = "📤 Uploading..."
	msgDownloading = "⏳ Downloading..."
)

// Downloader materializes files on disk.
type Downloader interface {
	Download(ctx context.Context, req downloadmanager.Request) (string, error)
	FetchItem(ctx context.Context, item media.GalleryItem, stemName string) (string, error)
}

// Governor keeps outgoing files under the upload limit.
type Governor interface {
	Enforce(ctx context.Context, path string, kind media.Kind) ([]string, error)
}

// Job is one delivery order: a resolved descriptor plus the user's choice.
type Job struct {
	SourceURL string
	Action    string
	FormatID  string
	Caption   string
	Desc      *media.Descriptor
	// StatusID is an existing status message to edit with progress and
	// outcome text; zero means outcome text is sent as a new message.
	StatusID int
}

// Pipeline drives download, size enforcement, delivery, and the file-handle
// cache. All user-visible failure reporting happens here so chat handlers,
// feed watchers, and web triggers behave identically.
type Pipeline struct {
	cache database.CacheStore
	dl    Downloader
	gov   Governor
}

func New(cache database.CacheStore, dl Downloader, gov Governor) *Pipeline {
	return &Pipeline{cache: cache, dl: dl, gov: gov}
}

func (p *Pipeline) Deliver(ctx context.Context, rsp bot.Responder, job Job) error {
	kind, err := kindForAction(job.Action)
	if err != nil {
		p.report(rsp, job.StatusID, MsgFailed)
		return err
	}

	if kind == media.KindGallery {
		return p.deliverGallery(ctx, rsp, job)
	}

	if p.redeliverFromCache(ctx, rsp, job, kind) {
		return nil
	}

	p.report(rsp, job.StatusID, msgDownloading)

	path, err := p.dl.Download(ctx, downloadmanager.Request{
		SourceURL: downloadURL(job, kind),
		Kind:      kind,
		FormatID:  job.FormatID,
		Stem:      uuid.NewString(),
	})
	if err != nil {
		logrus.WithError(err).WithField("url", job.SourceURL).Error("Download failed")
		if kind == media.KindImage && p.sendImageLink(rsp, job) {
			return nil
		}
		p.report(rsp, job.StatusID, failureMessage(err))
		return err
	}

	paths, err := p.gov.Enforce(ctx, path, kind)
	defer cleanup(append(paths, path))
	if err != nil {
		if errors.Is(err, splitter.ErrTooLarge) {
			p.report(rsp, job.StatusID, MsgTooLarge)
			return err
		}
		logrus.WithError(err).Error("Size enforcement failed")
		p.report(rsp, job.StatusID, MsgFailed)
		return err
	}

	p.report(rsp, job.StatusID, msgUploading)

	if len(paths) > 1 {
		if err := p.sendParts(rsp, paths, job.Caption); err != nil {
			p.report(rsp, job.StatusID, MsgFailed)
			return err
		}
	} else {
		fileID, err := p.sendFile(rsp, kind, paths[0], job.Caption)
		if err != nil {
			p.report(rsp, job.StatusID, MsgFailed)
			return err
		}
		if fileID != "" {
			if cacheErr := p.cache.PutCache(ctx, job.SourceURL, string(kind), fileID); cacheErr != nil {
				logrus.WithError(cacheErr).Warn("Failed to store cache entry")
			}
		}
	}

	if job.StatusID != 0 {
		rsp.DeleteMessage(job.StatusID)
	}
	return nil
}

// RedeliverCached serves a URL straight from the file-handle cache before
// any menu is shown, whatever kind was stored. Returns false on a miss or a
// rejected handle so the caller runs the full flow.
func (p *Pipeline) RedeliverCached(ctx context.Context, rsp bot.Responder, sourceURL, caption string) bool {
	entry, err := p.cache.GetCache(ctx, sourceURL)
	if err != nil {
		logrus.WithError(err).Warn("Cache lookup failed")
		return false
	}
	if entry == nil {
		return false
	}
	if err := p.sendByID(rsp, media.Kind(entry.MediaKind), entry.FileID, caption); err != nil {
		logrus.WithError(err).WithField("url", sourceURL).Info("Cached file handle rejected")
		return false
	}
	logrus.WithField("url", sourceURL).Debug("Served from cache")
	return true
}

// redeliverFromCache reuses a stored file handle when the cached kind
// matches the request. A rejected handle falls through to a fresh download
// without surfacing an error.
func (p *Pipeline) redeliverFromCache(ctx context.Context, rsp bot.Responder, job Job, kind media.Kind) bool {
	entry, err := p.cache.GetCache(ctx, job.SourceURL)
	if err != nil {
		logrus.WithError(err).Warn("Cache lookup failed")
		return false
	}
	if entry == nil || entry.MediaKind != string(kind) {
		return false
	}

	if err := p.sendByID(rsp, kind, entry.FileID, job.Caption); err != nil {
		logrus.WithError(err).WithField("url", job.SourceURL).Info("Cached file handle rejected, re-resolving")
		return false
	}
	logrus.WithField("url", job.SourceURL).Debug("Served from cache")
	if job.StatusID != 0 {
		rsp.DeleteMessage(job.StatusID)
	}
	return true
}

// sendImageLink hands the CDN link itself to Telegram as a document when the
// image bytes could not be fetched, so the user still gets the picture.
func (p *Pipeline) sendImageLink(rsp bot.Responder, job Job) bool {
	link := downloadURL(job, media.KindImage)
	if link == "" {
		return false
	}
	if err := rsp.SendDocumentURL(link, job.Caption); err != nil {
		logrus.WithError(err).WithField("url", link).Info("Document link fallback rejected")
		return false
	}
	if job.StatusID != 0 {
		rsp.DeleteMessage(job.StatusID)
	}
	return true
}

func (p *Pipeline) deliverGallery(ctx context.Context, rsp bot.Responder, job Job) error {
	desc := job.Desc
	if desc == nil || desc.Kind != media.KindGallery || len(desc.Items) == 0 {
		p.report(rsp, job.StatusID, MsgFailed)
		return fmt.Errorf("album requested for a non-gallery descriptor")
	}

	p.report(rsp, job.StatusID, fmt.Sprintf("📤 Sending %d items...", len(desc.Items)))

	// Caption goes out once as its own message, then the items follow in
	// descriptor order. Item failures are skipped, not fatal.
	if _, err := rsp.SendText(job.Caption); err != nil {
		p.report(rsp, job.StatusID, MsgFailed)
		return err
	}

	sent := 0
	for i, item := range desc.Items {
		path, err := p.dl.FetchItem(ctx, item, fmt.Sprintf("%s_%03d", uuid.NewString(), i))
		if err != nil {
			logrus.WithError(err).WithField("item", i).Warn("Album item download failed")
			continue
		}
		if item.Kind == media.KindVideo {
			_, err = rsp.SendVideoFile(path, "")
		} else {
			_, err = rsp.SendPhotoFile(path, "")
		}
		if err != nil {
			logrus.WithError(err).WithField("item", i).Warn("Album item send failed")
		} else {
			sent++
		}
		os.Remove(path)
	}

	if sent == 0 {
		p.report(rsp, job.StatusID, MsgFailed)
		return fmt.Errorf("no album item could be delivered")
	}
	if job.StatusID != 0 {
		rsp.DeleteMessage(job.StatusID)
	}
	return nil
}

// sendFile uploads one file, retrying once as a plain document transfer
// before giving up.
func (p *Pipeline) sendFile(rsp bot.Responder, kind media.Kind, path, caption string) (string, error) {
	var fileID string
	var err error
	switch kind {
	case media.KindVideo:
		fileID, err = rsp.SendVideoFile(path, caption)
	case media.KindAudio:
		fileID, err = rsp.SendAudioFile(path, caption)
	case media.KindImage:
		fileID, err = rsp.SendPhotoFile(path, caption)
	default:
		return "", fmt.Errorf("unsupported delivery kind %q", kind)
	}
	if err == nil {
		return fileID, nil
	}

	logrus.WithError(err).Warn("Typed send failed, retrying as document")
	if _, docErr := rsp.SendDocumentFile(path, caption); docErr != nil {
		return "", fmt.Errorf("delivery failed: %w", err)
	}
	// Document handles are not interchangeable with typed ones, so the
	// fallback is not cached.
	return "", nil
}

func (p *Pipeline) sendByID(rsp bot.Responder, kind media.Kind, fileID, caption string) error {
	switch kind {
	case media.KindVideo:
		return rsp.SendVideoByID(fileID, caption)
	case media.KindAudio:
		return rsp.SendAudioByID(fileID, caption)
	case media.KindImage:
		return rsp.SendPhotoByID(fileID, caption)
	default:
		return fmt.Errorf("unsupported cached kind %q", kind)
	}
}

func (p *Pipeline) sendParts(rsp bot.Responder, paths []string, caption string) error {
	delivered := 0
	for i, part := range paths {
		partCaption := fmt.Sprintf("%s\n\nPart %d/%d", caption, i+1, len(paths))
		if _, err := rsp.SendVideoFile(part, partCaption); err != nil {
			logrus.WithError(err).WithField("part", i+1).Warn("Part send failed")
			continue
		}
		delivered++
	}
	if delivered == 0 {
		return fmt.Errorf("no part could be delivered")
	}
	return nil
}

func (p *Pipeline) report(rsp bot.Responder, statusID int, text string) {
	if statusID != 0 {
		if err := rsp.EditText(statusID, text); err == nil {
			return
		}
	}
	if _, err := rsp.SendText(text); err != nil {
		logrus.WithError(err).Warn("Failed to report pipeline status")
	}
}

func kindForAction(action string) (media.Kind, error) {
	switch action {
	case selector.ActionVideo:
		return media.KindVideo, nil
	case selector.ActionAudio:
		return media.KindAudio, nil
	case selector.ActionImage:
		return media.KindImage, nil
	case selector.ActionAlbum:
		return media.KindGallery, nil
	default:
		return "", fmt.Errorf("unknown callback action %q", action)
	}
}

// downloadURL picks what to hand to the download layer: images come from the
// resolved CDN link, video and audio go through the page URL so the tool can
// pick up separate audio tracks.
func downloadURL(job Job, kind media.Kind) string {
	if kind == media.KindImage && job.Desc != nil && job.Desc.PrimaryURL != "" {
		return job.Desc.PrimaryURL
	}
	if job.Desc != nil && job.Desc.PrimaryURL != "" && job.Desc.PrimaryURL != job.SourceURL {
		// Synthetic descriptors and direct media links are better served
		// by their primary URL when it already names a playable file.
		if kind == media.KindVideo && strings.HasSuffix(strings.ToLower(job.Desc.PrimaryURL), ".mp4") {
			return job.Desc.PrimaryURL
		}
	}
	return job.SourceURL
}

func failureMessage(err error) string {
	if errors.Is(err, ytdlp.ErrSourceRefused) {
		return MsgRefused
	}
	return MsgFailed
}

func cleanup(paths []string) {
	seen := make(map[string]bool)
	for _, path := range paths {
		if path == "" || seen[path] {
			continue
		}
		seen[path] = true
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			logrus.WithError(err).WithField("path", path).Debug("Cleanup failed")
		}
	}
}
