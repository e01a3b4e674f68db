package poller

import (
	"context"
	"encoding/xml"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/mediabanai/telegram-social-downloader/internal/bot"
	"github.com/mediabanai/telegram-social-downloader/internal/config"
	"github.com/mediabanai/telegram-social-downloader/internal/database"
	"github.com/mediabanai/telegram-social-downloader/internal/runlock"
	"github.com/sirupsen/logrus"
)

// RedditWatcher follows the admin's saved-posts Atom feed and pushes every
// newly saved post through the processor, oldest first.
type RedditWatcher struct {
	cfg    *config.Config
	db     database.AdminStore
	proc   URLProcessor
	notify bot.Responder
	client *resty.Client
	slot   *runlock.Slot
}

func NewRedditWatcher(cfg *config.Config, db database.AdminStore, proc URLProcessor, notify bot.Responder) *RedditWatcher {
	return &RedditWatcher{
		cfg:  cfg,
		db:   db,
		proc: proc,
		// Feed endpoints refuse obvious bots; a desktop browser agent and
		// matching accept headers get through.
		notify: notify,
		client: resty.New().
			SetTimeout(20*time.Second).
			SetHeader("User-Agent", config.UADesktopBrowser).
			SetHeader("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8").
			SetHeader("Accept-Language", "en-US,en;q=0.5"),
		slot: runlock.NewSlot(),
	}
}

func (w *RedditWatcher) Run(ctx context.Context) {
	logrus.Info("Reddit feed watcher started")
	ticker := time.NewTicker(w.cfg.WatcherSettings.RedditPollInterval)
	defer ticker.Stop()

	w.tickGuarded(ctx)
	for {
		select {
		case <-ctx.Done():
			logrus.Info("Reddit feed watcher stopped")
			return
		case <-ticker.C:
			w.tickGuarded(ctx)
		}
	}
}

func (w *RedditWatcher) tickGuarded(ctx context.Context) {
	if !w.slot.TryAcquire() {
		logrus.Debug("Skipping feed tick, previous one still running")
		return
	}
	defer w.slot.Release()
	if err := w.tick(ctx); err != nil {
		logrus.WithError(err).Error("Feed tick failed")
	}
}

type atomFeed struct {
	XMLName xml.Name    `xml:"feed"`
	Entries []atomEntry `xml:"entry"`
}

type atomEntry struct {
	ID    string   `xml:"id"`
	Title string   `xml:"title"`
	Link  atomLink `xml:"link"`
}

type atomLink struct {
	Href string `xml:"href,attr"`
}

func (e atomEntry) key() string {
	if e.ID != "" {
		return e.ID
	}
	return e.Link.Href
}

func (w *RedditWatcher) tick(ctx context.Context) error {
	admin, err := w.db.GetAdminConfig(ctx, w.cfg.AdminID)
	if err != nil {
		return fmt.Errorf("load admin config: %w", err)
	}
	if !admin.RedditActive || admin.RedditFeedURL == "" {
		return nil
	}

	resp, err := w.client.R().SetContext(ctx).Get(admin.RedditFeedURL)
	if err != nil {
		return fmt.Errorf("feed request: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("feed returned status %d", resp.StatusCode())
	}

	var feed atomFeed
	if err := xml.Unmarshal(resp.Body(), &feed); err != nil {
		return fmt.Errorf("parse feed: %w", err)
	}
	if len(feed.Entries) == 0 {
		return nil
	}

	// Entries come newest first.
	newest := feed.Entries[0].key()

	if admin.LastPostID == "" {
		if err := w.db.UpdateLastPostID(ctx, w.cfg.AdminID, newest); err != nil {
			return fmt.Errorf("store first-run mark: %w", err)
		}
		if _, err := w.notify.SendText("✅ <b>Reddit connected!</b>\nSynced. Waiting for new saves..."); err != nil {
			logrus.WithError(err).Warn("Failed to send first-run notice")
		}
		return nil
	}
	if newest == admin.LastPostID {
		logrus.Debug("No new saved posts")
		return nil
	}

	// Collect everything above the mark and replay it oldest first.
	var fresh []atomEntry
	for _, entry := range feed.Entries {
		if entry.key() == admin.LastPostID {
			break
		}
		fresh = append([]atomEntry{entry}, fresh...)
	}

	logrus.WithField("count", len(fresh)).Info("New saved posts")
	for _, entry := range fresh {
		if entry.Link.Href == "" {
			continue
		}
		if err := w.proc.ProcessURL(ctx, w.cfg.AdminID, entry.Link.Href); err != nil {
			logrus.WithError(err).WithField("url", entry.Link.Href).Error("Failed to process saved post")
		}
		if !sleepCtx(ctx, w.cfg.WatcherSettings.ItemDelay) {
			return ctx.Err()
		}
	}

	if err := w.db.UpdateLastPostID(ctx, w.cfg.AdminID, newest); err != nil {
		return fmt.Errorf("advance feed mark: %w", err)
	}
	return nil
}
