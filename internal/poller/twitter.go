package poller

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"sort"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/mediabanai/telegram-social-downloader/internal/bot"
	"github.com/mediabanai/telegram-social-downloader/internal/config"
	"github.com/mediabanai/telegram-social-downloader/internal/database"
	"github.com/mediabanai/telegram-social-downloader/internal/models"
	"github.com/mediabanai/telegram-social-downloader/internal/runlock"
	"github.com/sirupsen/logrus"
)

const defaultLikesAPIBase = "https://api.twitterapi.io"

// URLProcessor runs the automatic resolve-and-deliver flow for one link.
type URLProcessor interface {
	ProcessURL(ctx context.Context, chatID int64, rawURL string) error
}

// TwitterWatcher polls the likes API for the configured account and pushes
// every newly liked tweet through the processor. The persisted high-water
// mark only advances after a whole batch, so a crash re-delivers instead of
// dropping.
type TwitterWatcher struct {
	cfg     *config.Config
	db      database.AdminStore
	proc    URLProcessor
	notify  bot.Responder
	client  *resty.Client
	slot    *runlock.Slot
	apiBase string
}

func NewTwitterWatcher(cfg *config.Config, db database.AdminStore, proc URLProcessor, notify bot.Responder) *TwitterWatcher {
	return &TwitterWatcher{
		cfg:     cfg,
		db:      db,
		proc:    proc,
		notify:  notify,
		client:  resty.New().SetTimeout(15 * time.Second),
		slot:    runlock.NewSlot(),
		apiBase: defaultLikesAPIBase,
	}
}

// Run ticks until the context is canceled. Ticks never overlap; a tick that
// finds the previous one still running is skipped.
func (w *TwitterWatcher) Run(ctx context.Context) {
	logrus.Info("Twitter likes watcher started")
	ticker := time.NewTicker(w.cfg.WatcherSettings.TwitterPollInterval)
	defer ticker.Stop()

	w.tickGuarded(ctx)
	for {
		select {
		case <-ctx.Done():
			logrus.Info("Twitter likes watcher stopped")
			return
		case <-ticker.C:
			w.tickGuarded(ctx)
		}
	}
}

func (w *TwitterWatcher) tickGuarded(ctx context.Context) {
	if !w.slot.TryAcquire() {
		logrus.Debug("Skipping likes tick, previous one still running")
		return
	}
	defer w.slot.Release()
	if err := w.tick(ctx); err != nil {
		logrus.WithError(err).Error("Likes tick failed")
	}
}

type likeItem struct {
	ID string `json:"id"`
}

type likesResponse struct {
	Tweets []likeItem `json:"tweets"`
	Likes  []likeItem `json:"likes"`
}

func (w *TwitterWatcher) tick(ctx context.Context) error {
	admin, err := w.db.GetAdminConfig(ctx, w.cfg.AdminID)
	if err != nil {
		return fmt.Errorf("load admin config: %w", err)
	}
	if admin.Mode != models.ModeAPI {
		return nil
	}
	if admin.APIKey == "" || admin.TargetHandle == "" {
		logrus.Warn("API mode active but key or handle missing")
		return nil
	}

	resp, err := w.client.R().
		SetContext(ctx).
		SetQueryParam("userName", admin.TargetHandle).
		SetHeader("X-API-Key", admin.APIKey).
		Get(w.apiBase + "/twitter/user/last_likes")
	if err != nil {
		return fmt.Errorf("likes API request: %w", err)
	}
	if resp.StatusCode() == 401 {
		if _, sendErr := w.notify.SendText("⚠️ <b>API Error:</b> Unauthorized. Check your API key."); sendErr != nil {
			logrus.WithError(sendErr).Warn("Failed to warn admin about invalid key")
		}
		return fmt.Errorf("likes API rejected the key")
	}
	if resp.IsError() {
		return fmt.Errorf("likes API returned status %d", resp.StatusCode())
	}

	var payload likesResponse
	if err := json.Unmarshal(resp.Body(), &payload); err != nil {
		return fmt.Errorf("parse likes response: %w", err)
	}
	items := payload.Tweets
	if len(items) == 0 {
		items = payload.Likes
	}
	if len(items) == 0 {
		logrus.Debug("No likes returned")
		return nil
	}

	ordered := orderByID(items)
	if len(ordered) == 0 {
		return fmt.Errorf("likes response carried no parseable ids")
	}
	newest := ordered[len(ordered)-1].ID

	lastID, ok := new(big.Int).SetString(admin.LastLikedID, 10)
	if !ok {
		lastID = big.NewInt(0)
	}

	// First run only records the start point; nothing is delivered.
	if lastID.Sign() == 0 {
		if err := w.db.UpdateLastLikedID(ctx, w.cfg.AdminID, newest); err != nil {
			return fmt.Errorf("store first-run mark: %w", err)
		}
		if _, err := w.notify.SendText(fmt.Sprintf(
			"✅ <b>API connected!</b>\nSynced with latest like ID: <code>%s</code>\nWaiting for new likes...", newest)); err != nil {
			logrus.WithError(err).Warn("Failed to send first-run notice")
		}
		return nil
	}

	processed := 0
	for _, item := range ordered {
		id, idOK := new(big.Int).SetString(item.ID, 10)
		if !idOK || id.Cmp(lastID) <= 0 {
			continue
		}
		tweetURL := fmt.Sprintf("https://twitter.com/%s/status/%s", admin.TargetHandle, item.ID)
		logrus.WithField("url", tweetURL).Info("New liked tweet")
		if err := w.proc.ProcessURL(ctx, w.cfg.AdminID, tweetURL); err != nil {
			logrus.WithError(err).WithField("url", tweetURL).Error("Failed to process liked tweet")
		}
		processed++
		if !sleepCtx(ctx, w.cfg.WatcherSettings.ItemDelay) {
			return ctx.Err()
		}
	}

	if processed > 0 {
		logrus.WithField("count", processed).Info("Processed new likes")
		if err := w.db.UpdateLastLikedID(ctx, w.cfg.AdminID, newest); err != nil {
			return fmt.Errorf("advance likes mark: %w", err)
		}
	}
	return nil
}

// orderByID sorts oldest first by numeric tweet id, dropping entries whose
// id does not parse.
func orderByID(items []likeItem) []likeItem {
	ordered := make([]likeItem, 0, len(items))
	for _, item := range items {
		if _, ok := new(big.Int).SetString(item.ID, 10); ok {
			ordered = append(ordered, item)
		}
	}
	sort.Slice(ordered, func(i, j int) bool {
		a, _ := new(big.Int).SetString(ordered[i].ID, 10)
		b, _ := new(big.Int).SetString(ordered[j].ID, 10)
		return a.Cmp(b) < 0
	})
	return ordered
}

// sleepCtx waits out the delay unless the context ends first.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	select {
	case <-ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}
