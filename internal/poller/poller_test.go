package poller

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mediabanai/telegram-social-downloader/internal/config"
	"github.com/mediabanai/telegram-social-downloader/internal/models"
	"github.com/mediabanai/telegram-social-downloader/internal/testutils"
)

const testAdminID int64 = 42

type fakeAdminStore struct {
	admin      models.AdminConfig
	likedMarks []string
	postMarks  []string
}

func (s *fakeAdminStore) GetAdminConfig(ctx context.Context, adminID int64) (*models.AdminConfig, error) {
	copied := s.admin
	return &copied, nil
}

func (s *fakeAdminStore) SetTwitterAPI(ctx context.Context, adminID int64, apiKey, targetHandle string) error {
	return nil
}

func (s *fakeAdminStore) SetMode(ctx context.Context, adminID int64, mode string) error {
	return nil
}

func (s *fakeAdminStore) UpdateLastLikedID(ctx context.Context, adminID int64, id string) error {
	s.likedMarks = append(s.likedMarks, id)
	s.admin.LastLikedID = id
	return nil
}

func (s *fakeAdminStore) SetRedditFeed(ctx context.Context, adminID int64, feedURL string) error {
	return nil
}

func (s *fakeAdminStore) DisableRedditFeed(ctx context.Context, adminID int64) error {
	return nil
}

func (s *fakeAdminStore) UpdateLastPostID(ctx context.Context, adminID int64, id string) error {
	s.postMarks = append(s.postMarks, id)
	s.admin.LastPostID = id
	return nil
}

type fakeProcessor struct {
	urls []string
	err  error
}

func (p *fakeProcessor) ProcessURL(ctx context.Context, chatID int64, rawURL string) error {
	p.urls = append(p.urls, rawURL)
	return p.err
}

func watcherConfig() *config.Config {
	return &config.Config{
		AdminID: testAdminID,
		WatcherSettings: config.WatcherConfig{
			TwitterPollInterval: config.DefaultTwitterPollInterval,
			RedditPollInterval:  config.DefaultRedditPollInterval,
			ItemDelay:           0,
		},
	}
}

func newLikesServer(t *testing.T, status int, body string) (*httptest.Server, *int) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if r.URL.Path != "/twitter/user/last_likes" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if r.Header.Get("X-API-Key") != "key123" {
			t.Errorf("X-API-Key = %q", r.Header.Get("X-API-Key"))
		}
		if r.URL.Query().Get("userName") != "target" {
			t.Errorf("userName = %q", r.URL.Query().Get("userName"))
		}
		w.WriteHeader(status)
		fmt.Fprint(w, body)
	}))
	return srv, &calls
}

func apiAdmin(lastLiked string) models.AdminConfig {
	return models.AdminConfig{
		ID:           testAdminID,
		Mode:         models.ModeAPI,
		APIKey:       "key123",
		TargetHandle: "target",
		LastLikedID:  lastLiked,
	}
}

func TestTwitterTick_WebhookModeIsIdle(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("API called in webhook mode")
	}))
	defer srv.Close()

	store := &fakeAdminStore{admin: models.AdminConfig{ID: testAdminID, Mode: models.ModeWebhook}}
	w := NewTwitterWatcher(watcherConfig(), store, &fakeProcessor{}, testutils.NewMockResponder())
	w.apiBase = srv.URL

	if err := w.tick(context.Background()); err != nil {
		t.Fatalf("tick: %v", err)
	}
}

func TestTwitterTick_FirstRunSyncsWithoutDelivering(t *testing.T) {
	srv, _ := newLikesServer(t, 200, `{"tweets": [{"id": "105"}, {"id": "103"}]}`)
	defer srv.Close()

	store := &fakeAdminStore{admin: apiAdmin("0")}
	proc := &fakeProcessor{}
	notify := testutils.NewMockResponder()
	w := NewTwitterWatcher(watcherConfig(), store, proc, notify)
	w.apiBase = srv.URL

	if err := w.tick(context.Background()); err != nil {
		t.Fatalf("tick: %v", err)
	}
	if len(proc.urls) != 0 {
		t.Errorf("first run delivered %v", proc.urls)
	}
	if len(store.likedMarks) != 1 || store.likedMarks[0] != "105" {
		t.Errorf("likedMarks = %v, want the newest id", store.likedMarks)
	}
	if len(notify.Texts) != 1 {
		t.Errorf("notify.Texts = %v, want the first-run notice", notify.Texts)
	}
}

func TestTwitterTick_WindowsAndOrdersNewLikes(t *testing.T) {
	// Out of order, with one id at and one below the mark.
	srv, _ := newLikesServer(t, 200, `{"tweets": [{"id": "103"}, {"id": "99"}, {"id": "101"}, {"id": "100"}]}`)
	defer srv.Close()

	store := &fakeAdminStore{admin: apiAdmin("100")}
	proc := &fakeProcessor{}
	w := NewTwitterWatcher(watcherConfig(), store, proc, testutils.NewMockResponder())
	w.apiBase = srv.URL

	if err := w.tick(context.Background()); err != nil {
		t.Fatalf("tick: %v", err)
	}
	want := []string{
		"https://twitter.com/target/status/101",
		"https://twitter.com/target/status/103",
	}
	if len(proc.urls) != 2 || proc.urls[0] != want[0] || proc.urls[1] != want[1] {
		t.Errorf("urls = %v, want %v", proc.urls, want)
	}
	if len(store.likedMarks) != 1 || store.likedMarks[0] != "103" {
		t.Errorf("likedMarks = %v, want one advance to 103 after the batch", store.likedMarks)
	}
}

func TestTwitterTick_NoNewLikesKeepsMark(t *testing.T) {
	srv, _ := newLikesServer(t, 200, `{"likes": [{"id": "90"}, {"id": "100"}]}`)
	defer srv.Close()

	store := &fakeAdminStore{admin: apiAdmin("100")}
	proc := &fakeProcessor{}
	w := NewTwitterWatcher(watcherConfig(), store, proc, testutils.NewMockResponder())
	w.apiBase = srv.URL

	if err := w.tick(context.Background()); err != nil {
		t.Fatalf("tick: %v", err)
	}
	if len(proc.urls) != 0 {
		t.Errorf("urls = %v", proc.urls)
	}
	if len(store.likedMarks) != 0 {
		t.Errorf("likedMarks = %v, want no advance", store.likedMarks)
	}
}

func TestTwitterTick_UnauthorizedWarnsAdmin(t *testing.T) {
	srv, _ := newLikesServer(t, 401, `{"error": "unauthorized"}`)
	defer srv.Close()

	store := &fakeAdminStore{admin: apiAdmin("100")}
	notify := testutils.NewMockResponder()
	w := NewTwitterWatcher(watcherConfig(), store, &fakeProcessor{}, notify)
	w.apiBase = srv.URL

	if err := w.tick(context.Background()); err == nil {
		t.Fatal("tick succeeded, want error")
	}
	if len(notify.Texts) != 1 {
		t.Fatalf("notify.Texts = %v, want the unauthorized warning", notify.Texts)
	}
}

func atomFixture(entries ...[2]string) string {
	body := `<?xml version="1.0" encoding="UTF-8"?><feed xmlns="http://www.w3.org/2005/Atom">`
	for _, e := range entries {
		body += fmt.Sprintf(`<entry><id>%s</id><link href="%s"/><title>post</title></entry>`, e[0], e[1])
	}
	return body + `</feed>`
}

func redditAdmin(feedURL, lastPost string) models.AdminConfig {
	return models.AdminConfig{
		ID:            testAdminID,
		Mode:          models.ModeWebhook,
		RedditFeedURL: feedURL,
		RedditActive:  true,
		LastPostID:    lastPost,
	}
}

func TestRedditTick_InactiveFeedIsIdle(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("feed fetched while disabled")
	}))
	defer srv.Close()

	admin := redditAdmin(srv.URL, "")
	admin.RedditActive = false
	store := &fakeAdminStore{admin: admin}
	w := NewRedditWatcher(watcherConfig(), store, &fakeProcessor{}, testutils.NewMockResponder())

	if err := w.tick(context.Background()); err != nil {
		t.Fatalf("tick: %v", err)
	}
}

func TestRedditTick_FirstRunSyncs(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("User-Agent") != config.UADesktopBrowser {
			t.Errorf("User-Agent = %q", r.Header.Get("User-Agent"))
		}
		fmt.Fprint(w, atomFixture(
			[2]string{"t3_ccc", "https://www.reddit.com/r/pics/comments/ccc"},
			[2]string{"t3_bbb", "https://www.reddit.com/r/pics/comments/bbb"},
		))
	}))
	defer srv.Close()

	store := &fakeAdminStore{admin: redditAdmin(srv.URL, "")}
	proc := &fakeProcessor{}
	notify := testutils.NewMockResponder()
	w := NewRedditWatcher(watcherConfig(), store, proc, notify)

	if err := w.tick(context.Background()); err != nil {
		t.Fatalf("tick: %v", err)
	}
	if len(proc.urls) != 0 {
		t.Errorf("first run delivered %v", proc.urls)
	}
	if len(store.postMarks) != 1 || store.postMarks[0] != "t3_ccc" {
		t.Errorf("postMarks = %v", store.postMarks)
	}
	if len(notify.Texts) != 1 {
		t.Errorf("notify.Texts = %v", notify.Texts)
	}
}

func TestRedditTick_ReplaysNewPostsOldestFirst(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, atomFixture(
			[2]string{"t3_ddd", "https://www.reddit.com/r/a/comments/ddd"},
			[2]string{"t3_ccc", "https://www.reddit.com/r/a/comments/ccc"},
			[2]string{"t3_bbb", "https://www.reddit.com/r/a/comments/bbb"},
		))
	}))
	defer srv.Close()

	store := &fakeAdminStore{admin: redditAdmin(srv.URL, "t3_bbb")}
	proc := &fakeProcessor{}
	w := NewRedditWatcher(watcherConfig(), store, proc, testutils.NewMockResponder())

	if err := w.tick(context.Background()); err != nil {
		t.Fatalf("tick: %v", err)
	}
	want := []string{
		"https://www.reddit.com/r/a/comments/ccc",
		"https://www.reddit.com/r/a/comments/ddd",
	}
	if len(proc.urls) != 2 || proc.urls[0] != want[0] || proc.urls[1] != want[1] {
		t.Errorf("urls = %v, want %v", proc.urls, want)
	}
	if len(store.postMarks) != 1 || store.postMarks[0] != "t3_ddd" {
		t.Errorf("postMarks = %v", store.postMarks)
	}
}

func TestRedditTick_NoChangeKeepsMark(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, atomFixture([2]string{"t3_ccc", "https://www.reddit.com/r/a/comments/ccc"}))
	}))
	defer srv.Close()

	store := &fakeAdminStore{admin: redditAdmin(srv.URL, "t3_ccc")}
	proc := &fakeProcessor{}
	w := NewRedditWatcher(watcherConfig(), store, proc, testutils.NewMockResponder())

	if err := w.tick(context.Background()); err != nil {
		t.Fatalf("tick: %v", err)
	}
	if len(proc.urls) != 0 || len(store.postMarks) != 0 {
		t.Errorf("urls = %v, postMarks = %v", proc.urls, store.postMarks)
	}
}
