package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mediabanai/telegram-social-downloader/internal/downloadmanager"
	"github.com/mediabanai/telegram-social-downloader/internal/media"
	"github.com/mediabanai/telegram-social-downloader/internal/models"
	"github.com/mediabanai/telegram-social-downloader/internal/splitter"
	"github.com/mediabanai/telegram-social-downloader/internal/testutils"
	"github.com/mediabanai/telegram-social-downloader/internal/ytdlp"
)

type fakeCache struct {
	entries map[string]*models.CacheEntry
	puts    []string
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: make(map[string]*models.CacheEntry)}
}

func (c *fakeCache) GetCache(ctx context.Context, sourceURL string) (*models.CacheEntry, error) {
	return c.entries[sourceURL], nil
}

func (c *fakeCache) PutCache(ctx context.Context, sourceURL, mediaKind, fileID string) error {
	c.entries[sourceURL] = &models.CacheEntry{SourceURL: sourceURL, MediaKind: mediaKind, FileID: fileID}
	c.puts = append(c.puts, fmt.Sprintf("%s %s %s", sourceURL, mediaKind, fileID))
	return nil
}

type fakeDownloader struct {
	dir       string
	err       error
	requests  []downloadmanager.Request
	itemErrAt int
	itemCount int
}

func (d *fakeDownloader) Download(ctx context.Context, req downloadmanager.Request) (string, error) {
	d.requests = append(d.requests, req)
	if d.err != nil {
		return "", d.err
	}
	path := filepath.Join(d.dir, req.Stem+".bin")
	if err := os.WriteFile(path, []byte("data"), 0o644); err != nil {
		return "", err
	}
	return path, nil
}

func (d *fakeDownloader) FetchItem(ctx context.Context, item media.GalleryItem, stemName string) (string, error) {
	d.itemCount++
	if d.itemErrAt == d.itemCount {
		return "", errors.New("item fetch failed")
	}
	path := filepath.Join(d.dir, stemName+".bin")
	if err := os.WriteFile(path, []byte("item"), 0o644); err != nil {
		return "", err
	}
	return path, nil
}

type fakeGovernor struct {
	parts []string
	err   error
}

func (g *fakeGovernor) Enforce(ctx context.Context, path string, kind media.Kind) ([]string, error) {
	if g.err != nil {
		if errors.Is(g.err, splitter.ErrTooLarge) {
			return []string{path}, g.err
		}
		return nil, g.err
	}
	if g.parts != nil {
		return g.parts, nil
	}
	return []string{path}, nil
}

func newTestPipeline(t *testing.T) (*Pipeline, *fakeCache, *fakeDownloader, *fakeGovernor) {
	t.Helper()
	cache := newFakeCache()
	dl := &fakeDownloader{dir: t.TempDir()}
	gov := &fakeGovernor{}
	return New(cache, dl, gov), cache, dl, gov
}

func videoJob() Job {
	return Job{
		SourceURL: "https://x.com/u/status/1",
		Action:    "vid",
		FormatID:  "f-720",
		Caption:   "<b>caption</b>",
		Desc:      &media.Descriptor{Kind: media.KindVideo, PrimaryURL: "https://video.twimg.com/c.mp4"},
		StatusID:  7,
	}
}

func TestDeliver_VideoCachesAndCleansUp(t *testing.T) {
	p, cache, dl, _ := newTestPipeline(t)
	rsp := testutils.NewMockResponder()

	if err := p.Deliver(context.Background(), rsp, videoJob()); err != nil {
		t.Fatalf("Deliver: %v", err)
	}

	if len(rsp.Files) != 1 || rsp.Files[0].Kind != "video" {
		t.Fatalf("Files = %+v", rsp.Files)
	}
	if rsp.Files[0].Caption != "<b>caption</b>" {
		t.Errorf("caption = %q", rsp.Files[0].Caption)
	}
	if len(cache.puts) != 1 || !strings.Contains(cache.puts[0], "video") {
		t.Errorf("cache.puts = %v", cache.puts)
	}
	if len(rsp.Deleted) != 1 || rsp.Deleted[0] != 7 {
		t.Errorf("Deleted = %v, want the status message", rsp.Deleted)
	}
	if _, err := os.Stat(rsp.Files[0].Path); !os.IsNotExist(err) {
		t.Errorf("downloaded artifact %s not removed", rsp.Files[0].Path)
	}
	if len(dl.requests) != 1 || dl.requests[0].FormatID != "f-720" {
		t.Errorf("requests = %+v", dl.requests)
	}
}

func TestDeliver_CacheHitSkipsDownload(t *testing.T) {
	p, cache, dl, _ := newTestPipeline(t)
	cache.entries["https://x.com/u/status/1"] = &models.CacheEntry{
		SourceURL: "https://x.com/u/status/1",
		MediaKind: "video",
		FileID:    "cached-handle",
	}
	rsp := testutils.NewMockResponder()

	if err := p.Deliver(context.Background(), rsp, videoJob()); err != nil {
		t.Fatalf("Deliver: %v", err)
	}
	if len(dl.requests) != 0 {
		t.Errorf("download ran despite cache hit: %+v", dl.requests)
	}
	if len(rsp.ByID) != 1 || rsp.ByID[0].FileID != "cached-handle" {
		t.Errorf("ByID = %+v", rsp.ByID)
	}
}

func TestDeliver_StaleCacheHandleFallsThrough(t *testing.T) {
	p, cache, dl, _ := newTestPipeline(t)
	cache.entries["https://x.com/u/status/1"] = &models.CacheEntry{
		SourceURL: "https://x.com/u/status/1",
		MediaKind: "video",
		FileID:    "expired",
	}
	rsp := testutils.NewMockResponder()
	rsp.ByIDError = errors.New("Bad Request: wrong file identifier")

	if err := p.Deliver(context.Background(), rsp, videoJob()); err != nil {
		t.Fatalf("Deliver: %v", err)
	}
	if len(dl.requests) != 1 {
		t.Errorf("expected fresh download after rejected handle, got %d", len(dl.requests))
	}
	if len(rsp.Files) != 1 {
		t.Errorf("Files = %+v", rsp.Files)
	}
}

func TestDeliver_CachedKindMismatchDownloads(t *testing.T) {
	p, cache, dl, _ := newTestPipeline(t)
	cache.entries["https://x.com/u/status/1"] = &models.CacheEntry{
		SourceURL: "https://x.com/u/status/1",
		MediaKind: "video",
		FileID:    "cached-handle",
	}
	rsp := testutils.NewMockResponder()

	job := videoJob()
	job.Action = "aud"
	job.FormatID = "best"
	if err := p.Deliver(context.Background(), rsp, job); err != nil {
		t.Fatalf("Deliver: %v", err)
	}
	if len(rsp.ByID) != 0 {
		t.Errorf("cached video handle reused for an audio request")
	}
	if len(dl.requests) != 1 || dl.requests[0].Kind != media.KindAudio {
		t.Errorf("requests = %+v", dl.requests)
	}
}

func TestDeliver_RefusedErrorMessage(t *testing.T) {
	p, _, dl, _ := newTestPipeline(t)
	dl.err = fmt.Errorf("%w: status 403", ytdlp.ErrSourceRefused)
	rsp := testutils.NewMockResponder()

	if err := p.Deliver(context.Background(), rsp, videoJob()); err == nil {
		t.Fatal("Deliver succeeded, want error")
	}
	if rsp.Edits[7] != MsgRefused {
		t.Errorf("status edit = %q, want refused message", rsp.Edits[7])
	}
}

func TestDeliver_TooLargeMessage(t *testing.T) {
	p, cache, _, gov := newTestPipeline(t)
	gov.err = splitter.ErrTooLarge
	rsp := testutils.NewMockResponder()

	if err := p.Deliver(context.Background(), rsp, videoJob()); !errors.Is(err, splitter.ErrTooLarge) {
		t.Fatalf("err = %v", err)
	}
	if rsp.Edits[7] != MsgTooLarge {
		t.Errorf("status edit = %q", rsp.Edits[7])
	}
	if len(cache.puts) != 0 {
		t.Errorf("cache written for rejected delivery: %v", cache.puts)
	}
}

func TestDeliver_SplitPartsNotCached(t *testing.T) {
	p, cache, dl, gov := newTestPipeline(t)
	partA := filepath.Join(dl.dir, "x_part000.mp4")
	partB := filepath.Join(dl.dir, "x_part001.mp4")
	os.WriteFile(partA, []byte("a"), 0o644)
	os.WriteFile(partB, []byte("b"), 0o644)
	gov.parts = []string{partA, partB}
	rsp := testutils.NewMockResponder()

	if err := p.Deliver(context.Background(), rsp, videoJob()); err != nil {
		t.Fatalf("Deliver: %v", err)
	}
	if len(rsp.Files) != 2 {
		t.Fatalf("Files = %+v, want two parts", rsp.Files)
	}
	if !strings.Contains(rsp.Files[0].Caption, "Part 1/2") || !strings.Contains(rsp.Files[1].Caption, "Part 2/2") {
		t.Errorf("part captions = %q, %q", rsp.Files[0].Caption, rsp.Files[1].Caption)
	}
	if len(cache.puts) != 0 {
		t.Errorf("split delivery must not be cached: %v", cache.puts)
	}
	for _, part := range gov.parts {
		if _, err := os.Stat(part); !os.IsNotExist(err) {
			t.Errorf("part %s not removed", part)
		}
	}
}

func TestDeliver_DocumentFallbackNotCached(t *testing.T) {
	p, cache, _, _ := newTestPipeline(t)
	rsp := testutils.NewMockResponder()
	rsp.FileError = errors.New("Request Entity Too Large")

	if err := p.Deliver(context.Background(), rsp, videoJob()); err != nil {
		t.Fatalf("Deliver: %v", err)
	}
	if len(rsp.Files) != 1 || rsp.Files[0].Kind != "document" {
		t.Fatalf("Files = %+v, want one document fallback", rsp.Files)
	}
	if len(cache.puts) != 0 {
		t.Errorf("document fallback must not be cached: %v", cache.puts)
	}
}

func imageJob() Job {
	return Job{
		SourceURL: "https://www.instagram.com/p/abc/",
		Action:    "img",
		Caption:   "<b>pic</b>",
		Desc:      &media.Descriptor{Kind: media.KindImage, PrimaryURL: "https://cdn.example/a.jpg"},
		StatusID:  5,
	}
}

func TestDeliver_ImageFailureFallsBackToDocumentLink(t *testing.T) {
	p, cache, dl, _ := newTestPipeline(t)
	dl.err = fmt.Errorf("%w: direct download got status 404", ytdlp.ErrMediaUnavailable)
	rsp := testutils.NewMockResponder()

	if err := p.Deliver(context.Background(), rsp, imageJob()); err != nil {
		t.Fatalf("Deliver: %v", err)
	}
	if len(rsp.DocsURLs) != 1 || rsp.DocsURLs[0] != "https://cdn.example/a.jpg" {
		t.Fatalf("DocsURLs = %v, want the CDN link", rsp.DocsURLs)
	}
	if len(rsp.Deleted) != 1 || rsp.Deleted[0] != 5 {
		t.Errorf("Deleted = %v, want the status message", rsp.Deleted)
	}
	if rsp.Edits[5] == MsgFailed {
		t.Error("failure reported despite the link fallback succeeding")
	}
	if len(cache.puts) != 0 {
		t.Errorf("link fallback must not be cached: %v", cache.puts)
	}
}

func TestDeliver_ImageFailureLinkRejectedReportsFailure(t *testing.T) {
	p, _, dl, _ := newTestPipeline(t)
	dl.err = fmt.Errorf("%w: direct download got status 404", ytdlp.ErrMediaUnavailable)
	rsp := testutils.NewMockResponder()
	rsp.DocumentError = errors.New("Bad Request: wrong URL host")

	if err := p.Deliver(context.Background(), rsp, imageJob()); err == nil {
		t.Fatal("Deliver succeeded with no deliverable image")
	}
	if rsp.Edits[5] != MsgFailed {
		t.Errorf("status edit = %q", rsp.Edits[5])
	}
}

func TestDeliver_VideoFailureDoesNotSendLink(t *testing.T) {
	p, _, dl, _ := newTestPipeline(t)
	dl.err = fmt.Errorf("%w: exit status 1", ytdlp.ErrMediaUnavailable)
	rsp := testutils.NewMockResponder()

	if err := p.Deliver(context.Background(), rsp, videoJob()); err == nil {
		t.Fatal("Deliver succeeded, want error")
	}
	if len(rsp.DocsURLs) != 0 {
		t.Errorf("DocsURLs = %v, link fallback is for images only", rsp.DocsURLs)
	}
}

func TestDeliver_Gallery(t *testing.T) {
	p, cache, dl, _ := newTestPipeline(t)
	dl.itemErrAt = 2
	rsp := testutils.NewMockResponder()

	job := Job{
		SourceURL: "https://www.reddit.com/r/pics/comments/g1",
		Action:    "alb",
		Caption:   "<b>album</b>",
		StatusID:  3,
		Desc: &media.Descriptor{
			Kind: media.KindGallery,
			Items: []media.GalleryItem{
				{Kind: media.KindImage, URL: "https://i.redd.it/a.jpg"},
				{Kind: media.KindImage, URL: "https://i.redd.it/b.jpg"},
				{Kind: media.KindVideo, URL: "https://i.redd.it/c.mp4"},
			},
		},
	}
	if err := p.Deliver(context.Background(), rsp, job); err != nil {
		t.Fatalf("Deliver: %v", err)
	}

	if len(rsp.Texts) != 1 || rsp.Texts[0] != "<b>album</b>" {
		t.Errorf("Texts = %v, want the caption message", rsp.Texts)
	}
	// Item 2 failed to fetch and was skipped.
	if len(rsp.Files) != 2 {
		t.Fatalf("Files = %+v", rsp.Files)
	}
	if rsp.Files[0].Kind != "photo" || rsp.Files[1].Kind != "video" {
		t.Errorf("item kinds = %q, %q", rsp.Files[0].Kind, rsp.Files[1].Kind)
	}
	if len(cache.puts) != 0 {
		t.Errorf("albums must not be cached: %v", cache.puts)
	}
}

func TestDeliver_GalleryWithoutDescriptorFails(t *testing.T) {
	p, _, _, _ := newTestPipeline(t)
	rsp := testutils.NewMockResponder()

	job := Job{SourceURL: "u", Action: "alb", StatusID: 3}
	if err := p.Deliver(context.Background(), rsp, job); err == nil {
		t.Fatal("Deliver succeeded without a gallery descriptor")
	}
	if rsp.Edits[3] != MsgFailed {
		t.Errorf("status edit = %q", rsp.Edits[3])
	}
}

func TestDeliver_UnknownAction(t *testing.T) {
	p, _, _, _ := newTestPipeline(t)
	rsp := testutils.NewMockResponder()

	if err := p.Deliver(context.Background(), rsp, Job{SourceURL: "u", Action: "nope"}); err == nil {
		t.Fatal("Deliver succeeded with an unknown action")
	}
	if len(rsp.Texts) != 1 || rsp.Texts[0] != MsgFailed {
		t.Errorf("Texts = %v", rsp.Texts)
	}
}
