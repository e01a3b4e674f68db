package linkutil

import (
	"context"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/mediabanai/telegram-social-downloader/internal/config"
	"github.com/sirupsen/logrus"
)

const resolveTimeout = 5 * time.Second

// urlPattern matches the first supported-platform URL embedded in free text.
// Host whitelist only; everything else in a message is ignored.
var urlPattern = regexp.MustCompile(
	`(?i)(https?://(?:www\.|old\.|mobile\.|m\.|on\.|open\.)?(?:reddit\.com|redd\.it|x\.com|twitter\.com|instagram\.com|tiktok\.com|vm\.tiktok\.com|vt\.tiktok\.com|soundcloud\.com|spotify\.com)/[^\s]+)`)

// Detect scans free text and returns the first supported-platform URL.
// Later URLs in the same message are never considered.
func Detect(text string) (string, bool) {
	match := urlPattern.FindString(text)
	if match == "" {
		return "", false
	}
	return match, true
}

// isShortLink reports whether the URL is a known redirect-style share link
// that must be probed before extraction: reddit /s/ share links, the tiktok
// vm./vt. short hosts, and soundcloud on. share links.
func isShortLink(rawURL string) bool {
	lower := strings.ToLower(rawURL)
	if strings.Contains(lower, "/s/") {
		return true
	}
	return strings.Contains(lower, "vm.tiktok.com") ||
		strings.Contains(lower, "vt.tiktok.com") ||
		strings.Contains(lower, "on.soundcloud.com")
}

// Resolve expands short/share links by probing the redirect target without
// following it. Any failure returns the input unchanged; resolution failure
// is never fatal.
func Resolve(ctx context.Context, rawURL string) string {
	if !isShortLink(rawURL) {
		return rawURL
	}

	ctx, cancel := context.WithTimeout(ctx, resolveTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, rawURL, http.NoBody)
	if err != nil {
		return rawURL
	}
	req.Header.Set("User-Agent", config.UAAndroidBrowser)

	client := &http.Client{
		CheckRedirect: func(_ *http.Request, _ []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	resp, err := client.Do(req)
	if err != nil {
		logrus.WithError(err).WithField("url", rawURL).Debug("Redirect probe failed, keeping original URL")
		return rawURL
	}
	defer resp.Body.Close()

	if resp.StatusCode < 300 || resp.StatusCode >= 400 {
		return rawURL
	}
	location := resp.Header.Get("Location")
	if location == "" {
		return rawURL
	}
	return location
}

// Clean strips everything from the first '?' or '#' onward. Tracking query
// parameters are known to trigger bot blocking on at least one platform, so
// stripping is unconditional.
func Clean(rawURL string) string {
	if i := strings.IndexAny(rawURL, "?#"); i >= 0 {
		return rawURL[:i]
	}
	return rawURL
}

// Normalize produces the canonical cache-key form of a link:
// redirect-resolved, then query-stripped.
func Normalize(ctx context.Context, rawURL string) string {
	return Clean(Resolve(ctx, rawURL))
}

// Platform returns a human label for the URL's source platform.
func Platform(rawURL string) string {
	lower := strings.ToLower(rawURL)
	switch {
	case strings.Contains(lower, "reddit") || strings.Contains(lower, "redd.it"):
		return "Reddit"
	case strings.Contains(lower, "x.com") || strings.Contains(lower, "twitter"):
		return "Twitter"
	case strings.Contains(lower, "tiktok"):
		return "TikTok"
	case strings.Contains(lower, "instagram"):
		return "Instagram"
	case strings.Contains(lower, "soundcloud"):
		return "SoundCloud"
	case strings.Contains(lower, "spotify"):
		return "Spotify"
	default:
		return "Social"
	}
}
