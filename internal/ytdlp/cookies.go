package ytdlp

import (
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

const (
	netscapeHeader = "# Netscape HTTP Cookie File"
	cookieFileMode = 0o600
)

// RepairCookies normalizes a cookie blob pasted into an environment variable
// back into a valid Netscape cookie file: literal "\n" sequences become
// newlines, spaces become tabs, HttpOnly prefixes are stripped, and the
// header line is ensured.
func RepairCookies(raw string) string {
	repaired := strings.ReplaceAll(raw, `\n`, "\n")
	repaired = strings.ReplaceAll(repaired, " ", "\t")
	repaired = strings.ReplaceAll(repaired, "#HttpOnly_", "")
	if !strings.HasPrefix(repaired, "# Netscape") {
		repaired = netscapeHeader + "\n" + repaired
	}
	return repaired
}

// WriteCookieFile materializes the repaired cookie blob at path. A missing
// blob is not an error; the tool simply runs without cookies.
func WriteCookieFile(raw, path string) error {
	if raw == "" {
		return nil
	}
	if err := os.WriteFile(path, []byte(RepairCookies(raw)), cookieFileMode); err != nil {
		return err
	}
	logrus.WithField("path", path).Info("Cookie file written")
	return nil
}
