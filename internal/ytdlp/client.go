package ytdlp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/mediabanai/telegram-social-downloader/internal/config"
	"github.com/sirupsen/logrus"
)

// BestFormat is the sentinel format id meaning "let the tool pick".
const BestFormat = "best"

// Info is the parsed output of the tool's JSON metadata query.
type Info struct {
	Title      string      `json:"title"`
	URL        string      `json:"url"`
	Ext        string      `json:"ext"`
	Type       string      `json:"_type"`
	Duration   float64     `json:"duration"`
	Thumbnail  string      `json:"thumbnail"`
	Thumbnails []Thumbnail `json:"thumbnails"`
	Formats    []Format    `json:"formats"`
	Entries    []Entry     `json:"entries"`
}

type Thumbnail struct {
	URL string `json:"url"`
}

type Format struct {
	FormatID       string `json:"format_id"`
	Ext            string `json:"ext"`
	Height         int    `json:"height"`
	Filesize       int64  `json:"filesize"`
	FilesizeApprox int64  `json:"filesize_approx"`
}

// Size returns the best known byte size for the format, 0 when unknown.
func (f Format) Size() int64 {
	if f.Filesize > 0 {
		return f.Filesize
	}
	return f.FilesizeApprox
}

type Entry struct {
	Ext string `json:"ext"`
	URL string `json:"url"`
}

// Client shells out to the external extraction tool.
type Client struct {
	binaryPath string
	cookiePath string
}

func NewClient(cfg *config.Config) *Client {
	return &Client{
		binaryPath: cfg.YtdlpPath,
		cookiePath: cfg.CookiePath,
	}
}

// UserAgentFor picks the agent the source platform expects: the official
// Android app agent for reddit hosts, a mobile browser agent otherwise.
func UserAgentFor(rawURL string) string {
	lower := strings.ToLower(rawURL)
	if strings.Contains(lower, "reddit") || strings.Contains(lower, "redd.it") {
		return config.UARedditApp
	}
	return config.UAAndroidBrowser
}

// baseArgs are shared by every invocation: forced IPv4, no playlist
// expansion, platform-plausible user agent, and cookie injection when a
// cookie file is present on disk.
func (c *Client) baseArgs(rawURL string) []string {
	args := []string{"--force-ipv4", "--no-warnings", "--no-playlist", "--user-agent", UserAgentFor(rawURL)}
	if _, err := os.Stat(c.cookiePath); err == nil {
		args = append(args, "--cookies", c.cookiePath)
	}
	return args
}

// GetInfo runs the metadata query (-J) and parses the JSON dump.
func (c *Client) GetInfo(ctx context.Context, rawURL string) (*Info, error) {
	args := append(c.baseArgs(rawURL), "-J", rawURL)
	out, err := c.run(ctx, args)
	if err != nil {
		return nil, err
	}

	var info Info
	if jsonErr := json.Unmarshal(out, &info); jsonErr != nil {
		return nil, fmt.Errorf("parse metadata json: %w: %w", ErrMediaUnavailable, jsonErr)
	}
	return &info, nil
}

func (c *Client) videoArgs(rawURL, formatID, stem string) []string {
	selector := "bestvideo+bestaudio/best"
	if formatID != "" && formatID != BestFormat {
		selector = formatID + "+bestaudio/best"
	}
	args := append(c.baseArgs(rawURL),
		"-f", selector,
		"--merge-output-format", "mp4",
		"-o", stem+".%(ext)s",
		rawURL,
	)
	return args
}

func (c *Client) audioArgs(rawURL, stem string) []string {
	return append(c.baseArgs(rawURL),
		"-x", "--audio-format", "mp3",
		"-o", stem+".%(ext)s",
		rawURL,
	)
}

// DownloadVideo materializes the chosen variant at <stem>.mp4.
func (c *Client) DownloadVideo(ctx context.Context, rawURL, formatID, stem string) error {
	_, err := c.run(ctx, c.videoArgs(rawURL, formatID, stem))
	return err
}

// DownloadAudio extracts the audio track to <stem>.mp3.
func (c *Client) DownloadAudio(ctx context.Context, rawURL, stem string) error {
	_, err := c.run(ctx, c.audioArgs(rawURL, stem))
	return err
}

func (c *Client) run(ctx context.Context, args []string) ([]byte, error) {
	logrus.WithField("args", strings.Join(args, " ")).Debug("Invoking extraction tool")

	cmd := exec.CommandContext(ctx, c.binaryPath, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, classifyToolError(err, stderr.String())
	}
	return stdout.Bytes(), nil
}

// classifyToolError maps a non-zero exit to the typed error the user-facing
// layer relies on: a 403 signature in the tool output means the source
// actively refused the request, everything else is generic unavailability.
func classifyToolError(err error, stderrOutput string) error {
	if isRefusedSignature(stderrOutput) {
		return fmt.Errorf("%w: %s", ErrSourceRefused, firstLine(stderrOutput))
	}
	return fmt.Errorf("%w: %v: %s", ErrMediaUnavailable, err, firstLine(stderrOutput))
}

func isRefusedSignature(stderrOutput string) bool {
	return strings.Contains(stderrOutput, "HTTP Error 403") ||
		strings.Contains(stderrOutput, "403 Forbidden") ||
		strings.Contains(stderrOutput, "Forbidden")
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
