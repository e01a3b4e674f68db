package splitter

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"

	"github.com/mediabanai/telegram-social-downloader/internal/config"
	"github.com/mediabanai/telegram-social-downloader/internal/media"
	"github.com/sirupsen/logrus"
)

const (
	// SplitThreshold is the largest file sent as a single upload.
	SplitThreshold = 49 * 1024 * 1024
	// HardLimit rejects non-video files that cannot be segmented.
	HardLimit = SplitThreshold + 512*1024

	segmentTime = "00:03:00"
)

// ErrTooLarge marks a file that exceeds the upload limit and could not be
// reduced by segmentation.
var ErrTooLarge = errors.New("file exceeds the upload size limit")

type runFunc func(ctx context.Context, name string, args ...string) error

// Splitter keeps outgoing files under the upload limit, segmenting oversized
// videos with ffmpeg stream copy.
type Splitter struct {
	ffmpegPath string
	run        runFunc
}

func New(cfg *config.Config) *Splitter {
	return &Splitter{
		ffmpegPath: cfg.FfmpegPath,
		run:        runCommand,
	}
}

// Enforce returns the paths to upload for a downloaded file. A file at or
// under the threshold passes through unchanged. Oversized videos are split
// into three-minute parts; oversized non-video files are rejected. When
// segmentation produces nothing the original path is returned alongside
// ErrTooLarge so the caller can report the limit.
func (s *Splitter) Enforce(ctx context.Context, path string, kind media.Kind) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat downloaded file: %w", err)
	}
	if info.Size() <= SplitThreshold {
		return []string{path}, nil
	}

	if kind != media.KindVideo {
		if info.Size() > HardLimit {
			return nil, ErrTooLarge
		}
		return []string{path}, nil
	}

	logrus.WithFields(logrus.Fields{
		"path": path,
		"size": info.Size(),
	}).Info("File over the upload limit, segmenting")

	stem := strings.TrimSuffix(path, filepath.Ext(path))
	pattern := stem + "_part%03d.mp4"
	err = s.run(ctx, s.ffmpegPath,
		"-i", path,
		"-c", "copy",
		"-map", "0",
		"-segment_time", segmentTime,
		"-f", "segment",
		pattern,
	)
	if err != nil {
		return []string{path}, fmt.Errorf("%w: segmentation failed: %v", ErrTooLarge, err)
	}

	parts, err := filepath.Glob(stem + "_part*.mp4")
	if err != nil || len(parts) == 0 {
		return []string{path}, ErrTooLarge
	}
	// Lexicographic order of the zero-padded part numbers is chronological.
	sort.Strings(parts)
	return parts, nil
}

func runCommand(ctx context.Context, name string, args ...string) error {
	logrus.WithField("args", strings.Join(args, " ")).Debug("Invoking ffmpeg")

	cmd := exec.CommandContext(ctx, name, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%v: %s", err, firstLine(stderr.String()))
	}
	return nil
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
