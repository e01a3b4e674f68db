package selector

import (
	"fmt"
	"sort"
	"strings"

	"github.com/mediabanai/telegram-social-downloader/internal/media"
	"github.com/mediabanai/telegram-social-downloader/internal/ytdlp"
)

// Callback action tags carried as the first field of the callback data.
const (
	ActionVideo = "vid"
	ActionAudio = "aud"
	ActionImage = "img"
	ActionAlbum = "alb"
)

const maxQualityChoices = 5

// Choice is one inline keyboard button: a display label and the compact
// callback payload behind it.
type Choice struct {
	Label string
	Data  string
}

// Select builds the choice list for a descriptor. Video descriptors get at
// most five distinct quality entries in descending height order plus a fixed
// audio entry; the other kinds get a single action button.
func Select(desc *media.Descriptor) []Choice {
	switch desc.Kind {
	case media.KindGallery:
		return []Choice{{Label: "📥 Download Album", Data: EncodeData(ActionAlbum, "album", "all")}}
	case media.KindImage:
		return []Choice{{Label: "🖼 Download Image", Data: EncodeData(ActionImage, "image", "single")}}
	case media.KindAudio:
		return []Choice{{Label: "🎵 Download Audio", Data: EncodeData(ActionAudio, "audio", ytdlp.BestFormat)}}
	case media.KindVideo:
		choices := videoChoices(desc.Formats)
		return append(choices, Choice{
			Label: "🎵 Audio Only",
			Data:  EncodeData(ActionAudio, "audio", ytdlp.BestFormat),
		})
	default:
		return nil
	}
}

func videoChoices(formats []media.FormatOption) []Choice {
	qualifying := make([]media.FormatOption, 0, len(formats))
	for _, f := range formats {
		if f.Height > 0 && f.FormatID != "" {
			qualifying = append(qualifying, f)
		}
	}
	sort.SliceStable(qualifying, func(i, j int) bool {
		return qualifying[i].Height > qualifying[j].Height
	})

	var choices []Choice
	seen := make(map[int]bool)
	for _, f := range qualifying {
		if seen[f.Height] {
			continue
		}
		seen[f.Height] = true

		label := fmt.Sprintf("📹 %dp", f.Height)
		if f.SizeBytes > 0 {
			label = fmt.Sprintf("📹 %dp (%s)", f.Height, FormatBytes(f.SizeBytes))
		}
		choices = append(choices, Choice{
			Label: label,
			Data:  EncodeData(ActionVideo, fmt.Sprintf("%dp", f.Height), f.FormatID),
		})
		if len(choices) == maxQualityChoices {
			break
		}
	}

	if len(choices) == 0 {
		choices = append(choices, Choice{
			Label: "📹 Download Video",
			Data:  EncodeData(ActionVideo, "best", ytdlp.BestFormat),
		})
	}
	return choices
}

// EncodeData packs the pipe-delimited callback triplet. Pipes inside fields
// would corrupt the framing, so they are stripped.
func EncodeData(action, label, id string) string {
	clean := func(s string) string { return strings.ReplaceAll(s, "|", "") }
	return clean(action) + "|" + clean(label) + "|" + clean(id)
}

// ParseData unpacks a callback triplet produced by EncodeData.
func ParseData(data string) (action, label, id string, err error) {
	parts := strings.Split(data, "|")
	if len(parts) != 3 || parts[0] == "" || parts[2] == "" {
		return "", "", "", fmt.Errorf("malformed callback data %q", data)
	}
	return parts[0], parts[1], parts[2], nil
}

var byteUnits = []struct {
	suffix string
	size   int64
}{
	{"TB", 1 << 40},
	{"GB", 1 << 30},
	{"MB", 1 << 20},
	{"KB", 1 << 10},
}

// FormatBytes renders a byte count with binary-prefix units. Zero means the
// size is not known.
func FormatBytes(n int64) string {
	if n <= 0 {
		return "Unknown"
	}
	for _, u := range byteUnits {
		if n >= u.size {
			value := fmt.Sprintf("%.1f", float64(n)/float64(u.size))
			return strings.TrimSuffix(value, ".0") + " " + u.suffix
		}
	}
	return fmt.Sprintf("%d Bytes", n)
}
