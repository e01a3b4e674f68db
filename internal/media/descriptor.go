package media

import "fmt"

// Kind tags a Descriptor (or a gallery item) with the media shape it carries.
type Kind string

const (
	KindVideo   Kind = "video"
	KindImage   Kind = "image"
	KindAudio   Kind = "audio"
	KindGallery Kind = "gallery"
)

func (k Kind) IsValid() bool {
	switch k {
	case KindVideo, KindImage, KindAudio, KindGallery:
		return true
	default:
		return false
	}
}

// FormatOption is one selectable video quality variant. FormatID is an opaque
// handle passed back to the extraction tool; SizeBytes 0 means unknown.
type FormatOption struct {
	Height    int
	FormatID  string
	SizeBytes int64
}

// GalleryItem is one entry of a multi-media post. Kind is video or image only.
type GalleryItem struct {
	Kind Kind
	URL  string
}

// Descriptor is the normalized result of extraction: one piece of remote
// media and how to fetch it. Exactly one kind is populated; Formats is only
// meaningful for video, Items only for gallery, CoverURL only for audio.
type Descriptor struct {
	Title     string
	Author    string
	SourceURL string
	Kind      Kind

	PrimaryURL string
	CoverURL   string
	Formats    []FormatOption
	Items      []GalleryItem
}

// Validate checks the tag/field pairing invariants.
func (d *Descriptor) Validate() error {
	if !d.Kind.IsValid() {
		return fmt.Errorf("invalid media kind %q", d.Kind)
	}
	if d.SourceURL == "" {
		return fmt.Errorf("descriptor missing source URL")
	}
	switch d.Kind {
	case KindGallery:
		if len(d.Items) == 0 {
			return fmt.Errorf("gallery descriptor has no items")
		}
		for i, item := range d.Items {
			if item.Kind != KindVideo && item.Kind != KindImage {
				return fmt.Errorf("gallery item %d has invalid kind %q", i, item.Kind)
			}
			if item.URL == "" {
				return fmt.Errorf("gallery item %d has empty URL", i)
			}
		}
	case KindVideo, KindImage, KindAudio:
		if d.PrimaryURL == "" {
			return fmt.Errorf("%s descriptor has empty primary URL", d.Kind)
		}
		if len(d.Items) > 0 {
			return fmt.Errorf("%s descriptor must not carry gallery items", d.Kind)
		}
	}
	if d.Kind != KindVideo && len(d.Formats) > 0 {
		return fmt.Errorf("%s descriptor must not carry video formats", d.Kind)
	}
	return nil
}
