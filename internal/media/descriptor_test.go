package media

import "testing"

func TestDescriptorValidate(t *testing.T) {
	tests := []struct {
		name    string
		desc    Descriptor
		wantErr bool
	}{
		{
			name: "valid video",
			desc: Descriptor{Kind: KindVideo, SourceURL: "https://x.com/a/status/1", PrimaryURL: "https://video.twimg.com/v.mp4"},
		},
		{
			name: "video with formats",
			desc: Descriptor{
				Kind: KindVideo, SourceURL: "https://x.com/a/status/1", PrimaryURL: "https://v/v.mp4",
				Formats: []FormatOption{{Height: 1080, FormatID: "137"}},
			},
		},
		{
			name:    "image with formats rejected",
			desc:    Descriptor{Kind: KindImage, SourceURL: "u", PrimaryURL: "p", Formats: []FormatOption{{Height: 720}}},
			wantErr: true,
		},
		{
			name:    "gallery without items",
			desc:    Descriptor{Kind: KindGallery, SourceURL: "u"},
			wantErr: true,
		},
		{
			name: "gallery with tagged items",
			desc: Descriptor{Kind: KindGallery, SourceURL: "u", Items: []GalleryItem{
				{Kind: KindImage, URL: "https://i/1.jpg"},
				{Kind: KindVideo, URL: "https://i/2.mp4"},
			}},
		},
		{
			name:    "gallery item with gallery kind rejected",
			desc:    Descriptor{Kind: KindGallery, SourceURL: "u", Items: []GalleryItem{{Kind: KindGallery, URL: "x"}}},
			wantErr: true,
		},
		{
			name:    "missing primary URL",
			desc:    Descriptor{Kind: KindAudio, SourceURL: "u"},
			wantErr: true,
		},
		{
			name:    "invalid kind",
			desc:    Descriptor{Kind: "carousel", SourceURL: "u", PrimaryURL: "p"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.desc.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
