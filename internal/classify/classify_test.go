package classify

import (
	"testing"

	"github.com/bizzlechizzle/nightfoxfilms-sub014/internal/model"
)

func TestMediaType(t *testing.T) {
	cases := map[string]model.MediaType{
		".jpg":  model.MediaImage,
		".JPG":  model.MediaImage,
		".heic": model.MediaImage,
		".mp4":  model.MediaVideo,
		".MOV":  model.MediaVideo,
		".pdf":  model.MediaDocument,
		".gpx":  model.MediaMap,
		".xyz":  model.MediaUnknown,
		"":      model.MediaUnknown,
	}
	for ext, want := range cases {
		if got := MediaType(ext); got != want {
			t.Errorf("MediaType(%q) = %v, want %v", ext, got, want)
		}
	}
}
