// Package classify maps a file extension to its model.MediaType, the
// classification the Scanner applies to every candidate file (spec.md
// §4.1).
package classify

import (
	"strings"

	"github.com/bizzlechizzle/nightfoxfilms-sub014/internal/model"
)

var extensions = map[string]model.MediaType{
	".jpg":  model.MediaImage,
	".jpeg": model.MediaImage,
	".heic": model.MediaImage,
	".heif": model.MediaImage,
	".png":  model.MediaImage,
	".tif":  model.MediaImage,
	".tiff": model.MediaImage,
	".dng":  model.MediaImage,
	".raw":  model.MediaImage,

	".mp4":  model.MediaVideo,
	".mov":  model.MediaVideo,
	".mkv":  model.MediaVideo,
	".webm": model.MediaVideo,
	".avi":  model.MediaVideo,
	".m4v":  model.MediaVideo,

	".pdf":  model.MediaDocument,
	".docx": model.MediaDocument,
	".doc":  model.MediaDocument,
	".txt":  model.MediaDocument,
	".rtf":  model.MediaDocument,

	".gpx": model.MediaMap,
	".kml": model.MediaMap,
	".kmz": model.MediaMap,
}

// MediaType returns the MediaType for ext (case-insensitive, leading dot
// required), or model.MediaUnknown if unrecognized.
func MediaType(ext string) model.MediaType {
	mt, ok := extensions[strings.ToLower(ext)]
	if !ok {
		return model.MediaUnknown
	}
	return mt
}
