// Package archive computes and parses the bit-exact content-addressed
// layout described in spec.md §6:
//
//	<archive>/locations/<STATE>/<LOCID>/data/org-<type>/<hash><ext>
//	<archive>/locations/<STATE>/<LOCID>/data/sloc-<SUBID>/org-<type>/<hash><ext>
package archive

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/bizzlechizzle/nightfoxfilms-sub014/internal/model"
)

var (
	hexID = regexp.MustCompile(`^[0-9a-f]{16}$`)
	stateToken = regexp.MustCompile(`^([A-Z]{2}|XX)$`)
)

// Path computes the archive path for a file, a pure function of
// (base, locid, subid, mediaType, hash, ext) per spec.md §6. Invariant:
// once set on a validated file, archivePath equals this exactly.
func Path(base string, loc model.LocationInfo, mediaType model.MediaType, hash, ext string) (string, error) {
	if !hexID.MatchString(loc.LocID) {
		return "", fmt.Errorf("archive: locid %q is not 16 lowercase hex chars", loc.LocID)
	}
	if !hexID.MatchString(hash) {
		return "", fmt.Errorf("archive: hash %q is not 16 lowercase hex chars", hash)
	}
	if ext != "" && !strings.HasPrefix(ext, ".") {
		return "", fmt.Errorf("archive: extension %q must include the leading dot", ext)
	}

	state := loc.StateToken()
	if !stateToken.MatchString(state) {
		return "", fmt.Errorf("archive: invalid state token %q", state)
	}

	filename := hash + ext
	typeDir := "org-" + mediaType.LayoutToken()

	if loc.SubID == "" {
		return filepath.Join(base, "locations", state, loc.LocID, "data", typeDir, filename), nil
	}
	if !hexID.MatchString(loc.SubID) {
		return "", fmt.Errorf("archive: subid %q is not 16 lowercase hex chars", loc.SubID)
	}
	return filepath.Join(base, "locations", state, loc.LocID, "data", "sloc-"+loc.SubID, typeDir, filename), nil
}

// Parsed is the inverse of Path: the (locid, subid, mediaType, hash, ext)
// recovered from a path under the archive tree. Used by the orphan-scan
// maintenance operation (SPEC_FULL.md §C.5).
type Parsed struct {
	LocID     string
	State     string
	SubID     string
	MediaType model.MediaType
	Hash      string
	Ext       string
}

// mediaTypeFromToken inverts MediaType.LayoutToken.
func mediaTypeFromToken(tok string) model.MediaType {
	switch tok {
	case "img":
		return model.MediaImage
	case "vid":
		return model.MediaVideo
	case "doc":
		return model.MediaDocument
	case "map":
		return model.MediaMap
	default:
		return model.MediaUnknown
	}
}

// Parse recovers the layout components of a path produced by Path. It
// returns an error if path does not match the expected grammar under base.
func Parse(base, path string) (Parsed, error) {
	rel, err := filepath.Rel(base, path)
	if err != nil {
		return Parsed{}, fmt.Errorf("archive: %w", err)
	}
	parts := strings.Split(filepath.ToSlash(rel), "/")

	// locations/<STATE>/<LOCID>/data/org-<type>/<hash><ext>              (5 parts after "locations")
	// locations/<STATE>/<LOCID>/data/sloc-<SUBID>/org-<type>/<hash><ext> (6 parts after "locations")
	if len(parts) < 6 || parts[0] != "locations" {
		return Parsed{}, fmt.Errorf("archive: %q is not under the locations/ layout", rel)
	}

	state := parts[1]
	locid := parts[2]
	if parts[3] != "data" {
		return Parsed{}, fmt.Errorf("archive: %q missing data/ segment", rel)
	}
	if !hexID.MatchString(locid) {
		return Parsed{}, fmt.Errorf("archive: %q is not a valid locid", locid)
	}

	var sub, typeSeg, filename string
	switch {
	case len(parts) == 6 && strings.HasPrefix(parts[4], "org-"):
		typeSeg, filename = parts[4], parts[5]
	case len(parts) == 7 && strings.HasPrefix(parts[4], "sloc-") && strings.HasPrefix(parts[5], "org-"):
		sub = strings.TrimPrefix(parts[4], "sloc-")
		typeSeg, filename = parts[5], parts[6]
	default:
		return Parsed{}, fmt.Errorf("archive: %q does not match [sloc-<id>/]org-<type> layout", rel)
	}

	ext := filepath.Ext(filename)
	hash := strings.TrimSuffix(filename, ext)
	if !hexID.MatchString(hash) {
		return Parsed{}, fmt.Errorf("archive: %q is not a valid content hash", hash)
	}

	return Parsed{
		LocID:     locid,
		State:     state,
		SubID:     sub,
		MediaType: mediaTypeFromToken(strings.TrimPrefix(typeSeg, "org-")),
		Hash:      hash,
		Ext:       ext,
	}, nil
}
