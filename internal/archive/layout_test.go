package archive

import (
	"path/filepath"
	"testing"

	"github.com/bizzlechizzle/nightfoxfilms-sub014/internal/model"
)

func TestPath_S1Scenario(t *testing.T) {
	loc := model.LocationInfo{LocID: "aaaaaaaaaaaaaaaa", AddressState: "NY"}
	got, err := Path("/archive", loc, model.MediaImage, "e3b0c44298fc1c14", ".jpg")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := filepath.Join("/archive", "locations", "NY", "aaaaaaaaaaaaaaaa", "data", "org-img", "e3b0c44298fc1c14.jpg")
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestPath_SubLocation(t *testing.T) {
	loc := model.LocationInfo{LocID: "aaaaaaaaaaaaaaaa", AddressState: "NY", SubID: "bbbbbbbbbbbbbbbb"}
	got, err := Path("/archive", loc, model.MediaVideo, "1111111111111111", ".mp4")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := filepath.Join("/archive", "locations", "NY", "aaaaaaaaaaaaaaaa", "data", "sloc-bbbbbbbbbbbbbbbb", "org-vid", "1111111111111111.mp4")
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestPath_MissingStateDefaultsToXX(t *testing.T) {
	loc := model.LocationInfo{LocID: "aaaaaaaaaaaaaaaa"}
	got, err := Path("/archive", loc, model.MediaDocument, "2222222222222222", ".pdf")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if filepath.Base(filepath.Dir(filepath.Dir(filepath.Dir(got)))) != "aaaaaaaaaaaaaaaa" {
		t.Fatalf("unexpected path shape: %s", got)
	}
	want := filepath.Join("/archive", "locations", "XX", "aaaaaaaaaaaaaaaa", "data", "org-doc", "2222222222222222.pdf")
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestPath_RejectsBadHash(t *testing.T) {
	loc := model.LocationInfo{LocID: "aaaaaaaaaaaaaaaa", AddressState: "NY"}
	if _, err := Path("/archive", loc, model.MediaImage, "not-hex", ".jpg"); err == nil {
		t.Fatal("expected error for malformed hash")
	}
}

func TestParse_RoundTrip(t *testing.T) {
	loc := model.LocationInfo{LocID: "aaaaaaaaaaaaaaaa", AddressState: "NY", SubID: "bbbbbbbbbbbbbbbb"}
	p, err := Path("/archive", loc, model.MediaVideo, "1111111111111111", ".mp4")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	parsed, err := Parse("/archive", p)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if parsed.LocID != loc.LocID || parsed.SubID != loc.SubID || parsed.Hash != "1111111111111111" ||
		parsed.MediaType != model.MediaVideo || parsed.Ext != ".mp4" || parsed.State != "NY" {
		t.Errorf("round trip mismatch: %+v", parsed)
	}
}

func TestParse_RejectsForeignPath(t *testing.T) {
	if _, err := Parse("/archive", "/archive/random/not-layout.jpg"); err == nil {
		t.Fatal("expected error for non-layout path")
	}
}
