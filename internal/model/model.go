// Package model defines the data records that flow through the import
// pipeline: each stage's record type is a strict superset of its
// predecessor, carrying a stable id assigned at scan time all the way
// through finalization.
package model

import (
	"strings"
	"time"
)

// MediaType classifies a scanned file by extension.
type MediaType string

const (
	MediaImage    MediaType = "image"
	MediaVideo    MediaType = "video"
	MediaDocument MediaType = "document"
	MediaMap      MediaType = "map"
	MediaUnknown  MediaType = "unknown"
)

// TableFor returns the media table a MediaType is stored in, matching the
// layout "type" tokens from spec.md §6 (img, vid, doc, map).
func (m MediaType) TableFor() string {
	switch m {
	case MediaImage:
		return "imgs"
	case MediaVideo:
		return "vids"
	case MediaDocument:
		return "docs"
	case MediaMap:
		return "maps"
	default:
		return "misc"
	}
}

// LayoutToken returns the archive path "<type>" token for MediaType, per
// spec.md §6 (img, vid, doc, map, misc).
func (m MediaType) LayoutToken() string {
	switch m {
	case MediaImage:
		return "img"
	case MediaVideo:
		return "vid"
	case MediaDocument:
		return "doc"
	case MediaMap:
		return "map"
	default:
		return "misc"
	}
}

// ScannedFile is the record produced by the Scanner stage (§4.1, §3).
type ScannedFile struct {
	ID           string
	Filename     string
	OriginalPath string
	Extension    string
	Size         int64
	MediaType    MediaType
}

// HashedFile is a ScannedFile with content-hash information attached by the
// Hasher stage (§4.2, §3).
type HashedFile struct {
	ScannedFile

	Hash        string // 16 lowercase hex chars, or "" if not yet computed
	HashError   string
	IsDuplicate bool
	DuplicateIn string // media table name, populated only when IsDuplicate
}

// CopiedFile is a HashedFile with archive placement information attached by
// the Copier stage (§4.3, §3).
type CopiedFile struct {
	HashedFile

	ArchivePath  string
	CopyError    string
	CopyStrategy string // always "copy" per spec.md §3
	BytesCopied  int64
}

// ValidatedFile is a CopiedFile with re-hash verification results attached
// by the Validator stage (§4.4, §3).
type ValidatedFile struct {
	CopiedFile

	IsValid         bool
	ValidationError string
	RetryCount      int
}

// FinalizedFile is a ValidatedFile with database materialization results
// attached by the Finalizer stage (§4.5, §3).
type FinalizedFile struct {
	ValidatedFile

	DBRecordID    string
	FinalizeError string
}

// LocationInfo identifies the site (and optional sub-location) a batch is
// being imported into (§3).
type LocationInfo struct {
	LocID         string // 16-hex
	AddressState  string // 2-letter, or "" meaning unknown ("XX" in the layout)
	SubID         string // 16-hex, or "" meaning no sub-location
}

// StateToken returns the 2-letter uppercase state token used in the archive
// layout, defaulting to "XX" per spec.md §6.
func (l LocationInfo) StateToken() string {
	if len(l.AddressState) != 2 {
		return "XX"
	}
	return strings.ToUpper(l.AddressState)
}

// SessionStatus is the lifecycle state of an ImportSession (§3).
type SessionStatus string

const (
	SessionScanning   SessionStatus = "scanning"
	SessionHashing    SessionStatus = "hashing"
	SessionCopying    SessionStatus = "copying"
	SessionValidating SessionStatus = "validating"
	SessionFinalizing SessionStatus = "finalizing"
	SessionCompleted  SessionStatus = "completed"
	SessionCancelled  SessionStatus = "cancelled"
	SessionFailed     SessionStatus = "failed"
)

// Terminal reports whether a status is one from which a session can never
// resume, matching the invariant in spec.md §3: "a session with status in
// {completed, cancelled} has canResume = false".
func (s SessionStatus) Terminal() bool {
	return s == SessionCompleted || s == SessionCancelled
}

// ImportSession is the persisted checkpoint record for one pipeline
// invocation (§3).
type ImportSession struct {
	SessionID    string
	LocID        string
	AddressState string
	SubID        string
	Status       SessionStatus
	LastStep     int // 0..5
	SourcePaths  []string
	StartedAt    time.Time
	CompletedAt  *time.Time
	Error        string
	CanResume    bool

	// Serialized stage results, stored verbatim per §3/§9. Each is a
	// versioned JSON blob, or empty if the stage has not completed yet.
	ScanResultJSON       string
	HashResultsJSON      string
	CopyResultsJSON      string
	ValidationResultJSON string
}

// Priority is a downstream job queue priority tier (§4.5, §6).
type Priority string

const (
	PriorityHigh       Priority = "HIGH"
	PriorityNormal     Priority = "NORMAL"
	PriorityLow        Priority = "LOW"
	PriorityBackground Priority = "BACKGROUND"
)

// JobType enumerates the downstream job queues the Finalizer enqueues into
// (§4.5).
type JobType string

const (
	JobExifTool              JobType = "EXIFTOOL"
	JobFFProbe               JobType = "FFPROBE"
	JobThumbnail             JobType = "THUMBNAIL"
	JobVideoProxy            JobType = "VIDEO_PROXY"
	JobImageTagging          JobType = "IMAGE_TAGGING"
	JobGPSEnrichment         JobType = "GPS_ENRICHMENT"
	JobLivePhoto             JobType = "LIVE_PHOTO"
	JobSRTTelemetry          JobType = "SRT_TELEMETRY"
	JobLocationStats         JobType = "LOCATION_STATS"
	JobBagIt                 JobType = "BAGIT"
	JobLocationTagAggregation JobType = "LOCATION_TAG_AGGREGATION"
)

// Job is one enqueued downstream unit of work (§6).
type Job struct {
	ID        string
	Queue     JobType
	Priority  Priority
	Payload   string // JSON
	DependsOn string // job id, or "" for none
	Status    string // "pending" at enqueue time; owned by the runner thereafter
	CreatedAt time.Time
}
