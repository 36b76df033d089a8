package model

import "time"

// ScanResult is the output of the Scanner stage (§4.1).
type ScanResult struct {
	Files                 []ScannedFile
	TotalFiles            int
	TotalBytes            int64
	EstimatedDurationMs   int64
}

// HashResult is the output of the Hasher stage (§4.2).
type HashResult struct {
	Files          []HashedFile
	TotalHashed    int
	TotalDuplicates int
	TotalErrors    int
}

// CopyResult is the output of the Copier stage (§4.3).
type CopyResult struct {
	Files          []CopiedFile
	TotalCopied    int
	TotalBytes     int64
	TotalErrors    int
	Strategy       string // always "copy"
	CopyTimeMs     int64
	ThroughputMBps float64
}

// ValidationResult is the output of the Validator stage (§4.4).
type ValidationResult struct {
	Files            []ValidatedFile
	TotalValid       int
	TotalInvalid     int
	TotalRolledBack  int
	TotalRetried     int
	ValidationTimeMs int64
}

// FinalizationResult is the output of the Finalizer stage (§4.5).
type FinalizationResult struct {
	Files           []FinalizedFile
	TotalFinalized  int
	TotalErrors     int
	JobsQueued      int
	ImportRecordID  string
	FinalizeTimeMs  int64
}

// ImportResult is returned by Orchestrator.Import / Resume.
type ImportResult struct {
	SessionID          string
	Status             SessionStatus
	Error              string
	ScanResult         *ScanResult
	HashResult         *HashResult
	CopyResult         *CopyResult
	ValidationResult   *ValidationResult
	FinalizationResult *FinalizationResult
}

// ProgressEvent is emitted to the Orchestrator's progress callback (§4.6,
// §6). Percent is weighted: scan 5%, hash 35%, copy 40%, validate 15%,
// finalize 5%.
type ProgressEvent struct {
	SessionID           string
	Status              SessionStatus
	Step                int
	TotalSteps          int
	Percent             float64
	CurrentFile         string
	FilesProcessed      int
	FilesTotal          int
	BytesProcessed      int64
	BytesTotal          int64
	DuplicatesFound     int
	ErrorsFound         int
	EstimatedRemainingMs int64
	EmittedAt           time.Time
}

// StageWeights gives the percent-of-overall-progress contributed by a fully
// completed stage, per spec.md §4.6.
var StageWeights = map[int]float64{
	1: 5,  // scan
	2: 35, // hash
	3: 40, // copy
	4: 15, // validate
	5: 5,  // finalize
}
