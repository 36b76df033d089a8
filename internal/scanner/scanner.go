// Package scanner implements the Scanner stage: expanding input paths into
// a flat list of classified ScannedFiles (spec.md §4.1).
package scanner

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/bizzlechizzle/nightfoxfilms-sub014/internal/classify"
	"github.com/bizzlechizzle/nightfoxfilms-sub014/internal/model"
)

// ProgressFunc is invoked as paths are walked, with the fraction [0,1] of
// input paths processed so far.
type ProgressFunc func(fraction float64)

// Options configures one Scan call.
type Options struct {
	// ArchiveBase is skipped entirely to avoid the Scanner re-ingesting
	// its own archive (§4.1).
	ArchiveBase string
	OnProgress  ProgressFunc
	Logger      *zap.SugaredLogger
}

// ErrAllInputsUnreadable is returned when none of the input paths could be
// read at all (§4.1: "fails only if all inputs are unreadable").
var ErrAllInputsUnreadable = fmt.Errorf("scanner: all input paths unreadable")

// FileError records a per-file problem encountered while walking; these are
// non-fatal and reported for transparency rather than aborting the scan.
type FileError struct {
	Path string
	Err  error
}

// Scan recursively expands paths, classifies each regular file by
// extension, drops unknown media types, and assigns a fresh id to every
// surviving file.
func Scan(paths []string, opts Options) (model.ScanResult, []FileError, error) {
	start := time.Now()
	if opts.Logger != nil {
		opts.Logger.Infow("scanner: stage starting", "paths", len(paths))
	}

	var (
		scanned     []model.ScannedFile
		fileErrors  []FileError
		totalBytes  int64
		unreadable  int
	)

	archiveBase := cleanBase(opts.ArchiveBase)

	for i, p := range paths {
		walked, errs, readErr := walkPath(p, archiveBase)
		if readErr != nil {
			unreadable++
			fileErrors = append(fileErrors, FileError{Path: p, Err: readErr})
			if opts.Logger != nil {
				opts.Logger.Warnw("scanner: input path unreadable", "path", p, "error", readErr)
			}
		}
		scanned = append(scanned, walked...)
		fileErrors = append(fileErrors, errs...)
		if opts.Logger != nil {
			for _, fe := range errs {
				opts.Logger.Warnw("scanner: file walk error", "path", fe.Path, "error", fe.Err)
			}
		}

		if opts.OnProgress != nil {
			opts.OnProgress(float64(i+1) / float64(len(paths)))
		}
	}

	if len(paths) > 0 && unreadable == len(paths) {
		return model.ScanResult{}, fileErrors, ErrAllInputsUnreadable
	}

	for _, f := range scanned {
		totalBytes += f.Size
	}

	result := model.ScanResult{
		Files:               scanned,
		TotalFiles:          len(scanned),
		TotalBytes:          totalBytes,
		EstimatedDurationMs: time.Since(start).Milliseconds(),
	}
	if opts.Logger != nil {
		opts.Logger.Infow("scanner: stage complete", "files", result.TotalFiles, "bytes", result.TotalBytes)
	}
	return result, fileErrors, nil
}

// walkPath expands a single input path (file or directory) into its
// surviving ScannedFiles. The returned error is non-nil only if p itself
// could not be stat'd; errors met while walking are returned as FileErrors.
func walkPath(p, archiveBase string) ([]model.ScannedFile, []FileError, error) {
	info, err := os.Stat(p)
	if err != nil {
		return nil, nil, fmt.Errorf("stat %s: %w", p, err)
	}

	var (
		files  []model.ScannedFile
		errs   []FileError
	)

	walkErr := filepath.Walk(p, func(path string, fi os.FileInfo, err error) error {
		if err != nil {
			errs = append(errs, FileError{Path: path, Err: err})
			return nil
		}
		if fi.IsDir() {
			if underArchive(path, archiveBase) {
				return filepath.SkipDir
			}
			return nil
		}
		if underArchive(path, archiveBase) {
			return nil
		}

		ext := strings.ToLower(filepath.Ext(path))
		mt := classify.MediaType(ext)
		if mt == model.MediaUnknown {
			return nil
		}

		files = append(files, model.ScannedFile{
			ID:           uuid.NewString(),
			Filename:     filepath.Base(path),
			OriginalPath: path,
			Extension:    ext,
			Size:         fi.Size(),
			MediaType:    mt,
		})
		return nil
	})
	if walkErr != nil {
		errs = append(errs, FileError{Path: p, Err: walkErr})
	}

	if info.IsDir() {
		return files, errs, nil
	}
	return files, errs, nil
}

func cleanBase(base string) string {
	if base == "" {
		return ""
	}
	return filepath.Clean(base)
}

func underArchive(path, archiveBase string) bool {
	if archiveBase == "" {
		return false
	}
	rel, err := filepath.Rel(archiveBase, filepath.Clean(path))
	if err != nil {
		return false
	}
	return rel == "." || (!strings.HasPrefix(rel, "..") && rel != "")
}
