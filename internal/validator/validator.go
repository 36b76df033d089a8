// Package validator implements the Validator stage: re-hashing each copied
// archive file and rolling back on mismatch (spec.md §4.4).
package validator

import (
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"lukechampine.com/blake3"
	"go.uber.org/zap"

	"github.com/bizzlechizzle/nightfoxfilms-sub014/internal/hardware"
	"github.com/bizzlechizzle/nightfoxfilms-sub014/internal/model"
	"github.com/bizzlechizzle/nightfoxfilms-sub014/internal/netretry"
	"github.com/bizzlechizzle/nightfoxfilms-sub014/internal/storageclass"
)

const (
	hashLen       = 16
	perFileTimeout = 120 * time.Second
)

// Options configures one Validate call.
type Options struct {
	Profile hardware.Profile
	// DisableAutoRollback turns off unlinking a mismatched archive file.
	// Auto-rollback is the default per spec.md §4.4.
	DisableAutoRollback bool
	Logger              *zap.SugaredLogger
}

// Validate re-hashes every successfully copied file and compares against
// its recorded hash, unlinking on mismatch unless AutoRollback is
// explicitly disabled.
func Validate(ctx context.Context, files []model.CopiedFile, opts Options) (model.ValidationResult, error) {
	start := time.Now()
	rollback := !opts.DisableAutoRollback
	if opts.Logger != nil {
		opts.Logger.Infow("validator: stage starting", "files", len(files))
	}

	archiveNetwork := false
	for _, f := range files {
		if f.ArchivePath != "" {
			archiveNetwork = storageclass.IsNetworkPath(f.ArchivePath)
			break
		}
	}

	workers := opts.Profile.HashWorkers
	if archiveNetwork {
		workers = opts.Profile.CopyWorkersNetwork
	}
	if workers < 1 {
		workers = 1
	}

	type job struct {
		index int
		file  model.CopiedFile
	}
	type outcome struct {
		index int
		file  model.ValidatedFile
	}

	jobs := make(chan job, workers*2)
	results := make(chan outcome, len(files))

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				vf := validateOne(ctx, j.file, rollback, opts.Logger)
				select {
				case results <- outcome{index: j.index, file: vf}:
				case <-ctx.Done():
					return
				}
			}
		}()
	}

	go func() {
		defer close(jobs)
		for i, f := range files {
			if f.CopyError != "" || f.ArchivePath == "" {
				results <- outcome{index: i, file: model.ValidatedFile{CopiedFile: f}}
				continue
			}
			select {
			case jobs <- job{index: i, file: f}:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	ordered := make([]model.ValidatedFile, len(files))
	var totalValid, totalInvalid, totalRolledBack, totalRetried int
	for r := range results {
		ordered[r.index] = r.file
		if r.file.CopyError != "" || r.file.CopiedFile.ArchivePath == "" {
			continue
		}
		if r.file.RetryCount > 0 {
			totalRetried++
		}
		if r.file.IsValid {
			totalValid++
		} else {
			totalInvalid++
			if rollback {
				totalRolledBack++
			}
		}
	}

	if opts.Logger != nil {
		opts.Logger.Infow("validator: stage complete", "valid", totalValid, "invalid", totalInvalid, "rolled_back", totalRolledBack)
	}

	return model.ValidationResult{
		Files:            ordered,
		TotalValid:       totalValid,
		TotalInvalid:     totalInvalid,
		TotalRolledBack:  totalRolledBack,
		TotalRetried:     totalRetried,
		ValidationTimeMs: time.Since(start).Milliseconds(),
	}, ctx.Err()
}

func validateOne(ctx context.Context, f model.CopiedFile, rollback bool, logger *zap.SugaredLogger) model.ValidatedFile {
	vf := model.ValidatedFile{CopiedFile: f}

	timeoutCtx, cancel := context.WithTimeout(ctx, perFileTimeout)
	defer cancel()

	attempts := 0
	rehashErr := netretry.Do(func() error {
		attempts++
		h, err := rehash(timeoutCtx, f.ArchivePath)
		if err != nil {
			return err
		}
		if h != f.Hash {
			return fmt.Errorf("validator: hash mismatch for %s: recorded %s, recomputed %s", f.ArchivePath, f.Hash, h)
		}
		vf.IsValid = true
		return nil
	}, func() {})
	vf.RetryCount = attempts - 1

	if rehashErr != nil {
		vf.IsValid = false
		vf.ValidationError = rehashErr.Error()
		if logger != nil {
			logger.Warnw("validator: validation failed", "path", f.ArchivePath, "error", rehashErr)
		}
		if rollback {
			os.Remove(f.ArchivePath)
		}
	}
	return vf
}

func rehash(ctx context.Context, path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("validator: open archive file: %w", err)
	}
	defer file.Close()

	h := blake3.New(32, nil)
	buf := make([]byte, 1024*1024)
	for {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		default:
		}

		n, readErr := file.Read(buf)
		if n > 0 {
			h.Write(buf[:n])
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			return "", fmt.Errorf("validator: read archive file: %w", readErr)
		}
	}
	return hex.EncodeToString(h.Sum(nil))[:hashLen], nil
}
