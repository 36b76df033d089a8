// Package copier implements the Copier stage: atomically placing each
// hashed file at its content-addressed archive path, computing the hash
// inline when streaming from a network source (spec.md §4.3).
package copier

import (
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"lukechampine.com/blake3"
	"go.uber.org/zap"

	"github.com/bizzlechizzle/nightfoxfilms-sub014/internal/archive"
	"github.com/bizzlechizzle/nightfoxfilms-sub014/internal/hardware"
	"github.com/bizzlechizzle/nightfoxfilms-sub014/internal/model"
	"github.com/bizzlechizzle/nightfoxfilms-sub014/internal/netretry"
	"github.com/bizzlechizzle/nightfoxfilms-sub014/internal/storageclass"
)

const (
	localBufferSize   = 64 * 1024
	networkBufferSize = 1 * 1024 * 1024
	hashLen           = 16
	networkDelay      = 50 * time.Millisecond
)

// Options configures one Copy call.
type Options struct {
	ArchiveBase string
	Location    model.LocationInfo
	Profile     hardware.Profile
	Logger      *zap.SugaredLogger
}

// Copy places each HashedFile in the archive. Files with a HashError or
// IsDuplicate are skipped and passed through unchanged (no copy attempted).
func Copy(ctx context.Context, files []model.HashedFile, opts Options) (model.CopyResult, error) {
	start := time.Now()
	if opts.Logger != nil {
		opts.Logger.Infow("copier: stage starting", "files", len(files))
	}

	destIsNetwork := storageclass.IsNetworkPath(opts.ArchiveBase)
	workers := opts.Profile.CopyWorkers
	if destIsNetwork {
		workers = opts.Profile.CopyWorkersNetwork
	}
	if workers < 1 {
		workers = 1
	}

	if err := preCreateDirs(files, opts, destIsNetwork); err != nil {
		return model.CopyResult{}, err
	}

	type job struct {
		index int
		file  model.HashedFile
	}
	type outcome struct {
		index int
		file  model.CopiedFile
	}

	jobs := make(chan job, workers*2)
	results := make(chan outcome, len(files))

	var wg sync.WaitGroup
	var delayMu sync.Mutex
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				sourceIsNetwork := storageclass.IsNetworkPath(j.file.OriginalPath)
				if sourceIsNetwork || destIsNetwork {
					delayMu.Lock()
					time.Sleep(networkDelay)
					delayMu.Unlock()
				}

				cf := copyOne(ctx, j.file, opts, destIsNetwork || sourceIsNetwork)
				if cf.CopyError != "" && opts.Logger != nil {
					opts.Logger.Warnw("copier: file copy failed", "path", j.file.OriginalPath, "error", cf.CopyError)
				}
				select {
				case results <- outcome{index: j.index, file: cf}:
				case <-ctx.Done():
					return
				}
			}
		}()
	}

	go func() {
		defer close(jobs)
		for i, f := range files {
			if f.HashError != "" || f.IsDuplicate {
				results <- outcome{index: i, file: model.CopiedFile{HashedFile: f}}
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

	ordered := make([]model.CopiedFile, len(files))
	var totalCopied, totalErrors int
	var totalBytes int64
	for r := range results {
		ordered[r.index] = r.file
		if r.file.HashError != "" || r.file.IsDuplicate {
			continue
		}
		if r.file.CopyError != "" {
			totalErrors++
			continue
		}
		totalCopied++
		totalBytes += r.file.BytesCopied
	}

	elapsed := time.Since(start)
	var throughput float64
	if elapsed > 0 {
		throughput = (float64(totalBytes) / (1024 * 1024)) / elapsed.Seconds()
	}

	if opts.Logger != nil {
		opts.Logger.Infow("copier: stage complete", "copied", totalCopied, "errors", totalErrors, "bytes", totalBytes)
	}

	return model.CopyResult{
		Files:          ordered,
		TotalCopied:    totalCopied,
		TotalBytes:     totalBytes,
		TotalErrors:    totalErrors,
		Strategy:       "copy",
		CopyTimeMs:     elapsed.Milliseconds(),
		ThroughputMBps: throughput,
	}, ctx.Err()
}

func copyOne(ctx context.Context, f model.HashedFile, opts Options, networkPath bool) model.CopiedFile {
	cf := model.CopiedFile{HashedFile: f, CopyStrategy: "copy"}

	bufSize := localBufferSize
	if networkPath {
		bufSize = networkBufferSize
	}

	if f.Hash != "" {
		dest, err := archive.Path(opts.ArchiveBase, opts.Location, f.MediaType, f.Hash, f.Extension)
		if err != nil {
			cf.CopyError = err.Error()
			return cf
		}
		n, err := copyPreHashed(ctx, f.OriginalPath, dest, bufSize)
		if err != nil {
			cf.CopyError = err.Error()
			return cf
		}
		cf.ArchivePath = dest
		cf.BytesCopied = n
		return cf
	}

	hash, dest, n, err := copyInlineHash(ctx, f.OriginalPath, opts, f.MediaType, f.Extension, bufSize)
	if err != nil {
		cf.CopyError = err.Error()
		return cf
	}
	cf.Hash = hash
	cf.ArchivePath = dest
	cf.BytesCopied = n
	return cf
}

// copyPreHashed writes src to a temp file beside dest, fsyncs, then renames
// into place atomically (§4.3 pre-hashed mode).
func copyPreHashed(ctx context.Context, src, dest string, bufSize int) (int64, error) {
	var written int64
	err := netretry.Do(func() error {
		n, err := streamToTemp(ctx, src, dest, bufSize, nil)
		written = n
		return err
	}, func() { os.Remove(dest + ".tmp") })
	return written, err
}

// copyInlineHash streams src through a BLAKE3 hasher while writing to a
// temp file in archiveBase, then computes the final destination from the
// resulting hash before renaming into place (§4.3 inline-hash mode).
func copyInlineHash(ctx context.Context, src string, opts Options, mt model.MediaType, ext string, bufSize int) (hash, dest string, written int64, err error) {
	tmpDir := opts.ArchiveBase
	if err := os.MkdirAll(tmpDir, 0o755); err != nil {
		return "", "", 0, fmt.Errorf("copier: mkdir staging dir: %w", err)
	}
	tmp := filepath.Join(tmpDir, fmt.Sprintf(".inflight-%s.tmp", filepath.Base(src)))

	h := blake3.New(32, nil)
	retryErr := netretry.Do(func() error {
		h.Reset()
		n, streamErr := streamToTemp(ctx, src, tmp, bufSize, h)
		written = n
		return streamErr
	}, func() { os.Remove(tmp) })
	if retryErr != nil {
		return "", "", 0, retryErr
	}

	hash = hex.EncodeToString(h.Sum(nil))[:hashLen]
	dest, err = archive.Path(opts.ArchiveBase, opts.Location, mt, hash, ext)
	if err != nil {
		os.Remove(tmp)
		return "", "", 0, err
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		os.Remove(tmp)
		return "", "", 0, fmt.Errorf("copier: mkdir destination dir: %w", err)
	}
	if err := os.Rename(tmp, dest); err != nil {
		os.Remove(tmp)
		return "", "", 0, fmt.Errorf("copier: rename into place: %w", err)
	}
	return hash, dest, written, nil
}

// streamToTemp copies src to dest+".tmp", optionally tee'ing the bytes
// through hasher, fsyncs, and renames dest+".tmp" to dest (pre-hashed
// mode only; inline-hash mode renames separately once it knows the real
// destination). When hasher is non-nil the write target isn't renamed by
// this function; the caller does that after computing the final path.
func streamToTemp(ctx context.Context, src, tmpTarget string, bufSize int, hasher io.Writer) (int64, error) {
	in, err := os.Open(src)
	if err != nil {
		return 0, fmt.Errorf("copier: open source: %w", err)
	}
	defer in.Close()

	tmpPath := tmpTarget
	if hasher == nil {
		if err := os.MkdirAll(filepath.Dir(tmpTarget), 0o755); err != nil {
			return 0, fmt.Errorf("copier: mkdir dest dir: %w", err)
		}
		tmpPath = tmpTarget + ".tmp"
	}

	out, err := os.Create(tmpPath)
	if err != nil {
		return 0, fmt.Errorf("copier: create temp file: %w", err)
	}

	var writer io.Writer = out
	if hasher != nil {
		writer = io.MultiWriter(out, hasher)
	}

	buf := make([]byte, bufSize)
	var total int64
	for {
		select {
		case <-ctx.Done():
			out.Close()
			return total, ctx.Err()
		default:
		}

		n, readErr := in.Read(buf)
		if n > 0 {
			if _, writeErr := writer.Write(buf[:n]); writeErr != nil {
				out.Close()
				return total, fmt.Errorf("copier: write temp file: %w", writeErr)
			}
			total += int64(n)
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			out.Close()
			return total, fmt.Errorf("copier: read source: %w", readErr)
		}
	}

	if err := out.Sync(); err != nil {
		out.Close()
		return total, fmt.Errorf("copier: fsync temp file: %w", err)
	}
	if err := out.Close(); err != nil {
		return total, fmt.Errorf("copier: close temp file: %w", err)
	}

	if hasher == nil {
		if err := os.Rename(tmpPath, tmpTarget); err != nil {
			return total, fmt.Errorf("copier: rename into place: %w", err)
		}
	}
	return total, nil
}

// preCreateDirs computes every distinct destination directory up front.
// Network destinations create them sequentially (SMB has limited mkdir
// concurrency); local destinations create them in parallel (§4.3).
func preCreateDirs(files []model.HashedFile, opts Options, network bool) error {
	dirs := make(map[string]bool)
	for _, f := range files {
		if f.HashError != "" || f.IsDuplicate || f.Hash == "" {
			continue
		}
		dest, err := archive.Path(opts.ArchiveBase, opts.Location, f.MediaType, f.Hash, f.Extension)
		if err != nil {
			continue
		}
		dirs[filepath.Dir(dest)] = true
	}

	if network {
		for dir := range dirs {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("copier: mkdir %s: %w", dir, err)
			}
		}
		return nil
	}

	var wg sync.WaitGroup
	errs := make(chan error, len(dirs))
	for dir := range dirs {
		wg.Add(1)
		go func(d string) {
			defer wg.Done()
			if err := os.MkdirAll(d, 0o755); err != nil {
				errs <- fmt.Errorf("copier: mkdir %s: %w", d, err)
			}
		}(dir)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		return err
	}
	return nil
}
