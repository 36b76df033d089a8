// Package orchestrator wires the five pipeline stages into one sequential
// import, persisting a resumable checkpoint after each stage and
// guaranteeing at most one active session per location (spec.md §4.6).
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/bizzlechizzle/nightfoxfilms-sub014/internal/copier"
	"github.com/bizzlechizzle/nightfoxfilms-sub014/internal/db"
	"github.com/bizzlechizzle/nightfoxfilms-sub014/internal/finalizer"
	"github.com/bizzlechizzle/nightfoxfilms-sub014/internal/hardware"
	"github.com/bizzlechizzle/nightfoxfilms-sub014/internal/hasher"
	"github.com/bizzlechizzle/nightfoxfilms-sub014/internal/lock"
	"github.com/bizzlechizzle/nightfoxfilms-sub014/internal/model"
	"github.com/bizzlechizzle/nightfoxfilms-sub014/internal/queue"
	"github.com/bizzlechizzle/nightfoxfilms-sub014/internal/scanner"
	"github.com/bizzlechizzle/nightfoxfilms-sub014/internal/session"
	"github.com/bizzlechizzle/nightfoxfilms-sub014/internal/storageclass"
	"github.com/bizzlechizzle/nightfoxfilms-sub014/internal/validator"
)

// ErrLocationLocked is surfaced when a session is already importing the
// requested location (§4.6 step 1).
var ErrLocationLocked = lock.ErrAlreadyLocked

// ErrSessionNotResumable is returned by Resume when the persisted session
// cannot be continued (missing checkpoint, or already terminal).
var ErrSessionNotResumable = fmt.Errorf("orchestrator: session is not resumable")

// Orchestrator coordinates Scanner -> Hasher -> Copier -> Validator ->
// Finalizer for a single archive database and archive root.
type Orchestrator struct {
	d           *db.DB
	archiveBase string
	profile     hardware.Profile
	locks       *lock.LocationLock
	dedup       *session.DedupCache

	abortMu sync.Mutex
	abortCh chan struct{}
}

// New creates an Orchestrator bound to one archive database and filesystem
// root.
func New(d *db.DB, archiveBase string, profile hardware.Profile) *Orchestrator {
	return &Orchestrator{
		d:           d,
		archiveBase: archiveBase,
		profile:     profile,
		locks:       lock.New(),
		dedup:       session.NewDedupCache(),
		abortCh:     make(chan struct{}),
	}
}

// Options configures one Import or Resume call.
type Options struct {
	Importer   string
	Notes      string
	OnProgress func(model.ProgressEvent)
	// Logger receives Info at stage boundaries and Warn for non-fatal
	// per-file issues (SPEC_FULL.md §A.1). A nil Logger disables logging.
	Logger *zap.SugaredLogger
}

// Cancel raises the process-wide abort signal; in-flight stages finish
// their current file and the session is marked cancelled (§5).
func (o *Orchestrator) Cancel() {
	o.abortMu.Lock()
	defer o.abortMu.Unlock()
	select {
	case <-o.abortCh:
		// already cancelled
	default:
		close(o.abortCh)
	}
}

func (o *Orchestrator) mergedContext(ctx context.Context) (context.Context, context.CancelFunc) {
	merged, cancel := context.WithCancel(ctx)
	go func() {
		select {
		case <-o.abortCh:
			cancel()
		case <-merged.Done():
		}
	}()
	return merged, cancel
}

// GetStatus loads a session's current persisted state.
func (o *Orchestrator) GetStatus(ctx context.Context, sessionID string) (model.ImportSession, error) {
	return session.Load(ctx, o.d, sessionID)
}

// GetResumableSessions lists sessions eligible for Resume.
func (o *Orchestrator) GetResumableSessions(ctx context.Context) ([]model.ImportSession, error) {
	return session.Resumable(ctx, o.d)
}

// Import runs a fresh pipeline over paths for loc, from Scanner through
// Finalizer (§4.6).
func (o *Orchestrator) Import(ctx context.Context, paths []string, loc model.LocationInfo, opts Options) model.ImportResult {
	sessionID := uuid.NewString()

	if err := o.locks.Acquire(loc.LocID, sessionID); err != nil {
		return model.ImportResult{SessionID: sessionID, Status: model.SessionFailed, Error: err.Error()}
	}
	defer o.locks.Release(loc.LocID, sessionID)

	if _, err := session.Create(ctx, o.d, sessionID, loc, paths); err != nil {
		return model.ImportResult{SessionID: sessionID, Status: model.SessionFailed, Error: err.Error()}
	}

	return o.run(ctx, sessionID, loc, paths, 0, nil, opts)
}

// Resume continues a previously checkpointed session from its persisted
// lastStep (§4.6 Resume).
func (o *Orchestrator) Resume(ctx context.Context, sessionID string, opts Options) model.ImportResult {
	sess, err := session.Load(ctx, o.d, sessionID)
	if err != nil {
		return model.ImportResult{SessionID: sessionID, Status: model.SessionFailed, Error: err.Error()}
	}
	if sess.Status.Terminal() || !sess.CanResume {
		return model.ImportResult{SessionID: sessionID, Status: sess.Status, Error: ErrSessionNotResumable.Error()}
	}

	loc := model.LocationInfo{LocID: sess.LocID, AddressState: sess.AddressState, SubID: sess.SubID}
	if err := o.locks.Acquire(loc.LocID, sessionID); err != nil {
		return model.ImportResult{SessionID: sessionID, Status: model.SessionFailed, Error: err.Error()}
	}
	defer o.locks.Release(loc.LocID, sessionID)

	return o.run(ctx, sessionID, loc, sess.SourcePaths, sess.LastStep, &sess, opts)
}

// run executes stages (lastStep+1)..5 in order, persisting a checkpoint
// after stages 1-4. If a required prior-stage result is missing, it
// restarts from scratch (§4.6). If one is present but can't be decoded,
// that stage and every later one run again; earlier stages whose results
// decoded are not re-run.
func (o *Orchestrator) run(ctx context.Context, sessionID string, loc model.LocationInfo, paths []string, lastStep int, prior *model.ImportSession, opts Options) model.ImportResult {
	ctx, cancel := o.mergedContext(ctx)
	defer cancel()

	result := model.ImportResult{SessionID: sessionID, Status: model.SessionScanning}

	emit := func(step int, status model.SessionStatus, current string, filesDone, filesTotal int, bytesDone, bytesTotal int64) {
		if opts.OnProgress == nil {
			return
		}
		pct := 0.0
		for s := 1; s < step; s++ {
			pct += model.StageWeights[s]
		}
		opts.OnProgress(model.ProgressEvent{
			SessionID:      sessionID,
			Status:         status,
			Step:           step,
			TotalSteps:     5,
			Percent:        pct,
			CurrentFile:    current,
			FilesProcessed: filesDone,
			FilesTotal:     filesTotal,
			BytesProcessed: bytesDone,
			BytesTotal:     bytesTotal,
			EmittedAt:      time.Now().UTC(),
		})
	}

	networkSource := false
	for _, p := range paths {
		if storageclass.IsNetworkPath(p) {
			networkSource = true
			break
		}
	}

	if lastStep >= 1 && prior != nil {
		blobs := []string{prior.ScanResultJSON, prior.HashResultsJSON, prior.CopyResultsJSON, prior.ValidationResultJSON}
		for i := 0; i < lastStep && i < len(blobs); i++ {
			if blobs[i] == "" {
				lastStep = 0 // missing checkpoint: restart from scratch
				break
			}
		}
	}

	// Step 1: Scan.
	var scanResult model.ScanResult
	if lastStep >= 1 && prior != nil {
		if err := session.DecodeStage(prior.ScanResultJSON, &scanResult); err != nil {
			lastStep = 0 // stale/missing checkpoint: restart from scratch
		}
	}
	if lastStep < 1 {
		emit(1, model.SessionScanning, "", 0, 0, 0, 0)
		if opts.Logger != nil {
			opts.Logger.Infow("orchestrator: entering scan stage", "session_id", sessionID)
		}
		sr, _, err := scanner.Scan(paths, scanner.Options{ArchiveBase: o.archiveBase, Logger: opts.Logger})
		if err != nil {
			return o.fail(ctx, sessionID, err)
		}
		scanResult = sr
		if err := session.Checkpoint(ctx, o.d, sessionID, 1, model.SessionHashing, "scan_result", scanResult, 0, 0); err != nil {
			return o.fail(ctx, sessionID, err)
		}
		lastStep = 1
	}
	result.ScanResult = &scanResult
	if err := ctx.Err(); err != nil {
		return o.cancelled(ctx, sessionID, result)
	}

	// Step 2: Hash.
	var hashResult model.HashResult
	if lastStep >= 2 && prior != nil {
		if err := session.DecodeStage(prior.HashResultsJSON, &hashResult); err != nil {
			lastStep = 1
		}
	}
	if lastStep < 2 {
		emit(2, model.SessionHashing, "", 0, scanResult.TotalFiles, 0, scanResult.TotalBytes)
		if opts.Logger != nil {
			opts.Logger.Infow("orchestrator: entering hash stage", "session_id", sessionID)
		}
		hr, err := hasher.Hash(ctx, o.d, scanResult.Files, hasher.Options{
			Workers:     o.profile.HashWorkers,
			SkipHashing: networkSource,
			Cache:       o.dedup,
			Logger:      opts.Logger,
		})
		if err != nil {
			return o.fail(ctx, sessionID, err)
		}
		hashResult = hr
		if err := session.Checkpoint(ctx, o.d, sessionID, 2, model.SessionCopying, "hash_results", hashResult, scanResult.TotalFiles, scanResult.TotalBytes); err != nil {
			return o.fail(ctx, sessionID, err)
		}
		lastStep = 2
	}
	result.HashResult = &hashResult
	if err := ctx.Err(); err != nil {
		return o.cancelled(ctx, sessionID, result)
	}

	// Step 3: Copy.
	var copyResult model.CopyResult
	if lastStep >= 3 && prior != nil {
		if err := session.DecodeStage(prior.CopyResultsJSON, &copyResult); err != nil {
			lastStep = 2
		}
	}
	if lastStep < 3 {
		emit(3, model.SessionCopying, "", 0, len(hashResult.Files), 0, scanResult.TotalBytes)
		if opts.Logger != nil {
			opts.Logger.Infow("orchestrator: entering copy stage", "session_id", sessionID)
		}
		cr, err := copier.Copy(ctx, hashResult.Files, copier.Options{ArchiveBase: o.archiveBase, Location: loc, Profile: o.profile, Logger: opts.Logger})
		if err != nil {
			return o.fail(ctx, sessionID, err)
		}
		if networkSource {
			if err := o.postCopyDuplicateSweep(ctx, &cr); err != nil {
				return o.fail(ctx, sessionID, err)
			}
		}
		copyResult = cr
		if err := session.Checkpoint(ctx, o.d, sessionID, 3, model.SessionValidating, "copy_results", copyResult, copyResult.TotalCopied, copyResult.TotalBytes); err != nil {
			return o.fail(ctx, sessionID, err)
		}
		lastStep = 3
	}
	result.CopyResult = &copyResult
	if err := ctx.Err(); err != nil {
		return o.cancelled(ctx, sessionID, result)
	}

	// Step 4: Validate.
	var validationResult model.ValidationResult
	if lastStep >= 4 && prior != nil {
		if err := session.DecodeStage(prior.ValidationResultJSON, &validationResult); err != nil {
			lastStep = 3
		}
	}
	if lastStep < 4 {
		emit(4, model.SessionValidating, "", 0, len(copyResult.Files), 0, copyResult.TotalBytes)
		if opts.Logger != nil {
			opts.Logger.Infow("orchestrator: entering validate stage", "session_id", sessionID)
		}
		vr, err := validator.Validate(ctx, copyResult.Files, validator.Options{Profile: o.profile, Logger: opts.Logger})
		if err != nil {
			return o.fail(ctx, sessionID, err)
		}
		validationResult = vr
		if err := session.Checkpoint(ctx, o.d, sessionID, 4, model.SessionFinalizing, "validation_results", validationResult, validationResult.TotalValid, 0); err != nil {
			return o.fail(ctx, sessionID, err)
		}
		lastStep = 4
	}
	result.ValidationResult = &validationResult
	if err := ctx.Err(); err != nil {
		return o.cancelled(ctx, sessionID, result)
	}

	// Step 5: Finalize. Never cancelled mid-transaction (§5); checked before
	// starting instead.
	emit(5, model.SessionFinalizing, "", 0, len(validationResult.Files), 0, 0)
	if opts.Logger != nil {
		opts.Logger.Infow("orchestrator: entering finalize stage", "session_id", sessionID)
	}
	q := queue.New(o.d)
	fr, err := finalizer.Finalize(ctx, o.d, q, validationResult.Files, finalizer.Options{Location: loc, Importer: opts.Importer, Notes: opts.Notes, Logger: opts.Logger})
	if err != nil {
		return o.fail(ctx, sessionID, err)
	}
	result.FinalizationResult = &fr

	if err := session.Finish(ctx, o.d, sessionID, model.SessionCompleted, nil, false); err != nil {
		return o.fail(ctx, sessionID, err)
	}
	result.Status = model.SessionCompleted
	emit(6, model.SessionCompleted, "", fr.TotalFinalized, fr.TotalFinalized, 0, 0)
	if opts.Logger != nil {
		opts.Logger.Infow("orchestrator: session completed", "session_id", sessionID, "finalized", fr.TotalFinalized)
	}
	return result
}

// postCopyDuplicateSweep is run only for network-source imports where
// hashing was deferred to the Copier. It looks up the hashes now known and
// unlinks any file whose hash was already present in the archive before
// this batch started (§4.6 step 3).
func (o *Orchestrator) postCopyDuplicateSweep(ctx context.Context, cr *model.CopyResult) error {
	hashes := make([]string, 0, len(cr.Files))
	for _, f := range cr.Files {
		if f.CopyError == "" && f.Hash != "" {
			hashes = append(hashes, f.Hash)
		}
	}
	dupes, err := db.FindDuplicates(ctx, o.d.DB, hashes)
	if err != nil {
		return err
	}

	for i, f := range cr.Files {
		if table, found := dupes[f.Hash]; found {
			removeArchiveFile(f.ArchivePath)
			cr.Files[i].IsDuplicate = true
			cr.Files[i].DuplicateIn = table
			cr.TotalCopied--
		}
	}
	return nil
}

func removeArchiveFile(path string) {
	if path == "" {
		return
	}
	os.Remove(path)
}

func (o *Orchestrator) fail(ctx context.Context, sessionID string, err error) model.ImportResult {
	if errors.Is(err, context.Canceled) {
		return o.cancelled(ctx, sessionID, model.ImportResult{SessionID: sessionID, Error: err.Error()})
	}
	session.Finish(ctx, o.d, sessionID, model.SessionFailed, err, true)
	return model.ImportResult{SessionID: sessionID, Status: model.SessionFailed, Error: err.Error()}
}

func (o *Orchestrator) cancelled(ctx context.Context, sessionID string, partial model.ImportResult) model.ImportResult {
	session.Finish(context.Background(), o.d, sessionID, model.SessionCancelled, nil, false)
	partial.Status = model.SessionCancelled
	return partial
}
