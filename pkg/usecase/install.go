package usecase

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/voidmod/pkg/domain/interfaces"
	"github.com/m-mizutani/voidmod/pkg/domain/model"
	"github.com/m-mizutani/voidmod/pkg/domain/types"
)

type installUseCase struct {
	catalog    interfaces.CatalogClient
	locator    interfaces.GameLocator
	emitter    interfaces.EventEmitter
	stagingDir string
	scratchDir string
	locks      *keyedMutex // destination path
	runs       *keyedMutex // mod id
	now        func() time.Time
}

// InstallOption configures the install use case
type InstallOption func(*installUseCase)

// WithStagingDir sets the directory downloaded archives are written to
func WithStagingDir(dir string) InstallOption {
	return func(uc *installUseCase) {
		uc.stagingDir = dir
	}
}

// WithScratchDir sets the directory archives are extracted into
func WithScratchDir(dir string) InstallOption {
	return func(uc *installUseCase) {
		uc.scratchDir = dir
	}
}

// WithEmitter sets the lifecycle event receiver
func WithEmitter(emitter interfaces.EventEmitter) InstallOption {
	return func(uc *installUseCase) {
		uc.emitter = emitter
	}
}

// DefaultWorkDir is the base of the staging and scratch directories when
// none are configured.
func DefaultWorkDir() string {
	return filepath.Join(os.TempDir(), ".void", "pd2")
}

// NewInstall creates a new instance of InstallUseCase
func NewInstall(catalog interfaces.CatalogClient, locator interfaces.GameLocator, opts ...InstallOption) interfaces.InstallUseCase {
	uc := &installUseCase{
		catalog:    catalog,
		locator:    locator,
		stagingDir: filepath.Join(DefaultWorkDir(), "staging"),
		scratchDir: filepath.Join(DefaultWorkDir(), "extract"),
		locks:      newKeyedMutex(),
		runs:       newKeyedMutex(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(uc)
	}
	return uc
}

// pipelineRun carries the state of one Install call
type pipelineRun struct {
	uc     *installUseCase
	result *model.InstallResult
}

func (r *pipelineRun) transition(ctx context.Context, next model.State) {
	ctxlog.From(ctx).Debug("Pipeline transition", "from", r.result.State, "to", next)
	r.result.State = next
}

func (r *pipelineRun) emit(ctx context.Context, eventType model.EventType, code string) {
	if r.uc.emitter == nil {
		return
	}

	event := model.Event{
		Type:      eventType,
		ModID:     r.result.ModID,
		State:     r.result.State,
		Code:      code,
		Timestamp: r.uc.now(),
	}
	if err := r.uc.emitter.Emit(ctx, event); err != nil {
		ctxlog.From(ctx).Warn("Failed to emit event", "type", eventType, "error", err)
	}
}

// finish ends the run in a non-error terminal state
func (r *pipelineRun) finish(ctx context.Context, state model.State, code string) *model.InstallResult {
	r.transition(ctx, state)
	if code != "" {
		r.emit(ctx, model.EventError, code)
	}
	r.emit(ctx, model.EventDone, "")
	return r.result
}

// fail ends the run in StateFailed. err is returned as is.
func (r *pipelineRun) fail(ctx context.Context, err error) (*model.InstallResult, error) {
	kind := failureKindOf(err)
	ctxlog.From(ctx).Error("Mod installation failed",
		"state", r.result.State,
		"kind", kind,
		"error", err,
	)

	r.result.FailedIn = r.result.State
	r.result.Failure = kind
	r.result.Err = err
	r.transition(ctx, model.StateFailed)
	r.emit(ctx, model.EventError, model.CodeOf(kind))
	return r.result, err
}

// checkpoint returns a cancellation error once ctx is done
func checkpoint(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return goerr.Wrap(err, "installation canceled", goerr.T(types.ErrTagCanceled))
	}
	return nil
}

func failureKindOf(err error) model.FailureKind {
	switch {
	case goerr.HasTag(err, types.ErrTagCanceled):
		return model.FailureCanceled
	case goerr.HasTag(err, types.ErrTagNetwork):
		return model.FailureNetwork
	case goerr.HasTag(err, types.ErrTagParse):
		return model.FailureParse
	default:
		return model.FailureFileSystem
	}
}

// Install runs the pipeline for one mod id. Non-error terminals return a nil error.
func (uc *installUseCase) Install(ctx context.Context, id model.ModID) (*model.InstallResult, error) {
	logger := ctxlog.From(ctx).With("mod_id", id)
	ctx = ctxlog.With(ctx, logger)

	r := &pipelineRun{
		uc: uc,
		result: &model.InstallResult{
			ModID: id,
			State: model.StateResolving,
		},
	}

	if err := checkpoint(ctx); err != nil {
		return r.fail(ctx, err)
	}

	// runs of one id share the staged archive and scratch tree
	unlock, err := uc.runs.LockContext(ctx, id.String())
	if err != nil {
		return r.fail(ctx, err)
	}
	defer unlock()

	roots, err := uc.locator.InstallRoots(ctx)
	if err != nil {
		return r.fail(ctx, err)
	}

	rawURL, err := uc.catalog.GetDownloadURL(ctx, id)
	if err != nil {
		return r.fail(ctx, err)
	}
	if rawURL == "" {
		logger.Warn("No download URL found for mod")
		return r.finish(ctx, model.StateNoDownloadAvailable, model.CodeNoDownload), nil
	}

	desc := model.NewDownloadDescriptor(id, rawURL)
	r.result.URL = desc.URL
	logger.Info("Resolved download", "url", desc.URL, "extension", desc.Extension)

	r.transition(ctx, model.StateFetching)
	r.emit(ctx, model.EventStarted, "")
	if err := checkpoint(ctx); err != nil {
		return r.fail(ctx, err)
	}

	data, err := uc.catalog.DownloadArchive(ctx, desc.URL)
	if err != nil {
		return r.fail(ctx, err)
	}
	logger.Info("Downloaded archive", "size_bytes", len(data))

	r.emit(ctx, model.EventWriting, "")
	stagedPath, err := uc.stage(ctx, desc, data)
	if err != nil {
		return r.fail(ctx, err)
	}
	defer uc.removeStaged(ctx, stagedPath)

	r.transition(ctx, model.StateStaged)
	r.emit(ctx, model.EventFinishing, "")
	if err := checkpoint(ctx); err != nil {
		return r.fail(ctx, err)
	}

	r.transition(ctx, model.StateExtracting)
	if !desc.IsZip() {
		logger.Warn("Unable to extract archive, format not supported", "extension", desc.Extension)
		return r.finish(ctx, model.StateUnsupportedFormat, model.CodeUnsupported), nil
	}

	extraction, err := uc.extract(ctx, stagedPath, id)
	if err != nil {
		uc.removeScratch(ctx, id)
		return r.fail(ctx, err)
	}
	logger.Info("Extracted archive",
		"scratch_dir", extraction.Root,
		"file_count", extraction.Files,
		"total_size_bytes", extraction.Size,
		"skipped", extraction.Skipped,
	)

	r.transition(ctx, model.StateClassifying)
	if err := checkpoint(ctx); err != nil {
		uc.removeScratch(ctx, id)
		return r.fail(ctx, err)
	}

	target := classify(extraction, roots)
	if target == nil {
		logger.Warn("No marker file found in archive", "scratch_dir", extraction.Root)
		uc.removeScratch(ctx, id)
		return r.finish(ctx, model.StateUnrecognizedLayout, model.CodeLayout), nil
	}
	r.result.Target = target

	r.transition(ctx, model.StateInstalling)
	if err := uc.install(ctx, target); err != nil {
		// scratch stays in place after a failed copy
		return r.fail(ctx, err)
	}
	uc.removeScratch(ctx, id)

	r.result.InstalledTo = target.Path
	logger.Info("Mod installed",
		"kind", target.Kind,
		"path", target.Path,
	)

	return r.finish(ctx, model.StateCompleted, ""), nil
}

func (uc *installUseCase) scratchPath(id model.ModID) string {
	return filepath.Join(uc.scratchDir, id.String())
}

func (uc *installUseCase) removeStaged(ctx context.Context, path string) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		ctxlog.From(ctx).Warn("Failed to remove staged archive", "path", path, "error", err)
		return
	}
	ctxlog.From(ctx).Debug("Removed staged archive", "path", path)
}

func (uc *installUseCase) removeScratch(ctx context.Context, id model.ModID) {
	dir := uc.scratchPath(id)
	if err := os.RemoveAll(dir); err != nil {
		ctxlog.From(ctx).Warn("Failed to clean up scratch directory", "scratch_dir", dir, "error", err)
		return
	}
	ctxlog.From(ctx).Debug("Cleaned up scratch directory", "scratch_dir", dir)
}
