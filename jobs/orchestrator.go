// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sync"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/docquery/core"
	"github.com/poiesic/docquery/pipeline"
	"github.com/poiesic/docquery/storage"
)

// Spec describes a job to submit.
type Spec struct {
	// Type selects the kind of work. When zero, JobTypeSingle is used for
	// one document and JobTypeBatch for several.
	Type core.JobType

	// DocumentIds are the documents the job operates on. Must be non-empty.
	DocumentIds []core.ID

	// Params are passed through to the pipeline coordinator. Nil uses
	// coordinator defaults.
	Params *pipeline.Params
}

// Orchestrator runs jobs on a worker pool with one active job per document.
type Orchestrator struct {
	jobs        storage.JobRepository
	documents   storage.DocumentRepository
	chunks      storage.ChunkRepository
	coordinator *pipeline.Coordinator
	pool        *ants.Pool
	logger      *slog.Logger

	mu       sync.Mutex
	active   map[core.ID]core.ID // document id -> job id holding the reservation
	canceled map[core.ID]struct{}
}

// Option configures an Orchestrator.
type Option func(*Orchestrator) error

// WithPoolSize sets the worker pool size.
// Default is runtime.NumCPU() / 2, with a minimum of 1.
func WithPoolSize(size int) Option {
	return func(o *Orchestrator) error {
		if size < 1 {
			size = 1
		}
		if o.pool != nil {
			o.pool.Release()
		}
		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		o.pool = pool
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) error {
		if logger == nil {
			logger = slog.Default()
		}
		o.logger = logger
		return nil
	}
}

// NewOrchestrator creates a job orchestrator.
func NewOrchestrator(
	jobRepo storage.JobRepository,
	documents storage.DocumentRepository,
	chunks storage.ChunkRepository,
	coordinator *pipeline.Coordinator,
	opts ...Option,
) (*Orchestrator, error) {
	if jobRepo == nil {
		return nil, ErrJobRepositoryRequired
	}
	if documents == nil {
		return nil, ErrDocumentRepositoryRequired
	}
	if chunks == nil {
		return nil, ErrChunkRepositoryRequired
	}
	if coordinator == nil {
		return nil, ErrCoordinatorRequired
	}

	poolSize := runtime.NumCPU() / 2
	if poolSize < 1 {
		poolSize = 1
	}
	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}

	o := &Orchestrator{
		jobs:        jobRepo,
		documents:   documents,
		chunks:      chunks,
		coordinator: coordinator,
		pool:        pool,
		logger:      slog.Default().With("component", "jobs"),
		active:      make(map[core.ID]core.ID),
		canceled:    make(map[core.ID]struct{}),
	}

	for _, opt := range opts {
		if optErr := opt(o); optErr != nil {
			o.Release()
			return nil, optErr
		}
	}

	return o, nil
}

// Submit validates the spec, records a Pending job, and queues it on the
// worker pool. It returns without waiting for execution. A document with an
// active job cannot be submitted again until that job reaches a terminal
// state.
func (o *Orchestrator) Submit(ctx context.Context, spec *Spec) (*core.Job, error) {
	if spec == nil || len(spec.DocumentIds) == 0 {
		return nil, ErrNoDocuments
	}

	jobType := spec.Type
	if jobType == 0 {
		jobType = core.JobTypeSingle
		if len(spec.DocumentIds) > 1 {
			jobType = core.JobTypeBatch
		}
	}

	// Cleanup targets documents that may already be gone; every other type
	// requires its documents to exist.
	if jobType != core.JobTypeCleanup {
		for _, id := range spec.DocumentIds {
			if _, err := o.documents.GetDocument(ctx, id); err != nil {
				return nil, fmt.Errorf("%w: document %d", core.ErrInvalidTarget, id)
			}
		}
	}

	if err := o.reserve(spec.DocumentIds); err != nil {
		return nil, err
	}

	job, err := o.jobs.AddJob(ctx, &core.Job{
		DocumentIds: spec.DocumentIds,
		Type:        jobType,
		Status:      core.JobPending,
		Progress:    core.JobProgressState{Total: len(spec.DocumentIds)},
	})
	if err != nil {
		o.unreserve(spec.DocumentIds)
		return nil, err
	}

	o.setReservationOwner(spec.DocumentIds, job.Id)

	// Pool submission can block while all workers are busy, so it happens
	// off the caller's goroutine. Submit returns as soon as the job record
	// exists.
	runSpec := *spec
	runSpec.Type = jobType
	go func() {
		if submitErr := o.pool.Submit(func() {
			o.execute(job.Id, runSpec)
		}); submitErr != nil {
			o.logger.Error("failed to queue job", "job", job.Id, "err", submitErr)
			o.unreserve(runSpec.DocumentIds)
			o.markTerminal(context.Background(), job.Id, core.JobFailure, nil, "queueing failed: "+submitErr.Error())
		}
	}()

	return job, nil
}

// Status returns the current job record without blocking on execution.
func (o *Orchestrator) Status(ctx context.Context, id core.ID) (*core.Job, error) {
	job, err := o.jobs.GetJob(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%w: job %d", core.ErrNotFound, id)
	}
	return job, nil
}

// Cancel flags a job so it will not start. Work already running is not
// interrupted.
func (o *Orchestrator) Cancel(ctx context.Context, id core.ID) error {
	if _, err := o.jobs.GetJob(ctx, id); err != nil {
		return fmt.Errorf("%w: job %d", core.ErrNotFound, id)
	}

	o.mu.Lock()
	o.canceled[id] = struct{}{}
	o.mu.Unlock()
	return nil
}

// Release shuts down the worker pool. The orchestrator must not be used
// afterwards.
func (o *Orchestrator) Release() {
	if o.pool != nil {
		o.pool.Release()
	}
}

// reserve claims all documents for a new job, failing if any is already
// claimed. All-or-nothing under one lock.
func (o *Orchestrator) reserve(documentIds []core.ID) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	for _, id := range documentIds {
		if jobId, busy := o.active[id]; busy {
			return fmt.Errorf("%w: document %d held by job %d", core.ErrAlreadyInProgress, id, jobId)
		}
	}
	for _, id := range documentIds {
		o.active[id] = 0
	}
	return nil
}

func (o *Orchestrator) setReservationOwner(documentIds []core.ID, jobId core.ID) {
	o.mu.Lock()
	defer o.mu.Unlock()
	for _, id := range documentIds {
		o.active[id] = jobId
	}
}

func (o *Orchestrator) unreserve(documentIds []core.ID) {
	o.mu.Lock()
	defer o.mu.Unlock()
	for _, id := range documentIds {
		delete(o.active, id)
	}
}

// isCanceled reports whether a cancellation is pending for a job. The flag
// stays set so it can stop later batch items too; clearCanceled removes it
// once the job is terminal.
func (o *Orchestrator) isCanceled(jobId core.ID) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	_, canceled := o.canceled[jobId]
	return canceled
}

func (o *Orchestrator) clearCanceled(jobId core.ID) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.canceled, jobId)
}

// execute runs a job to its terminal state. Runs on the worker pool.
func (o *Orchestrator) execute(jobId core.ID, spec Spec) {
	ctx := context.Background()
	defer o.unreserve(spec.DocumentIds)
	defer o.clearCanceled(jobId)

	if o.isCanceled(jobId) {
		o.markTerminal(ctx, jobId, core.JobFailure, nil, "canceled before start")
		return
	}

	var result *core.JobResult
	var runErr error
	switch spec.Type {
	case core.JobTypeCleanup:
		result, runErr = o.runCleanup(ctx, jobId, spec)
	default:
		result, runErr = o.RunBatch(ctx, jobId, spec)
	}

	if runErr != nil {
		o.logger.Error("job failed", "job", jobId, "type", spec.Type, "err", runErr)
		o.markTerminal(ctx, jobId, core.JobFailure, result, runErr.Error())
		return
	}

	o.logger.Info("job completed",
		"job", jobId,
		"documents", len(spec.DocumentIds),
		"failed", len(result.FailedIds))
	o.markTerminal(ctx, jobId, core.JobSuccess, result, "")
}

// runCleanup deletes chunks whose parent document no longer exists.
// Documents that still exist are left alone.
func (o *Orchestrator) runCleanup(ctx context.Context, jobId core.ID, spec Spec) (*core.JobResult, error) {
	tracker := newProgressTracker(len(spec.DocumentIds), 1, o.progressReporter(ctx, jobId))
	tracker.Start("cleaning orphaned chunks")

	result := &core.JobResult{}
	for i, id := range spec.DocumentIds {
		if o.isCanceled(jobId) {
			result.DurationMicros = tracker.Elapsed().Microseconds()
			return result, fmt.Errorf("%w after %d of %d documents", ErrCanceled, i, len(spec.DocumentIds))
		}

		if _, err := o.documents.GetDocument(ctx, id); err == nil {
			// Still present, nothing to clean
			tracker.Increment(1)
			continue
		} else if !errors.Is(err, storage.ErrNotFound) {
			result.FailedIds = append(result.FailedIds, id)
			tracker.Increment(1)
			continue
		}

		deleted, err := o.chunks.DeleteDocumentChunks(ctx, id)
		if err != nil {
			o.logger.Warn("cleanup failed for document", "job", jobId, "document", id, "err", err)
			result.FailedIds = append(result.FailedIds, id)
			tracker.Increment(1)
			continue
		}
		result.ChunkCount += deleted
		result.ProcessedIds = append(result.ProcessedIds, id)
		tracker.Increment(1)
	}
	tracker.Finish()
	result.DurationMicros = tracker.Elapsed().Microseconds()

	if len(result.FailedIds) == len(spec.DocumentIds) {
		return result, fmt.Errorf("cleanup failed for all %d documents", len(spec.DocumentIds))
	}
	return result, nil
}

// progressReporter persists progress snapshots onto the job record.
// Persistence failures are logged and otherwise ignored.
func (o *Orchestrator) progressReporter(ctx context.Context, jobId core.ID) reportFunc {
	return func(state core.JobProgressState) {
		job, err := o.jobs.GetJob(ctx, jobId)
		if err != nil {
			o.logger.Warn("failed to load job for progress update", "job", jobId, "err", err)
			return
		}
		if job.Status.Terminal() {
			return
		}
		job.Status = core.JobProgress
		job.Progress = state
		if _, err := o.jobs.UpdateJob(ctx, job); err != nil {
			o.logger.Warn("failed to persist job progress", "job", jobId, "err", err)
		}
	}
}

// markTerminal writes the final job state. The repository enforces that a
// terminal status is written at most once.
func (o *Orchestrator) markTerminal(ctx context.Context, jobId core.ID, status core.JobStatus, result *core.JobResult, errText string) {
	job, err := o.jobs.GetJob(ctx, jobId)
	if err != nil {
		o.logger.Error("failed to load job for terminal update", "job", jobId, "err", err)
		return
	}

	job.Status = status
	job.Error = errText
	if result != nil {
		job.Result = *result
	}

	if _, err := o.jobs.UpdateJob(ctx, job); err != nil {
		o.logger.Error("failed to persist terminal job state", "job", jobId, "status", status, "err", err)
	}
}
