package jobs

import (
	"context"
	"fmt"

	"github.com/poiesic/docquery/core"
	"github.com/poiesic/docquery/pipeline"
)

// RunBatch drives one job across its documents through the pipeline
// coordinator, updating job progress as documents complete. Per-document
// failures are collected into the result rather than aborting the run; an
// error is returned only when every document fails.
func (o *Orchestrator) RunBatch(ctx context.Context, jobId core.ID, spec Spec) (*core.JobResult, error) {
	tracker := newProgressTracker(len(spec.DocumentIds), 1, o.progressReporter(ctx, jobId))
	tracker.Start("processing documents")

	result := &core.JobResult{}
	var firstErr error
	for i, id := range spec.DocumentIds {
		// Advisory cancellation stops documents that have not started yet;
		// the one in flight when Cancel was called still runs to completion.
		if o.isCanceled(jobId) {
			result.DurationMicros = tracker.Elapsed().Microseconds()
			o.logger.Info("job canceled mid-batch",
				"job", jobId,
				"processed", i,
				"remaining", len(spec.DocumentIds)-i)
			return result, fmt.Errorf("%w after %d of %d documents", ErrCanceled, i, len(spec.DocumentIds))
		}

		var pipelineResult *pipeline.Result
		var err error
		if spec.Type == core.JobTypeRegenerate {
			pipelineResult, err = o.coordinator.RegenerateDocument(ctx, id, spec.Params)
		} else {
			pipelineResult, err = o.coordinator.ProcessDocument(ctx, id, spec.Params)
		}

		if err != nil {
			o.logger.Warn("document failed in job", "job", jobId, "document", id, "err", err)
			result.FailedIds = append(result.FailedIds, id)
			if firstErr == nil {
				firstErr = err
			}
			tracker.Increment(1)
			continue
		}

		result.ChunkCount += pipelineResult.ChunkCount
		result.EmbeddedCount += pipelineResult.EmbeddedCount
		result.ProcessedIds = append(result.ProcessedIds, id)
		tracker.Increment(1)
	}
	tracker.Finish()
	result.DurationMicros = tracker.Elapsed().Microseconds()

	if len(result.ProcessedIds) == 0 {
		return result, fmt.Errorf("all %d documents failed: %w", len(spec.DocumentIds), firstErr)
	}

	if len(result.FailedIds) > 0 {
		rate := float64(len(result.ProcessedIds)) / float64(len(spec.DocumentIds)) * 100.0
		o.logger.Warn("job finished with failures",
			"job", jobId,
			"processed", len(result.ProcessedIds),
			"failed", len(result.FailedIds),
			"success_rate", fmt.Sprintf("%.1f%%", rate))
	}
	return result, nil
}
