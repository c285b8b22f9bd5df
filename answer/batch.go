package answer

import (
	"context"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/docquery/core"
)

const defaultBatchConcurrency = 3

// BatchAnswer answers multiple questions concurrently on a bounded worker
// pool. Results preserve input order. One question failing never aborts the
// batch: its slot carries an error-tagged record instead.
func (s *Synthesizer) BatchAnswer(ctx context.Context, questions []string, opts *Options, maxConcurrent int) ([]*core.AnswerRecord, error) {
	if len(questions) == 0 {
		return []*core.AnswerRecord{}, nil
	}
	if maxConcurrent <= 0 {
		maxConcurrent = defaultBatchConcurrency
	}

	pool, err := ants.NewPool(maxConcurrent)
	if err != nil {
		return nil, err
	}
	defer pool.Release()

	records := make([]*core.AnswerRecord, len(questions))
	var wg sync.WaitGroup

	for i, question := range questions {
		wg.Add(1)
		submitErr := pool.Submit(func() {
			defer wg.Done()
			records[i] = s.answerOrErrorRecord(ctx, question, opts)
		})
		if submitErr != nil {
			// Pool is released or broken; fill the slot and stop submitting
			wg.Done()
			records[i] = errorRecord(question, submitErr)
			s.logger.Error("failed to submit batch question", "index", i, "err", submitErr)
		}
	}

	wg.Wait()

	s.logger.Debug("batch answer complete", "questions", len(questions))
	return records, nil
}

// answerOrErrorRecord converts the rare hard errors from Answer into
// error-tagged records so batch slots are always filled.
func (s *Synthesizer) answerOrErrorRecord(ctx context.Context, question string, opts *Options) *core.AnswerRecord {
	record, err := s.Answer(ctx, question, opts)
	if err != nil {
		s.logger.Warn("batch question failed", "err", err)
		return errorRecord(question, err)
	}
	return record
}

func errorRecord(question string, err error) *core.AnswerRecord {
	return &core.AnswerRecord{
		Question:   question,
		Answer:     "Answer generation failed: " + err.Error(),
		ModelUsed:  ModelError,
		Confidence: 0,
		CreatedAt:  time.Now().UTC(),
	}
}
