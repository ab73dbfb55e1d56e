// =============================================================================
// ISA Atributo - Audit Runner
// =============================================================================
//
// This module runs the CT-e extractor over a batch of documents.
//
// PROCESSING PIPELINE:
//   1. Submit every document to a bounded worker pool
//   2. Extract each document independently
//   3. Collect records in input order; collect failures with their label
//   4. Optionally drop repeated documents (same access key + number)
//   5. Report ErrNoValidDocuments when nothing in the batch was usable
//
// CONCURRENCY:
//   Extraction is a pure function of the document bytes, so documents are
//   processed in parallel. Results are written into a slot per input index;
//   no shared state is mutated by the workers apart from that slot.
//
// =============================================================================

package audit

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/rs/zerolog"

	"github.com/guilhermeazulsbc-max/ISA-S-TRANSPORTES-ATRIBUTO/internal/cte"
)

// ErrNoValidDocuments is returned when a non-empty batch produced no record.
var ErrNoValidDocuments = errors.New("nenhum CT-e válido encontrado")

// Extractor turns one raw document into a record.
type Extractor interface {
	Extract(source string, raw []byte) (*cte.AuditRecord, error)
}

// =============================================================================
// RESULT STRUCTURES
// =============================================================================

// Failure is a document that could not be extracted.
type Failure struct {
	Label string
	Err   error
}

// ProcessingStats contains statistics about a run.
type ProcessingStats struct {
	// Documents is the number of documents submitted.
	Documents int

	// Extracted is the number of records produced, before deduplication.
	Extracted int

	// Rejected is the number of documents that failed extraction.
	Rejected int

	// Duplicates is the number of records dropped by deduplication.
	Duplicates int

	// Reconciled and Mismatched split the kept records by status.
	Reconciled int
	Mismatched int

	// ProcessingTime is the wall time of the run.
	ProcessingTime time.Duration
}

// Report is the outcome of a batch.
type Report struct {
	// Records are the extracted records in input order.
	Records []*cte.AuditRecord

	// Failures are the rejected documents in input order.
	Failures []Failure

	Stats ProcessingStats
}

// =============================================================================
// RUNNER
// =============================================================================

// Options configure a Runner.
type Options struct {
	// Concurrency is the worker pool size. Values below 1 mean 1.
	Concurrency int

	// Deduplicate keeps only the first record per StableKey.
	Deduplicate bool
}

// Runner processes batches of documents.
type Runner struct {
	extractor Extractor
	options   Options
	logger    zerolog.Logger
}

// NewRunner creates a Runner.
func NewRunner(extractor Extractor, options Options, logger zerolog.Logger) *Runner {
	if options.Concurrency < 1 {
		options.Concurrency = 1
	}
	return &Runner{
		extractor: extractor,
		options:   options,
		logger:    logger.With().Str("component", "audit_runner").Logger(),
	}
}

type outcome struct {
	record *cte.AuditRecord
	err    error
}

// Run extracts every document. A failing document never stops the batch.
// The returned error is ErrNoValidDocuments when docs was non-empty and no
// record came out, the context error when ctx was cancelled, or a pool
// error; the report is always returned.
func (r *Runner) Run(ctx context.Context, docs []Document) (*Report, error) {
	start := time.Now()
	report := &Report{}
	report.Stats.Documents = len(docs)
	if len(docs) == 0 {
		return report, nil
	}

	pool, err := ants.NewPool(r.options.Concurrency)
	if err != nil {
		return report, fmt.Errorf("failed to create worker pool: %w", err)
	}
	defer pool.Release()

	outcomes := make([]outcome, len(docs))
	var wg sync.WaitGroup

	for i, doc := range docs {
		if err := ctx.Err(); err != nil {
			outcomes[i].err = err
			continue
		}

		i, doc := i, doc
		wg.Add(1)
		submitErr := pool.Submit(func() {
			defer wg.Done()
			rec, err := r.extractor.Extract(doc.Label, doc.Data)
			outcomes[i] = outcome{record: rec, err: err}
		})
		if submitErr != nil {
			wg.Done()
			outcomes[i].err = fmt.Errorf("failed to schedule %s: %w", doc.Label, submitErr)
		}
	}
	wg.Wait()

	seen := make(map[string]bool)
	for i, o := range outcomes {
		if o.err != nil || o.record == nil {
			err := o.err
			if err == nil {
				err = errors.New("no record produced")
			}
			report.Failures = append(report.Failures, Failure{Label: docs[i].Label, Err: err})
			report.Stats.Rejected++
			continue
		}

		report.Stats.Extracted++
		if r.options.Deduplicate {
			key := o.record.StableKey()
			if seen[key] {
				report.Stats.Duplicates++
				r.logger.Info().Str("source", docs[i].Label).Str("key", key).Msg("Duplicate CT-e skipped")
				continue
			}
			seen[key] = true
		}

		if o.record.Status() == cte.StatusReconciled {
			report.Stats.Reconciled++
		} else {
			report.Stats.Mismatched++
		}
		report.Records = append(report.Records, o.record)
	}
	report.Stats.ProcessingTime = time.Since(start)

	r.logger.Info().
		Int("documents", report.Stats.Documents).
		Int("records", len(report.Records)).
		Int("rejected", report.Stats.Rejected).
		Int("mismatched", report.Stats.Mismatched).
		Dur("elapsed", report.Stats.ProcessingTime).
		Msg("Batch processed")

	if err := ctx.Err(); err != nil {
		return report, err
	}
	if len(report.Records) == 0 {
		return report, ErrNoValidDocuments
	}
	return report, nil
}
