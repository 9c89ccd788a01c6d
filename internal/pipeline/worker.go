package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgallion1/msgsplit/internal/deliver"
	"github.com/dgallion1/msgsplit/internal/doctree"
	"github.com/dgallion1/msgsplit/internal/fragmenter"
	"github.com/dgallion1/msgsplit/internal/parser"
	"github.com/dgallion1/msgsplit/internal/stats"
)

// Worker processes a single split job.
type Worker struct {
	sink            deliver.Sink
	stats           *stats.Recorder
	log             *slog.Logger
	pdfFallbackText bool
}

func NewWorker(sink deliver.Sink, rec *stats.Recorder, log *slog.Logger, pdfFallbackText bool) *Worker {
	return &Worker{
		sink:            sink,
		stats:           rec,
		log:             log,
		pdfFallbackText: pdfFallbackText,
	}
}

// Process parses the job's file, splits it and optionally delivers the fragments.
func (w *Worker) Process(ctx context.Context, job *Job) {
	log := w.log.With("job_id", job.ID, "filename", job.Filename)

	// Phase 1: Parse
	job.SetStatus(StatusParsing, "parsing")
	p, err := parser.ForFile(job.Filename)
	if err != nil {
		log.Error("unsupported format", "error", err)
		job.AddError(err.Error())
		job.SetStatus(StatusFailed, "parsing")
		return
	}
	if pp, ok := p.(*parser.PDFParser); ok {
		pp.FallbackPdftotext = w.pdfFallbackText
	}

	tree, err := p.Parse(bytes.NewReader(job.FileData()), job.Filename)
	if err != nil {
		log.Error("parse failed", "error", err)
		job.AddError(fmt.Sprintf("parse: %s", err))
		job.SetStatus(StatusFailed, "parsing")
		return
	}

	// Phase 2: Split
	job.SetStatus(StatusSplitting, "splitting")
	seq, err := SplitTree(tree, job.Options, w.stats)
	if err != nil {
		log.Error("split failed", "error", err)
		job.AddError(fmt.Sprintf("split: %s", err))
		job.SetStatus(StatusFailed, "splitting")
		return
	}
	job.SetFragments(seq)
	job.SetFileData(nil)
	if idx := seq.Overflowed(); len(idx) > 0 {
		log.Warn("fragments exceed max length", "fragments", idx, "max_len", job.Options.MaxLen)
	}
	log.Info("split document", "fragments", len(seq))

	if !job.Deliver {
		job.SetStatus(StatusCompleted, "done")
		return
	}

	// Phase 3: Deliver
	if w.sink == nil {
		job.AddError("delivery requested but no sink is configured")
		job.SetStatus(StatusFailed, "delivering")
		return
	}
	job.SetStatus(StatusDelivering, "delivering")
	sent, err := deliver.Deliver(ctx, w.sink, seq, log)
	job.SetDelivered(sent)
	switch {
	case err == nil:
		job.SetStatus(StatusCompleted, "done")
	case sent > 0:
		job.AddError(err.Error())
		job.SetStatus(StatusPartial, "delivering")
	default:
		job.AddError(err.Error())
		job.SetStatus(StatusFailed, "delivering")
	}
}

// SplitTree runs the fragmenter on tree and records the run in rec when it
// succeeds. rec may be nil.
func SplitTree(tree *doctree.Node, opts fragmenter.Options, rec *stats.Recorder) (doctree.Sequence, error) {
	start := time.Now()
	seq, err := fragmenter.Split(tree, opts)
	if err != nil && !errors.Is(err, fragmenter.ErrOverflow) {
		return nil, err
	}
	if rec != nil {
		run := stats.Run{Duration: time.Since(start), InputLen: fragmenter.EstimateLen(tree), Fragments: len(seq)}
		if err != nil {
			run.Overflows = 1
		} else {
			run.Overflows = len(seq.Overflowed())
		}
		rec.Record(run)
	}
	return seq, err
}
