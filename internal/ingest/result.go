package ingest

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrUnsupportedInput indicates a file extension neither pipeline
	// recognizes. A skip, not a failure: the batch continues.
	ErrUnsupportedInput = errors.New("unsupported input kind")

	// ErrParseFailure indicates a source parser could not produce
	// content from the file.
	ErrParseFailure = errors.New("parse failure")
)

// Status is the outcome of one file within a batch.
type Status string

const (
	StatusSucceeded Status = "succeeded"
	StatusSkipped   Status = "skipped"
	StatusFailed    Status = "failed"
)

// FileResult records the outcome of one input file.
type FileResult struct {
	Path   string
	Kind   Kind
	Status Status

	// Chunks is the number of vector records written: text chunks for
	// the text pipeline, part summaries for the CAD pipeline.
	Chunks int

	// Err is set for skipped and failed files.
	Err error
}

// BatchResult aggregates the per-file outcomes of one ingestion run.
type BatchResult struct {
	Collection string
	Files      []FileResult
	Started    time.Time
	Finished   time.Time
}

// Succeeded returns the number of successfully ingested files.
func (b *BatchResult) Succeeded() int { return b.countStatus(StatusSucceeded) }

// Skipped returns the number of unsupported files.
func (b *BatchResult) Skipped() int { return b.countStatus(StatusSkipped) }

// Failed returns the number of files that hit a hard failure.
func (b *BatchResult) Failed() int { return b.countStatus(StatusFailed) }

func (b *BatchResult) countStatus(s Status) int {
	n := 0
	for _, f := range b.Files {
		if f.Status == s {
			n++
		}
	}
	return n
}

// Summary renders a one-line batch summary.
func (b *BatchResult) Summary() string {
	return fmt.Sprintf("%d succeeded, %d skipped, %d failed (%d files, %s)",
		b.Succeeded(), b.Skipped(), b.Failed(), len(b.Files),
		b.Finished.Sub(b.Started).Round(time.Millisecond))
}
