package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrArchiveNotFound means the archive path does not exist.
	ErrArchiveNotFound = errors.New("archive not found")

	// ErrAnalysisTimeout means the analysis budget was exhausted before
	// the run finished. No partial report is returned.
	ErrAnalysisTimeout = errors.New("analysis timed out")

	// ErrAnalysisCancelled means the caller cancelled the run.
	ErrAnalysisCancelled = errors.New("analysis cancelled")
)

// ArchiveOpenError means the outer archive was unreadable or malformed at
// the container level. It is fatal for the whole run.
type ArchiveOpenError struct {
	Path string
	Err  error
}

func (e *ArchiveOpenError) Error() string {
	return fmt.Sprintf("cannot open archive %s: %v", e.Path, e.Err)
}

func (e *ArchiveOpenError) Unwrap() error { return e.Err }

// DecodeError means a single class entry failed to parse. The entry is
// skipped and the run continues.
type DecodeError struct {
	Entry string
	Err   error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("cannot decode class entry %s: %v", e.Entry, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }
