// Package diag records per-input failures for a composition run.
//
// A run never aborts because one input is bad. Each rejected input or page
// produces exactly one SkipRecord in the run's Log and processing moves on.
package diag

import (
	"errors"
	"fmt"
	"log/slog"
)

// Kind classifies why an input or page was skipped.
type Kind string

const (
	MalformedSpec      Kind = "MalformedSpec"
	MissingFile        Kind = "MissingFile"
	UnsupportedType    Kind = "UnsupportedType"
	InvalidPage        Kind = "InvalidPage"
	UnreadableImage    Kind = "UnreadableImage"
	UnreadableDocument Kind = "UnreadableDocument"
)

// SkipRecord describes one skipped input or page.
type SkipRecord struct {
	Input  string `json:"input" yaml:"input"`
	Kind   Kind   `json:"kind" yaml:"kind"`
	Detail string `json:"detail" yaml:"detail"`
}

func (r SkipRecord) String() string {
	return fmt.Sprintf("%s: %s (%s)", r.Kind, r.Input, r.Detail)
}

// Error is a per-input failure carrying its skip kind.
type Error struct {
	Kind  Kind
	Input string
	Err   error
}

// Errorf builds an Error whose detail is formatted like fmt.Errorf.
func Errorf(kind Kind, input, format string, args ...any) *Error {
	return &Error{Kind: kind, Input: input, Err: fmt.Errorf(format, args...)}
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Kind, e.Input, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Record converts the error into a SkipRecord.
func (e *Error) Record() SkipRecord {
	detail := ""
	if e.Err != nil {
		detail = e.Err.Error()
	}
	return SkipRecord{Input: e.Input, Kind: e.Kind, Detail: detail}
}

// AsRecord extracts a SkipRecord from err if it is (or wraps) an *Error.
func AsRecord(err error) (SkipRecord, bool) {
	var de *Error
	if errors.As(err, &de) {
		return de.Record(), true
	}
	return SkipRecord{}, false
}

// Log is an ordered, run-scoped list of skip records. The zero value is ready to use.
// A Log is not safe for concurrent use; concurrent workers keep their own and Merge them in order.
type Log struct {
	records []SkipRecord
	logger  *slog.Logger
}

// NewLog returns a Log that also reports every record to logger at warn level.
func NewLog(logger *slog.Logger) *Log {
	return &Log{logger: logger}
}

// Add appends a record.
func (l *Log) Add(r SkipRecord) {
	l.records = append(l.records, r)
	if l.logger != nil {
		l.logger.Warn("skipped", "kind", r.Kind, "input", r.Input, "detail", r.Detail)
	}
}

// AddError appends the record carried by err. Errors that are not *Error are
// not per-item failures and are returned unchanged for the caller to escalate.
func (l *Log) AddError(err error) error {
	if r, ok := AsRecord(err); ok {
		l.Add(r)
		return nil
	}
	return err
}

// Merge appends records in order.
func (l *Log) Merge(records []SkipRecord) {
	for _, r := range records {
		l.Add(r)
	}
}

// Records returns a copy of the records in insertion order.
func (l *Log) Records() []SkipRecord {
	out := make([]SkipRecord, len(l.records))
	copy(out, l.records)
	return out
}

// Len returns the number of records.
func (l *Log) Len() int {
	return len(l.records)
}
