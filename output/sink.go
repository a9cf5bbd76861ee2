// Package output writes run reports to files, SQLite and streams.
package output

import (
	"context"
	"encoding/json"
	"io"

	"github.com/use-agent/langtable/models"
)

// Sink receives the report of a finished run.
type Sink interface {
	Write(ctx context.Context, report *models.RunReport) error
}

// MultiSink writes to each sink in order and stops at the first error.
type MultiSink []Sink

func (m MultiSink) Write(ctx context.Context, report *models.RunReport) error {
	for _, s := range m {
		if err := s.Write(ctx, report); err != nil {
			return err
		}
	}
	return nil
}

// WriterSink writes the record array as JSON to W.
type WriterSink struct {
	W io.Writer
}

func (s WriterSink) Write(_ context.Context, report *models.RunReport) error {
	return EncodeRecords(s.W, report.Records)
}

// EncodeRecords writes records as an indented JSON array. Non-ASCII text is
// written literally and a nil slice is written as [].
func EncodeRecords(w io.Writer, records []models.TranslationRecord) error {
	if records == nil {
		records = []models.TranslationRecord{}
	}
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(records)
}
