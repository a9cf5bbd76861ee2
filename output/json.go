package output

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/use-agent/langtable/models"
)

// JSONFileSink replaces a file with the run's record array. The file is
// written to a temporary sibling first and renamed into place, so readers
// never see a half-written array.
type JSONFileSink struct {
	path string
}

// NewJSONFileSink creates a sink writing to path.
func NewJSONFileSink(path string) *JSONFileSink {
	return &JSONFileSink{path: path}
}

// Path returns the destination file.
func (s *JSONFileSink) Path() string { return s.path }

func (s *JSONFileSink) Write(ctx context.Context, report *models.RunReport) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = os.Remove(tmpName)
		}
	}()

	if err := EncodeRecords(tmp, report.Records); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("encode records: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("replace %s: %w", s.path, err)
	}
	committed = true
	return nil
}
