package source

import (
	"bytes"
	"context"
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/spigell/internship-recommender/internal/catalog"
)

//go:embed sample.csv
var sampleCSV []byte

// Sample is the built-in 15 row dataset.
type Sample struct{}

func (Sample) Read(_ context.Context) ([]catalog.RawRow, error) {
	return ParseCSV(bytes.NewReader(sampleCSV))
}

// EnsureSample writes the built-in dataset to path when nothing exists there yet.
// It reports whether the file was created.
func EnsureSample(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return false, err
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return false, fmt.Errorf("creating data directory: %w", err)
		}
	}

	if err := os.WriteFile(path, sampleCSV, 0o644); err != nil {
		return false, fmt.Errorf("writing sample dataset: %w", err)
	}

	return true, nil
}
