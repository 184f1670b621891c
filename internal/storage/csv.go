package storage

import (
	"encoding/csv"
	"fmt"
	"path/filepath"

	"github.com/spf13/afero"

	"github.com/user/datadesk/internal/domain"
)

// WriteCSV writes header and rows to path, creating parent directories.
// An existing file is replaced.
func WriteCSV[R domain.Row](fs afero.Fs, path string, header []string, rows []R) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := fs.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}
	f, err := fs.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i, row := range rows {
		if err := w.Write(row.Values()); err != nil {
			return fmt.Errorf("write row %d: %w", i+1, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush %s: %w", path, err)
	}
	return f.Close()
}
