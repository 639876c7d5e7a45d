package eventlog

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
)

// Header is the column layout of the output file. The leading empty
// column holds the integer row index.
var Header = []string{"", "sectionname", "onset", "unix_epoch_time"}

// CSVStore rewrites the whole table to Path on every Save.
type CSVStore struct {
	Path string
}

// NewCSVStore returns a store writing to path, creating its directory.
func NewCSVStore(path string) (*CSVStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create output dir: %w", err)
	}
	return &CSVStore{Path: path}, nil
}

// Save writes rows to a temp file in the same directory, syncs it and
// renames it over Path, so a crash leaves either the old or the new table.
func (s *CSVStore) Save(rows []Row) error {
	tmp, err := os.CreateTemp(filepath.Dir(s.Path), "."+filepath.Base(s.Path)+".*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if err := WriteCSV(tmp, rows); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), s.Path)
}

// WriteCSV writes the header and rows in the output file layout.
func WriteCSV(out io.Writer, rows []Row) error {
	w := csv.NewWriter(out)
	if err := w.Write(Header); err != nil {
		return err
	}
	for i, r := range rows {
		record := []string{
			strconv.Itoa(i),
			r.Label,
			formatSeconds(r.Onset),
			formatSeconds(r.Epoch),
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func formatSeconds(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
