package report

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Format is an on-disk report format.
type Format string

const (
	FormatCSV   Format = "csv"
	FormatJSON  Format = "json"
	FormatTable Format = "txt"
)

// ParseFormat accepts csv, json, txt or table.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "csv":
		return FormatCSV, nil
	case "json":
		return FormatJSON, nil
	case "txt", "table", "text":
		return FormatTable, nil
	}
	return "", fmt.Errorf("unknown report format %q", s)
}

// FileName builds <prefix>_<date>_<shortid>.<ext>.
func FileName(prefix string, date time.Time, runID string, ext string) string {
	return fmt.Sprintf("%s_%s_%s.%s", prefix, date.Format("20060102"), ShortID(runID), ext)
}

// Render writes the document in the given format.
func Render(w io.Writer, d *Document, format Format) error {
	switch format {
	case FormatCSV:
		return WriteCSV(w, d.Report)
	case FormatJSON:
		return WriteJSON(w, d)
	case FormatTable:
		return WriteTable(w, d)
	}
	return fmt.Errorf("unknown report format %q", format)
}

// Save renders the document into dir, one file per format, and returns the
// written paths.
func Save(dir, prefix string, d *Document, formats ...Format) ([]string, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("creating report dir: %w", err)
	}
	paths := make([]string, 0, len(formats))
	for _, format := range formats {
		var buf bytes.Buffer
		if err := Render(&buf, d, format); err != nil {
			return paths, err
		}
		path := filepath.Join(dir, FileName(prefix, d.GeneratedAt, d.RunID, string(format)))
		if err := WriteFileAtomic(path, buf.Bytes()); err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

// WriteFileAtomic writes data to a temp file next to path and renames it
// into place.
func WriteFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		// No-op once the rename succeeded.
		_ = os.Remove(tmpName)
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("writing %s: %w", tmpName, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("syncing %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", tmpName, err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return fmt.Errorf("setting permissions on %s: %w", tmpName, err)
	}
	return os.Rename(tmpName, path)
}
