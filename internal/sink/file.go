package sink

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/banshee-data/kinematics/internal/table"
)

// WriteFunc renders a table to w.
type WriteFunc func(w io.Writer, t *table.Table) error

// ForPath picks the writer from the file extension: .csv for delimited
// text, .arrow, .arrows or .ipc for an Arrow IPC stream.
func ForPath(path string) (WriteFunc, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return WriteCSV, nil
	case ".arrow", ".arrows", ".ipc":
		return WriteArrow, nil
	default:
		return nil, fmt.Errorf("unsupported output format for %q (want .csv, .arrow, .arrows or .ipc)", path)
	}
}

// WriteFile writes t to path in the format chosen by ForPath, replacing any
// existing file.
func WriteFile(path string, t *table.Table) error {
	write, err := ForPath(path)
	if err != nil {
		return err
	}

	f, err := os.Create(filepath.Clean(path))
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	bw := bufio.NewWriter(f)
	if err := write(bw, t); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := bw.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("flush %s: %w", path, err)
	}
	return f.Close()
}
