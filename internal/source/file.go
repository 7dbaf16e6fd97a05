package source

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// ReadFunc parses a column stream.
type ReadFunc func(r io.Reader) (*ColumnSet, error)

// ForPath picks the reader from the file extension.
func ForPath(path string) (ReadFunc, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return ReadCSV, nil
	case ".arrow", ".arrows", ".ipc":
		return ReadArrow, nil
	default:
		return nil, fmt.Errorf("unsupported input format for %q (want .csv, .arrow, .arrows or .ipc)", path)
	}
}

// ReadFile opens path and parses it with the reader chosen by ForPath.
func ReadFile(path string) (*ColumnSet, error) {
	read, err := ForPath(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	set, err := read(bufio.NewReader(f))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return set, nil
}
