package library

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// LoadResult summarizes one data file load. Loaded counts the records that
// parsed, whether or not the load as a whole succeeded.
type LoadResult struct {
	File      string
	Loaded    int
	Malformed []LineError
}

// maxLineBytes bounds a single record. Longer lines are reported as malformed
// and skipped.
const maxLineBytes = 1024 * 1024

// readRecords parses one record per non-empty line of path. Lines that fail to
// parse are collected in the result and do not stop the scan.
func readRecords[T any](path string, parse func(string) (T, error)) ([]T, LoadResult, error) {
	res := LoadResult{File: path}

	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, res, fmt.Errorf("%w: open %s: %w", ErrIO, path, err)
	}
	defer f.Close()

	var records []T
	r := bufio.NewReader(f)
	lineNum := 0
	for {
		raw, readErr := r.ReadString('\n')
		if readErr != nil && readErr != io.EOF {
			res.Loaded = len(records)
			return records, res, fmt.Errorf("%w: read %s: %w", ErrIO, path, readErr)
		}
		if raw == "" && readErr == io.EOF {
			break
		}
		lineNum++

		line := strings.TrimRight(raw, "\r\n")
		switch {
		case len(line) > maxLineBytes:
			res.Malformed = append(res.Malformed, LineError{
				Line: lineNum,
				Text: truncate(line, 80),
				Err:  fmt.Errorf("%w: line is %d bytes, limit is %d", ErrInvalidArgument, len(line), maxLineBytes),
			})
		case strings.TrimSpace(line) == "":
		default:
			rec, err := parse(line)
			if err != nil {
				res.Malformed = append(res.Malformed, LineError{Line: lineNum, Text: line, Err: err})
				break
			}
			records = append(records, rec)
		}

		if readErr == io.EOF {
			break
		}
	}

	res.Loaded = len(records)
	return records, res, nil
}

// writeRecords overwrites path with one formatted line per item, creating the
// parent directory on first use.
func writeRecords[T any](path string, items []T, format func(T) string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("%w: create data dir: %w", ErrIO, err)
		}
	}

	f, err := os.Create(filepath.Clean(path))
	if err != nil {
		return fmt.Errorf("%w: open %s for writing: %w", ErrIO, path, err)
	}

	w := bufio.NewWriter(f)
	for _, item := range items {
		w.WriteString(format(item))
		w.WriteByte('\n')
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("%w: write %s: %w", ErrIO, path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("%w: close %s: %w", ErrIO, path, err)
	}
	return nil
}

func isNotExist(err error) bool { return errors.Is(err, fs.ErrNotExist) }
