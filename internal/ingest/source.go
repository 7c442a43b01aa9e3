package ingest

import (
	"bufio"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const (
	defaultChunkSize = 10000
	readBufferSize   = 1 << 20
	utf8BOM          = "\ufeff"
)

// Columns is the header every monthly export carries, in column order.
var Columns = []string{
	"event_time", "event_type", "product_id", "category_id", "category_code",
	"brand", "price", "user_id", "user_session",
}

// Source is an ordered list of monthly CSV exports.
// Iteration always starts from the first row of the first file.
type Source struct {
	files []string
}

// NewSource resolves the input files. With an empty files list every *.csv in
// dir is used, in lexical order; otherwise files are taken relative to dir in
// the given order.
func NewSource(dir string, files []string) (*Source, error) {
	var paths []string
	if len(files) == 0 {
		matches, err := filepath.Glob(filepath.Join(dir, "*.csv"))
		if err != nil {
			return nil, fmt.Errorf("list input files: %w", err)
		}
		sort.Strings(matches)
		paths = matches
	} else {
		for _, f := range files {
			if !filepath.IsAbs(f) {
				f = filepath.Join(dir, f)
			}
			paths = append(paths, f)
		}
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no input files in %q", dir)
	}
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, fmt.Errorf("input file: %w", err)
		}
		if info.IsDir() {
			return nil, fmt.Errorf("input file %q is a directory", p)
		}
	}
	return &Source{files: paths}, nil
}

// Files returns the resolved input paths.
func (s *Source) Files() []string {
	out := make([]string, len(s.files))
	copy(out, s.files)
	return out
}

// Chunk is a bounded run of consecutive records from one file.
type Chunk struct {
	File    string
	Records [][]string

	// lines[i] is the 1-based source line of Records[i].
	lines []int
}

// Len is the number of records in the chunk.
func (c Chunk) Len() int {
	return len(c.Records)
}

// LineOf returns the source line of record i.
func (c Chunk) LineOf(i int) int {
	if i < len(c.lines) {
		return c.lines[i]
	}
	return 0
}

// Chunks reads every file in order and calls fn with chunks of at most size
// records. A chunk never spans two files. Records handed to fn are not reused,
// so fn may keep them. Iteration stops at the first error returned by fn.
func (s *Source) Chunks(ctx context.Context, size int, fn func(Chunk) error) error {
	if size <= 0 {
		size = defaultChunkSize
	}
	for _, path := range s.files {
		if err := readFile(ctx, path, size, fn); err != nil {
			return err
		}
	}
	return nil
}

func readFile(ctx context.Context, path string, size int, fn func(Chunk) error) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(bufio.NewReaderSize(f, readBufferSize))
	r.FieldsPerRecord = len(Columns)

	if err := readHeader(r, path); err != nil {
		return err
	}

	slog.Debug("[Ingest] Reading file", "file", path)

	chunk := newChunk(path, size)
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		line, _ := r.FieldPos(0)
		chunk.Records = append(chunk.Records, rec)
		chunk.lines = append(chunk.lines, line)

		if len(chunk.Records) == size {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := fn(chunk); err != nil {
				return err
			}
			chunk = newChunk(path, size)
		}
	}
	if len(chunk.Records) > 0 {
		if err := ctx.Err(); err != nil {
			return err
		}
		return fn(chunk)
	}
	return nil
}

func newChunk(path string, size int) Chunk {
	return Chunk{File: path, Records: make([][]string, 0, size), lines: make([]int, 0, size)}
}

func readHeader(r *csv.Reader, path string) error {
	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return fmt.Errorf("%s: empty file", path)
	}
	if err != nil {
		return fmt.Errorf("%s: read header: %w", path, err)
	}
	for i, col := range header {
		if i == 0 {
			col = strings.TrimPrefix(col, utf8BOM)
		}
		if strings.TrimSpace(col) != Columns[i] {
			return fmt.Errorf("%s: column %d is %q, want %q", path, i+1, col, Columns[i])
		}
	}
	return nil
}
