// Package source reads the tabular list of paper references.
package source

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	"github.com/starford/papernotes/internal/apperr"
)

// DefaultColumn is the header holding each row's reference URL.
const DefaultColumn = "task"

// Row is one record of the source table.
type Row struct {
	Line   int               // 1-based line number in the table
	URL    string            // trimmed value of the reference column
	Fields map[string]string // every column of the row by header
}

// Table is a loaded, schema-checked source table.
type Table struct {
	Columns []string
	Rows    []Row
}

// LoadFile reads and parses the table at path. A missing file is a
// configuration error.
func LoadFile(path, column string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, apperr.Configf("source.path", "source table not found: %s", path)
		}
		return nil, fmt.Errorf("source: read %s: %w", path, err)
	}
	return Parse(data, column)
}

// Parse decodes CSV bytes and validates that column is present in the
// header before any row is returned.
func Parse(data []byte, column string) (*Table, error) {
	if column == "" {
		column = DefaultColumn
	}
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))

	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, apperr.MissingColumns([]string{column}, nil)
		}
		return nil, fmt.Errorf("source: read header: %w", err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}
	col := -1
	for i, h := range header {
		if h == column {
			col = i
			break
		}
	}
	if col < 0 {
		return nil, apperr.MissingColumns([]string{column}, header)
	}

	t := &Table{Columns: header}
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("source: read row: %w", err)
		}
		line, _ := r.FieldPos(0)
		fields := make(map[string]string, len(header))
		for i, h := range header {
			if i < len(rec) {
				fields[h] = rec[i]
			}
		}
		t.Rows = append(t.Rows, Row{
			Line:   line,
			URL:    strings.TrimSpace(fields[column]),
			Fields: fields,
		})
	}
	return t, nil
}
