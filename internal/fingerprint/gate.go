// Package fingerprint gates pass 1 on a content hash of the source table.
package fingerprint

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/starford/papernotes/internal/apperr"
	"github.com/starford/papernotes/internal/checksum"
)

// Decision is the outcome of a gate check.
type Decision struct {
	Proceed  bool   // source differs from the last processed version
	Sum      string // fingerprint of the current source bytes
	Previous string // persisted fingerprint, empty on first run
	Source   []byte // bytes the fingerprint was computed from
}

// Gate compares the source table against the persisted fingerprint.
type Gate struct {
	sourcePath      string
	fingerprintPath string
}

// NewGate creates a gate for the source table at sourcePath whose last
// processed fingerprint lives at fingerprintPath.
func NewGate(sourcePath, fingerprintPath string) *Gate {
	return &Gate{sourcePath: sourcePath, fingerprintPath: fingerprintPath}
}

// Check hashes the source table and compares it with the persisted value.
// A missing source table is a configuration error.
func (g *Gate) Check() (Decision, error) {
	sum, data, err := checksum.File(g.sourcePath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Decision{}, apperr.Configf("source.path", "source table not found: %s", g.sourcePath)
		}
		return Decision{}, fmt.Errorf("fingerprint: %w", err)
	}
	prev, err := g.Stored()
	if err != nil {
		return Decision{}, err
	}
	return Decision{
		Proceed:  prev != sum,
		Sum:      sum,
		Previous: prev,
		Source:   data,
	}, nil
}

// Stored returns the persisted fingerprint, or "" when none exists.
func (g *Gate) Stored() (string, error) {
	raw, err := os.ReadFile(g.fingerprintPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", nil
		}
		return "", fmt.Errorf("fingerprint: read %s: %w", g.fingerprintPath, err)
	}
	return strings.TrimSpace(string(raw)), nil
}

// Commit persists sum, replacing the previous fingerprint via temp file and
// rename.
func (g *Gate) Commit(sum string) error {
	dir := filepath.Dir(g.fingerprintPath)
	tmp, err := os.CreateTemp(dir, ".fingerprint-tmp-*")
	if err != nil {
		return fmt.Errorf("fingerprint: create temp: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.WriteString(sum); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("fingerprint: write temp: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("fingerprint: close temp: %w", err)
	}
	if err := os.Rename(tmpName, g.fingerprintPath); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("fingerprint: rename: %w", err)
	}
	return nil
}
