package index

import (
	"log/slog"
	"path"
	"strings"

	"github.com/starford/papernotes/internal/archive"
	"github.com/starford/papernotes/internal/checksum"
	"github.com/starford/papernotes/internal/note"
	"github.com/starford/papernotes/internal/storage"
)

// Sync brings the index up to date with the archive: new or changed notes
// are parsed and upserted, and entries whose file is gone are removed.
func Sync(db *DB, store storage.Provider, logger *slog.Logger) error {
	metas, err := store.List("")
	if err != nil {
		return err
	}
	checksums, err := db.AllChecksums()
	if err != nil {
		return err
	}

	disk := make(map[string]struct{}, len(metas))
	for _, m := range metas {
		disk[m.Path] = struct{}{}
		if checksums[m.Path] == m.Checksum {
			continue
		}
		data, err := store.Read(m.Path)
		if err != nil {
			logger.Warn("sync: read failed", slog.String("path", m.Path), slog.String("error", err.Error()))
			continue
		}
		row := RowFromNote(m.Path, data)
		row.UpdatedAt = m.UpdatedAt
		if err := db.UpsertPaper(row, string(data)); err != nil {
			logger.Warn("sync: index failed", slog.String("path", m.Path), slog.String("error", err.Error()))
			continue
		}
		logger.Debug("sync: indexed", slog.String("path", m.Path))
	}

	for p := range checksums {
		if _, ok := disk[p]; ok {
			continue
		}
		if err := db.DeletePaper(p); err != nil {
			logger.Warn("sync: delete failed", slog.String("path", p), slog.String("error", err.Error()))
		} else {
			logger.Debug("sync: removed stale", slog.String("path", p))
		}
	}
	return nil
}

// IndexFile parses a stored note and upserts it under its archive path.
func IndexFile(db PaperIndex, p string, data []byte) error {
	return db.UpsertPaper(RowFromNote(p, data), string(data))
}

// RowFromNote derives the index row for the note stored at p.
func RowFromNote(p string, data []byte) PaperRow {
	doc := note.Parse(string(data))
	row := PaperRow{
		Path:     p,
		Title:    doc.Title(),
		Checksum: checksum.Sum(data),
		Tags:     doc.Tags(),
		Tagged:   doc.HasTags(),
	}
	if year, id, ok := archive.Split(p); ok {
		row.Year, row.ID = year, string(id)
	} else {
		row.ID = strings.TrimSuffix(path.Base(p), ".md")
	}
	return row
}
