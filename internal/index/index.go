package index

// PaperIndex defines the read-model operations over indexed notes.
// Consumers depend on this interface rather than *DB so tests can stub it.
type PaperIndex interface {
	UpsertPaper(p PaperRow, body string) error
	DeletePaper(path string) error
	GetChecksum(path string) (string, error)
	GetPaper(path string) (*PaperRow, error)
	ListPapers(f ListFilter) ([]PaperRow, int, error)
	Search(query string, limit int) ([]SearchResult, error)
	AllChecksums() (map[string]string, error)
	Close() error
}

var _ PaperIndex = (*DB)(nil)
