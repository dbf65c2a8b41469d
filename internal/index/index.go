package index

// PostIndex defines the interface for post indexing operations.
// Consumers should depend on this interface rather than the concrete *DB type
// to facilitate testing with mocks.
type PostIndex interface {
	UpsertPost(p PostRow, body string) error
	DeletePost(path string) error
	GetBySlug(slug string) (*PostRow, error)
	GetByPath(path string) (*PostRow, error)
	ListPosts(limit, offset int, category, sort string) ([]PostRow, int, error)
	Featured(limit int) ([]PostRow, error)
	Categories() ([]string, error)
	Search(query string, limit int) ([]SearchResult, error)
	AllChecksums() (map[string]string, error)
	Close() error
}

// Verify *DB satisfies PostIndex at compile time.
var _ PostIndex = (*DB)(nil)
