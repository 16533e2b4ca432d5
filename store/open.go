package store

import (
	"fmt"
	"path/filepath"
)

// DatabaseFile is the SQLite file name inside the results directory.
const DatabaseFile = "results.db"

// Open returns the backend named kind rooted at dir: "json" (or empty) for
// result files, "sqlite" for dir/results.db and "memory" for a volatile
// store.
func Open(kind, dir string) (Store, error) {
	switch kind {
	case "", "json":
		return NewJSONStore(dir), nil
	case "sqlite":
		return NewSQLiteStore(filepath.Join(dir, DatabaseFile))
	case "memory":
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown store %q", kind)
	}
}
