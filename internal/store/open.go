package store

import "fmt"

// Open builds the backend named by backend once at start. Callers never branch
// on the backend afterwards.
func Open(backend, dataDir, databaseURL string) (Store, error) {
	switch backend {
	case "file":
		return NewFileStore(dataDir)
	case "memory":
		return NewMemoryStore(), nil
	case "sqlite":
		return NewSQLiteStore(databaseURL)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", backend)
	}
}
