// Package datastore persists the user directory.
package datastore

import (
	"fmt"
	"strings"
)

// Backend names accepted by Open.
const (
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendFile     = "file"
	BackendMemory   = "memory"
)

// Open selects a backend by name. dsn is a file path for sqlite and file,
// a connection string for postgres and ignored for memory.
func Open(backend, dsn string) (DataStore, error) {
	switch strings.ToLower(strings.TrimSpace(backend)) {
	case BackendSQLite, "":
		return NewSQLite(dsn)
	case BackendPostgres:
		return NewPostgres(dsn)
	case BackendFile:
		return NewFileStore(dsn)
	case BackendMemory:
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("datastore: unknown backend %q", backend)
	}
}
