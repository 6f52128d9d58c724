// Package storage enumerates and opens the items of a post collection.
//
// A collection root is a directory (or bucket prefix, or remote directory)
// and an item is a single file inside it, identified by its file name.
package storage

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"strings"
)

// Storage is the read-only view of a collection the query engine needs.
type Storage interface {
	// List returns the item identifiers under root in enumeration order.
	List(ctx context.Context, root string) ([]string, error)
	// Exists reports whether the item exists.
	Exists(ctx context.Context, root, id string) (bool, error)
	// Open opens the item for reading.
	Open(ctx context.Context, root, id string) (io.ReadCloser, error)
	// Size returns the item size in bytes.
	Size(ctx context.Context, root, id string) (int64, error)
}

// ErrInvalidID is returned for identifiers that could escape the root.
var ErrInvalidID = errors.New("storage: invalid item id")

// ValidID reports whether id names a file directly inside a root.
func ValidID(id string) bool {
	return id != "" && id != "." && id != ".." &&
		!strings.ContainsAny(id, `/\`) && !strings.ContainsRune(id, 0)
}

func notExist(op, path string) error {
	return &fs.PathError{Op: op, Path: path, Err: fs.ErrNotExist}
}
