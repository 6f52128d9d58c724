package storage

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// Dir serves items from directories on the local filesystem. Roots are
// resolved relative to Base when they are not absolute.
type Dir struct {
	Base string
}

func (d Dir) path(root string, id ...string) string {
	p := root
	if !filepath.IsAbs(p) {
		p = filepath.Join(d.Base, p)
	}
	return filepath.Join(append([]string{p}, id...)...)
}

// List returns regular files under root sorted by name.
func (d Dir) List(ctx context.Context, root string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(d.path(root))
	if err != nil {
		return nil, err
	}
	var ids []string
	for _, e := range entries {
		if e.Type().IsRegular() {
			ids = append(ids, e.Name())
		}
	}
	return ids, nil
}

func (d Dir) Exists(ctx context.Context, root, id string) (bool, error) {
	if !ValidID(id) {
		return false, nil
	}
	info, err := os.Stat(d.path(root, id))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	return info.Mode().IsRegular(), nil
}

func (d Dir) Open(ctx context.Context, root, id string) (io.ReadCloser, error) {
	if !ValidID(id) {
		return nil, ErrInvalidID
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return os.Open(d.path(root, id))
}

func (d Dir) Size(ctx context.Context, root, id string) (int64, error) {
	if !ValidID(id) {
		return 0, ErrInvalidID
	}
	info, err := os.Stat(d.path(root, id))
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}
