// Package query answers filtered, sorted and limited queries over a post
// collection.
package query

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/quillpost/quillpost/post"
	"github.com/quillpost/quillpost/slug"
	"github.com/quillpost/quillpost/storage"
)

// DefaultExt is the file extension of post files.
const DefaultExt = "md"

// SortOrder orders query results by their update time.
type SortOrder int

const (
	// SortNone keeps the storage enumeration order.
	SortNone SortOrder = iota
	SortOldest
	SortNewest
)

// ParseSortOrder maps "oldest" and "newest" to a SortOrder.
func ParseSortOrder(s string) SortOrder {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "oldest":
		return SortOldest
	case "newest":
		return SortNewest
	}
	return SortNone
}

// Spec holds the query criteria. The zero value lists every visible post in
// storage order.
type Spec struct {
	Slug          string
	Tag           string
	IncludeHidden bool
	Sort          SortOrder
	// PublishedBefore keeps only posts published strictly before it.
	// The zero time disables the filter.
	PublishedBefore time.Time
	MetaOnly        bool
	// Limit caps the number of returned posts. 0 means no limit.
	Limit int
}

// Post is a parsed record together with the slug of its file.
type Post struct {
	post.Record
	Slug string
}

// Engine runs queries against a Storage.
type Engine struct {
	Storage storage.Storage
	// Ext is the post file extension without the dot. Defaults to DefaultExt.
	Ext    string
	Logger zerolog.Logger
	// OnSkip, if set, is called for every item that could not be loaded.
	OnSkip func(id string, err error)
	// OnQuery, if set, is called after every successful query.
	OnQuery func(spec Spec, elapsed time.Duration, total int)
}

// NewEngine returns an Engine with a disabled logger.
func NewEngine(s storage.Storage) *Engine {
	return &Engine{Storage: s, Ext: DefaultExt, Logger: zerolog.Nop()}
}

func (e *Engine) ext() string {
	if e.Ext == "" {
		return DefaultExt
	}
	return e.Ext
}

// ID returns the storage identifier of the post with the given slug.
func (e *Engine) ID(slug string) string {
	return slug + "." + e.ext()
}

// SlugOf returns the slug of a storage identifier, or false if the
// identifier does not name a post file.
func (e *Engine) SlugOf(id string) (string, bool) {
	s, ok := strings.CutSuffix(id, "."+e.ext())
	if !ok || !slug.Valid(s) {
		return "", false
	}
	return s, true
}

// Query loads the posts under root that match spec. Items that fail to
// parse are skipped. A query that matches nothing returns an empty Result.
func (e *Engine) Query(ctx context.Context, root string, spec Spec) (*Result, error) {
	start := time.Now()
	ids, err := e.candidates(ctx, root, spec)
	if err != nil {
		return nil, err
	}

	posts := make([]Post, 0, len(ids))
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		s, ok := e.SlugOf(id)
		if !ok {
			continue
		}
		rec, err := e.load(ctx, root, id, spec.MetaOnly)
		if err != nil {
			e.skip(id, err)
			continue
		}
		posts = append(posts, Post{Record: rec, Slug: s})
	}

	posts = slices.DeleteFunc(posts, func(p Post) bool {
		if !spec.IncludeHidden && p.Hidden {
			return true
		}
		if spec.Tag != "" && !p.Tags.Has(spec.Tag) {
			return true
		}
		if !spec.PublishedBefore.IsZero() && !p.Published.Before(spec.PublishedBefore) {
			return true
		}
		return false
	})

	switch spec.Sort {
	case SortOldest:
		slices.SortStableFunc(posts, func(a, b Post) int {
			return a.Updated.Compare(b.Updated)
		})
	case SortNewest:
		slices.SortStableFunc(posts, func(a, b Post) int {
			return b.Updated.Compare(a.Updated)
		})
	}

	total := len(posts)
	if spec.Limit > 0 && len(posts) > spec.Limit {
		posts = posts[:spec.Limit]
	}
	if e.OnQuery != nil {
		e.OnQuery(spec, time.Since(start), total)
	}
	return &Result{posts: posts, total: total}, nil
}

func (e *Engine) candidates(ctx context.Context, root string, spec Spec) ([]string, error) {
	if spec.Slug == "" {
		ids, err := e.Storage.List(ctx, root)
		if err != nil {
			return nil, fmt.Errorf("query: list %s: %w", root, err)
		}
		return ids, nil
	}
	if !slug.Valid(spec.Slug) {
		return nil, nil
	}
	id := e.ID(spec.Slug)
	ok, err := e.Storage.Exists(ctx, root, id)
	if err != nil {
		return nil, fmt.Errorf("query: stat %s: %w", id, err)
	}
	if !ok {
		return nil, nil
	}
	return []string{id}, nil
}

func (e *Engine) load(ctx context.Context, root, id string, metaOnly bool) (post.Record, error) {
	if size, err := e.Storage.Size(ctx, root, id); err == nil && size > post.MaxSize {
		e.Logger.Warn().Str("id", id).Int64("size", size).Msg("post exceeds maximum size, content truncated")
	}
	rc, err := e.Storage.Open(ctx, root, id)
	if err != nil {
		return post.Record{}, err
	}
	defer rc.Close()
	return post.ParseReader(rc, metaOnly)
}

func (e *Engine) skip(id string, err error) {
	var failure *post.ParseFailure
	if errors.As(err, &failure) {
		e.Logger.Debug().Str("id", id).Str("reason", failure.Reason.String()).Msg("skipping malformed post")
	} else {
		e.Logger.Warn().Err(err).Str("id", id).Msg("skipping unreadable post")
	}
	if e.OnSkip != nil {
		e.OnSkip(id, err)
	}
}
