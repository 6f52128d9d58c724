package query

import (
	"context"
	"slices"
	"strings"
	"time"
)

// TagCount is a tag with the number of visible posts carrying it.
type TagCount struct {
	Slug  string
	Label string
	Count int
}

// Tags counts the tags of the visible posts under root published before
// before, most used first. The zero time counts every visible post. The
// label is taken from the first post (in storage order) using the tag.
func (e *Engine) Tags(ctx context.Context, root string, before time.Time) ([]TagCount, error) {
	res, err := e.Query(ctx, root, Spec{PublishedBefore: before, MetaOnly: true})
	if err != nil {
		return nil, err
	}
	index := make(map[string]int)
	var counts []TagCount
	for p, ok := res.Next(); ok; p, ok = res.Next() {
		for _, tag := range p.Tags {
			i, seen := index[tag.Slug]
			if !seen {
				i = len(counts)
				index[tag.Slug] = i
				counts = append(counts, TagCount{Slug: tag.Slug, Label: tag.Label})
			}
			counts[i].Count++
		}
	}
	slices.SortStableFunc(counts, func(a, b TagCount) int {
		if a.Count != b.Count {
			return b.Count - a.Count
		}
		return strings.Compare(a.Slug, b.Slug)
	})
	return counts, nil
}
