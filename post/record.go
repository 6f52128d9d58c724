// Package post parses post files into validated records.
//
// A post file looks like this:
//
//	# Title of the post
//	 - published: 2018-07-05T09:00:00+0000
//	 - updated: 2018-07-06 10:00
//	 - tags: go, Multiword tag
//	 - hidden: no
//	The excerpt, up to the first blank line.
//
//	The body of the post.
package post

import (
	"regexp"
	"strings"
	"time"
)

const (
	// MaxSize caps the number of bytes read from a single post file.
	MaxSize = 512 << 10
	// MetaLineMax caps the length of the title and metadata lines.
	MetaLineMax = 4096
	// ExcerptLineMax caps the length of a single excerpt line.
	ExcerptLineMax = 4096
	// ExcerptMax caps the total excerpt length.
	ExcerptMax = 4096
)

// Tag is a single post tag: the slug used in URLs and the label as written.
type Tag struct {
	Slug  string
	Label string
}

// Tags is an ordered set of tags keyed by slug.
type Tags []Tag

// Has reports whether a tag with the given slug is present.
func (t Tags) Has(slug string) bool {
	_, ok := t.Label(slug)
	return ok
}

// Label returns the label of the tag with the given slug.
func (t Tags) Label(slug string) (string, bool) {
	for _, tag := range t {
		if tag.Slug == slug {
			return tag.Label, true
		}
	}
	return "", false
}

// Slugs returns the tag slugs in order.
func (t Tags) Slugs() []string {
	slugs := make([]string, len(t))
	for i, tag := range t {
		slugs[i] = tag.Slug
	}
	return slugs
}

// Labels returns the tag labels in order.
func (t Tags) Labels() []string {
	labels := make([]string, len(t))
	for i, tag := range t {
		labels[i] = tag.Label
	}
	return labels
}

// Record is a parsed and validated post.
type Record struct {
	Title     string
	Published time.Time
	Updated   time.Time
	Tags      Tags
	Hidden    bool
	Excerpt   string
	// Content is empty and ContentLoaded false for metadata-only parses.
	Content       string
	ContentLoaded bool
}

// IsUpdated reports whether the post carries an update time of its own.
func (r Record) IsUpdated() bool {
	return !r.Updated.Equal(r.Published)
}

var reTag = regexp.MustCompile(`<[^>]*>`)

// PlainExcerpt returns the excerpt with any HTML tags removed.
func (r Record) PlainExcerpt() string {
	return strings.TrimSpace(reTag.ReplaceAllString(r.Excerpt, ""))
}

// Equal reports whether two records hold the same data.
func (r Record) Equal(o Record) bool {
	if r.Title != o.Title || !r.Published.Equal(o.Published) || !r.Updated.Equal(o.Updated) ||
		r.Hidden != o.Hidden || r.Excerpt != o.Excerpt || r.Content != o.Content ||
		r.ContentLoaded != o.ContentLoaded || len(r.Tags) != len(o.Tags) {
		return false
	}
	for i := range r.Tags {
		if r.Tags[i] != o.Tags[i] {
			return false
		}
	}
	return true
}
