package post

import (
	"bytes"
	"io"
	"regexp"
	"strings"

	"github.com/quillpost/quillpost/slug"
)

var (
	reTitle  = regexp.MustCompile(`^\s*#\s*(.+?)\s*$`)
	reMeta   = regexp.MustCompile(`^\s*-\s*([a-z]+)\s*:\s*(.+?)\s*$`)
	reBlank  = regexp.MustCompile(`^\s*$`)
	reTagSep = regexp.MustCompile(`\s*,\s*`)
)

type field int

const (
	fieldNone field = iota
	fieldPublished
	fieldUpdated
	fieldTags
	fieldHidden
)

func lookupField(key string) field {
	switch key {
	case "published":
		return fieldPublished
	case "updated":
		return fieldUpdated
	case "tags":
		return fieldTags
	case "hidden":
		return fieldHidden
	}
	return fieldNone
}

// partial collects the header while it is being read.
type partial struct {
	record       Record
	hasPublished bool
	hasUpdated   bool
	hasTags      bool
}

func (p *partial) decode(f field, key, value string) error {
	switch f {
	case fieldPublished:
		t, ok := parseTime(value)
		if !ok {
			return &ParseFailure{Reason: InvalidValue, Field: key, Value: value}
		}
		p.record.Published, p.hasPublished = t, true
	case fieldUpdated:
		// an unreadable update time falls back to the published time
		if t, ok := parseTime(value); ok {
			p.record.Updated, p.hasUpdated = t, true
		}
	case fieldTags:
		p.record.Tags, p.hasTags = decodeTags(value), true
	case fieldHidden:
		p.record.Hidden = strings.TrimSpace(value) == "yes"
	}
	return nil
}

// decodeTags splits a comma separated tag list. The first label seen for a
// slug wins and tags that slugify to nothing are dropped.
func decodeTags(value string) Tags {
	tags := Tags{}
	for _, label := range reTagSep.Split(strings.TrimSpace(value), -1) {
		s := slug.Make(label)
		if s == slug.NotApplicable || tags.Has(s) {
			continue
		}
		tags = append(tags, Tag{Slug: s, Label: label})
	}
	return tags
}

// Parse reads a single post from r. When metaOnly is set the body is not
// read and Record.ContentLoaded is false.
//
// If the first line is not a title line, Parse fails with MissingTitle and
// leaves r positioned before that line.
func Parse(r *LineReader, metaOnly bool) (Record, error) {
	var p partial

	line, err := r.ReadLine(MetaLineMax)
	if err != nil && err != io.EOF {
		return Record{}, err
	}
	m := reTitle.FindStringSubmatch(strings.TrimRight(line, "\r\n"))
	if m == nil {
		if line != "" {
			_ = r.UnreadLine()
		}
		return Record{}, &ParseFailure{Reason: MissingTitle}
	}
	p.record.Title = m[1]

	for {
		line, err := r.ReadLine(MetaLineMax)
		if err == io.EOF {
			break
		}
		if err != nil {
			return Record{}, err
		}
		m := reMeta.FindStringSubmatch(strings.TrimRight(line, "\r\n"))
		if m == nil || lookupField(m[1]) == fieldNone {
			_ = r.UnreadLine()
			break
		}
		if err := p.decode(lookupField(m[1]), m[1], m[2]); err != nil {
			return Record{}, err
		}
	}
	if !p.hasUpdated && p.hasPublished {
		p.record.Updated = p.record.Published
	}

	p.record.Excerpt, err = readExcerpt(r)
	if err != nil {
		return Record{}, err
	}

	if !metaOnly {
		content, err := r.Rest(MaxSize)
		if err != nil {
			return Record{}, err
		}
		p.record.Content = strings.TrimSpace(content)
		p.record.ContentLoaded = true
	}

	switch {
	case !p.hasPublished:
		return Record{}, &ParseFailure{Reason: MissingPublished}
	case !p.hasTags:
		return Record{}, &ParseFailure{Reason: MissingTags}
	}
	return p.record, nil
}

func readExcerpt(r *LineReader) (string, error) {
	var first string
	for {
		line, err := r.ReadLine(ExcerptLineMax)
		if err == io.EOF {
			return "", nil
		}
		if err != nil {
			return "", err
		}
		if !reBlank.MatchString(line) {
			first = line
			break
		}
	}

	var b strings.Builder
	b.WriteString(first)
	length := len(first)
	for {
		line, err := r.ReadLine(ExcerptLineMax)
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", err
		}
		if reBlank.MatchString(line) {
			break
		}
		length += len(line)
		if length > ExcerptMax {
			break
		}
		b.WriteString(line)
	}
	return strings.TrimSpace(b.String()), nil
}

// ParseReader parses a post from src.
func ParseReader(src io.Reader, metaOnly bool) (Record, error) {
	return Parse(NewLineReader(src), metaOnly)
}

// ParseBytes parses a post held in memory.
func ParseBytes(b []byte, metaOnly bool) (Record, error) {
	return ParseReader(bytes.NewReader(b), metaOnly)
}
