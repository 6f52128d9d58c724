package module

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/a-h/templ"

	"github.com/quillpost/quillpost/query"
	"github.com/quillpost/quillpost/slug"
)

// Posts builds the post listing modules. Both render a <nav> list of links
// to posts followed by a "more" link.
type Posts struct {
	Engine  *query.Engine
	Root    string
	SiteURL string
	// Now returns the current time. Defaults to time.Now.
	Now func() time.Time
}

func (p *Posts) now() time.Time {
	if p.Now == nil {
		return time.Now()
	}
	return p.Now()
}

// NewPosts is the "new-posts" factory. args is the number of posts to list,
// newest first; 0 or empty lists every post.
func (p *Posts) NewPosts(args string) (Module, error) {
	limit, err := parseCount(args)
	if err != nil {
		return nil, err
	}
	return Func(func(ctx context.Context) (string, error) {
		return p.list(ctx, "", limit, p.SiteURL+"/archive")
	}), nil
}

// TagPosts is the "tag-posts" factory. args is "tag;count" where tag is a
// tag slug or label and count is optional.
func (p *Posts) TagPosts(args string) (Module, error) {
	tag, count, _ := strings.Cut(args, ";")
	s := slug.Make(strings.TrimSpace(tag))
	if s == slug.NotApplicable {
		return nil, fmt.Errorf("tag-posts: invalid tag %q", tag)
	}
	limit, err := parseCount(count)
	if err != nil {
		return nil, err
	}
	return Func(func(ctx context.Context) (string, error) {
		return p.list(ctx, s, limit, p.SiteURL+"/tag/"+s)
	}), nil
}

// Register adds both listing modules to r.
func (p *Posts) Register(r *Registry) error {
	if err := r.Register("new-posts", p.NewPosts); err != nil {
		return err
	}
	return r.Register("tag-posts", p.TagPosts)
}

func (p *Posts) list(ctx context.Context, tag string, limit int, more string) (string, error) {
	res, err := p.Engine.Query(ctx, p.Root, query.Spec{
		Tag:             tag,
		Sort:            query.SortNewest,
		PublishedBefore: p.now(),
		MetaOnly:        true,
		Limit:           limit,
	})
	if err != nil {
		return "", err
	}
	var b strings.Builder
	b.WriteString("<nav><ul>\n")
	for post, ok := res.Next(); ok; post, ok = res.Next() {
		fmt.Fprintf(&b, "  <li><a href=\"%s/post/%s\">%s</a></li>\n",
			p.SiteURL, post.Slug, templ.EscapeString(post.Title))
	}
	fmt.Fprintf(&b, "  <li><a href=\"%s\">&#8226; &#8226; &#8226;</a></li>\n", more)
	b.WriteString("</ul></nav>")
	return b.String(), nil
}

func parseCount(s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid post count %q", s)
	}
	return n, nil
}
