package views

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/quillpost/quillpost/query"
)

// PostURL returns the canonical URL of a post.
func PostURL(cfg SiteConfig, slug string) string {
	return cfg.URL + "/post/" + slug
}

// SourceURL returns the URL of the raw post file.
func SourceURL(cfg SiteConfig, slug string) string {
	ext := cfg.PostExt
	if ext == "" {
		ext = "md"
	}
	return PostURL(cfg, slug) + "." + ext
}

// TagURL returns the URL of a tag listing.
func TagURL(cfg SiteConfig, tag string) string {
	return cfg.URL + "/tag/" + url.PathEscape(tag)
}

func pageTitle(cfg SiteConfig, meta PageMeta) string {
	if meta.Title == "" {
		return cfg.Name
	}
	return meta.Title + " - " + cfg.Name
}

func pageDescription(cfg SiteConfig, meta PageMeta) string {
	if meta.Description == "" {
		return cfg.Description
	}
	return meta.Description
}

func pageType(meta PageMeta) string {
	if meta.OGType == "" {
		return "website"
	}
	return meta.OGType
}

func postMeta(cfg SiteConfig, post query.Post) PageMeta {
	return PageMeta{
		Title:       post.Title,
		Description: post.PlainExcerpt(),
		URL:         PostURL(cfg, post.Slug),
		OGType:      "article",
	}
}

// postGroup is a run of consecutive posts sharing an archive section.
type postGroup struct {
	Name  string
	Posts []query.Post
}

// archiveGroups drains res into runs of posts updated in the same month.
func archiveGroups(res *query.Result) []postGroup {
	var groups []postGroup
	for p, ok := res.Next(); ok; p, ok = res.Next() {
		name := ArchiveGroup(p.Updated)
		if n := len(groups); n == 0 || groups[n-1].Name != name {
			groups = append(groups, postGroup{Name: name})
		}
		last := &groups[len(groups)-1]
		last.Posts = append(last.Posts, p)
	}
	return groups
}

func drain(res *query.Result) []query.Post {
	posts := make([]query.Post, 0, res.Len())
	for p, ok := res.Next(); ok; p, ok = res.Next() {
		posts = append(posts, p)
	}
	return posts
}

// FormatTime formats a timestamp like "Jul 5th, 2018 09:00:00".
func FormatTime(t time.Time) string {
	return fmt.Sprintf("%s %d%s, %s", t.Format("Jan"), t.Day(), ordinal(t.Day()), t.Format("2006 15:04:05"))
}

// FormatShortTime formats a timestamp like "July 5, 2018".
func FormatShortTime(t time.Time) string {
	return t.Format("January 2, 2006")
}

// ArchiveGroup returns the archive section a timestamp belongs to.
func ArchiveGroup(t time.Time) string {
	return t.Format("January 2006")
}

func ordinal(day int) string {
	if day >= 11 && day <= 13 {
		return "th"
	}
	switch day % 10 {
	case 1:
		return "st"
	case 2:
		return "nd"
	case 3:
		return "rd"
	}
	return "th"
}

// Plural returns noun, pluralized unless count is 1.
func Plural(count int, noun string) string {
	if count == 1 {
		return noun
	}
	return noun + "s"
}

// TextBrowser reports whether the user agent is a text-mode browser.
func TextBrowser(userAgent string) bool {
	for _, s := range []string{"Lynx", "w3m", "Links", "textmode"} {
		if strings.Contains(userAgent, s) {
			return true
		}
	}
	return false
}

// WebsiteJsonLD produces a Schema.org WebSite JSON-LD block using cfg values.
func WebsiteJsonLD(cfg SiteConfig) string {
	data := map[string]interface{}{
		"@context": "https://schema.org",
		"@type":    "WebSite",
		"name":     cfg.Name,
		"url":      cfg.URL + "/",
	}
	if cfg.Description != "" {
		data["description"] = cfg.Description
	}
	if cfg.Author != "" {
		data["author"] = map[string]string{
			"@type": "Person",
			"name":  cfg.Author,
		}
	}
	b, err := json.Marshal(data)
	if err != nil {
		return "{}"
	}
	return string(b)
}

// BlogPostingJsonLD produces a Schema.org BlogPosting JSON-LD block for a post.
func BlogPostingJsonLD(cfg SiteConfig, post query.Post) string {
	postURL := PostURL(cfg, post.Slug)
	data := map[string]interface{}{
		"@context":      "https://schema.org",
		"@type":         "BlogPosting",
		"headline":      post.Title,
		"description":   post.PlainExcerpt(),
		"datePublished": post.Published.Format(time.RFC3339),
		"dateModified":  post.Updated.Format(time.RFC3339),
		"url":           postURL,
		"publisher": map[string]string{
			"@type": "Organization",
			"name":  cfg.Name,
		},
		"mainEntityOfPage": map[string]string{
			"@type": "WebPage",
			"@id":   postURL,
		},
	}
	if cfg.Author != "" {
		data["author"] = map[string]string{
			"@type": "Person",
			"name":  cfg.Author,
		}
	}
	if len(post.Tags) > 0 {
		data["keywords"] = strings.Join(post.Tags.Labels(), ", ")
	}
	b, err := json.Marshal(data)
	if err != nil {
		return "{}"
	}
	return string(b)
}
