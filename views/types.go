package views

// SiteConfig holds the site-wide settings every page needs.
type SiteConfig struct {
	Name        string // QUILLPOST_NAME
	URL         string // QUILLPOST_URL, without a trailing slash
	Description string // QUILLPOST_DESCRIPTION
	Author      string // QUILLPOST_AUTHOR
	PostExt     string // QUILLPOST_POST_EXT, "md" when empty
}

// PageMeta carries per-page OpenGraph and SEO metadata into the <head>.
type PageMeta struct {
	Title       string
	Description string
	URL         string // canonical + og:url
	OGType      string // "website" or "article"
}
