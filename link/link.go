// Package link classifies link and image targets found in post content and
// rewrites site-local ones against the page's bases.
package link

import "net/url"

// Kind is the class of a link target.
type Kind int

const (
	// SiteRelative targets are resolved against the relative base.
	SiteRelative Kind = iota
	// SiteAbsolute targets start with "/" and are resolved against the
	// absolute base.
	SiteAbsolute
	// External targets carry a scheme or host and are left untouched.
	External
)

func (k Kind) String() string {
	switch k {
	case SiteAbsolute:
		return "site-absolute"
	case External:
		return "external"
	default:
		return "site-relative"
	}
}

// Result is a classified target.
type Result struct {
	Kind Kind
	URL  string
}

// NewTab reports whether the target should open in a new browsing context.
func (r Result) NewTab() bool { return r.Kind == External }

// Classify classifies target and rewrites it when it points inside the site.
func Classify(target, relativeBase, absoluteBase string) Result {
	if isExternal(target) {
		return Result{Kind: External, URL: target}
	}
	if len(target) > 0 && target[0] == '/' {
		return Result{Kind: SiteAbsolute, URL: absoluteBase + target}
	}
	return Result{Kind: SiteRelative, URL: relativeBase + target}
}

func isExternal(target string) bool {
	u, err := url.Parse(target)
	if err != nil {
		// Unparseable targets are kept inside the site.
		return false
	}
	return u.Scheme != "" || u.Host != ""
}

// Bases holds the prefixes site-local targets are resolved against.
type Bases struct {
	// Relative is prepended to relative targets, normally ending with "/".
	Relative string
	// Absolute is prepended to targets starting with "/", normally the
	// site URL without a trailing slash.
	Absolute string
}

// Classify classifies target against b.
func (b Bases) Classify(target string) Result {
	return Classify(target, b.Relative, b.Absolute)
}

// ForSite returns the bases used for pages living at the site root.
func ForSite(siteURL string) Bases {
	return Bases{Relative: siteURL + "/", Absolute: siteURL}
}

// ForPost returns the bases used when rendering the post with the given slug.
// Relative targets resolve inside the post's own directory.
func ForPost(siteURL, slug string) Bases {
	return Bases{Relative: siteURL + "/post/" + slug + "/", Absolute: siteURL}
}
