package quillpost

//go:generate go run github.com/a-h/templ/cmd/templ@v0.3.960 generate -path views

import (
	"github.com/a-h/templ"

	"github.com/quillpost/quillpost/query"
	"github.com/quillpost/quillpost/views"
)

// ViewFuncs holds the templ components the handlers render. Sites can swap
// any of them with WithViews; DefaultViews provides the built-in pages.
type ViewFuncs struct {
	Home        func(cfg views.SiteConfig, content templ.Component) templ.Component
	Post        func(cfg views.SiteConfig, post query.Post, body templ.Component) templ.Component
	Archive     func(cfg views.SiteConfig, res *query.Result) templ.Component
	Tag         func(cfg views.SiteConfig, tag string, res *query.Result) templ.Component
	NotFound    func(cfg views.SiteConfig) templ.Component
	ServerError func(cfg views.SiteConfig) templ.Component
}

// DefaultViews returns the built-in page templates.
func DefaultViews() ViewFuncs {
	return ViewFuncs{
		Home:        views.Home,
		Post:        views.Post,
		Archive:     views.Archive,
		Tag:         views.Tag,
		NotFound:    views.NotFound,
		ServerError: views.ServerError,
	}
}

// withDefaults fills the components a partial ViewFuncs leaves nil.
func (v ViewFuncs) withDefaults() ViewFuncs {
	d := DefaultViews()
	if v.Home == nil {
		v.Home = d.Home
	}
	if v.Post == nil {
		v.Post = d.Post
	}
	if v.Archive == nil {
		v.Archive = d.Archive
	}
	if v.Tag == nil {
		v.Tag = d.Tag
	}
	if v.NotFound == nil {
		v.NotFound = d.NotFound
	}
	if v.ServerError == nil {
		v.ServerError = d.ServerError
	}
	return v
}
