package quillpost

import (
	"encoding/xml"

	"github.com/labstack/echo/v4"

	"github.com/quillpost/quillpost/query"
	"github.com/quillpost/quillpost/views"
)

type sitemapURLSet struct {
	XMLName xml.Name     `xml:"urlset"`
	XMLNS   string       `xml:"xmlns,attr"`
	URLs    []sitemapURL `xml:"url"`
}

type sitemapURL struct {
	Loc     string `xml:"loc"`
	LastMod string `xml:"lastmod,omitempty"`
}

func (a *App) renderSitemap(c echo.Context, res *query.Result, tags []query.TagCount) error {
	site := a.site()
	urls := []sitemapURL{
		{Loc: site.URL + "/"},
		{Loc: site.URL + "/archive"},
	}
	for p, ok := res.Next(); ok; p, ok = res.Next() {
		urls = append(urls, sitemapURL{
			Loc:     views.PostURL(site, p.Slug),
			LastMod: p.Updated.Format("2006-01-02"),
		})
	}
	for _, t := range tags {
		urls = append(urls, sitemapURL{Loc: views.TagURL(site, t.Slug)})
	}
	sitemap := sitemapURLSet{
		XMLNS: "http://www.sitemaps.org/schemas/sitemap/0.9",
		URLs:  urls,
	}
	return renderXML(c, "application/xml; charset=utf-8", sitemap)
}
