package quillpost

import (
	"encoding/xml"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/quillpost/quillpost/query"
	"github.com/quillpost/quillpost/views"
)

type rssXML struct {
	XMLName xml.Name   `xml:"rss"`
	Version string     `xml:"version,attr"`
	Atom    string     `xml:"xmlns:atom,attr"`
	Channel rssChannel `xml:"channel"`
}

type rssChannel struct {
	Title       string    `xml:"title"`
	Link        string    `xml:"link"`
	Description string    `xml:"description"`
	Self        atomLink  `xml:"atom:link"`
	Items       []rssItem `xml:"item"`
}

type atomLink struct {
	Href string `xml:"href,attr"`
	Rel  string `xml:"rel,attr"`
	Type string `xml:"type,attr"`
}

type rssItem struct {
	Title       string  `xml:"title"`
	Link        string  `xml:"link"`
	Description string  `xml:"description"`
	PubDate     string  `xml:"pubDate"`
	GUID        rssGUID `xml:"guid"`
}

type rssGUID struct {
	IsPermaLink bool   `xml:"isPermaLink,attr"`
	Value       string `xml:",chardata"`
}

func (a *App) renderRSS(c echo.Context, res *query.Result) error {
	site := a.site()
	items := make([]rssItem, 0, res.Len())
	for p, ok := res.Next(); ok; p, ok = res.Next() {
		items = append(items, rssItem{
			Title:       p.Title,
			Link:        views.PostURL(site, p.Slug),
			Description: p.PlainExcerpt(),
			PubDate:     p.Published.Format(time.RFC1123Z),
			// "<slug>,<published unix time>"
			GUID: rssGUID{Value: p.Slug + "," + strconv.FormatInt(p.Published.Unix(), 10)},
		})
	}
	feed := rssXML{
		Version: "2.0",
		Atom:    "http://www.w3.org/2005/Atom",
		Channel: rssChannel{
			Title:       a.Config.Name,
			Link:        a.Config.URL,
			Description: a.Config.Description,
			Self: atomLink{
				Href: a.Config.URL + "/rss.xml",
				Rel:  "self",
				Type: "application/rss+xml",
			},
			Items: items,
		},
	}
	return renderXML(c, "application/rss+xml; charset=utf-8", feed)
}
