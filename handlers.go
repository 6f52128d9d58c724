package quillpost

import (
	"errors"
	"io"
	"io/fs"
	"net/http"
	"strings"

	"github.com/a-h/templ"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/quillpost/quillpost/link"
	"github.com/quillpost/quillpost/post"
	"github.com/quillpost/quillpost/query"
	"github.com/quillpost/quillpost/slug"
	"github.com/quillpost/quillpost/storage"
)

// listing returns the query behind the public post listings: visible posts,
// newest first, published before now.
func (a *App) listing() query.Spec {
	return query.Spec{
		Sort:            query.SortNewest,
		PublishedBefore: a.now(),
		MetaOnly:        true,
	}
}

func (a *App) handleHome(c echo.Context) error {
	ctx := c.Request().Context()
	source, err := a.readItem(c, a.Config.PagesRoot, a.Config.HomePage)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return echo.ErrNotFound
		}
		return err
	}
	html, err := a.Pages.Render(ctx, source, link.ForSite(a.Config.URL))
	if err != nil {
		return err
	}
	return Render(c, a.Views.Home(a.site(), templ.Raw(html)))
}

func (a *App) handlePost(c echo.Context) error {
	s := c.Param("slug")
	if name, ok := strings.CutSuffix(s, "."+a.Engine.Ext); ok {
		return a.handleSource(c, name)
	}
	if !slug.Valid(s) {
		return echo.ErrNotFound
	}
	ctx := c.Request().Context()
	res, err := a.Engine.Query(ctx, a.Config.PostsRoot, query.Spec{Slug: s, IncludeHidden: true})
	if err != nil {
		return err
	}
	p, ok := res.Next()
	if !ok {
		return echo.ErrNotFound
	}
	html, err := a.Posts.Render(ctx, p.Excerpt+"\n\n"+p.Content, link.ForPost(a.Config.URL, p.Slug))
	if err != nil {
		return err
	}
	return Render(c, a.Views.Post(a.site(), p, templ.Raw(html)))
}

// handleSource serves the raw file of a valid post.
func (a *App) handleSource(c echo.Context, s string) error {
	if !slug.Valid(s) {
		return echo.ErrNotFound
	}
	ctx := c.Request().Context()
	res, err := a.Engine.Query(ctx, a.Config.PostsRoot, query.Spec{Slug: s, IncludeHidden: true, MetaOnly: true})
	if err != nil {
		return err
	}
	if res.Empty() {
		return echo.ErrNotFound
	}
	source, err := a.readItem(c, a.Config.PostsRoot, a.Engine.ID(s))
	if err != nil {
		return err
	}
	return c.String(http.StatusOK, source)
}

func (a *App) handleMedia(c echo.Context) error {
	file := c.Param("file")
	if !slug.Valid(c.Param("slug")) || !storage.ValidID(file) {
		return echo.ErrNotFound
	}
	rc, err := a.Storage.Open(c.Request().Context(), a.Config.MediaRoot, file)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return echo.ErrNotFound
		}
		return err
	}
	defer rc.Close()
	contentType, body, err := mediaType(file, rc)
	if err != nil {
		return err
	}
	return c.Stream(http.StatusOK, contentType, body)
}

func (a *App) handleTag(c echo.Context) error {
	tag := c.Param("tag")
	if !slug.Valid(tag) {
		return echo.ErrNotFound
	}
	spec := a.listing()
	spec.Tag = tag
	res, err := a.Engine.Query(c.Request().Context(), a.Config.PostsRoot, spec)
	if err != nil {
		return err
	}
	return Render(c, a.Views.Tag(a.site(), tag, res))
}

func (a *App) handleArchive(c echo.Context) error {
	res, err := a.Engine.Query(c.Request().Context(), a.Config.PostsRoot, a.listing())
	if err != nil {
		return err
	}
	return Render(c, a.Views.Archive(a.site(), res))
}

func (a *App) handleFeed(c echo.Context) error {
	spec := a.listing()
	spec.Limit = a.Config.FeedSize
	res, err := a.Engine.Query(c.Request().Context(), a.Config.PostsRoot, spec)
	if err != nil {
		return err
	}
	return a.renderRSS(c, res)
}

func (a *App) handleSitemap(c echo.Context) error {
	ctx := c.Request().Context()
	spec := a.listing()
	res, err := a.Engine.Query(ctx, a.Config.PostsRoot, spec)
	if err != nil {
		return err
	}
	tags, err := a.Engine.Tags(ctx, a.Config.PostsRoot, spec.PublishedBefore)
	if err != nil {
		return err
	}
	return a.renderSitemap(c, res, tags)
}

func (a *App) handleRobots(c echo.Context) error {
	var b strings.Builder
	b.WriteString("# robots.txt for " + a.Config.URL + "\n\n")
	b.WriteString("User-agent: *\n")
	b.WriteString("Crawl-delay: 10\n\n")
	b.WriteString("Sitemap: " + a.Config.URL + "/sitemap.xml\n")
	return c.String(http.StatusOK, b.String())
}

func (a *App) handleTime(c echo.Context) error {
	return c.String(http.StatusOK, a.now().UTC().Format("2006-01-02T15:04:05-0700"))
}

func (a *App) handleMetrics() echo.HandlerFunc {
	return echo.WrapHandler(promhttp.HandlerFor(a.Metrics.Registry, promhttp.HandlerOpts{}))
}

// readItem reads a whole storage item, capped at the post size limit.
func (a *App) readItem(c echo.Context, root, id string) (string, error) {
	rc, err := a.Storage.Open(c.Request().Context(), root, id)
	if err != nil {
		return "", err
	}
	defer rc.Close()
	b, err := io.ReadAll(io.LimitReader(rc, post.MaxSize))
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (a *App) httpErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	var he *echo.HTTPError
	ok := errors.As(err, &he)
	if ok && he.Code == http.StatusNotFound {
		_ = RenderStatus(c, http.StatusNotFound, a.Views.NotFound(a.site()))
		return
	}
	code := http.StatusInternalServerError
	if ok {
		code = he.Code
	}
	if code >= 500 {
		a.Logger.Error().Err(err).
			Str("method", c.Request().Method).
			Str("uri", c.Request().RequestURI).
			Msg("server error")
		_ = RenderStatus(c, code, a.Views.ServerError(a.site()))
		return
	}
	a.Echo.DefaultHTTPErrorHandler(err, c)
}
