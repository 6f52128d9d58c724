// Package markdown renders post content to HTML with goldmark. Besides
// CommonMark with tables, strikethrough, footnotes and fenced divs it:
//
//   - rewrites link and image targets with the link classifier,
//   - expands [[name: args]] invocations through a module registry,
//   - renders $`...`$ and ```math blocks as equations,
//   - keeps <!-- comment --> blocks unless running in safe mode.
package markdown

import (
	"bytes"
	"context"
	"io"
	"strings"

	"github.com/a-h/templ"
	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	fences "github.com/stefanfritsch/goldmark-fences"
	"github.com/yuin/goldmark"
	highlighting "github.com/yuin/goldmark-highlighting/v2"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer"
	goldmarkhtml "github.com/yuin/goldmark/renderer/html"

	"github.com/quillpost/quillpost/link"
	"github.com/quillpost/quillpost/module"
)

// DefaultCodeStyle is the chroma style used for fenced code.
const DefaultCodeStyle = "onedark"

// Options configures a Renderer.
type Options struct {
	// Modules expands [[name: args]] invocations. A nil registry renders
	// every invocation as the empty string.
	Modules *module.Registry
	// Safe drops raw HTML, including comment blocks.
	Safe bool
	// CodeStyle is the chroma style name. "none" disables highlighting.
	CodeStyle string
	// Special adds or replaces fenced block types that bypass code
	// rendering. The built-in types are "math" and "mathml".
	Special map[string]SpecialFunc
}

// Renderer converts markdown to HTML. It is safe for concurrent use.
type Renderer struct {
	md   goldmark.Markdown
	safe bool
}

type renderState struct {
	ctx   context.Context
	bases link.Bases
}

var stateKey = parser.NewContextKey()

func stateOf(pc parser.Context) renderState {
	if s, ok := pc.Get(stateKey).(renderState); ok {
		return s
	}
	return renderState{ctx: context.Background()}
}

// New builds a Renderer.
func New(opts Options) *Renderer {
	special := map[string]SpecialFunc{
		"math":   KatexMath,
		"mathml": MathML,
	}
	for name, fn := range opts.Special {
		if fn == nil {
			delete(special, name)
			continue
		}
		special[name] = fn
	}

	extensions := []goldmark.Extender{
		extension.Table,
		extension.Strikethrough,
		extension.Footnote,
		&fences.Extender{},
		&specialBlocks{funcs: special},
		&inlineExtension{modules: opts.Modules},
		&linkExtension{},
	}
	style := opts.CodeStyle
	if style == "" {
		style = DefaultCodeStyle
	}
	if style != "none" {
		extensions = append(extensions, highlighting.NewHighlighting(
			highlighting.WithStyle(style),
			highlighting.WithFormatOptions(chromahtml.TabWidth(2)),
		))
	}
	if opts.Safe {
		extensions = append(extensions, &dropComments{})
	}

	rendererOptions := []renderer.Option{goldmarkhtml.WithXHTML()}
	if !opts.Safe {
		rendererOptions = append(rendererOptions, goldmarkhtml.WithUnsafe())
	}

	return &Renderer{
		md: goldmark.New(
			goldmark.WithExtensions(extensions...),
			goldmark.WithRendererOptions(rendererOptions...),
		),
		safe: opts.Safe,
	}
}

// Safe reports whether raw HTML is dropped.
func (r *Renderer) Safe() bool { return r.safe }

// Render converts source to HTML, resolving site-local link targets against
// bases. Module invocations run with ctx.
func (r *Renderer) Render(ctx context.Context, source string, bases link.Bases) (string, error) {
	var buf bytes.Buffer
	if err := r.Convert(ctx, &buf, source, bases); err != nil {
		return "", err
	}
	return strings.TrimSpace(buf.String()), nil
}

// Convert writes the HTML of source to w.
func (r *Renderer) Convert(ctx context.Context, w io.Writer, source string, bases link.Bases) error {
	pc := parser.NewContext()
	pc.Set(stateKey, renderState{ctx: ctx, bases: bases})
	return r.md.Convert([]byte(source), w, parser.WithContext(pc))
}

// Component returns a templ.Component that renders source as HTML.
func (r *Renderer) Component(source string, bases link.Bases) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		return r.Convert(ctx, w, source, bases)
	})
}
