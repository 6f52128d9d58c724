package markdown

import (
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"

	"github.com/quillpost/quillpost/link"
)

type linkExtension struct{}

func (e *linkExtension) Extend(m goldmark.Markdown) {
	m.Parser().AddOptions(
		parser.WithASTTransformers(
			util.Prioritized(linkTransformer{}, 100),
		),
	)
}

// linkTransformer rewrites link and image destinations with the bases of the
// current render and marks external links.
type linkTransformer struct{}

var _ parser.ASTTransformer = linkTransformer{}

func (t linkTransformer) Transform(document *ast.Document, _ text.Reader, pc parser.Context) {
	bases := stateOf(pc).bases
	_ = ast.Walk(document, func(node ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch n := node.(type) {
		case *ast.Link:
			res := bases.Classify(string(n.Destination))
			n.Destination = []byte(res.URL)
			if res.Kind == link.External {
				n.SetAttributeString("target", []byte("_blank"))
				n.SetAttributeString("class", []byte("external"))
			}
		case *ast.Image:
			n.Destination = []byte(bases.Classify(string(n.Destination)).URL)
		}
		return ast.WalkContinue, nil
	})
}
