package markdown

import (
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"
)

// dropComments removes <!-- comment --> blocks. In safe mode goldmark would
// otherwise leave a placeholder comment in their place.
type dropComments struct{}

func (e *dropComments) Extend(m goldmark.Markdown) {
	m.Parser().AddOptions(
		parser.WithASTTransformers(
			util.Prioritized(commentTransformer{}, 100),
		),
	)
}

type commentTransformer struct{}

func (commentTransformer) Transform(document *ast.Document, _ text.Reader, _ parser.Context) {
	var comments []ast.Node
	_ = ast.Walk(document, func(node ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		if block, ok := node.(*ast.HTMLBlock); ok && block.HTMLBlockType == ast.HTMLBlockType2 {
			comments = append(comments, block)
		}
		return ast.WalkContinue, nil
	})
	for _, node := range comments {
		if parent := node.Parent(); parent != nil {
			parent.RemoveChild(parent, node)
		}
	}
}
