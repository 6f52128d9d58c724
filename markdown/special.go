package markdown

import (
	"regexp"
	"strings"

	"git.sr.ht/~mekyt/latex2mathml"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"
)

// SpecialFunc renders the verbatim body of a special fenced block to HTML.
type SpecialFunc func(code string) string

var reEquationBreak = regexp.MustCompile(`\s*(?:\\\\)?\s*\n\s*`)

// KatexMath wraps an equation in a paragraph for client-side rendering. The
// title holds the equation on a single line.
func KatexMath(code string) string {
	title := reEquationBreak.ReplaceAllString(code, " ")
	return `<p class="equation" title="` + string(util.EscapeHTML([]byte(title))) + `">` +
		string(util.EscapeHTML([]byte(code))) + `</p>`
}

// MathML converts a LaTeX equation to a MathML block.
func MathML(code string) string {
	return latex2mathml.Convert(code, "http://www.w3.org/1998/Math/MathML", "block", 2)
}

type specialBlocks struct {
	funcs map[string]SpecialFunc
}

func (e *specialBlocks) Extend(m goldmark.Markdown) {
	m.Parser().AddOptions(
		parser.WithASTTransformers(
			util.Prioritized(&specialTransformer{funcs: e.funcs}, 100),
		),
	)
	m.Renderer().AddOptions(
		renderer.WithNodeRenderers(
			util.Prioritized(&specialRenderer{funcs: e.funcs}, 100),
		),
	)
}

type specialNode struct {
	ast.BaseBlock
	Lang string
}

var kindSpecial = ast.NewNodeKind("SpecialBlock")

func (n *specialNode) Kind() ast.NodeKind { return kindSpecial }

func (n *specialNode) Dump(source []byte, level int) {
	ast.DumpHelper(n, source, level, map[string]string{"Lang": n.Lang}, nil)
}

// specialTransformer replaces fenced code blocks of a special type.
type specialTransformer struct {
	funcs map[string]SpecialFunc
}

func (t *specialTransformer) Transform(document *ast.Document, reader text.Reader, _ parser.Context) {
	var blocks []*ast.FencedCodeBlock
	_ = ast.Walk(document, func(node ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		block, ok := node.(*ast.FencedCodeBlock)
		if !ok {
			return ast.WalkContinue, nil
		}
		if _, ok := t.funcs[string(block.Language(reader.Source()))]; ok {
			blocks = append(blocks, block)
		}
		return ast.WalkSkipChildren, nil
	})
	for _, block := range blocks {
		parent := block.Parent()
		if parent == nil {
			continue
		}
		node := &specialNode{Lang: string(block.Language(reader.Source()))}
		node.SetLines(block.Lines())
		parent.ReplaceChild(parent, block, node)
	}
}

type specialRenderer struct {
	funcs map[string]SpecialFunc
}

func (r *specialRenderer) RegisterFuncs(reg renderer.NodeRendererFuncRegisterer) {
	reg.Register(kindSpecial, func(w util.BufWriter, source []byte, node ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		n := node.(*specialNode)
		var b strings.Builder
		lines := n.Lines()
		for i := 0; i < lines.Len(); i++ {
			line := lines.At(i)
			b.Write(line.Value(source))
		}
		_, _ = w.WriteString(r.funcs[n.Lang](strings.TrimRight(b.String(), "\n")))
		_ = w.WriteByte('\n')
		return ast.WalkContinue, nil
	})
}
