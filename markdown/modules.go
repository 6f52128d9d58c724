package markdown

import (
	"regexp"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"

	"github.com/quillpost/quillpost/module"
)

// inlineExtension adds module invocations and inline equations.
type inlineExtension struct {
	modules *module.Registry
}

func (e *inlineExtension) Extend(m goldmark.Markdown) {
	m.Parser().AddOptions(
		parser.WithInlineParsers(
			// Ahead of the link parser, which also triggers on '['.
			util.Prioritized(&moduleParser{modules: e.modules}, 99),
			util.Prioritized(inlineMathParser{}, 99),
		),
	)
	m.Renderer().AddOptions(
		renderer.WithNodeRenderers(
			util.Prioritized(inlineRenderer{}, 100),
		),
	)
}

// An invocation is [[name: args]]. A "]" in args is escaped with a backslash.
var reModule = regexp.MustCompile(`^\[\[\s*([a-z0-9][a-z0-9-]*)\s*:\s*(.*?[^\\])\]\]`)

// moduleNode holds the output of a module, produced while parsing.
type moduleNode struct {
	ast.BaseInline
	Name   string
	Args   string
	Output string
}

var kindModule = ast.NewNodeKind("Module")

func (n *moduleNode) Kind() ast.NodeKind { return kindModule }

func (n *moduleNode) Dump(source []byte, level int) {
	ast.DumpHelper(n, source, level, map[string]string{"Name": n.Name, "Args": n.Args}, nil)
}

type moduleParser struct {
	modules *module.Registry
}

func (p *moduleParser) Trigger() []byte { return []byte{'['} }

func (p *moduleParser) Parse(_ ast.Node, block text.Reader, pc parser.Context) ast.Node {
	line, _ := block.PeekLine()
	m := reModule.FindSubmatch(line)
	if m == nil {
		return nil
	}
	block.Advance(len(m[0]))
	name, args := string(m[1]), unescape(string(m[2]))
	return &moduleNode{
		Name:   name,
		Args:   args,
		Output: p.modules.Render(stateOf(pc).ctx, name, args),
	}
}

// unescape resolves backslash escapes in module arguments.
func unescape(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\\' || i == len(s)-1 {
			b.WriteByte(c)
			continue
		}
		i++
		switch s[i] {
		case 'n':
			b.WriteByte('\n')
		case 't':
			b.WriteByte('\t')
		case 'r':
			b.WriteByte('\r')
		default:
			b.WriteByte(s[i])
		}
	}
	return b.String()
}

var reInlineMath = regexp.MustCompile("^\\$`([^$]*)`\\$")

type inlineMathNode struct {
	ast.BaseInline
	Equation string
}

var kindInlineMath = ast.NewNodeKind("InlineMath")

func (n *inlineMathNode) Kind() ast.NodeKind { return kindInlineMath }

func (n *inlineMathNode) Dump(source []byte, level int) {
	ast.DumpHelper(n, source, level, map[string]string{"Equation": n.Equation}, nil)
}

type inlineMathParser struct{}

func (inlineMathParser) Trigger() []byte { return []byte{'$'} }

func (inlineMathParser) Parse(_ ast.Node, block text.Reader, _ parser.Context) ast.Node {
	line, _ := block.PeekLine()
	m := reInlineMath.FindSubmatch(line)
	if m == nil {
		return nil
	}
	block.Advance(len(m[0]))
	return &inlineMathNode{Equation: string(m[1])}
}

type inlineRenderer struct{}

func (inlineRenderer) RegisterFuncs(reg renderer.NodeRendererFuncRegisterer) {
	reg.Register(kindModule, func(w util.BufWriter, _ []byte, node ast.Node, entering bool) (ast.WalkStatus, error) {
		if entering {
			_, _ = w.WriteString(node.(*moduleNode).Output)
		}
		return ast.WalkSkipChildren, nil
	})
	reg.Register(kindInlineMath, func(w util.BufWriter, _ []byte, node ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkSkipChildren, nil
		}
		eq := util.EscapeHTML([]byte(node.(*inlineMathNode).Equation))
		_, _ = w.WriteString(`<span title="`)
		_, _ = w.Write(eq)
		_, _ = w.WriteString(`" class="equation">`)
		_, _ = w.Write(eq)
		_, _ = w.WriteString(`</span>`)
		return ast.WalkSkipChildren, nil
	})
}
