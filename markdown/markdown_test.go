package markdown

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"

	"github.com/quillpost/quillpost/link"
	"github.com/quillpost/quillpost/module"
)

var testBases = link.Bases{
	Relative: "https://mydomain.com/some-folder/",
	Absolute: "https://mydomain.com",
}

func render(t *testing.T, r *Renderer, source string) string {
	t.Helper()
	got, err := r.Render(context.Background(), source, testBases)
	if err != nil {
		t.Fatalf("Render(%q) failed: %v", source, err)
	}
	return got
}

func TestRenderParagraph(t *testing.T) {
	r := New(Options{})
	if got := render(t, r, "Test paragraph."); got != "<p>Test paragraph.</p>" {
		t.Errorf("got %q", got)
	}
}

func TestRenderLinks(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{
			"[Link](https://otherpage.com/)",
			`<p><a href="https://otherpage.com/" target="_blank" class="external">Link</a></p>`,
		},
		{
			"[Absolute Link](/some-page)",
			`<p><a href="https://mydomain.com/some-page">Absolute Link</a></p>`,
		},
		{
			"[Relative Link](some-document.txt)",
			`<p><a href="https://mydomain.com/some-folder/some-document.txt">Relative Link</a></p>`,
		},
		{
			`![Image](https://otherpage.com/img.gif "Image title")`,
			`<p><img src="https://otherpage.com/img.gif" alt="Image" title="Image title" /></p>`,
		},
		{
			`![Absolute Image](/some-image.gif "Image Title")`,
			`<p><img src="https://mydomain.com/some-image.gif" alt="Absolute Image" title="Image Title" /></p>`,
		},
		{
			`![Relative Image](some-image.gif "Image Title")`,
			`<p><img src="https://mydomain.com/some-folder/some-image.gif" alt="Relative Image" title="Image Title" /></p>`,
		},
	}
	r := New(Options{})
	for _, tt := range tests {
		if got := render(t, r, tt.input); got != tt.expected {
			t.Errorf("Render(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}

func TestRenderReferenceLink(t *testing.T) {
	r := New(Options{})
	got := render(t, r, "See [the docs][d].\n\n[d]: docs/index.html")
	want := `<p>See <a href="https://mydomain.com/some-folder/docs/index.html">the docs</a>.</p>`
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

type ctxKey struct{}

func testRegistry(t *testing.T) *module.Registry {
	t.Helper()
	reg := module.NewRegistry(zerolog.Nop())
	if err := reg.Register("echo", func(args string) (module.Module, error) {
		return module.Func(func(ctx context.Context) (string, error) {
			if v, ok := ctx.Value(ctxKey{}).(string); ok {
				return "<b>" + v + ":" + args + "</b>", nil
			}
			return "<b>" + args + "</b>", nil
		}), nil
	}); err != nil {
		t.Fatal(err)
	}
	return reg
}

func TestRenderModules(t *testing.T) {
	r := New(Options{Modules: testRegistry(t)})
	tests := []struct {
		input    string
		expected string
	}{
		{"Before [[echo: world]] after", "<p>Before <b>world</b> after</p>"},
		{"[[ echo :spaced ]]", "<p><b>spaced </b></p>"},
		{`[[echo: a\]] b]]`, "<p><b>a]] b</b></p>"},
		{"[[echo: x]] and [[echo: y]]", "<p><b>x</b> and <b>y</b></p>"},
		{"a [[unknown: x]] b", "<p>a  b</p>"},
		{"[[Echo: x]]", "<p>[[Echo: x]]</p>"},
		{"[link](/x) [[echo: 1]]", `<p><a href="https://mydomain.com/x">link</a> <b>1</b></p>`},
	}
	for _, tt := range tests {
		if got := render(t, r, tt.input); got != tt.expected {
			t.Errorf("Render(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}

func TestRenderModulesReceiveContext(t *testing.T) {
	r := New(Options{Modules: testRegistry(t)})
	ctx := context.WithValue(context.Background(), ctxKey{}, "req")
	got, err := r.Render(ctx, "[[echo: x]]", testBases)
	if err != nil {
		t.Fatal(err)
	}
	if got != "<p><b>req:x</b></p>" {
		t.Errorf("got %q", got)
	}
}

func TestRenderModulesWithoutRegistry(t *testing.T) {
	r := New(Options{})
	if got := render(t, r, "x[[echo: y]]z"); got != "<p>xz</p>" {
		t.Errorf("got %q", got)
	}
}

func TestUnescape(t *testing.T) {
	tests := map[string]string{
		`plain`:     "plain",
		`a\]]`:      "a]]",
		`tab\there`: "tab\there",
		`back\\`:    `back\`,
		`trailing\`: `trailing\`,
	}
	for in, want := range tests {
		if got := unescape(in); got != want {
			t.Errorf("unescape(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestRenderInlineMath(t *testing.T) {
	r := New(Options{})
	got := render(t, r, "Energy $`E=mc^2 < x`$ here")
	want := `<p>Energy <span title="E=mc^2 &lt; x" class="equation">E=mc^2 &lt; x</span> here</p>`
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
	if got := render(t, r, "costs $5 and $6"); got != "<p>costs $5 and $6</p>" {
		t.Errorf("dollar signs altered: %q", got)
	}
}

func TestRenderMathBlock(t *testing.T) {
	r := New(Options{})
	got := render(t, r, "```math\na < b \\\\\nc\n```")
	want := `<p class="equation" title="a &lt; b c">a &lt; b \\` + "\n" + `c</p>`
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestSpecialBlockNode(t *testing.T) {
	r := New(Options{})
	source := []byte("Intro\n\n```math\nx + y\n```\n")
	doc := r.md.Parser().Parse(text.NewReader(source))
	var n ast.Node = doc.LastChild()
	special, ok := n.(*specialNode)
	if !ok {
		t.Fatalf("last block is %T, want *specialNode", n)
	}
	if special.Lang != "math" {
		t.Errorf("Lang = %q, want math", special.Lang)
	}
	if special.Kind() != kindSpecial || special.Type() != ast.TypeBlock {
		t.Errorf("unexpected node kind %v or type %v", special.Kind(), special.Type())
	}
	if special.Lines().Len() != 1 {
		t.Errorf("lines = %d, want 1", special.Lines().Len())
	}
}

func TestRenderMathMLBlock(t *testing.T) {
	r := New(Options{})
	got := render(t, r, "```mathml\nx^2\n```")
	if !strings.Contains(got, "http://www.w3.org/1998/Math/MathML") {
		t.Errorf("expected MathML output, got %q", got)
	}
	if strings.Contains(got, "<pre") {
		t.Errorf("special block rendered as code: %q", got)
	}
}

func TestRenderCustomSpecialBlock(t *testing.T) {
	r := New(Options{
		CodeStyle: "none",
		Special: map[string]SpecialFunc{
			"shout": func(code string) string { return "<p>" + strings.ToUpper(code) + "</p>" },
			"math":  nil,
		},
	})
	if got := render(t, r, "```shout\nhey\n```"); got != "<p>HEY</p>" {
		t.Errorf("custom block = %q", got)
	}
	got := render(t, r, "```math\nx\n```")
	if !strings.Contains(got, `<pre><code class="language-math">x`) {
		t.Errorf("disabled special type should render as code, got %q", got)
	}
}

func TestRenderCodeBlock(t *testing.T) {
	r := New(Options{CodeStyle: "none"})
	got := render(t, r, "```\n<x>\n```")
	if got != "<pre><code>&lt;x&gt;\n</code></pre>" {
		t.Errorf("got %q", got)
	}

	r = New(Options{})
	got = render(t, r, "```go\nfunc main() {}\n```")
	if !strings.Contains(got, "<pre") || !strings.Contains(got, "func") {
		t.Errorf("highlighted block = %q", got)
	}
}

func TestRenderComments(t *testing.T) {
	source := "<!-- hidden\nnote -->\n\nText"
	if got := render(t, New(Options{}), source); got != "<!-- hidden\nnote -->\n<p>Text</p>" {
		t.Errorf("unsafe = %q", got)
	}
	safe := New(Options{Safe: true})
	if got := render(t, safe, source); got != "<p>Text</p>" {
		t.Errorf("safe = %q", got)
	}
	if !safe.Safe() {
		t.Error("Safe() = false")
	}
}

func TestRenderSafeDropsRawHTML(t *testing.T) {
	got := render(t, New(Options{Safe: true}), "a <script>x</script> b")
	if strings.Contains(got, "<script>") {
		t.Errorf("raw HTML kept in safe mode: %q", got)
	}
	got = render(t, New(Options{}), "a <b>x</b> b")
	if got != "<p>a <b>x</b> b</p>" {
		t.Errorf("raw HTML altered: %q", got)
	}
}

func TestRenderExtensions(t *testing.T) {
	r := New(Options{})
	tests := []struct {
		input    string
		contains string
	}{
		{"| a | b |\n|---|---|\n| 1 | 2 |", "<table>"},
		{"~~gone~~", "<del>gone</del>"},
		{"Claim[^1].\n\n[^1]: Source.", `class="footnote-ref"`},
		{"::: {.note}\ninside\n:::", "<div"},
		{"# Heading", "<h1"},
	}
	for _, tt := range tests {
		if got := render(t, r, tt.input); !strings.Contains(got, tt.contains) {
			t.Errorf("Render(%q) = %q, want it to contain %q", tt.input, got, tt.contains)
		}
	}
}

func TestComponent(t *testing.T) {
	r := New(Options{})
	var buf bytes.Buffer
	if err := r.Component("[a](b)", testBases).Render(context.Background(), &buf); err != nil {
		t.Fatal(err)
	}
	want := "<p><a href=\"https://mydomain.com/some-folder/b\">a</a></p>\n"
	if buf.String() != want {
		t.Errorf("got %q, want %q", buf.String(), want)
	}
}

func TestKatexMath(t *testing.T) {
	if got := KatexMath(`"q"`); got != `<p class="equation" title="&quot;q&quot;">&quot;q&quot;</p>` {
		t.Errorf("got %q", got)
	}
}
