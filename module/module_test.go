package module

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/quillpost/quillpost/query"
	"github.com/quillpost/quillpost/storage"
)

func static(out string) Factory {
	return func(string) (Module, error) {
		return Func(func(context.Context) (string, error) { return out, nil }), nil
	}
}

func TestRegistryRender(t *testing.T) {
	r := NewRegistry(zerolog.Nop())
	var gotArgs string
	if err := r.Register("echo", func(args string) (Module, error) {
		gotArgs = args
		return Func(func(context.Context) (string, error) { return "<b>" + args + "</b>", nil }), nil
	}); err != nil {
		t.Fatal(err)
	}
	if got := r.Render(context.Background(), "echo", "a; b]]"); got != "<b>a; b]]</b>" {
		t.Errorf("Render = %q", got)
	}
	if gotArgs != "a; b]]" {
		t.Errorf("factory args = %q, want raw argument string", gotArgs)
	}
}

func TestRegistryUnknownModule(t *testing.T) {
	var buf bytes.Buffer
	r := NewRegistry(zerolog.New(&buf))
	var outcomes []string
	r.OnRender = func(name, outcome string) { outcomes = append(outcomes, name+"="+outcome) }

	if got := r.Render(context.Background(), "missing", "x"); got != "" {
		t.Errorf("unknown module rendered %q, want empty", got)
	}
	if !strings.Contains(buf.String(), `"module":"missing"`) {
		t.Errorf("log = %q, want the module name", buf.String())
	}
	if len(outcomes) != 1 || outcomes[0] != "missing=unknown" {
		t.Errorf("outcomes = %v", outcomes)
	}
}

func TestRegistryFailures(t *testing.T) {
	r := NewRegistry(zerolog.Nop())
	_ = r.Register("bad-args", func(string) (Module, error) { return nil, errors.New("nope") })
	_ = r.Register("bad-output", func(string) (Module, error) {
		return Func(func(context.Context) (string, error) { return "partial", errors.New("boom") }), nil
	})
	_ = r.Register("panics", func(string) (Module, error) { panic("oops") })
	var outcomes []string
	r.OnRender = func(_, outcome string) { outcomes = append(outcomes, outcome) }

	for _, name := range []string{"bad-args", "bad-output", "panics"} {
		if got := r.Render(context.Background(), name, ""); got != "" {
			t.Errorf("%s rendered %q, want empty", name, got)
		}
	}
	if strings.Join(outcomes, ",") != "error,error,error" {
		t.Errorf("outcomes = %v", outcomes)
	}
}

func TestRegistryRegister(t *testing.T) {
	r := NewRegistry(zerolog.Nop())
	for _, name := range []string{"", "Upper", "-lead", "with space"} {
		if err := r.Register(name, static("")); err == nil {
			t.Errorf("Register(%q) succeeded, want error", name)
		}
	}
	if err := r.Register("ok", nil); err == nil {
		t.Error("Register with nil factory succeeded")
	}
	_ = r.Register("b", static("1"))
	_ = r.Register("a", static("2"))
	_ = r.Register("b", static("3"))
	if got := strings.Join(r.Names(), ","); got != "a,b" {
		t.Errorf("Names = %q", got)
	}
	if got := r.Render(context.Background(), "b", ""); got != "3" {
		t.Errorf("re-registered module rendered %q, want 3", got)
	}
	if !r.Has("a") || r.Has("c") {
		t.Error("Has reports wrong membership")
	}
}

func TestNilRegistry(t *testing.T) {
	var r *Registry
	if r.Render(context.Background(), "x", "") != "" || r.Has("x") {
		t.Error("nil registry should render nothing")
	}
}

func newPosts(t *testing.T) *Posts {
	t.Helper()
	m := storage.NewMemory()
	add := func(id, title, published, tags, extra string) {
		m.Put("posts", id, "# "+title+"\n - published: "+published+"\n - tags: "+tags+"\n"+extra+"Excerpt.\n")
	}
	add("first.md", "First", "2020-01-01T00:00:00Z", "go", "")
	add("second.md", "Second <2>", "2020-02-01T00:00:00Z", "go, Web Dev", "")
	add("third.md", "Third", "2020-03-01T00:00:00Z", "web-dev", "")
	add("secret.md", "Secret", "2020-04-01T00:00:00Z", "go", " - hidden: yes\n")
	add("future.md", "Future", "2030-01-01T00:00:00Z", "go", "")
	return &Posts{
		Engine:  query.NewEngine(m),
		Root:    "posts",
		SiteURL: "https://site.example",
		Now:     func() time.Time { return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC) },
	}
}

func TestNewPosts(t *testing.T) {
	p := newPosts(t)
	r := NewRegistry(zerolog.Nop())
	if err := p.Register(r); err != nil {
		t.Fatal(err)
	}
	got := r.Render(context.Background(), "new-posts", "2")
	want := "<nav><ul>\n" +
		"  <li><a href=\"https://site.example/post/third\">Third</a></li>\n" +
		"  <li><a href=\"https://site.example/post/second\">Second &lt;2&gt;</a></li>\n" +
		"  <li><a href=\"https://site.example/archive\">&#8226; &#8226; &#8226;</a></li>\n" +
		"</ul></nav>"
	if got != want {
		t.Errorf("new-posts =\n%s\nwant\n%s", got, want)
	}
}

func TestNewPostsWithoutCount(t *testing.T) {
	p := newPosts(t)
	m, err := p.NewPosts("")
	if err != nil {
		t.Fatal(err)
	}
	out, err := m.Output(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if strings.Count(out, "/post/") != 3 {
		t.Errorf("output lists %d posts, want 3:\n%s", strings.Count(out, "/post/"), out)
	}
	if strings.Contains(out, "Secret") || strings.Contains(out, "Future") {
		t.Errorf("hidden or future post listed:\n%s", out)
	}
}

func TestTagPosts(t *testing.T) {
	p := newPosts(t)
	m, err := p.TagPosts(" Web Dev ; 5")
	if err != nil {
		t.Fatal(err)
	}
	out, err := m.Output(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	want := "<nav><ul>\n" +
		"  <li><a href=\"https://site.example/post/third\">Third</a></li>\n" +
		"  <li><a href=\"https://site.example/post/second\">Second &lt;2&gt;</a></li>\n" +
		"  <li><a href=\"https://site.example/tag/web-dev\">&#8226; &#8226; &#8226;</a></li>\n" +
		"</ul></nav>"
	if out != want {
		t.Errorf("tag-posts =\n%s\nwant\n%s", out, want)
	}
}

func TestPostsInvalidArgs(t *testing.T) {
	p := newPosts(t)
	if _, err := p.NewPosts("many"); err == nil {
		t.Error("NewPosts(many) succeeded")
	}
	if _, err := p.NewPosts("-1"); err == nil {
		t.Error("NewPosts(-1) succeeded")
	}
	if _, err := p.TagPosts(";3"); err == nil {
		t.Error("TagPosts without tag succeeded")
	}
	if _, err := p.TagPosts("go;x"); err == nil {
		t.Error("TagPosts with bad count succeeded")
	}
}
