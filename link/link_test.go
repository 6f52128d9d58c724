package link

import "testing"

func TestClassify(t *testing.T) {
	const (
		rel = "https://site.example/base/"
		abs = "https://site.example"
	)
	tests := []struct {
		name   string
		target string
		kind   Kind
		url    string
	}{
		{"external https", "https://other.example/", External, "https://other.example/"},
		{"external mailto", "mailto:me@site.example", External, "mailto:me@site.example"},
		{"protocol relative", "//cdn.example/lib.js", External, "//cdn.example/lib.js"},
		{"absolute", "/some-page", SiteAbsolute, "https://site.example/some-page"},
		{"absolute root", "/", SiteAbsolute, "https://site.example/"},
		{"relative", "doc.txt", SiteRelative, "https://site.example/base/doc.txt"},
		{"relative nested", "media/a.png", SiteRelative, "https://site.example/base/media/a.png"},
		{"fragment", "#top", SiteRelative, "https://site.example/base/#top"},
		{"empty", "", SiteRelative, "https://site.example/base/"},
		{"unparseable", "%zz", SiteRelative, "https://site.example/base/%zz"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.target, rel, abs)
			if got.Kind != tt.kind {
				t.Errorf("Kind = %v, want %v", got.Kind, tt.kind)
			}
			if got.URL != tt.url {
				t.Errorf("URL = %q, want %q", got.URL, tt.url)
			}
		})
	}
}

func TestNewTab(t *testing.T) {
	if !Classify("https://other.example/", "", "").NewTab() {
		t.Error("external link should open in a new tab")
	}
	if Classify("/x", "", "").NewTab() {
		t.Error("site link should not open in a new tab")
	}
}

func TestBases(t *testing.T) {
	b := ForPost("https://site.example", "hello")
	if got := b.Classify("img.png").URL; got != "https://site.example/post/hello/img.png" {
		t.Errorf("post relative = %q", got)
	}
	if got := b.Classify("/archive").URL; got != "https://site.example/archive" {
		t.Errorf("post absolute = %q", got)
	}
	if got := ForSite("https://site.example").Classify("tag/go").URL; got != "https://site.example/tag/go" {
		t.Errorf("site relative = %q", got)
	}
}

func TestKindString(t *testing.T) {
	for k, want := range map[Kind]string{External: "external", SiteAbsolute: "site-absolute", SiteRelative: "site-relative"} {
		if k.String() != want {
			t.Errorf("%d.String() = %q, want %q", k, k.String(), want)
		}
	}
}
