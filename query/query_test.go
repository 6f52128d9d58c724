package query

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/quillpost/quillpost/post"
	"github.com/quillpost/quillpost/storage"
)

func postText(title, published, updated, tags string, hidden bool) string {
	s := "# " + title + "\n - published: " + published + "\n"
	if updated != "" {
		s += " - updated: " + updated + "\n"
	}
	s += " - tags: " + tags + "\n"
	if hidden {
		s += " - hidden: yes\n"
	}
	return s + "This is the excerpt of " + title + ".\n\nThis is the body of " + title + "."
}

// newTestEngine mirrors the collection used throughout these tests:
//
//	post-1  published 1530781200               tags tag1, tag2
//	post-2  published 1530777600               tags tag3, tag2, Multiword tag
//	post-3  published 1530754000 upd 1530864000 tags tag3, tag4, tag5
//	post-4  published 1562400000 hidden         tags tag1..tag5
func newTestEngine(t *testing.T) (*Engine, *storage.Memory) {
	t.Helper()
	m := storage.NewMemory()
	m.Put("posts", "post-1.md", postText("Post 1 Title", "2018-07-05T09:00:00Z", "", "tag1, tag2", false))
	m.Put("posts", "post-2.md", postText("Post 2 Title", "2018-07-05T08:00:00Z", "", "tag3, tag2, Multiword tag", false))
	m.Put("posts", "post-3.md", postText("Post 3 Title", "2018-07-05T01:26:40Z", "2018-07-06T08:00:00Z", "tag3, tag4, tag5", false))
	m.Put("posts", "post-4.md", postText("Post 4 Title", "2019-07-06T08:00:00Z", "", "tag1, tag2, tag3, tag4, tag5", true))
	return NewEngine(m), m
}

func titles(r *Result) []string {
	var out []string
	for p, ok := r.Next(); ok; p, ok = r.Next() {
		out = append(out, p.Title)
	}
	return out
}

func query(t *testing.T, e *Engine, spec Spec) *Result {
	t.Helper()
	r, err := e.Query(context.Background(), "posts", spec)
	if err != nil {
		t.Fatalf("Query(%+v) failed: %v", spec, err)
	}
	return r
}

func expectTitles(t *testing.T, r *Result, want ...string) {
	t.Helper()
	got := titles(r)
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Errorf("titles = %q, want %q", got, want)
	}
}

func TestQuerySingleNonExistentPost(t *testing.T) {
	e, _ := newTestEngine(t)
	r := query(t, e, Spec{Slug: "post-that-does-not-exist"})
	if !r.Empty() || r.Total() != 0 {
		t.Errorf("Total = %d, want 0", r.Total())
	}
	if _, ok := r.Next(); ok {
		t.Error("Next should report exhaustion")
	}
}

func TestQueryInvalidSlug(t *testing.T) {
	e, _ := newTestEngine(t)
	for _, s := range []string{"../post-1", "Post-1", "post-1.md"} {
		if r := query(t, e, Spec{Slug: s}); r.Total() != 0 {
			t.Errorf("slug %q matched %d posts, want 0", s, r.Total())
		}
	}
}

func TestQuerySingleHiddenPost(t *testing.T) {
	e, _ := newTestEngine(t)
	r := query(t, e, Spec{Slug: "post-4", IncludeHidden: true})
	p, ok := r.Next()
	if !ok {
		t.Fatal("expected the hidden post")
	}
	if !p.Hidden || p.Slug != "post-4" {
		t.Errorf("post = %+v, want hidden post-4", p)
	}
	if _, ok := r.Next(); ok {
		t.Error("expected a single result")
	}

	r = query(t, e, Spec{Slug: "post-4"})
	if r.Total() != 0 {
		t.Error("hidden post must not be returned unless hidden posts are included")
	}
}

func TestQueryMultiplePostsInStorageOrder(t *testing.T) {
	e, _ := newTestEngine(t)
	expectTitles(t, query(t, e, Spec{}), "Post 1 Title", "Post 2 Title", "Post 3 Title")
}

func TestQueryNeverReturnsHiddenByDefault(t *testing.T) {
	e, _ := newTestEngine(t)
	r := query(t, e, Spec{Tag: "tag1"})
	for p, ok := r.Next(); ok; p, ok = r.Next() {
		if p.Hidden {
			t.Errorf("hidden post %s returned", p.Slug)
		}
	}
	r = query(t, e, Spec{IncludeHidden: true})
	if r.Total() != 4 {
		t.Errorf("Total with hidden = %d, want 4", r.Total())
	}
}

func TestQueryFilterByTag(t *testing.T) {
	e, _ := newTestEngine(t)
	expectTitles(t, query(t, e, Spec{Tag: "tag3"}), "Post 2 Title", "Post 3 Title")
}

func TestQueryFilterByTagSlug(t *testing.T) {
	e, _ := newTestEngine(t)
	expectTitles(t, query(t, e, Spec{Tag: "multiword-tag"}), "Post 2 Title")
}

func TestQuerySortOldest(t *testing.T) {
	e, _ := newTestEngine(t)
	expectTitles(t, query(t, e, Spec{Sort: SortOldest}), "Post 2 Title", "Post 1 Title", "Post 3 Title")
}

func TestQuerySortNewest(t *testing.T) {
	e, _ := newTestEngine(t)
	expectTitles(t, query(t, e, Spec{Sort: SortNewest}), "Post 3 Title", "Post 1 Title", "Post 2 Title")
}

func TestQuerySortIsStable(t *testing.T) {
	m := storage.NewMemory()
	for _, s := range []string{"b", "a", "c"} {
		m.Put("", s+".md", postText(s, "2020-01-01", "", "x", false))
	}
	e := NewEngine(m)
	for _, order := range []SortOrder{SortOldest, SortNewest} {
		r, err := e.Query(context.Background(), "", Spec{Sort: order})
		if err != nil {
			t.Fatal(err)
		}
		expectTitles(t, r, "b", "a", "c")
	}
}

func TestQueryPublishedBefore(t *testing.T) {
	e, _ := newTestEngine(t)
	expectTitles(t, query(t, e, Spec{PublishedBefore: time.Unix(1530781100, 0)}), "Post 2 Title", "Post 3 Title")
}

func TestQueryPublishedBeforeIsExclusive(t *testing.T) {
	e, _ := newTestEngine(t)
	// post-1 is published exactly at the cutoff.
	expectTitles(t, query(t, e, Spec{PublishedBefore: time.Unix(1530781200, 0)}), "Post 2 Title", "Post 3 Title")
	expectTitles(t, query(t, e, Spec{PublishedBefore: time.Unix(1530781201, 0)}), "Post 1 Title", "Post 2 Title", "Post 3 Title")
}

func TestQueryCount(t *testing.T) {
	e, _ := newTestEngine(t)
	if got := query(t, e, Spec{}).Total(); got != 3 {
		t.Errorf("Total = %d, want 3", got)
	}
}

func TestQueryLimit(t *testing.T) {
	e, _ := newTestEngine(t)
	r := query(t, e, Spec{Sort: SortNewest, Limit: 2})
	if r.Total() != 3 {
		t.Errorf("Total = %d, want 3", r.Total())
	}
	if r.Len() != 2 {
		t.Errorf("Len = %d, want 2", r.Len())
	}
	expectTitles(t, r, "Post 3 Title", "Post 1 Title")
}

func TestQueryLimitZeroMeansNoLimit(t *testing.T) {
	e, _ := newTestEngine(t)
	r := query(t, e, Spec{Limit: 0})
	if r.Len() != 3 {
		t.Errorf("Len = %d, want 3", r.Len())
	}
}

func TestQueryMetaOnly(t *testing.T) {
	e, _ := newTestEngine(t)
	r := query(t, e, Spec{Slug: "post-1", MetaOnly: true})
	p, _ := r.Next()
	if p.ContentLoaded || p.Content != "" {
		t.Errorf("content loaded for metadata-only query: %+v", p)
	}
	r = query(t, e, Spec{Slug: "post-1"})
	p, _ = r.Next()
	if p.Content != "This is the body of Post 1 Title." {
		t.Errorf("Content = %q", p.Content)
	}
}

func TestQueryCursorIsIdempotentWhenExhausted(t *testing.T) {
	e, _ := newTestEngine(t)
	r := query(t, e, Spec{Slug: "post-1"})
	if _, ok := r.Next(); !ok {
		t.Fatal("expected one post")
	}
	for i := 0; i < 3; i++ {
		if _, ok := r.Next(); ok {
			t.Fatalf("Next after exhaustion returned a post on call %d", i)
		}
	}
}

func TestQueryIndependentCursors(t *testing.T) {
	e, _ := newTestEngine(t)
	a := query(t, e, Spec{})
	b := query(t, e, Spec{})
	a.Next()
	a.Next()
	p, ok := b.Next()
	if !ok || p.Title != "Post 1 Title" {
		t.Errorf("second cursor starts at %q, want Post 1 Title", p.Title)
	}
}

func TestQuerySkipsMalformedPosts(t *testing.T) {
	e, m := newTestEngine(t)
	m.Put("posts", "broken.md", "no title here\n - tags: a\n")
	m.Put("posts", "notes.txt", postText("Not a post", "2018-01-01", "", "a", false))
	var skipped []string
	e.OnSkip = func(id string, err error) {
		if !errors.Is(err, post.ErrMissingTitle) {
			t.Errorf("skip error = %v, want missing title", err)
		}
		skipped = append(skipped, id)
	}
	r := query(t, e, Spec{})
	if r.Total() != 3 {
		t.Errorf("Total = %d, want 3", r.Total())
	}
	if len(skipped) != 1 || skipped[0] != "broken.md" {
		t.Errorf("skipped = %v, want [broken.md]", skipped)
	}
}

func TestQueryMissingRoot(t *testing.T) {
	e, _ := newTestEngine(t)
	if _, err := e.Query(context.Background(), "nope", Spec{}); err == nil {
		t.Error("Query of a missing root should fail")
	}
}

func TestQueryCanceledContext(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := e.Query(ctx, "posts", Spec{}); !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
}

func TestParseSortOrder(t *testing.T) {
	tests := map[string]SortOrder{"oldest": SortOldest, "Newest": SortNewest, "": SortNone, "random": SortNone}
	for in, want := range tests {
		if got := ParseSortOrder(in); got != want {
			t.Errorf("ParseSortOrder(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestTags(t *testing.T) {
	e, _ := newTestEngine(t)
	tags, err := e.Tags(context.Background(), "posts", time.Time{})
	if err != nil {
		t.Fatalf("Tags failed: %v", err)
	}
	want := []TagCount{
		{Slug: "tag2", Label: "tag2", Count: 2},
		{Slug: "tag3", Label: "tag3", Count: 2},
		{Slug: "multiword-tag", Label: "Multiword tag", Count: 1},
		{Slug: "tag1", Label: "tag1", Count: 1},
		{Slug: "tag4", Label: "tag4", Count: 1},
		{Slug: "tag5", Label: "tag5", Count: 1},
	}
	if fmt.Sprint(tags) != fmt.Sprint(want) {
		t.Errorf("Tags = %v, want %v", tags, want)
	}
}

func TestTagsPublishedBefore(t *testing.T) {
	e, m := newTestEngine(t)
	m.Put("posts", "post-5.md", postText("Post 5 Title", "2999-01-01T00:00:00Z", "", "secret launch, tag1", false))
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	tags, err := e.Tags(context.Background(), "posts", now)
	if err != nil {
		t.Fatalf("Tags failed: %v", err)
	}
	for _, tag := range tags {
		if tag.Slug == "secret-launch" {
			t.Errorf("Tags lists %q from a post published after the cutoff", tag.Slug)
		}
		if tag.Slug == "tag1" && tag.Count != 1 {
			t.Errorf("tag1 count = %d, want 1", tag.Count)
		}
	}

	all, err := e.Tags(context.Background(), "posts", time.Time{})
	if err != nil {
		t.Fatalf("Tags failed: %v", err)
	}
	found := false
	for _, tag := range all {
		if tag.Slug == "secret-launch" {
			found = true
		}
	}
	if !found {
		t.Error("Tags without a cutoff should include every visible post")
	}
}

func TestQueryKeepsPostWithUnreadableUpdated(t *testing.T) {
	e, m := newTestEngine(t)
	m.Put("posts", "post-6.md", postText("Post 6 Title", "2018-07-01T00:00:00Z", "sometime soon", "tag1", false))
	res := query(t, e, Spec{Slug: "post-6"})
	p, ok := res.Next()
	if !ok {
		t.Fatal("post with an unreadable updated value was skipped")
	}
	if !p.Updated.Equal(p.Published) {
		t.Errorf("Updated = %v, want %v", p.Updated, p.Published)
	}
}

func TestQueryOnQueryHook(t *testing.T) {
	e, _ := newTestEngine(t)
	var totals []int
	e.OnQuery = func(spec Spec, elapsed time.Duration, total int) {
		if elapsed < 0 {
			t.Errorf("negative elapsed time %v", elapsed)
		}
		totals = append(totals, total)
	}
	query(t, e, Spec{Tag: "tag3", Limit: 1})
	if len(totals) != 1 || totals[0] != 2 {
		t.Errorf("OnQuery totals = %v, want [2]", totals)
	}
}
