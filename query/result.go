package query

// Result is a single-use, forward-only cursor over the posts of a query.
// It is not safe for concurrent use.
type Result struct {
	posts []Post
	total int
	next  int
}

// Next returns the next post. Once the results are exhausted it keeps
// returning false.
func (r *Result) Next() (Post, bool) {
	if r == nil || r.next >= len(r.posts) {
		return Post{}, false
	}
	p := r.posts[r.next]
	r.next++
	return p, true
}

// Total is the number of matching posts before the limit was applied.
func (r *Result) Total() int {
	if r == nil {
		return 0
	}
	return r.total
}

// Len is the number of posts the cursor yields in total.
func (r *Result) Len() int {
	if r == nil {
		return 0
	}
	return len(r.posts)
}

// Empty reports whether the query matched nothing.
func (r *Result) Empty() bool {
	return r.Total() == 0
}
