// Package slug turns free text into URL-safe identifiers.
package slug

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/mozillazg/go-unidecode"
	"golang.org/x/text/unicode/norm"
)

// NotApplicable is returned by Make when nothing usable is left of the input.
const NotApplicable = "n-a"

var (
	reUnwanted = regexp.MustCompile(`[^-\w]+`)
	reDashes   = regexp.MustCompile(`-+`)
	rePattern  = regexp.MustCompile(`^[a-z0-9][a-z0-9-]*$`)
)

// Make converts s to a lowercase slug such as "multiword-tag".
// It returns NotApplicable if the result would be empty.
func Make(s string) string {
	s = unidecode.Unidecode(norm.NFC.String(s))

	// replace runs of anything that is not a letter or digit with a dash
	var b strings.Builder
	b.Grow(len(s))
	inRun := false
	for _, r := range s {
		if unicode.IsLetter(r) || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			inRun = false
			continue
		}
		if !inRun {
			b.WriteByte('-')
			inRun = true
		}
	}

	s = reUnwanted.ReplaceAllString(b.String(), "")
	s = strings.Trim(s, "-")
	s = reDashes.ReplaceAllString(s, "-")
	s = strings.ToLower(s)
	if s == "" {
		return NotApplicable
	}
	return s
}

// Valid reports whether s already has the shape of a slug.
func Valid(s string) bool {
	return rePattern.MatchString(s)
}
