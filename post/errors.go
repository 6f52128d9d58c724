package post

import (
	"errors"
	"fmt"
)

// Reason says why a post file was rejected.
type Reason int

const (
	MissingTitle Reason = iota + 1
	MissingPublished
	MissingTags
	InvalidValue
)

func (r Reason) String() string {
	switch r {
	case MissingTitle:
		return "missing-title"
	case MissingPublished:
		return "missing-published"
	case MissingTags:
		return "missing-tags"
	case InvalidValue:
		return "invalid-value"
	default:
		return "unknown"
	}
}

// Sentinel errors matched by ParseFailure.Is.
var (
	ErrMissingTitle     = errors.New("post: missing title")
	ErrMissingPublished = errors.New("post: missing published time")
	ErrMissingTags      = errors.New("post: missing tags")
	ErrInvalidValue     = errors.New("post: invalid metadata value")
)

// ParseFailure is returned by Parse for files that do not form a valid post.
type ParseFailure struct {
	Reason Reason
	// Field and Value are set for InvalidValue.
	Field string
	Value string
}

func (f *ParseFailure) Error() string {
	if f.Reason == InvalidValue {
		return fmt.Sprintf("post: invalid %s value %q", f.Field, f.Value)
	}
	return "post: " + f.Reason.String()
}

// Is lets errors.Is match a ParseFailure against the sentinel errors.
func (f *ParseFailure) Is(target error) bool {
	switch target {
	case ErrMissingTitle:
		return f.Reason == MissingTitle
	case ErrMissingPublished:
		return f.Reason == MissingPublished
	case ErrMissingTags:
		return f.Reason == MissingTags
	case ErrInvalidValue:
		return f.Reason == InvalidValue
	}
	return false
}

// FailureReason extracts the Reason from err, or 0 if err is not a ParseFailure.
func FailureReason(err error) Reason {
	var f *ParseFailure
	if errors.As(err, &f) {
		return f.Reason
	}
	return 0
}
