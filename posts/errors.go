package posts

import "fmt"

// ValidationError reports a content file whose front matter cannot produce a
// post. A single ValidationError aborts the whole repository load.
type ValidationError struct {
	Slug   string
	Field  string
	Reason string
	Err    error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid blog frontmatter: %q %s for %q", e.Field, e.Reason, e.Slug)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}
