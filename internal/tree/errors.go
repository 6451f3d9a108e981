package tree

import (
	"errors"
	"fmt"
)

// NotFoundError reports that a path did not resolve.
//
// It signals a broken contract: either the caller built a wrong path or
// the input tree does not follow its grammar. It is never recovered from
// inside this module.
type NotFoundError struct {
	// Path is the full path that was requested.
	Path Path

	// Depth is the index of the first step that failed to resolve.
	// -1 means the tree itself was empty.
	Depth int

	// Reason describes why the step failed.
	Reason string
}

func (e *NotFoundError) Error() string {
	if e.Depth < 0 {
		return fmt.Sprintf("node not found at %s: %s", e.Path, e.Reason)
	}
	return fmt.Sprintf("node not found at %s: step %d (%s): %s", e.Path, e.Depth, e.Path[e.Depth], e.Reason)
}

// IsNotFound returns true if err is or wraps a *NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// CardinalityError reports that a category expected to hold exactly one
// child holds zero or several.
type CardinalityError struct {
	Category string
	Count    int
	TypeName string
}

func (e *CardinalityError) Error() string {
	return fmt.Sprintf("category %q of %s: expected exactly one child, found %d", e.Category, e.TypeName, e.Count)
}

// IsCardinalityError returns true if err is or wraps a *CardinalityError.
func IsCardinalityError(err error) bool {
	var ce *CardinalityError
	return errors.As(err, &ce)
}
