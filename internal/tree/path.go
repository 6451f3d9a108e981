package tree

import (
	"fmt"
	"strconv"
	"strings"
)

// Step is one (category, index) segment of a Path.
type Step struct {
	Category string `json:"category" yaml:"category"`
	Index    int    `json:"index" yaml:"index"`
}

// Path addresses a node (or an insertion slot) relative to a tree's root.
// The empty path addresses the root itself.
type Path []Step

// P builds a path from alternating category names and indices:
//
//	tree.P("from", 0, "joins", 2)
//
// It panics on malformed arguments and is intended for literals in code
// and tests.
func P(segments ...any) Path {
	if len(segments)%2 != 0 {
		panic(fmt.Sprintf("tree.P: odd number of segments (%d)", len(segments)))
	}
	path := make(Path, 0, len(segments)/2)
	for i := 0; i < len(segments); i += 2 {
		category, ok := segments[i].(string)
		if !ok {
			panic(fmt.Sprintf("tree.P: segment %d: want category string, got %T", i, segments[i]))
		}
		index, ok := segments[i+1].(int)
		if !ok {
			panic(fmt.Sprintf("tree.P: segment %d: want index int, got %T", i+1, segments[i+1]))
		}
		path = append(path, Step{Category: category, Index: index})
	}
	return path
}

// Append returns a new path with the given step added. The receiver is not
// modified.
func (p Path) Append(category string, index int) Path {
	out := make(Path, len(p), len(p)+1)
	copy(out, p)
	return append(out, Step{Category: category, Index: index})
}

// Parent returns the path without its final step, and that final step.
// ok is false for the empty path.
func (p Path) Parent() (parent Path, last Step, ok bool) {
	if len(p) == 0 {
		return nil, Step{}, false
	}
	return p[:len(p)-1], p[len(p)-1], true
}

// String renders the path as "from[0].joins[2]"; the root renders as "$".
func (p Path) String() string {
	if len(p) == 0 {
		return "$"
	}
	parts := make([]string, len(p))
	for i, s := range p {
		parts[i] = s.String()
	}
	return strings.Join(parts, ".")
}

func (s Step) String() string {
	return fmt.Sprintf("%s[%d]", s.Category, s.Index)
}

// ParsePath parses the String form of a path.
func ParsePath(s string) (Path, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == "$" {
		return Path{}, nil
	}

	var path Path
	for _, part := range strings.Split(s, ".") {
		open := strings.IndexByte(part, '[')
		if open <= 0 || !strings.HasSuffix(part, "]") {
			return nil, fmt.Errorf("parse path %q: malformed segment %q", s, part)
		}
		index, err := strconv.Atoi(part[open+1 : len(part)-1])
		if err != nil {
			return nil, fmt.Errorf("parse path %q: segment %q: %w", s, part, err)
		}
		path = append(path, Step{Category: part[:open], Index: index})
	}
	return path, nil
}
