// Package querysource reads query trees from files.
//
// A query file holds a tree.NodeModel in one of three encodings, picked by
// extension:
//
//	.json        the snapshot as JSON
//	.yaml, .yml  the same structure as YAML
//	.cue         a CUE value; a top-level "query" field is used when present
//
// Unknown fields are rejected in every encoding, and the decoded tree must
// be a sql.querySelect with exactly one select and one from clause.
package querysource

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
	"gopkg.in/yaml.v3"

	g "github.com/roach88/querysteps/internal/sqlgrammar"
	"github.com/roach88/querysteps/internal/tree"
)

// Error codes reported in LoadError.Code.
const (
	ErrCodeNotFound    = "E005" // Path not found
	ErrCodeBadFormat   = "E020" // Unsupported file extension
	ErrCodeParseFailed = "E021" // JSON/YAML/CUE decoding failed
	ErrCodeBadShape    = "E022" // Decoded tree is not a querySelect
)

// LoadError describes why a query file could not be read.
type LoadError struct {
	Code    string
	Path    string
	Message string
	Pos     token.Pos // CUE position if available
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s: %s", e.Path, e.Code, e.Message)
}

// Extensions lists the supported file extensions.
var Extensions = []string{".json", ".yaml", ".yml", ".cue"}

// LoadFile reads a query tree from path.
func LoadFile(path string) (tree.NodeModel, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return tree.NodeModel{}, &LoadError{Code: ErrCodeNotFound, Path: path, Message: err.Error()}
	}
	return Parse(path, data)
}

// Parse decodes data using the encoding implied by name's extension.
func Parse(name string, data []byte) (tree.NodeModel, error) {
	var (
		m   tree.NodeModel
		err error
	)
	switch strings.ToLower(filepath.Ext(name)) {
	case ".json":
		m, err = parseJSON(name, data)
	case ".yaml", ".yml":
		m, err = parseYAML(name, data)
	case ".cue":
		m, err = parseCUE(name, data)
	default:
		return tree.NodeModel{}, &LoadError{
			Code:    ErrCodeBadFormat,
			Path:    name,
			Message: fmt.Sprintf("unsupported extension %q (want one of %s)", filepath.Ext(name), strings.Join(Extensions, ", ")),
		}
	}
	if err != nil {
		return tree.NodeModel{}, err
	}

	if err := CheckShape(m); err != nil {
		return tree.NodeModel{}, &LoadError{Code: ErrCodeBadShape, Path: name, Message: err.Error()}
	}
	return m.Clone(), nil
}

func parseJSON(name string, data []byte) (tree.NodeModel, error) {
	var m tree.NodeModel
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&m); err != nil {
		return tree.NodeModel{}, &LoadError{Code: ErrCodeParseFailed, Path: name, Message: err.Error()}
	}
	return m, nil
}

func parseYAML(name string, data []byte) (tree.NodeModel, error) {
	var m tree.NodeModel
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true) // Reject unknown fields
	if err := dec.Decode(&m); err != nil {
		return tree.NodeModel{}, &LoadError{Code: ErrCodeParseFailed, Path: name, Message: err.Error()}
	}
	return m, nil
}

func parseCUE(name string, data []byte) (tree.NodeModel, error) {
	ctx := cuecontext.New()
	value := ctx.CompileBytes(data, cue.Filename(name))
	if err := value.Err(); err != nil {
		return tree.NodeModel{}, cueLoadError(name, err)
	}

	if q := value.LookupPath(cue.ParsePath("query")); q.Exists() {
		value = q
	}
	if err := value.Validate(cue.Concrete(true)); err != nil {
		return tree.NodeModel{}, cueLoadError(name, err)
	}

	raw, err := value.MarshalJSON()
	if err != nil {
		return tree.NodeModel{}, cueLoadError(name, err)
	}
	return parseJSON(name, raw)
}

func cueLoadError(name string, err error) *LoadError {
	le := &LoadError{Code: ErrCodeParseFailed, Path: name, Message: err.Error()}
	if positions := cueerrors.Positions(err); len(positions) > 0 {
		le.Pos = positions[0]
	}
	return le
}

// CheckShape verifies that m is a querySelect with one select and one from
// clause and that every node has a language and type name.
func CheckShape(m tree.NodeModel) error {
	if m.Language != g.Language || m.Name != g.TypeQuerySelect {
		return fmt.Errorf("root must be %s.%s, got %s.%s", g.Language, g.TypeQuerySelect, m.Language, m.Name)
	}
	for _, category := range []string{g.CategorySelect, g.CategoryFrom} {
		if n := len(m.Children[category]); n != 1 {
			return fmt.Errorf("root must have exactly one %q child, got %d", category, n)
		}
	}
	return checkNames(m, tree.Path{})
}

func checkNames(m tree.NodeModel, at tree.Path) error {
	if m.Language == "" || m.Name == "" {
		return fmt.Errorf("node at %s lacks language or name", at)
	}
	for category, children := range m.Children {
		for i, child := range children {
			if err := checkNames(child, at.Append(category, i)); err != nil {
				return err
			}
		}
	}
	return nil
}
