package loader

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
	"gopkg.in/yaml.v3"
)

// Format is a document encoding.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatCUE  Format = "cue"
)

// FormatOf returns the format implied by a file extension.
func FormatOf(path string) (Format, bool) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, true
	case ".cue":
		return FormatCUE, true
	}
	return "", false
}

// Load error codes.
const (
	ErrCodeGeneric     = "E001" // generic/unknown error
	ErrCodeFormat      = "E002" // unsupported document format
	ErrCodeParseFailed = "E004" // document could not be decoded
	ErrCodeNotFound    = "E005" // path not found
	ErrCodeBuildFailed = "E006" // CUE evaluation failed
)

// LoadError is a document that could not be read or decoded.
type LoadError struct {
	Code    string
	Message string
	File    string
	// Pos is set for CUE errors.
	Pos  token.Pos
	Line int
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	if e.File != "" && e.Line > 0 {
		return fmt.Sprintf("%s:%d: %s: %s", e.File, e.Line, e.Code, e.Message)
	}
	if e.File != "" {
		return fmt.Sprintf("%s: %s: %s", e.File, e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Parse decodes a document. file names the source in error positions.
func Parse(data []byte, format Format, file string) (*Document, error) {
	switch format {
	case FormatYAML:
		return parseYAML(data, file)
	case FormatCUE:
		return parseCUE(data, file)
	}
	return nil, &LoadError{Code: ErrCodeFormat, Message: fmt.Sprintf("unsupported document format %q", format), File: file}
}

func parseYAML(data []byte, file string) (*Document, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	var doc Document
	if err := dec.Decode(&doc); err != nil {
		le := &LoadError{Code: ErrCodeParseFailed, Message: err.Error(), File: file}
		var te *yaml.TypeError
		if errors.As(err, &te) && len(te.Errors) > 0 {
			le.Message = strings.Join(te.Errors, "; ")
		}
		return nil, le
	}
	return &doc, nil
}

func parseCUE(data []byte, file string) (*Document, error) {
	ctx := cuecontext.New()
	v := ctx.CompileBytes(data, cue.Filename(file))
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err, ErrCodeBuildFailed, file)
	}
	if w := v.LookupPath(cue.ParsePath("workflow")); w.Exists() {
		v = w
	}
	return decodeCUE(v, file)
}

// decodeCUE decodes a document value. Nodes and edges are decoded one by
// one so each keeps its source line.
func decodeCUE(v cue.Value, file string) (*Document, error) {
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return nil, formatCUEError(err, ErrCodeBuildFailed, file)
	}
	doc := &Document{}
	if name := v.LookupPath(cue.ParsePath("name")); name.Exists() {
		s, err := name.String()
		if err != nil {
			return nil, formatCUEError(err, ErrCodeParseFailed, file)
		}
		doc.Name = s
	}

	nodes := v.LookupPath(cue.ParsePath("nodes"))
	if nodes.Exists() {
		iter, err := nodes.List()
		if err != nil {
			return nil, formatCUEError(err, ErrCodeParseFailed, file)
		}
		for iter.Next() {
			var n NodeSpec
			if err := iter.Value().Decode(&n); err != nil {
				return nil, formatCUEError(err, ErrCodeParseFailed, file)
			}
			if wf := iter.Value().LookupPath(cue.ParsePath("workflow")); wf.Exists() {
				nested, err := decodeCUE(wf, file)
				if err != nil {
					return nil, err
				}
				n.Workflow = nested
			}
			n.Line = iter.Value().Pos().Line()
			doc.Nodes = append(doc.Nodes, n)
		}
	}

	edges := v.LookupPath(cue.ParsePath("edges"))
	if edges.Exists() {
		iter, err := edges.List()
		if err != nil {
			return nil, formatCUEError(err, ErrCodeParseFailed, file)
		}
		for iter.Next() {
			var e EdgeSpec
			if err := iter.Value().Decode(&e); err != nil {
				return nil, formatCUEError(err, ErrCodeParseFailed, file)
			}
			e.Line = iter.Value().Pos().Line()
			doc.Edges = append(doc.Edges, e)
		}
	}
	return doc, nil
}

// formatCUEError keeps the position of the first CUE error.
func formatCUEError(err error, code, file string) error {
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return &LoadError{Code: code, Message: err.Error(), File: file}
	}
	first := errs[0]
	le := &LoadError{Code: code, Message: first.Error(), File: file}
	if positions := errors.Positions(first); len(positions) > 0 {
		le.Pos = positions[0]
	}
	return le
}
