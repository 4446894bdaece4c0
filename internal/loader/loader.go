package loader

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/roach88/rxflow/internal/expr"
	"github.com/roach88/rxflow/internal/overload"
)

// LoadMode controls how validation errors are reported.
type LoadMode int

const (
	// LoadModeFailFast stops on the first error encountered.
	LoadModeFailFast LoadMode = iota
	// LoadModeCollectAll collects all errors before returning.
	LoadModeCollectAll
)

// Result is a loaded workflow.
type Result struct {
	// Path is the absolute document path, empty for in-memory documents.
	Path     string
	Document *Document
	Workflow *expr.Workflow
	// Nodes maps top-level node IDs to their graph nodes.
	Nodes map[string]*expr.Node
}

// Node returns the descriptor of the top-level node id.
func (r *Result) Node(id string) (expr.Builder, bool) {
	n, ok := r.Nodes[id]
	if !ok {
		return nil, false
	}
	return n.Value, true
}

// Loader reads workflow documents. It is also the include resolver of the
// workflows it produces.
type Loader struct {
	table  *overload.Table
	mode   LoadMode
	logger *slog.Logger
}

// Option configures a Loader.
type Option func(*Loader)

// WithMode sets how validation errors are reported. Default: fail fast.
func WithMode(mode LoadMode) Option {
	return func(l *Loader) { l.mode = mode }
}

// WithLogger sets the logger. Default: discard.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Loader) { l.logger = logger }
}

// New returns a loader resolving op nodes against table.
func New(table *overload.Table, opts ...Option) *Loader {
	l := &Loader{
		table:  table,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// LoadFile reads, validates and builds the document at path.
func (l *Loader) LoadFile(path string) (*Result, []error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: err.Error(), File: path}}
	}
	format, ok := FormatOf(abs)
	if !ok {
		return nil, []error{&LoadError{Code: ErrCodeFormat, Message: "expected a .yaml, .yml or .cue document", File: path}}
	}
	data, err := os.ReadFile(abs)
	if errors.Is(err, os.ErrNotExist) {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("workflow not found: %s", path), File: path}}
	}
	if err != nil {
		return nil, []error{&LoadError{Code: ErrCodeGeneric, Message: err.Error(), File: path}}
	}

	res, errs := l.Load(data, format, abs)
	if res != nil {
		res.Path = abs
	}
	return res, errs
}

// Load validates and builds a document held in memory. file names it in
// errors; includes resolve relative to its directory.
func (l *Loader) Load(data []byte, format Format, file string) (*Result, []error) {
	doc, err := Parse(data, format, file)
	if err != nil {
		return nil, []error{err}
	}

	if verrs := Validate(doc, l.table); len(verrs) > 0 {
		l.logger.Debug("document invalid", "file", file, "errors", len(verrs))
		if l.mode == LoadModeFailFast {
			return nil, []error{verrs[0]}
		}
		errs := make([]error, len(verrs))
		for i, e := range verrs {
			errs[i] = e
		}
		return nil, errs
	}

	b := &graphBuilder{loader: l, dir: filepath.Dir(file)}
	w, nodes, err := b.build(doc)
	if err != nil {
		return nil, []error{&LoadError{Code: ErrCodeGeneric, Message: err.Error(), File: file}}
	}
	l.logger.Debug("workflow loaded", "file", file, "nodes", w.Len())
	return &Result{Document: doc, Workflow: w, Nodes: nodes}, nil
}

// ResolveInclude implements expr.IncludeResolver. Every call loads a fresh
// copy of the document.
func (l *Loader) ResolveInclude(path string) (*expr.Workflow, error) {
	res, errs := l.LoadFile(path)
	if len(errs) > 0 {
		return nil, fmt.Errorf("include %s: %w", path, errors.Join(errs...))
	}
	return res.Workflow, nil
}

// resolvePath makes an include path absolute relative to dir.
func (l *Loader) resolvePath(dir, path string) string {
	if !filepath.IsAbs(path) {
		path = filepath.Join(dir, path)
	}
	return filepath.Clean(path)
}
