package ast

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/roach88/mtrans/internal/diag"
	"github.com/roach88/mtrans/internal/model"
	"github.com/roach88/mtrans/internal/zone"
)

// ErrNoSink is the panic value of NewContext when called without a sink.
var ErrNoSink = errors.New("ast: resolution context requires a diagnostic sink")

// InternalError is raised (by panic) when resolution reaches a state the
// document structure should make unreachable. It aborts the translation.
type InternalError struct {
	Element string
	Message string
}

func (e *InternalError) Error() string {
	return fmt.Sprintf("internal error in translation at <%s>: %s", e.Element, e.Message)
}

// Namespace is the name-to-entry map resolution reads and writes.
type Namespace interface {
	Entry(name string) (NamespaceEntry, bool)
	SetEntry(name string, entry NamespaceEntry)
	Names() []string
}

// NamespaceEntry is one namespace binding.
type NamespaceEntry struct {
	Object   model.NamedObject
	Exported bool
	// Site is the statement that created the entry; nil for entries seeded
	// from a base model.
	Site Element
}

// Context carries everything a resolution step may need. One Context is
// owned by one translation.
type Context struct {
	SourceURL string
	Schemas   zone.SchemaZone
	Imports   zone.ImportZone
	Logger    *slog.Logger

	sink      diag.Sink
	namespace Namespace
}

// NewContext creates a resolution context logging to sink.
// It panics with ErrNoSink when sink is nil.
func NewContext(sink diag.Sink, sourceURL string) *Context {
	if sink == nil {
		panic(ErrNoSink)
	}
	return &Context{
		SourceURL: sourceURL,
		Schemas:   zone.Map[*model.StructDef]{},
		Imports:   zone.Map[*model.ModelDef]{},
		Logger:    slog.Default(),
		sink:      sink,
	}
}

// Namespace returns the namespace statements currently resolve against.
func (c *Context) Namespace() Namespace {
	return c.namespace
}

// Lookup finds a namespace entry. With no namespace set, nothing is found.
func (c *Context) Lookup(name string) (NamespaceEntry, bool) {
	if c.namespace == nil {
		return NamespaceEntry{}, false
	}
	return c.namespace.Entry(name)
}

// Log records an error diagnostic located at el.
func (c *Context) Log(el Element, format string, args ...any) {
	c.emit(el, diag.SeverityError, "", format, args...)
}

// LogHint records an error diagnostic with a hint.
func (c *Context) LogHint(el Element, hint, format string, args ...any) {
	c.emit(el, diag.SeverityError, hint, format, args...)
}

// Warn records a warning diagnostic located at el.
func (c *Context) Warn(el Element, format string, args ...any) {
	c.emit(el, diag.SeverityWarning, "", format, args...)
}

func (c *Context) emit(el Element, sev diag.Severity, hint, format string, args ...any) {
	d := diag.Diagnostic{
		Message:   fmt.Sprintf(format, args...),
		Severity:  sev,
		SourceURL: c.SourceURL,
		Hint:      hint,
	}
	if !isNil(el) {
		d.Range = Location(el)
	}
	c.sink.Log(d)
}

// InternalError logs the failure and aborts resolution by panicking with
// *InternalError.
func (c *Context) InternalError(el Element, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	c.Log(el, "INTERNAL ERROR IN TRANSLATION: %s", msg)
	typ := ""
	if !isNil(el) {
		typ = el.ElementType()
	}
	c.Logger.Error("internal translation error", "element", typ, "message", msg)
	panic(&InternalError{Element: typ, Message: msg})
}

func (c *Context) undefined(el Element, candidates []string, format, name string) {
	c.LogHint(el, diag.Suggest(name, candidates), format, name)
}

func (c *Context) namespaceNames() []string {
	if c.namespace == nil {
		return nil
	}
	return c.namespace.Names()
}
