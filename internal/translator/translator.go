package translator

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/roach88/mtrans/internal/ast"
	"github.com/roach88/mtrans/internal/diag"
	"github.com/roach88/mtrans/internal/model"
	"github.com/roach88/mtrans/internal/space"
	"github.com/roach88/mtrans/internal/zone"
)

// ErrInternal is wrapped by the error Translate returns when resolution
// hit an internal invariant violation.
var ErrInternal = errors.New("internal translation error")

// Translation is one document bound to everything it needs to resolve.
type Translation struct {
	sourceURL string
	schemas   zone.SchemaZone
	imports   zone.ImportZone
	base      *model.ModelDef
	ids       IDGenerator
	logger    *slog.Logger
}

// Option configures a Translation.
type Option func(*Translation)

// WithSchemaZone sets the zone table sources are looked up in.
func WithSchemaZone(z zone.SchemaZone) Option {
	return func(t *Translation) { t.schemas = z }
}

// WithImportZone sets the zone import statements are resolved in.
func WithImportZone(z zone.ImportZone) Option {
	return func(t *Translation) { t.imports = z }
}

// WithBase seeds the namespace with the schemas of a previously completed
// model. Names the base exports stay exported.
func WithBase(m *model.ModelDef) Option {
	return func(t *Translation) { t.base = m }
}

// WithIDGenerator overrides the translation ID source.
func WithIDGenerator(g IDGenerator) Option {
	return func(t *Translation) { t.ids = g }
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(t *Translation) { t.logger = l }
}

// New creates a translation of the document found at sourceURL.
//
// Without WithSchemaZone or WithImportZone every table and import lookup
// misses.
func New(sourceURL string, opts ...Option) *Translation {
	t := &Translation{
		sourceURL: sourceURL,
		schemas:   zone.Map[*model.StructDef]{},
		imports:   zone.Map[*model.ModelDef]{},
		ids:       UUIDv7Generator{},
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// SourceURL returns the URL the translation reports diagnostics against.
func (t *Translation) SourceURL() string {
	return t.sourceURL
}

// Result is the outcome of a translation.
type Result struct {
	ID          string
	Model       *model.ModelDef
	Queries     []*model.Query
	Diagnostics []diag.Diagnostic
}

// Usable reports whether the translation logged no errors. Warnings do not
// make a result unusable.
func (r *Result) Usable() bool {
	for _, d := range r.Diagnostics {
		if d.Severity == diag.SeverityError {
			return false
		}
	}
	return true
}

// Problems returns the error diagnostics.
func (r *Result) Problems() []diag.Diagnostic {
	var out []diag.Diagnostic
	for _, d := range r.Diagnostics {
		if d.Severity == diag.SeverityError {
			out = append(out, d)
		}
	}
	return out
}

// Translate resolves doc. Resolution runs to completion regardless of user
// errors, which are returned in Result.Diagnostics. The error return is
// reserved for internal failures; the result is still returned with the
// diagnostics logged up to that point and no model.
func (t *Translation) Translate(doc *ast.Document) (res *Result, err error) {
	list := diag.NewList()
	ctx := ast.NewContext(list, t.sourceURL)
	ctx.Schemas = t.schemas
	ctx.Imports = t.imports
	ctx.Logger = t.logger

	res = &Result{ID: t.ids.Generate()}
	log := t.logger.With("translation", res.ID, "url", t.sourceURL)
	log.Info("translation starting", "statements", len(doc.Statements))

	defer func() {
		r := recover()
		if r == nil {
			return
		}
		cause, ok := internalFailure(r)
		if !ok {
			panic(r)
		}
		res.Diagnostics = list.Items()
		err = fmt.Errorf("%w: %s", ErrInternal, cause.Error())
		log.Error("translation aborted", "error", cause)
	}()

	res.Model = doc.ModelDef(ctx, t.base)
	res.Queries = doc.Queries()
	res.Diagnostics = list.Items()

	for _, d := range res.Diagnostics {
		log.Debug("diagnostic",
			"severity", d.Severity,
			"message", d.Message,
			"range", rangeAttr(d.Range),
		)
	}
	log.Info("translation finished",
		"exports", len(res.Model.Exports),
		"queries", len(res.Queries),
		"diagnostics", len(res.Diagnostics),
	)
	return res, nil
}

// internalFailure reports whether a recovered panic value is one of the
// internal invariant violations resolution raises.
func internalFailure(r any) (error, bool) {
	switch x := r.(type) {
	case *ast.InternalError:
		return x, true
	case *space.FrozenError:
		return x, true
	}
	return nil, false
}

func rangeAttr(r *diag.Range) string {
	if r == nil {
		return ""
	}
	return r.String()
}
