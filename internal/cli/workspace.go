package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"

	"github.com/roach88/mtrans/internal/ast"
	"github.com/roach88/mtrans/internal/catalog"
	"github.com/roach88/mtrans/internal/loader"
	"github.com/roach88/mtrans/internal/translator"
)

// memoryCatalog is the catalog path used when no --catalog is given.
const memoryCatalog = ":memory:"

// workspace is a catalog plus the logger commands translate with.
type workspace struct {
	catalog *catalog.Catalog
	logger  *slog.Logger
	out     *OutputFormatter
}

// openWorkspace opens the catalog at path (in memory when empty). Errors
// are reported through f and returned as an ExitError.
func openWorkspace(f *OutputFormatter, path string, logger *slog.Logger) (*workspace, error) {
	if path == "" {
		path = memoryCatalog
	}
	cat, err := catalog.Open(path)
	if err != nil {
		return nil, f.Fail(ExitCommandError, ErrCodeCatalog, fmt.Sprintf("opening catalog %s: %v", path, err), nil)
	}
	logger.Debug("catalog opened", "path", path)
	return &workspace{catalog: cat, logger: logger, out: f}, nil
}

func (w *workspace) Close() error {
	return w.catalog.Close()
}

// loadSchemas compiles the CUE tables in dir into the catalog. Tables that
// compile are stored even when others fail; every failure is reported.
func (w *workspace) loadSchemas(ctx context.Context, dir string) (int, error) {
	defs, errs := loader.LoadSchemas(dir)
	for _, def := range defs {
		if err := w.catalog.PutSchema(ctx, def); err != nil {
			return 0, w.out.Fail(ExitCommandError, ErrCodeCatalog, err.Error(), nil)
		}
		w.logger.Debug("schema stored", "table", def.Name, "fields", len(def.Fields))
	}
	if len(errs) > 0 {
		code, details := describeLoadErrors(errs)
		exit := ExitFailure
		if code == loader.ErrCodeNotFound || code == loader.ErrCodeNoFiles || code == loader.ErrCodeScanError {
			exit = ExitCommandError
		}
		msg := fmt.Sprintf("%d schema error(s) in %s", len(errs), dir)
		if len(errs) == 1 {
			msg = details[0]
		}
		return len(defs), w.out.Fail(exit, code, msg, details)
	}
	return len(defs), nil
}

// describeLoadErrors returns the code of the first error and the text of
// each.
func describeLoadErrors(errs []error) (string, []string) {
	code := ErrCodeGeneric
	details := make([]string, len(errs))
	for i, err := range errs {
		details[i] = err.Error()
		if i > 0 {
			continue
		}
		var loadErr *loader.LoadError
		if errors.As(err, &loadErr) {
			code = loadErr.Code
		}
	}
	return code, details
}

// readDocument decodes the YAML document at path. The returned URL is base
// when given, else the file URL of path.
func (w *workspace) readDocument(path, base string) (*ast.Document, string, error) {
	docURL := base
	if docURL == "" {
		docURL = fileURL(path)
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, "", w.out.Fail(ExitCommandError, ErrCodeReadFailed, fmt.Sprintf("reading document: %v", err), nil)
	}
	defer file.Close()

	doc, err := loader.DecodeDocument(file, docURL)
	if err != nil {
		return nil, "", w.out.Fail(ExitCommandError, ErrCodeDecodeFailed, fmt.Sprintf("decoding %s: %v", path, err), nil)
	}
	w.logger.Debug("document decoded", "url", docURL, "statements", len(doc.Statements))
	return doc, docURL, nil
}

// translate resolves doc against the workspace catalog.
func (w *workspace) translate(ctx context.Context, doc *ast.Document, docURL string) (*translator.Result, error) {
	t := translator.New(docURL,
		translator.WithSchemaZone(w.catalog.SchemaZone(ctx)),
		translator.WithImportZone(w.catalog.ImportZone(ctx)),
		translator.WithLogger(w.logger),
	)
	res, err := t.Translate(doc)
	if err != nil {
		return nil, w.out.Fail(ExitCommandError, ErrCodeInternal, err.Error(), diagnosticStrings(res))
	}
	return res, nil
}

// fileURL converts a filesystem path into an absolute file URL.
func fileURL(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	return (&url.URL{Scheme: "file", Path: filepath.ToSlash(abs)}).String()
}

func diagnosticStrings(res *translator.Result) []string {
	if res == nil {
		return nil
	}
	out := make([]string, len(res.Diagnostics))
	for i, d := range res.Diagnostics {
		out[i] = d.String()
	}
	return out
}
