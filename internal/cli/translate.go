package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/mtrans/internal/diag"
	"github.com/roach88/mtrans/internal/model"
	"github.com/roach88/mtrans/internal/translator"
)

// TranslateOptions holds flags for the translate command.
type TranslateOptions struct {
	*RootOptions
	Schemas string // CUE schema directory loaded before translating
	Catalog string // catalog database; in memory when empty
	Out     string // file the canonical artifacts are written to
	Base    string // document URL; defaults to the file URL of the document
}

// TranslationOutput is what a translation produced.
type TranslationOutput struct {
	ID          string            `json:"id"`
	URL         string            `json:"url"`
	Model       *model.ModelDef   `json:"model"`
	Queries     []*model.Query    `json:"queries"`
	Diagnostics []diag.Diagnostic `json:"diagnostics"`
}

// Artifacts is the part of a translation written by --out.
type Artifacts struct {
	Model   *model.ModelDef `json:"model"`
	Queries []*model.Query  `json:"queries"`
}

// NewTranslateCommand creates the translate command.
func NewTranslateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TranslateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "translate <doc.yaml>",
		Short: "Translate a document into schema and query artifacts",
		Long: `Translate a YAML document against table schemas and imported models.

Table schemas come from --schemas (a CUE package directory) and from the
catalog given by --catalog; imports resolve against models stored in the
catalog with "mtrans catalog import".

Exit codes:
  0 - Translated without errors
  1 - The translation logged error diagnostics
  2 - Command error (unreadable files, catalog failures, etc.)

Examples:
  mtrans translate ./models/flights.yaml --schemas ./schemas
  mtrans translate ./models/flights.yaml --catalog ./mtrans.db --out model.json
  mtrans translate ./models/flights.yaml --base file:///models/flights.yaml --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTranslate(cmd.Context(), opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Schemas, "schemas", "", "CUE schema directory")
	cmd.Flags().StringVar(&opts.Catalog, "catalog", "", "path to catalog database")
	cmd.Flags().StringVarP(&opts.Out, "out", "o", "", "write canonical model and queries to file")
	cmd.Flags().StringVar(&opts.Base, "base", "", "document URL (default: file URL of the document)")

	return cmd
}

func runTranslate(ctx context.Context, opts *TranslateOptions, path string, cmd *cobra.Command) error {
	if ctx == nil {
		ctx = context.Background()
	}
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	ws, err := openWorkspace(formatter, opts.Catalog, newLogger(opts.RootOptions, cmd.ErrOrStderr()))
	if err != nil {
		return err
	}
	defer ws.Close()

	if opts.Schemas != "" {
		n, err := ws.loadSchemas(ctx, opts.Schemas)
		if err != nil {
			return err
		}
		formatter.VerboseLog("Loaded %d table schema(s) from %s", n, opts.Schemas)
	}

	doc, docURL, err := ws.readDocument(path, opts.Base)
	if err != nil {
		return err
	}
	res, err := ws.translate(ctx, doc, docURL)
	if err != nil {
		return err
	}
	out := newTranslationOutput(res, docURL)

	if opts.Out != "" {
		if err := writeArtifacts(opts.Out, res); err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeWriteFailed, fmt.Sprintf("writing output file: %v", err), nil)
		}
		formatter.VerboseLog("Wrote artifacts to %s", opts.Out)
	}

	if opts.Format == "json" {
		return outputTranslationJSON(formatter, out)
	}
	return outputTranslationText(formatter.Writer, out, opts.Out)
}

func newTranslationOutput(res *translator.Result, docURL string) TranslationOutput {
	return TranslationOutput{
		ID:          res.ID,
		URL:         docURL,
		Model:       res.Model,
		Queries:     res.Queries,
		Diagnostics: res.Diagnostics,
	}
}

// errorCount counts error diagnostics; warnings never fail a command.
func errorCount(ds []diag.Diagnostic) int {
	n := 0
	for _, d := range ds {
		if d.Severity == diag.SeverityError {
			n++
		}
	}
	return n
}

// writeArtifacts writes the model and queries as canonical JSON.
func writeArtifacts(path string, res *translator.Result) error {
	data, err := model.MarshalCanonical(Artifacts{Model: res.Model, Queries: res.Queries})
	if err != nil {
		return fmt.Errorf("marshal artifacts: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}

func outputTranslationJSON(f *OutputFormatter, out TranslationOutput) error {
	resp := CLIResponse{Status: "ok", Data: out, TranslationID: out.ID}
	errs := errorCount(out.Diagnostics)
	if errs > 0 {
		resp.Status = "error"
		resp.Error = &CLIError{
			Code:    ErrCodeDiagnostics,
			Message: fmt.Sprintf("translation logged %d error(s)", errs),
		}
	}
	if err := encodeJSON(f.Writer, resp); err != nil {
		return err
	}
	if errs > 0 {
		return NewExitError(ExitFailure, resp.Error.Message)
	}
	return nil
}

func outputTranslationText(w io.Writer, out TranslationOutput, outFile string) error {
	for _, d := range out.Diagnostics {
		fmt.Fprintln(w, d.String())
	}
	if errs := errorCount(out.Diagnostics); errs > 0 {
		fmt.Fprintf(w, "✗ %s: %d error(s)\n", out.URL, errs)
		return NewExitError(ExitFailure, fmt.Sprintf("translation logged %d error(s)", errs))
	}

	fmt.Fprintf(w, "✓ Translated %s\n", out.URL)
	fmt.Fprintf(w, "  Translation: %s\n", out.ID)
	fmt.Fprintf(w, "  Sources: %d\n", len(out.Model.Structs))
	fmt.Fprintf(w, "  Named queries: %d\n", len(out.Model.Queries))
	fmt.Fprintf(w, "  Queries: %d\n", len(out.Queries))
	if len(out.Model.Exports) > 0 {
		fmt.Fprintf(w, "  Exports: %v\n", out.Model.Exports)
	}
	if outFile != "" {
		fmt.Fprintf(w, "  Output: %s\n", outFile)
	}
	return nil
}
