package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/mtrans/internal/compiler"
	"github.com/roach88/mtrans/internal/translator"
)

// ValidateOptions holds flags for the validate command.
type ValidateOptions struct {
	*RootOptions
	Schemas string
	Catalog string
	Base    string
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid       bool                       `json:"valid"`
	URL         string                     `json:"url"`
	Diagnostics []string                   `json:"diagnostics,omitempty"`
	Errors      []compiler.ValidationError `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ValidateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "validate <doc.yaml>",
		Short: "Translate a document and check the artifacts it produces",
		Long: `Translate a document and run structural validation over the model
and every query it produced.

Reports every translation diagnostic and every validation error (never
fail-fast). Exits 1 when either is present.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(cmd.Context(), opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Schemas, "schemas", "", "CUE schema directory")
	cmd.Flags().StringVar(&opts.Catalog, "catalog", "", "path to catalog database")
	cmd.Flags().StringVar(&opts.Base, "base", "", "document URL (default: file URL of the document)")

	return cmd
}

func runValidate(ctx context.Context, opts *ValidateOptions, path string, cmd *cobra.Command) error {
	if ctx == nil {
		ctx = context.Background()
	}
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   opts.Verbose,
	}

	ws, err := openWorkspace(formatter, opts.Catalog, newLogger(opts.RootOptions, cmd.ErrOrStderr()))
	if err != nil {
		return err
	}
	defer ws.Close()

	if opts.Schemas != "" {
		if _, err := ws.loadSchemas(ctx, opts.Schemas); err != nil {
			return err
		}
	}
	doc, docURL, err := ws.readDocument(path, opts.Base)
	if err != nil {
		return err
	}
	res, err := ws.translate(ctx, doc, docURL)
	if err != nil {
		return err
	}

	result := ValidationResult{URL: docURL}
	for _, d := range res.Problems() {
		result.Diagnostics = append(result.Diagnostics, d.String())
	}
	result.Errors = validateAll(res, formatter)
	result.Valid = len(result.Diagnostics) == 0 && len(result.Errors) == 0

	if opts.Format == "json" {
		return outputValidationJSON(formatter.Writer, result)
	}
	return outputValidationText(formatter.Writer, result)
}

// validateAll validates the model and each anonymous query. Query paths
// are prefixed with their position.
func validateAll(res *translator.Result, formatter *OutputFormatter) []compiler.ValidationError {
	formatter.VerboseLog("Validating model: %d source(s), %d named quer(ies)", len(res.Model.Structs), len(res.Model.Queries))
	allErrors := compiler.Validate(res.Model)

	for i, q := range res.Queries {
		formatter.VerboseLog("Validating query #%d", i)
		for _, e := range compiler.Validate(q) {
			e.Field = fmt.Sprintf("queries[%d]%s", i, strings.TrimPrefix(e.Field, "query"))
			allErrors = append(allErrors, e)
		}
	}
	return allErrors
}

func outputValidationJSON(w io.Writer, result ValidationResult) error {
	resp := CLIResponse{Status: "ok", Data: result}
	if !result.Valid {
		resp.Status = "error"
		resp.Error = &CLIError{
			Code:    validationCode(result),
			Message: fmt.Sprintf("%d diagnostic(s), %d validation error(s)", len(result.Diagnostics), len(result.Errors)),
		}
	}
	if err := encodeJSON(w, resp); err != nil {
		return err
	}
	if !result.Valid {
		return NewExitError(ExitFailure, resp.Error.Message)
	}
	return nil
}

func outputValidationText(w io.Writer, result ValidationResult) error {
	if result.Valid {
		fmt.Fprintf(w, "✓ %s is valid\n", result.URL)
		return nil
	}
	for _, d := range result.Diagnostics {
		fmt.Fprintln(w, d)
	}
	for _, e := range result.Errors {
		fmt.Fprintln(w, e.Error())
	}
	fmt.Fprintf(w, "✗ %d diagnostic(s), %d validation error(s)\n", len(result.Diagnostics), len(result.Errors))
	return NewExitError(ExitFailure, "validation failed")
}

func validationCode(result ValidationResult) string {
	if len(result.Diagnostics) > 0 {
		return ErrCodeDiagnostics
	}
	return ErrCodeInvalid
}
