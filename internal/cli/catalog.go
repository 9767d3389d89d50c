package cli

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/roach88/mtrans/internal/catalog"
)

// CatalogOptions holds flags shared by the catalog subcommands.
type CatalogOptions struct {
	*RootOptions
}

// CatalogListing is the content of a catalog.
type CatalogListing struct {
	Schemas []catalog.SchemaInfo `json:"schemas"`
	Models  []catalog.ModelInfo  `json:"models"`
}

// ImportResult describes a document stored as a completed model.
type ImportResult struct {
	URL         string   `json:"url"`
	Translation string   `json:"translation"`
	Hash        string   `json:"hash,omitempty"`
	Exports     []string `json:"exports"`
	Diagnostics []string `json:"diagnostics,omitempty"`
}

// NewCatalogCommand creates the catalog command group.
func NewCatalogCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CatalogOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Manage the schema and model catalog",
		Long: `The catalog is a SQLite database holding table schemas (looked up by
table sources) and completed models (looked up by import statements).`,
	}

	cmd.AddCommand(newCatalogAddCommand(opts))
	cmd.AddCommand(newCatalogListCommand(opts))
	cmd.AddCommand(newCatalogImportCommand(opts))
	return cmd
}

func newCatalogAddCommand(opts *CatalogOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "add <db> <schemas-dir>",
		Short: "Compile a CUE schema directory into the catalog",
		Long: `Compile every table of a CUE package directory and store it in the
catalog, replacing earlier schemas of the same tables. Tables that compile
are stored even when others fail.`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCatalogAdd(cmdContext(cmd), opts, args[0], args[1], cmd)
		},
	}
}

func newCatalogListCommand(opts *CatalogOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "list <db>",
		Short:         "List the schemas and models of a catalog",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCatalogList(cmdContext(cmd), opts, args[0], cmd)
		},
	}
}

func newCatalogImportCommand(opts *CatalogOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "import <db> <url> <doc.yaml>",
		Short: "Translate a document and store it as the model at url",
		Long: `Translate a document against the catalog and store the result as the
completed model of url, so later documents can import it. A translation
with errors is stored as a failed entry carrying its first error.`,
		Args:          cobra.ExactArgs(3),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCatalogImport(cmdContext(cmd), opts, args[0], args[1], args[2], cmd)
		},
	}
}

func cmdContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func newFormatter(opts *RootOptions, cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
}

func runCatalogAdd(ctx context.Context, opts *CatalogOptions, db, dir string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	ws, err := openWorkspace(formatter, db, newLogger(opts.RootOptions, cmd.ErrOrStderr()))
	if err != nil {
		return err
	}
	defer ws.Close()

	n, err := ws.loadSchemas(ctx, dir)
	if err != nil {
		return err
	}
	if opts.Format == "json" {
		return formatter.Success(map[string]any{"catalog": db, "tables": n})
	}
	fmt.Fprintf(formatter.Writer, "✓ Stored %d table schema(s) in %s\n", n, db)
	return nil
}

func runCatalogList(ctx context.Context, opts *CatalogOptions, db string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	ws, err := openWorkspace(formatter, db, newLogger(opts.RootOptions, cmd.ErrOrStderr()))
	if err != nil {
		return err
	}
	defer ws.Close()

	schemas, err := ws.catalog.ListSchemas(ctx)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeCatalog, err.Error(), nil)
	}
	models, err := ws.catalog.ListModels(ctx)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeCatalog, err.Error(), nil)
	}
	listing := CatalogListing{Schemas: schemas, Models: models}
	if listing.Schemas == nil {
		listing.Schemas = []catalog.SchemaInfo{}
	}
	if listing.Models == nil {
		listing.Models = []catalog.ModelInfo{}
	}

	if opts.Format == "json" {
		return formatter.Success(listing)
	}
	return outputListingText(formatter.Writer, listing)
}

func outputListingText(w io.Writer, listing CatalogListing) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "TABLE\tSTATUS\tFIELDS\tMESSAGE\n")
	for _, s := range listing.Schemas {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", s.Name, s.Status, s.Fields, s.Message)
	}
	fmt.Fprintln(tw)
	fmt.Fprintf(tw, "MODEL\tSTATUS\tEXPORTS\tMESSAGE\n")
	for _, m := range listing.Models {
		fmt.Fprintf(tw, "%s\t%s\t%v\t%s\n", m.URL, m.Status, m.Exports, m.Message)
	}
	return tw.Flush()
}

func runCatalogImport(ctx context.Context, opts *CatalogOptions, db, docURL, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	ws, err := openWorkspace(formatter, db, newLogger(opts.RootOptions, cmd.ErrOrStderr()))
	if err != nil {
		return err
	}
	defer ws.Close()

	doc, docURL, err := ws.readDocument(path, docURL)
	if err != nil {
		return err
	}
	res, err := ws.translate(ctx, doc, docURL)
	if err != nil {
		return err
	}

	result := ImportResult{URL: docURL, Translation: res.ID, Exports: res.Model.Exports}
	if result.Exports == nil {
		result.Exports = []string{}
	}

	if problems := res.Problems(); len(problems) > 0 {
		if err := ws.catalog.MarkModelError(ctx, docURL, problems[0].Message); err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeCatalog, err.Error(), nil)
		}
		for _, d := range res.Diagnostics {
			result.Diagnostics = append(result.Diagnostics, d.String())
		}
		return formatter.Fail(ExitFailure, ErrCodeDiagnostics,
			fmt.Sprintf("%s stored as failed: %s", docURL, problems[0].Message), result.Diagnostics)
	}

	hash, err := ws.catalog.PutModel(ctx, docURL, res.Model)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeCatalog, err.Error(), nil)
	}
	result.Hash = hash

	if opts.Format == "json" {
		return formatter.Success(result)
	}
	fmt.Fprintf(formatter.Writer, "✓ Stored %s\n", docURL)
	fmt.Fprintf(formatter.Writer, "  Hash: %s\n", hash)
	fmt.Fprintf(formatter.Writer, "  Exports: %v\n", result.Exports)
	return nil
}
