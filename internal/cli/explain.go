package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/mtrans/internal/ast"
)

// ExplainOptions holds flags for the explain command.
type ExplainOptions struct {
	*RootOptions
	Base string
}

// Explanation is the rendered element tree of a document.
type Explanation struct {
	URL  string `json:"url"`
	Tree string `json:"tree"`
}

// NewExplainCommand creates the explain command.
func NewExplainCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ExplainOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "explain <doc.yaml>",
		Short: "Print the element tree of a document",
		Long: `Decode a document and print its element tree without translating it.
Each line is an element type followed by its attributes; children are
indented under their parent.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExplain(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Base, "base", "", "document URL (default: file URL of the document)")
	return cmd
}

func runExplain(opts *ExplainOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	ws := &workspace{logger: newLogger(opts.RootOptions, cmd.ErrOrStderr()), out: formatter}

	doc, docURL, err := ws.readDocument(path, opts.Base)
	if err != nil {
		return err
	}
	tree := ast.Render(doc)

	if opts.Format == "json" {
		return formatter.Success(Explanation{URL: docURL, Tree: tree})
	}
	fmt.Fprintln(formatter.Writer, tree)
	return nil
}
