package parse_cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"gitlab.com/tozd/go/errors"

	nunjucks "github.com/walteh/gonunjucks/pkg/nunjucks/parse"
	"github.com/walteh/gonunjucks/pkg/parser"
)

type Handler struct {
	fs   afero.Fs
	file string
}

func NewParseCommand() *cobra.Command {
	me := &Handler{fs: afero.NewOsFs()}

	cmd := &cobra.Command{
		Use:   "parse [file]",
		Short: "print the syntax tree of a template",
		Args:  cobra.ExactArgs(1),
	}

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		me.file = args[0]
		return me.Run(cmd.Context(), cmd.OutOrStdout())
	}

	return cmd
}

// Run prints the tree, partial when the template does not parse, and then the parse error.
func (me *Handler) Run(ctx context.Context, w io.Writer) error {
	content, err := afero.ReadFile(me.fs, me.file)
	if err != nil {
		return errors.Errorf("reading template: %w", err)
	}

	res := parser.Parse(ctx, content, me.file)

	if err := nunjucks.Fprint(w, res.Root); err != nil {
		return errors.Errorf("printing tree: %w", err)
	}

	if res.Error != nil {
		fmt.Fprintf(w, "error: %s\n", res.Error)
		return errors.Errorf("parsing %s: %w", me.file, res.Error)
	}
	return nil
}
