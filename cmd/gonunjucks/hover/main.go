package hover_cmd

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/gonunjucks/pkg/docs"
	"github.com/walteh/gonunjucks/pkg/hover"
	"github.com/walteh/gonunjucks/pkg/position"
)

type Handler struct {
	fs        afero.Fs
	file      string
	line      int
	character int
}

func NewHoverCommand() *cobra.Command {
	me := &Handler{fs: afero.NewOsFs()}

	cmd := &cobra.Command{
		Use:   "hover [file] [line] [character]",
		Short: "print the documentation of the word at a 0-indexed position",
		Args:  cobra.ExactArgs(3),
	}

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		me.file = args[0]
		var err error
		me.line, err = strconv.Atoi(args[1])
		if err != nil {
			return errors.Errorf("invalid line number: %w", err)
		}
		me.character, err = strconv.Atoi(args[2])
		if err != nil {
			return errors.Errorf("invalid character number: %w", err)
		}
		return me.Run(cmd.Context(), cmd.OutOrStdout())
	}

	return cmd
}

func (me *Handler) Run(ctx context.Context, w io.Writer) error {
	content, err := afero.ReadFile(me.fs, me.file)
	if err != nil {
		return errors.Errorf("reading template: %w", err)
	}

	lookup, err := docs.Default()
	if err != nil {
		return err
	}

	info, err := hover.BuildHover(ctx, string(content), position.Place{Line: me.line, Character: me.character}, lookup, nil)
	if err != nil {
		return errors.Errorf("building hover: %w", err)
	}

	if info == nil {
		fmt.Fprintln(w, "no hover")
		return nil
	}

	fmt.Fprintf(w, "%s\nrange: %s\n", info.Content, info.Range)
	return nil
}
