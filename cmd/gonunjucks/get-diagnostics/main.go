package get_diagnostics

import (
	"context"
	"fmt"
	"io"
	"runtime"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"gitlab.com/tozd/go/errors"
	"golang.org/x/sync/errgroup"

	"github.com/walteh/gonunjucks/pkg/diagnostic"
	"github.com/walteh/gonunjucks/pkg/finder"
	"github.com/walteh/gonunjucks/pkg/settings"
)

// ErrProblemsFound is returned when at least one template has a diagnostic.
var ErrProblemsFound = errors.Base("problems found")

type Handler struct {
	fs       afero.Fs
	format   string // text, json, table
	patterns []string
}

type fileResult struct {
	path        string
	diagnostics []diagnostic.Diagnostic
}

func NewGetDiagnosticsCommand() *cobra.Command {
	me := &Handler{fs: afero.NewOsFs()}

	cmd := &cobra.Command{
		Use:   "get-diagnostics [glob...]",
		Short: "report syntax errors in templates",
		Long: "Reports syntax errors in the templates matching the given globs, or in the configured " +
			"template paths when none are given.",
	}

	cmd.Flags().StringVar(&me.format, "format", "text", "output format: text, json or table")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		me.patterns = args
		return me.Run(cmd.Context(), cmd.OutOrStdout())
	}

	return cmd
}

func (me *Handler) Run(ctx context.Context, w io.Writer) error {
	cfg := settings.Ctx(ctx)
	logger := zerolog.Ctx(ctx)

	formatter, err := me.formatter()
	if err != nil {
		return err
	}

	paths, err := me.discover(ctx, cfg)
	if err != nil {
		return err
	}
	logger.Debug().Int("templates", len(paths)).Msg("discovered templates")

	files, readErr := finder.NewFinder(me.fs).ReadAll(ctx, paths)
	if readErr != nil {
		logger.Warn().Err(readErr).Msg("some templates could not be read")
	}

	results := make([]fileResult, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, f := range files {
		i, f := i, f
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			diags := diagnostic.GetDiagnostics(gctx, string(f.Content), nil)
			if limit := cfg.MaxNumberOfProblems; limit >= 0 && len(diags) > limit {
				diags = diags[:limit]
			}
			results[i] = fileResult{path: f.Path, diagnostics: diags}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return errors.Errorf("checking templates: %w", err)
	}

	problems, failing := 0, 0
	for _, r := range results {
		if len(r.diagnostics) > 0 {
			problems += len(r.diagnostics)
			failing++
		}
	}

	if me.format == "table" {
		me.renderTable(w, results)
	} else {
		for _, r := range results {
			if len(r.diagnostics) == 0 {
				continue
			}
			out, err := formatter.Format(r.path, r.diagnostics)
			if err != nil {
				return err
			}
			if _, err := w.Write(out); err != nil {
				return errors.Errorf("writing diagnostics: %w", err)
			}
			if me.format == "json" {
				fmt.Fprintln(w)
			}
		}
	}

	if readErr != nil {
		return errors.Errorf("reading templates: %w", readErr)
	}
	if problems > 0 {
		return errors.Errorf("%w: %d in %d of %d templates", ErrProblemsFound, problems, failing, len(results))
	}
	return nil
}

func (me *Handler) formatter() (diagnostic.Formatter, error) {
	switch me.format {
	case "text", "table":
		return diagnostic.NewTextFormatter(), nil
	case "json":
		return diagnostic.NewVSCodeFormatter(), nil
	}
	return nil, errors.Errorf("unknown format %q", me.format)
}

// discover expands the patterns, or walks the configured template paths when there are none.
func (me *Handler) discover(ctx context.Context, cfg *settings.Settings) ([]string, error) {
	f := finder.NewFinder(me.fs)

	if len(me.patterns) > 0 {
		paths, err := f.FindGlob(ctx, me.patterns...)
		if err != nil {
			return nil, errors.Errorf("expanding patterns: %w", err)
		}
		return paths, nil
	}

	var paths []string
	for _, dir := range cfg.TemplatePaths {
		found, err := f.FindTemplates(ctx, dir, cfg.Extensions)
		if err != nil {
			return nil, errors.Errorf("finding templates in %s: %w", dir, err)
		}
		paths = append(paths, found...)
	}
	return paths, nil
}

func (me *Handler) renderTable(w io.Writer, results []fileResult) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	style := table.StyleLight
	style.Format.Header = text.FormatDefault
	t.SetStyle(style)
	t.AppendHeader(table.Row{"File", "Line", "Column", "Severity", "Message"})

	for _, r := range results {
		for _, d := range r.diagnostics {
			t.AppendRow(table.Row{r.path, d.Range.Start.Line + 1, d.Range.Start.Character + 1, string(d.Severity), d.Message})
		}
	}
	t.Render()
}
