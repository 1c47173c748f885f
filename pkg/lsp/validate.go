package lsp

import (
	"context"

	"gitlab.com/tozd/go/errors"

	"github.com/walteh/gonunjucks/pkg/diagnostic"
)

// Diagnostics computes the diagnostics of the stored version of uri, capped at
// MaxNumberOfProblems.
func (s *Server) Diagnostics(ctx context.Context, uri string) ([]Diagnostic, error) {
	doc, ok := s.documents.Get(uri)
	if !ok {
		return nil, errors.Errorf("document not found: %s", uri)
	}

	found := diagnostic.GetDiagnostics(ctx, doc.Content, s.documents.ParseFunc(uri))
	if limit := s.settings.MaxNumberOfProblems; limit >= 0 && len(found) > limit {
		found = found[:limit]
	}

	out := make([]Diagnostic, 0, len(found))
	for _, d := range found {
		out = append(out, Diagnostic{
			Range:    fromRange(d.Range),
			Severity: DiagnosticSeverity(d.Severity.LSP()),
			Source:   d.Source,
			Message:  d.Message,
		})
	}
	return out, nil
}

func (s *Server) publishDiagnostics(ctx context.Context, uri string) error {
	if !s.settings.EnabledFeatures.Diagnostics {
		return nil
	}

	diags, err := s.Diagnostics(ctx, uri)
	if err != nil {
		return err
	}

	logger := s.logger(ctx)
	for _, d := range diags {
		logger.Debug().Stringer("severity", d.Severity).Int("line", d.Range.Start.Line).Str("message", d.Message).Msg("diagnostic")
	}

	if s.publisher == nil {
		return nil
	}

	doc, _ := s.documents.Get(uri)
	params := &PublishDiagnosticsParams{URI: uri, Diagnostics: diags}
	if doc != nil {
		params.Version = doc.Version
	}
	if err := s.publisher.PublishDiagnostics(ctx, params); err != nil {
		return errors.Errorf("publishing diagnostics: %w", err)
	}
	return nil
}
