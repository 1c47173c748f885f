package lsp

import (
	"context"

	"gitlab.com/tozd/go/errors"

	"github.com/walteh/gonunjucks/pkg/hover"
)

func (s *Server) Hover(ctx context.Context, params *HoverParams) (*Hover, error) {
	if !s.settings.EnabledFeatures.Hover {
		return nil, nil
	}

	doc, ok := s.documents.Get(params.TextDocument.URI)
	if !ok {
		return nil, errors.Errorf("document not found: %s", params.TextDocument.URI)
	}

	info, err := hover.BuildHover(ctx, doc.Content, params.Position.place(), s.lookup, s.documents.ParseFunc(params.TextDocument.URI))
	if err != nil {
		return nil, errors.Errorf("building hover response: %w", err)
	}
	if info == nil {
		return nil, nil
	}

	r := fromRange(info.Range)
	return &Hover{
		Contents: MarkupContent{Kind: Markdown, Value: info.Content},
		Range:    &r,
	}, nil
}
