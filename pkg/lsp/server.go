// Package lsp serves editor requests over open Nunjucks documents. It is transport free: a
// JSON-RPC loop decodes requests into the types of this package and calls the Server.
package lsp

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/gonunjucks/pkg/completion"
	"github.com/walteh/gonunjucks/pkg/completion/providers"
	"github.com/walteh/gonunjucks/pkg/docs"
	"github.com/walteh/gonunjucks/pkg/semtok"
	"github.com/walteh/gonunjucks/pkg/settings"
)

const ServerName = "gonunjucks"

// Publisher delivers diagnostics to the client.
type Publisher interface {
	PublishDiagnostics(ctx context.Context, params *PublishDiagnosticsParams) error
}

// Server represents an LSP server instance
type Server struct {
	id        string
	documents *DocumentManager
	lookup    *docs.Lookup
	settings  *settings.Settings
	publisher Publisher
}

type Option func(*Server)

// WithDocumentManager replaces the default document store.
func WithDocumentManager(m *DocumentManager) Option {
	return func(s *Server) { s.documents = m }
}

func WithSettings(cfg *settings.Settings) Option {
	return func(s *Server) { s.settings = cfg }
}

// WithPublisher sets where diagnostics go. Without one they are computed and dropped.
func WithPublisher(p Publisher) Option {
	return func(s *Server) { s.publisher = p }
}

func NewServer(lookup *docs.Lookup, opts ...Option) *Server {
	s := &Server{
		id:       uuid.NewString(),
		lookup:   lookup,
		settings: settings.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.documents == nil {
		s.documents = NewDocumentManager(nil)
	}
	return s
}

func (s *Server) ID() string {
	return s.id
}

func (s *Server) Documents() *DocumentManager {
	return s.documents
}

func (s *Server) logger(ctx context.Context) *zerolog.Logger {
	l := zerolog.Ctx(ctx).With().Str("server", s.id).Logger()
	return &l
}

func (s *Server) Initialize(ctx context.Context, params *InitializeParams) (*InitializeResult, error) {
	s.logger(ctx).Debug().Str("root", params.RootURI).Msg("initializing server")

	caps := ServerCapabilities{
		TextDocumentSync: SyncFull,
		HoverProvider:    s.settings.EnabledFeatures.Hover,
		SemanticTokensProvider: &SemanticTokensOptions{
			Legend: SemanticTokensLegend{
				TokenTypes:     semtok.TokenTypes(),
				TokenModifiers: semtok.TokenModifiers(),
			},
			Full:  true,
			Range: false,
		},
	}
	if s.settings.EnabledFeatures.Completion {
		caps.CompletionProvider = &CompletionOptions{
			TriggerCharacters: []string{"{", "%", "|", " "},
			ResolveProvider:   true,
		}
	}

	return &InitializeResult{
		Capabilities: caps,
		ServerInfo:   ServerInfo{Name: ServerName},
	}, nil
}

func (s *Server) DidOpen(ctx context.Context, params *DidOpenTextDocumentParams) error {
	s.logger(ctx).Debug().Str("uri", params.TextDocument.URI).Int32("version", params.TextDocument.Version).Msg("document opened")

	s.documents.Store(&Document{
		URI:     params.TextDocument.URI,
		Version: params.TextDocument.Version,
		Content: params.TextDocument.Text,
	})

	return s.publishDiagnostics(ctx, params.TextDocument.URI)
}

// DidChange applies a full-text change. Only the last content change counts.
func (s *Server) DidChange(ctx context.Context, params *DidChangeTextDocumentParams) error {
	logger := s.logger(ctx)
	logger.Debug().Str("uri", params.TextDocument.URI).Int32("version", params.TextDocument.Version).Msg("document changed")

	if len(params.ContentChanges) == 0 {
		return nil
	}

	if _, ok := s.documents.Get(params.TextDocument.URI); !ok {
		return errors.Errorf("document not found: %s", params.TextDocument.URI)
	}

	kept := s.documents.Store(&Document{
		URI:     params.TextDocument.URI,
		Version: params.TextDocument.Version,
		Content: params.ContentChanges[len(params.ContentChanges)-1].Text,
	})
	if !kept {
		logger.Debug().Str("uri", params.TextDocument.URI).Msg("ignoring stale change")
		return nil
	}

	return s.publishDiagnostics(ctx, params.TextDocument.URI)
}

// DidClose forgets the document and clears its diagnostics.
func (s *Server) DidClose(ctx context.Context, params *DidCloseTextDocumentParams) error {
	s.logger(ctx).Debug().Str("uri", params.TextDocument.URI).Msg("document closed")

	s.documents.Delete(params.TextDocument.URI)

	if s.publisher == nil || !s.settings.EnabledFeatures.Diagnostics {
		return nil
	}
	return s.publisher.PublishDiagnostics(ctx, &PublishDiagnosticsParams{
		URI:         params.TextDocument.URI,
		Diagnostics: []Diagnostic{},
	})
}

func (s *Server) Completion(ctx context.Context, params *CompletionParams) (*CompletionList, error) {
	if !s.settings.EnabledFeatures.Completion {
		return nil, nil
	}

	doc, ok := s.documents.Get(params.TextDocument.URI)
	if !ok {
		return nil, errors.Errorf("document not found: %s", params.TextDocument.URI)
	}

	items := completion.GetCompletions(ctx, doc.Content, params.Position.place(), s.lookup)

	list := &CompletionList{Items: make([]CompletionItem, 0, len(items))}
	for _, it := range items {
		list.Items = append(list.Items, toProtocolItem(it))
	}
	return list, nil
}

func (s *Server) ResolveCompletionItem(ctx context.Context, params *CompletionItem) (*CompletionItem, error) {
	resolved := completion.Resolve(providers.CompletionItem{
		Label: params.Label,
		Data:  params.Data,
	}, s.lookup)

	out := *params
	if resolved.Documentation != "" {
		out.Documentation = &MarkupContent{Kind: Markdown, Value: resolved.Documentation}
	}
	return &out, nil
}

func (s *Server) SemanticTokensFull(ctx context.Context, params *SemanticTokensParams) (*SemanticTokens, error) {
	doc, ok := s.documents.Get(params.TextDocument.URI)
	if !ok {
		return nil, errors.Errorf("document not found: %s", params.TextDocument.URI)
	}

	tokens, err := semtok.GetTokensForText(ctx, []byte(doc.Content))
	if err != nil {
		// the tokens before a lex error are still useful
		s.logger(ctx).Debug().Err(err).Str("uri", params.TextDocument.URI).Msg("partial semantic tokens")
	}

	return &SemanticTokens{Data: semtok.Encode(doc.Content, tokens)}, nil
}

func toProtocolItem(it providers.CompletionItem) CompletionItem {
	out := CompletionItem{
		Label:            it.Label,
		Detail:           it.Detail,
		InsertText:       it.InsertText,
		InsertTextFormat: InsertTextFormatPlainText,
		Data:             it.Data,
	}
	if it.Snippet {
		out.InsertTextFormat = InsertTextFormatSnippet
	}
	if it.Documentation != "" {
		out.Documentation = &MarkupContent{Kind: Markdown, Value: it.Documentation}
	}

	switch it.Kind {
	case providers.KindSnippet:
		out.Kind = CompletionItemSnippet
	case providers.KindKeyword:
		out.Kind = CompletionItemKeyword
	case providers.KindFunction:
		out.Kind = CompletionItemFunction
	case providers.KindVariable:
		out.Kind = CompletionItemVariable
	default:
		out.Kind = CompletionItemText
	}
	return out
}
