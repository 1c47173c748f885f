package lsp

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
	"golang.org/x/sync/singleflight"

	"github.com/walteh/gonunjucks/pkg/parser"
)

// Document represents an open text document
type Document struct {
	URI     string
	Version int32
	Content string
}

type cachedParse struct {
	version int32
	content string
	result  *parser.Result
}

func (c cachedParse) matches(doc *Document) bool {
	return c.version == doc.Version && c.content == doc.Content
}

// DocumentManager stores open documents and the parse result of their latest version.
type DocumentManager struct {
	mu     sync.Mutex
	docs   map[string]*Document
	parsed map[string]cachedParse

	parse  parser.Func
	flight singleflight.Group
}

// NewDocumentManager returns an empty store. A nil parseFn means parser.Parse.
func NewDocumentManager(parseFn parser.Func) *DocumentManager {
	if parseFn == nil {
		parseFn = parser.Parse
	}
	return &DocumentManager{
		docs:   make(map[string]*Document),
		parsed: make(map[string]cachedParse),
		parse:  parseFn,
	}
}

// normalizeURI ensures consistent URI handling by removing the file:// prefix if present
func normalizeURI(uri string) string {
	uri = strings.TrimPrefix(uri, "file://")
	uri = strings.TrimPrefix(uri, "file:")
	return uri
}

// Store saves doc unless a newer version of it is already stored. It reports whether doc was kept.
func (m *DocumentManager) Store(doc *Document) bool {
	key := normalizeURI(doc.URI)

	m.mu.Lock()
	defer m.mu.Unlock()

	if cur, ok := m.docs[key]; ok && cur.Version > doc.Version {
		return false
	}
	m.docs[key] = doc
	if c, ok := m.parsed[key]; ok && !c.matches(doc) {
		delete(m.parsed, key)
	}
	return true
}

func (m *DocumentManager) Get(uri string) (*Document, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	doc, ok := m.docs[normalizeURI(uri)]
	return doc, ok
}

func (m *DocumentManager) Delete(uri string) {
	key := normalizeURI(uri)

	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.docs, key)
	delete(m.parsed, key)
}

// Parse returns the parse result of the stored version of uri. Results are cached per version
// and concurrent callers asking for the same version share one parse.
func (m *DocumentManager) Parse(ctx context.Context, uri string) (*parser.Result, error) {
	doc, ok := m.Get(uri)
	if !ok {
		return nil, errors.Errorf("document not found: %s", uri)
	}
	return m.parseDocument(ctx, normalizeURI(uri), doc), nil
}

// parseDocument parses the snapshot doc. The result is cached only while doc is still the stored one.
func (m *DocumentManager) parseDocument(ctx context.Context, key string, doc *Document) *parser.Result {
	m.mu.Lock()
	if c, ok := m.parsed[key]; ok && c.matches(doc) {
		m.mu.Unlock()
		return c.result
	}
	m.mu.Unlock()

	v, _, shared := m.flight.Do(fmt.Sprintf("%s@%d", key, doc.Version), func() (any, error) {
		c := cachedParse{
			version: doc.Version,
			content: doc.Content,
			result:  m.parse(ctx, []byte(doc.Content), key),
		}

		m.mu.Lock()
		defer m.mu.Unlock()
		// a newer version may have been stored while parsing
		if cur, ok := m.docs[key]; ok && c.matches(cur) {
			m.parsed[key] = c
		}
		return c, nil
	})

	c := v.(cachedParse)
	if !c.matches(doc) {
		// the shared parse was of other content under the same version
		c.result = m.parse(ctx, []byte(doc.Content), key)
		shared = false
	}

	zerolog.Ctx(ctx).Trace().Str("uri", key).Int32("version", doc.Version).Bool("shared", shared).Msg("parsed document")

	return c.result
}

// ParseFunc adapts the cache of uri to a parser.Func for consumers that take one. Content that
// is not the stored version of uri is parsed directly, so the tree always matches the text.
func (m *DocumentManager) ParseFunc(uri string) parser.Func {
	return func(ctx context.Context, content []byte, filename string) *parser.Result {
		doc, ok := m.Get(uri)
		if !ok || doc.Content != string(content) {
			return parser.Parse(ctx, content, filename)
		}
		return m.parseDocument(ctx, normalizeURI(uri), doc)
	}
}
