package lsp_test

import (
	"context"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/walteh/gonunjucks/pkg/docs"
	"github.com/walteh/gonunjucks/pkg/lsp"
)

type recordingNotifier struct {
	mu       sync.Mutex
	messages []*lsp.LogMessageParams
}

func (n *recordingNotifier) LogMessage(_ context.Context, params *lsp.LogMessageParams) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = append(n.messages, params)
	return nil
}

func TestLoggerContext(t *testing.T) {
	s := lsp.NewServer(docs.New(docs.Tables{}))
	notifier := &recordingNotifier{}

	ctx := s.LoggerContext(context.Background(), notifier, zerolog.InfoLevel)

	zerolog.Ctx(ctx).Info().Str("uri", "file:///a.njk").Msg("document opened")
	zerolog.Ctx(ctx).Debug().Msg("below the level")

	require.Len(t, notifier.messages, 1)
	got := notifier.messages[0]
	assert.Equal(t, lsp.Info, got.Type)
	assert.Equal(t, "document opened", got.Message)
	assert.NotEmpty(t, got.Time)
	assert.Contains(t, got.Source, "logging_test.go")
	assert.Equal(t, map[string]any{"uri": "file:///a.njk"}, got.Extra)
}

func TestLSPWriter(t *testing.T) {
	notifier := &recordingNotifier{}
	w := lsp.NewLSPWriter(context.Background(), notifier, "me")

	_, err := w.Write([]byte(`{"level":"warn","server":"me","message":"own"}`))
	require.NoError(t, err)
	_, err = w.Write([]byte(`{"level":"info","message":"foreign"}`))
	require.NoError(t, err)
	n, err := w.Write([]byte("not json"))
	require.NoError(t, err)
	assert.Equal(t, len("not json"), n)

	require.Len(t, notifier.messages, 2)
	assert.Equal(t, lsp.Warning, notifier.messages[0].Type)
	assert.Nil(t, notifier.messages[0].Extra)
	assert.Equal(t, lsp.Dependency, notifier.messages[1].Type)
	assert.Equal(t, "info", notifier.messages[1].Extra["level"])
}

func TestParseMessageTypeFromZerolog(t *testing.T) {
	assert.Equal(t, lsp.Error, lsp.ParseMessageTypeFromZerolog("error"))
	assert.Equal(t, lsp.Trace, lsp.ParseMessageTypeFromZerolog("trace"))
	assert.Equal(t, lsp.Unknown, lsp.ParseMessageTypeFromZerolog("loud"))
	assert.Equal(t, "dependency", lsp.Dependency.String())
}
