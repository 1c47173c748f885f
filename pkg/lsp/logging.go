package lsp

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/rs/zerolog"

	"github.com/walteh/gonunjucks/pkg/debug"
)

// MessageType is the type of a window/logMessage notification
type MessageType int

const (
	Error      MessageType = 1
	Warning    MessageType = 2
	Info       MessageType = 3
	Debug      MessageType = 4
	Trace      MessageType = 5
	Dependency MessageType = 6
	Unknown    MessageType = 7
)

func (mt MessageType) String() string {
	switch mt {
	case Error:
		return "error"
	case Warning:
		return "warning"
	case Info:
		return "info"
	case Debug:
		return "debug"
	case Trace:
		return "trace"
	case Dependency:
		return "dependency"
	default:
		return "unknown"
	}
}

func ParseMessageTypeFromZerolog(level string) MessageType {
	zlgLevel, err := zerolog.ParseLevel(level)
	if err != nil {
		return Unknown
	}
	switch zlgLevel {
	case zerolog.InfoLevel:
		return Info
	case zerolog.ErrorLevel, zerolog.FatalLevel, zerolog.PanicLevel:
		return Error
	case zerolog.WarnLevel:
		return Warning
	case zerolog.DebugLevel:
		return Debug
	case zerolog.TraceLevel:
		return Trace
	default:
		return Unknown
	}
}

// LogMessageParams represents the parameters for a window/logMessage notification
type LogMessageParams struct {
	Type    MessageType    `json:"type"`
	Message string         `json:"message"`
	Source  string         `json:"source,omitempty"`
	Raw     string         `json:"raw,omitempty"`
	Extra   map[string]any `json:"extra,omitempty"`
	Time    string         `json:"time,omitempty"`
}

// LogNotifier sends window/logMessage notifications to the client.
type LogNotifier interface {
	LogMessage(ctx context.Context, params *LogMessageParams) error
}

// LSPWriter turns zerolog JSON lines into log notifications. Lines not written by the logger of
// serverID are reported as Dependency.
type LSPWriter struct {
	mu       sync.Mutex
	ctx      context.Context
	notifier LogNotifier
	serverID string
}

func NewLSPWriter(ctx context.Context, notifier LogNotifier, serverID string) *LSPWriter {
	return &LSPWriter{ctx: ctx, notifier: notifier, serverID: serverID}
}

// LoggerContext returns ctx with a logger that forwards to the client at level and above.
func (s *Server) LoggerContext(ctx context.Context, notifier LogNotifier, level zerolog.Level) context.Context {
	return zerolog.New(NewLSPWriter(ctx, notifier, s.id)).
		Level(level).
		With().
		Str("server", s.id).
		Logger().
		Hook(debug.CustomTimeHook{WithColor: false}).
		Hook(debug.CustomCallerHook{WithColor: false}).
		WithContext(ctx)
}

func (w *LSPWriter) Write(p []byte) (n int, err error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	var entry map[string]any
	if err := json.Unmarshal(p, &entry); err != nil {
		return len(p), nil // not a zerolog line
	}

	take := func(key string) string {
		v, _ := entry[key].(string)
		delete(entry, key)
		return v
	}

	level := take(zerolog.LevelFieldName)
	notification := &LogMessageParams{
		Type:    ParseMessageTypeFromZerolog(level),
		Message: take(zerolog.MessageFieldName),
		Time:    take(zerolog.TimestampFieldName),
		Source:  take("caller"),
		Raw:     string(p),
	}
	if take("server") != w.serverID {
		notification.Type = Dependency
		entry[zerolog.LevelFieldName] = level
	}
	if len(entry) > 0 {
		notification.Extra = entry
	}

	return len(p), w.notifier.LogMessage(w.ctx, notification)
}
