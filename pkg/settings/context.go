package settings

import "context"

type ctxKey struct{}

// WithContext returns a copy of ctx carrying s.
func (s *Settings) WithContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, ctxKey{}, s)
}

// Ctx returns the settings attached to ctx, or the defaults when there are none.
func Ctx(ctx context.Context) *Settings {
	if s, ok := ctx.Value(ctxKey{}).(*Settings); ok && s != nil {
		return s
	}
	return Default()
}
