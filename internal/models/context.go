package models

import "context"

type requestMetaKey struct{}

// RequestMeta carries client information captured by the HTTP layer for
// audit records.
type RequestMeta struct {
	IP        string
	UserAgent string
}

// WithRequestMeta stores client info on the context.
func WithRequestMeta(ctx context.Context, meta RequestMeta) context.Context {
	return context.WithValue(ctx, requestMetaKey{}, meta)
}

// RequestMetaFromContext retrieves client info previously stored on the context.
func RequestMetaFromContext(ctx context.Context) (RequestMeta, bool) {
	meta, ok := ctx.Value(requestMetaKey{}).(RequestMeta)
	return meta, ok
}
