package domain

import "context"

type requestMetaKey struct{}

// RequestMeta carries transport details that audit records want to keep.
type RequestMeta struct {
	RemoteIP  string
	RequestID string
}

// WithRequestMeta stores m in ctx.
func WithRequestMeta(ctx context.Context, m RequestMeta) context.Context {
	return context.WithValue(ctx, requestMetaKey{}, m)
}

// RequestMetaFrom returns the RequestMeta stored in ctx, if any.
func RequestMetaFrom(ctx context.Context) RequestMeta {
	m, _ := ctx.Value(requestMetaKey{}).(RequestMeta)
	return m
}
