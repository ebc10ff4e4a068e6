// Package reqctx carries per-request identity through explicit context values.
package reqctx

import "context"

// RequestContext 一次请求的上下文（调用方、请求 ID、分片）
type RequestContext struct {
	UserID    string
	RequestID string
	Shard     int
}

type ctxKey struct{}

func With(ctx context.Context, rc RequestContext) context.Context {
	return context.WithValue(ctx, ctxKey{}, rc)
}

// From 取出请求上下文；不存在时返回零值
func From(ctx context.Context) RequestContext {
	if rc, ok := ctx.Value(ctxKey{}).(RequestContext); ok {
		return rc
	}
	return RequestContext{}
}

func RequestID(ctx context.Context) string { return From(ctx).RequestID }
