package core

import "context"

type contextKey string

const (
	ctxKeyRemoteAddr contextKey = "remote_addr"
	ctxKeyUserAgent  contextKey = "user_agent"
)

// ContextWithRemoteAddr records the client address that started an import.
func ContextWithRemoteAddr(ctx context.Context, addr string) context.Context {
	return context.WithValue(ctx, ctxKeyRemoteAddr, addr)
}

// ContextWithUserAgent records the client User-Agent that started an import.
func ContextWithUserAgent(ctx context.Context, ua string) context.Context {
	return context.WithValue(ctx, ctxKeyUserAgent, ua)
}

// RemoteAddrFromContext extracts the client address from context.
func RemoteAddrFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(ctxKeyRemoteAddr).(string); ok {
		return v
	}
	return ""
}

// UserAgentFromContext extracts the User-Agent from context.
func UserAgentFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(ctxKeyUserAgent).(string); ok {
		return v
	}
	return ""
}
