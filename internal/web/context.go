package web

import (
	"context"
	"net/http"

	"github.com/JonMunkholm/tpcload/internal/core"
)

// withRequestMetadata records the client address and User-Agent on ctx so
// the import log and status carry them. RemoteAddr has already been
// rewritten by TrustedRealIP.
func withRequestMetadata(ctx context.Context, r *http.Request) context.Context {
	ctx = core.ContextWithRemoteAddr(ctx, r.RemoteAddr)
	return core.ContextWithUserAgent(ctx, r.UserAgent())
}
