package web

import (
	"context"
	"net/http"

	"github.com/JonMunkholm/filecompare/internal/core"
	mw "github.com/JonMunkholm/filecompare/internal/web/middleware"
)

// withClientInfo records the caller for the audit log. RemoteAddr has
// already been rewritten by TrustedRealIP.
func withClientInfo(r *http.Request) context.Context {
	return core.WithClientInfo(r.Context(), core.ClientInfo{
		IPAddress: mw.ClientIP(r),
		UserAgent: r.UserAgent(),
	})
}
