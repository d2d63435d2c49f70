package core

import "context"

type contextKey string

const ctxKeyClient contextKey = "client_info"

// ClientInfo identifies the caller of a comparison for the audit log.
type ClientInfo struct {
	IPAddress string
	UserAgent string
}

// WithClientInfo attaches the caller's address and user agent to ctx.
func WithClientInfo(ctx context.Context, info ClientInfo) context.Context {
	return context.WithValue(ctx, ctxKeyClient, info)
}

// ClientInfoFromContext returns the caller recorded by WithClientInfo, or
// the zero value when none was recorded.
func ClientInfoFromContext(ctx context.Context) ClientInfo {
	if v, ok := ctx.Value(ctxKeyClient).(ClientInfo); ok {
		return v
	}
	return ClientInfo{}
}
