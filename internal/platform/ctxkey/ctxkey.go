// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package ctxkey defines the typed keys under which middleware stores
// per-request values: the request id, the request logger, and the author's
// verified token claims. Read them through package ctxutil.
package ctxkey

// key is unexported so no other package can build a colliding key.
type key string

const (
	// KeyRequestID holds the X-Request-ID correlation value.
	KeyRequestID key = "request_id"

	// KeyUser holds the verified *sec.AuthClaims of the acting user.
	KeyUser key = "user"

	// KeyLogger holds the request-scoped [*log/slog.Logger].
	KeyLogger key = "logger"
)
