// Package middleware contains the echo middleware shared by every route:
// request ids, per-request loggers, tracing, rate limiting, the optional
// admin guard and the global error handler.
package middleware
