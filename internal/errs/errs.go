// Package errs defines the error shapes returned to API clients.
//
// HTTPError is serialized as-is by the global error handler, so every
// failure reaches the frontend with the same {code, message, status,
// override, errors, action} structure. Field-level errors come from
// request validation; actions are hints such as "retry after".
package errs
