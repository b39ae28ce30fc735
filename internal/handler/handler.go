// Package handler is the HTTP layer. Handlers bind and validate the body,
// call one service method and shape the JSON response. Every failure is
// returned to the global error handler.
package handler

import "github.com/go-playground/validator/v10"

// validate is shared by every request type. validator.Validate caches
// struct metadata and is safe for concurrent use.
var validate = validator.New(validator.WithRequiredStructEnabled())

// EmptyRequest is the payload of endpoints that take no body.
type EmptyRequest struct{}

func (r *EmptyRequest) Validate() error { return nil }
