// Package service holds the business rules between handlers and
// repositories. Services translate storage and upstream failures into
// errs.HTTPError values the handlers can return as they are.
package service
