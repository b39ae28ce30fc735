// Package validation binds request bodies and turns validator failures into
// field-level 400 responses.
package validation
