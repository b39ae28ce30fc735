// Package repository holds the SQL that reads and writes application data.
//
// Repositories run every statement through database.Database.WithConn so
// the admission gate applies, and translate driver failures into the
// package's sentinel errors.
package repository
