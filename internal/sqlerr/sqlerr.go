// Package sqlerr specifically handles database driver errors.
//
// It parses cryptic error codes from the database driver and
// converts them into user-friendly messages (e.g., converting
// a "not null violation" into a "Bad Request" error)
package sqlerr

import "fmt"

// Code is a coarse classification of a Postgres SQLSTATE.
type Code string

const (
	Other               Code = "other"
	NotNullViolation    Code = "not_null_violation"
	ForeignKeyViolation Code = "foreign_key_violation"
	UniqueViolation     Code = "unique_violation"
	CheckViolation      Code = "check_violation"
	StringTooLong       Code = "string_data_right_truncation"
	UndefinedTable      Code = "undefined_table"
	ConnectionFailure   Code = "connection_exception"
	InsufficientRes     Code = "insufficient_resources"
	AdminShutdown       Code = "admin_shutdown"
)

// Severity mirrors the Postgres severity field.
type Severity string

const (
	SeverityError   Severity = "ERROR"
	SeverityFatal   Severity = "FATAL"
	SeverityPanic   Severity = "PANIC"
	SeverityWarning Severity = "WARNING"
	SeverityNotice  Severity = "NOTICE"
	SeverityDebug   Severity = "DEBUG"
	SeverityInfo    Severity = "INFO"
	SeverityLog     Severity = "LOG"
)

// Error is a driver-independent view of a Postgres error.
type Error struct {
	Code           Code
	Severity       Severity
	DatabaseCode   string
	Message        string
	SchemaName     string
	TableName      string
	ColumnName     string
	DataTypeName   string
	ConstraintName string
	driverErr      error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s (SQLSTATE %s)", e.Severity, e.Message, e.DatabaseCode)
}

func (e *Error) Unwrap() error {
	return e.driverErr
}

// MapCode classifies a five-character SQLSTATE. Class 08 (connection
// exception) and class 53 (insufficient resources) are matched by prefix.
func MapCode(sqlstate string) Code {
	switch sqlstate {
	case "23502":
		return NotNullViolation
	case "23503":
		return ForeignKeyViolation
	case "23505":
		return UniqueViolation
	case "23514":
		return CheckViolation
	case "22001":
		return StringTooLong
	case "42P01":
		return UndefinedTable
	case "57P01":
		return AdminShutdown
	}

	if len(sqlstate) == 5 {
		switch sqlstate[:2] {
		case "08":
			return ConnectionFailure
		case "53":
			return InsufficientRes
		}
	}
	return Other
}

// MapSeverity converts the raw severity string.
func MapSeverity(severity string) Severity {
	switch Severity(severity) {
	case SeverityError, SeverityFatal, SeverityPanic, SeverityWarning,
		SeverityNotice, SeverityDebug, SeverityInfo, SeverityLog:
		return Severity(severity)
	default:
		return SeverityError
	}
}

// IsConnectionProblem reports whether the code means the server or link is
// unavailable rather than the statement being wrong.
func (c Code) IsConnectionProblem() bool {
	return c == ConnectionFailure || c == InsufficientRes || c == AdminShutdown
}
