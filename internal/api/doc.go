// Package api defines the wire-format types of the HTTP API and the
// converters that build them from pipeline results, job rows, dependency
// checks and errors.
//
// # Key Types
//
// OperationResponse: success payload of the six processing endpoints.
//
// ErrorResponse: failure payload carrying the message and, for processing
// failures, the stage that failed.
//
// Job/JobListResponse: job-status store rows for the jobs endpoints.
//
// Status: daemon runtime information, dependency availability and
// directory checks.
//
// # Design Notes
//
// DTOs use camelCase JSON tags for the browser client. Timestamps use
// RFC3339 with milliseconds. Every processing payload carries "success" so
// the client can branch on one field.
package api
