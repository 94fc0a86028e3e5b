package domain

import "errors"

var (
	// ErrSourceUnavailable marks a reference source that could not be reached or returned no rows.
	ErrSourceUnavailable = errors.New("reference source unavailable")
	// ErrMalformedRow marks a row whose core field cannot be resolved.
	ErrMalformedRow = errors.New("malformed row")
	// ErrMissingColumn marks a table without one of the required columns.
	ErrMissingColumn = errors.New("missing required column")
	// ErrUploadNotFound is returned when no cache entry exists for an upload.
	ErrUploadNotFound = errors.New("upload not found")
	// ErrUnsupportedFormat is returned for file or export formats we cannot handle.
	ErrUnsupportedFormat = errors.New("unsupported format")
)
