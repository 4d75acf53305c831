package findex

import "errors"

// Exported errors for library consumers.
var (
	// ErrNoDatabase indicates no database was configured.
	ErrNoDatabase = errors.New("findex: no database configured")

	// ErrNoTables indicates no table declarations were configured.
	ErrNoTables = errors.New("findex: no table declarations configured")

	// ErrClientClosed indicates the client has been closed.
	ErrClientClosed = errors.New("findex: client is closed")
)
