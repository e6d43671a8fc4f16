package report

import "errors"

var (
	ErrUnknownStatus   = errors.New("unknown status")
	ErrUnknownSeverity = errors.New("unknown message severity")
	ErrInvalidCode     = errors.New("message code must be four digits")
	ErrUnknownRecord   = errors.New("unknown record")
)
