package document

import "errors"

var (
	ErrNotFound        = errors.New("document not found")
	ErrInvalidDocument = errors.New("invalid document")
	ErrUnknownPatient  = errors.New("patient does not exist in this clinic")
)
