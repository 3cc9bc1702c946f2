package queue

import "errors"

var (
	ErrInvalidItem = errors.New("invalid queue item")
)
