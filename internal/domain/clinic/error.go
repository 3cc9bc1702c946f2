package clinic

import "errors"

var ErrInvalidPayload = errors.New("invalid payload")
