package connectivity

import "errors"

var ErrOffline = errors.New("server unreachable")
