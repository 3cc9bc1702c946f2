package offline

import "errors"

var ErrOfflineNotPermitted = errors.New("offline work not permitted")
