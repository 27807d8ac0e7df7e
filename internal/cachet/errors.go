package cachet

import "errors"

var (
	ErrStoreUnavailable = errors.New("status store unavailable")
	ErrStoreDecode      = errors.New("status store returned an unexpected response")
)
