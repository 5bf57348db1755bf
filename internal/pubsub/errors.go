package pubsub

import "errors"

// ErrClosed is returned when operations are attempted on a closed bus.
var ErrClosed = errors.New("pubsub: closed")
