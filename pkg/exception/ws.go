package exception

import "errors"

// Stream errors
var (
	ErrStreamNilDialer = errors.New("stream: nil dialer")
	ErrStreamPayload   = errors.New("stream: malformed payload")
)
