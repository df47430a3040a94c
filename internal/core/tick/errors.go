package tick

import "errors"

var (
	ErrTimeout        = errors.New("tick round trip timed out")
	ErrAlreadyRunning = errors.New("tick loop is already running")
)
