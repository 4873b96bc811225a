package core

import "github.com/pkg/errors"

// shutdown marks an error as unrecoverable. The API's error handler reacts to
// it by stopping the server instead of serving failures forever.
type shutdown struct {
	message string
}

func NewShutdownError(msg string) error {
	return &shutdown{message: msg}
}

func (s shutdown) Error() string {
	return s.message
}

func IsShutdown(err error) bool {
	_, ok := errors.Cause(err).(*shutdown)
	return ok
}
