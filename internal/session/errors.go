package session

import (
	"errors"

	"techwiki/internal/kbapi"
)

var (
	// ErrServerUnreachable means no response arrived from the backend.
	ErrServerUnreachable = errors.New("server unreachable, check that the backend is running")
	// ErrRequestMalformed means the request could not be built on this side.
	ErrRequestMalformed = errors.New("could not build the request")
)

const genericRejection = "request rejected by server"

// RejectedError is a response that carried an error status. Message is the
// server's reason verbatim, or a generic line when none was sent.
type RejectedError struct {
	Status  int
	Message string
}

func (e *RejectedError) Error() string { return e.Message }

// Classify maps a transport error to exactly one of ErrServerUnreachable,
// *RejectedError or ErrRequestMalformed.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	var se *kbapi.StatusError
	switch {
	case errors.As(err, &se):
		msg := se.Message
		if msg == "" {
			msg = genericRejection
		}
		return &RejectedError{Status: se.Code, Message: msg}
	case errors.Is(err, kbapi.ErrNoResponse):
		return ErrServerUnreachable
	default:
		return ErrRequestMalformed
	}
}
