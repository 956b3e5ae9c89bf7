package intake

import (
	"context"
	"errors"
	"io"

	"techwiki/internal/kbapi"
)

// SubmitFallback is shown when the backend gave no reason.
const SubmitFallback = "failed to create problem, try again"

// ProblemCreator posts an encoded article.
type ProblemCreator interface {
	CreateProblem(ctx context.Context, body io.Reader, contentType string) (kbapi.Problem, error)
}

// SubmitError is a failed submission. Message is the server's reason or
// SubmitFallback.
type SubmitError struct {
	Message string
	Err     error
}

func (e *SubmitError) Error() string { return e.Message }
func (e *SubmitError) Unwrap() error { return e.Err }

// Submit validates, encodes and posts d. A *ValidationError means no request
// was sent. The draft is never modified so a failed submission can be
// retried as is.
func Submit(ctx context.Context, c ProblemCreator, d Draft) (kbapi.Problem, error) {
	p, err := BuildPayload(d)
	if err != nil {
		return kbapi.Problem{}, err
	}
	body, ct, err := p.Reader()
	if err != nil {
		return kbapi.Problem{}, &SubmitError{Message: err.Error(), Err: err}
	}
	created, err := c.CreateProblem(ctx, body, ct)
	if err != nil {
		msg := SubmitFallback
		var se *kbapi.StatusError
		if errors.As(err, &se) && se.Message != "" {
			msg = se.Message
		}
		return kbapi.Problem{}, &SubmitError{Message: msg, Err: err}
	}
	return created, nil
}
