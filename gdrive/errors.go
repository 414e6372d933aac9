package gdrive

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"google.golang.org/api/googleapi"
)

var ErrTransient = errors.New("transient provider error")
var ErrPermanent = errors.New("permanent provider error")

// ProviderError tags a provider call failure with its classification while
// keeping the underlying error available to errors.Is/As.
type ProviderError struct {
	Kind error
	Err  error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%v (%v)", e.Kind, e.Err)
}

func (e *ProviderError) Unwrap() []error {
	return []error{e.Kind, e.Err}
}

// Classify wraps err as either transient or permanent. Errors that are already
// classified are returned unchanged.
func Classify(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, ErrTransient) || errors.Is(err, ErrPermanent) {
		return err
	}

	return &ProviderError{Kind: kind(err), Err: err}
}

func IsTransient(err error) bool {
	return errors.Is(Classify(err), ErrTransient)
}

func kind(err error) error {
	var apierr *googleapi.Error
	var neterr net.Error

	switch {
	case errors.Is(err, context.Canceled):
		return ErrPermanent

	case errors.Is(err, context.DeadlineExceeded):
		return ErrTransient

	case errors.As(err, &apierr):
		return status(apierr)

	case errors.As(err, &neterr):
		return ErrTransient

	default:
		return ErrTransient
	}
}

func status(err *googleapi.Error) error {
	switch {
	case err.Code == http.StatusTooManyRequests:
		return ErrTransient

	case err.Code >= 500:
		return ErrTransient

	case err.Code == http.StatusForbidden:
		for _, e := range err.Errors {
			if e.Reason == "rateLimitExceeded" || e.Reason == "userRateLimitExceeded" {
				return ErrTransient
			}
		}
		return ErrPermanent

	case err.Code >= 400:
		return ErrPermanent

	default:
		return ErrTransient
	}
}
