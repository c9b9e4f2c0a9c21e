package pager

import (
	"context"
	"errors"
	"net"

	"github.com/matheuskafuri/newsdesk/internal/newsapi"
)

// Status is the state of a list as shown to the user.
type Status int

const (
	StatusIdle Status = iota
	StatusLoading
	StatusSuccess
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusLoading:
		return "loading"
	case StatusSuccess:
		return "success"
	case StatusError:
		return "error"
	default:
		return "idle"
	}
}

// Message turns a load error into the short text shown to the user.
func Message(err error) string {
	var (
		apiErr *newsapi.APIError
		netErr net.Error
	)
	switch {
	case err == nil:
		return ""
	case errors.Is(err, context.DeadlineExceeded),
		errors.As(err, &netErr) && netErr.Timeout():
		// reachable but too slow
		return "Network failure"
	case errors.Is(err, newsapi.ErrNetwork):
		return "No internet connection"
	case errors.Is(err, newsapi.ErrConversion):
		return "Conversion error"
	case errors.As(err, &apiErr):
		if apiErr.Message != "" {
			return apiErr.Message
		}
		return apiErr.Error()
	default:
		return err.Error()
	}
}

// Benign reports errors that are part of normal paging and should not be
// shown as failures.
func Benign(err error) bool {
	return errors.Is(err, ErrBusy) ||
		errors.Is(err, ErrSuperseded) ||
		errors.Is(err, ErrLastPage) ||
		errors.Is(err, ErrEmptyQuery) ||
		errors.Is(err, context.Canceled)
}
