package tui

import (
	"errors"
	"fmt"

	"github.com/pders01/tendr/internal/api"
)

// wrapErr formats an error with a contextual prefix.
func wrapErr(context string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", context, err)
}

// describeErr turns a fetch failure into status bar text.
func describeErr(err error) string {
	var (
		serverErr    *api.ServerError
		transportErr *api.TransportError
	)
	switch {
	case errors.As(err, &serverErr):
		return serverErr.Error()
	case errors.As(err, &transportErr):
		return "cannot reach tender API: " + transportErr.Err.Error()
	default:
		return err.Error()
	}
}
