package tui

import (
	"errors"
	"fmt"

	"github.com/pders01/treehole/internal/api"
)

// wrapErr formats an error with a contextual prefix.
func wrapErr(context string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", context, err)
}

// describeErr turns backend errors into a short status line.
func describeErr(err error) string {
	var apiErr *api.APIError
	switch {
	case errors.Is(err, api.ErrUnauthorized):
		return "session expired, please log in"
	case errors.As(err, &apiErr):
		if apiErr.Msg != "" {
			return fmt.Sprintf("server: %s (%d)", apiErr.Msg, apiErr.Code)
		}
		return fmt.Sprintf("server returned code %d", apiErr.Code)
	default:
		return err.Error()
	}
}
