package model

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/oron-mozes/creo-sub000/core"
)

// StatusOverloaded is the non-standard status Anthropic uses for overload.
const StatusOverloaded = 529

// IsOverloadStatus reports whether an HTTP status means the upstream model is
// temporarily unable to serve.
func IsOverloadStatus(code int) bool {
	switch code {
	case http.StatusTooManyRequests, http.StatusServiceUnavailable, StatusOverloaded:
		return true
	}
	return false
}

// Overloaded wraps err so errors.Is(err, core.ErrUpstreamOverloaded) holds.
func Overloaded(err error) error {
	if err == nil || errors.Is(err, core.ErrUpstreamOverloaded) {
		return err
	}
	return fmt.Errorf("%w: %v", core.ErrUpstreamOverloaded, err)
}

// Classify maps provider errors that signal a transient overload onto
// core.ErrUpstreamOverloaded. Provider adapters check typed status codes
// first; this catches the remaining textual signals. Other errors are
// returned unchanged.
func Classify(err error) error {
	if err == nil || errors.Is(err, core.ErrUpstreamOverloaded) {
		return err
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range []string{"overloaded_error", "overloaded", "rate_limit_error", "too many requests", "529"} {
		if strings.Contains(msg, marker) {
			return Overloaded(err)
		}
	}
	return err
}
