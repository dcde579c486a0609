// Package errors maps errors to low-cardinality classes for metric tags.
package errors

import (
	"context"
	goerrors "errors"
	"net"
	"reflect"
	"strconv"
	"strings"
)

// StatusCoder is implemented by errors that carry an HTTP status returned by a remote peer.
type StatusCoder interface {
	HTTPStatusCode() int
}

// Classify returns a normalized error class suitable for tagging metrics/logs.
//
// Context errors, remote HTTP statuses and network failures get fixed classes
// (timeout, canceled, http_4xx, http_5xx, network). Anything else is named after
// its innermost concrete type in snake_case-ish form.
func Classify(err error) string {
	switch {
	case err == nil:
		return ""
	case goerrors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case goerrors.Is(err, context.Canceled):
		return "canceled"
	}

	var sc StatusCoder
	if goerrors.As(err, &sc) {
		if code := sc.HTTPStatusCode(); code >= 100 && code <= 599 {
			return "http_" + strconv.Itoa(code/100) + "xx"
		}
	}

	var netErr net.Error
	if goerrors.As(err, &netErr) {
		if netErr.Timeout() {
			return "timeout"
		}
		return "network"
	}

	return typeName(err)
}

func typeName(err error) string {
	// Unwrap to the innermost error for better signal.
	for {
		unwrapped := goerrors.Unwrap(err)
		if unwrapped == nil {
			break
		}
		err = unwrapped
	}

	t := reflect.TypeOf(err)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil {
		return "unknown"
	}

	name := strings.ToLower(strings.ReplaceAll(t.String(), "*", ""))
	name = strings.ReplaceAll(name, ".", "_")
	if name == "" {
		return "unknown"
	}
	return name
}
