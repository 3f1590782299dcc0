package server

import "strings"

// isExpectedCloseError reports whether an error is part of normal connection
// teardown and not worth surfacing above debug level.
func isExpectedCloseError(err error) bool {
	if err == nil {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "use of closed network connection") ||
		strings.Contains(msg, "websocket: close sent") ||
		strings.Contains(msg, "broken pipe")
}
