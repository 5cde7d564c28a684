// Package llm provides text completion clients for the two supported
// backends. Both satisfy memory.Completer.
package llm

import (
	"errors"
)

// ErrUnavailable indicates the completion backend is unreachable or
// returned an error.
var ErrUnavailable = errors.New("completion provider unavailable")
