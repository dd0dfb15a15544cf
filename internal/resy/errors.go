package resy

import (
	"errors"
	"fmt"
)

// Kind classifies a gateway failure so callers can decide retry behavior
// without inspecting messages.
type Kind int

const (
	// KindTransport covers network-level failures: the request never
	// completed.
	KindTransport Kind = iota
	// KindUpstream covers non-success statuses from the platform.
	KindUpstream
	// KindAuth covers rejected credentials and rejected auth tokens.
	KindAuth
	// KindDecode covers responses we could not make sense of.
	KindDecode
)

func (k Kind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindUpstream:
		return "upstream"
	case KindAuth:
		return "auth"
	case KindDecode:
		return "decode"
	}
	return "unknown"
}

// Error is the failure type for every gateway call.
type Error struct {
	Kind    Kind
	Status  int
	Message string
}

func (e *Error) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s (status=%d)", e.Message, e.Status)
	}
	return e.Message
}

// Retryable reports whether err is a transient fault that a polling loop
// may retry silently: a transport failure or a non-success status. Auth
// and decode failures are never retryable.
func Retryable(err error) bool {
	var re *Error
	if !errors.As(err, &re) {
		return false
	}
	return re.Kind == KindTransport || re.Kind == KindUpstream
}

// IsAuth reports whether err is an authentication rejection.
func IsAuth(err error) bool {
	var re *Error
	return errors.As(err, &re) && re.Kind == KindAuth
}
