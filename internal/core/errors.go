package core

import (
	"errors"
	"fmt"
)

// Kind classifies failures by how the agent recovers from them.
type Kind string

const (
	// KindTransport failures are recovered by the reconnection machine.
	KindTransport Kind = "transport"
	// KindProtocol failures are logged and the message dropped.
	KindProtocol Kind = "protocol"
	// KindPermission failures surface to the caller as a negative result.
	KindPermission Kind = "permission"
	// KindResource failures are logged and swallowed.
	KindResource Kind = "resource"
)

// Error is a classified failure.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Op, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Op)
}

func (e *Error) Unwrap() error { return e.Err }

func newError(kind Kind, op, msg string) *Error {
	return &Error{Kind: kind, Op: op, Err: errors.New(msg)}
}

var (
	ErrNotConnected        = newError(KindTransport, "send", "not connected")
	ErrMalformed           = newError(KindProtocol, "decode", "malformed message")
	ErrUnknownType         = newError(KindProtocol, "decode", "unknown message type")
	ErrAudioLocked         = newError(KindPermission, "activate", "audio not unlocked")
	ErrPushUnsupported     = newError(KindPermission, "push", "push messaging not supported")
	ErrPermissionDenied    = newError(KindPermission, "push", "notification permission denied")
	ErrStandaloneRequired  = newError(KindPermission, "push", "installed app context required")
	ErrWakeLockUnsupported = newError(KindResource, "wakelock", "wake lock not supported")
)

// Wrap classifies err under kind/op. A nil err stays nil.
func Wrap(kind Kind, op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

// IsKind reports whether any error in err's chain is a *Error of kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	for err != nil {
		if errors.As(err, &e) {
			if e.Kind == kind {
				return true
			}
			err = e.Err
			continue
		}
		return false
	}
	return false
}
