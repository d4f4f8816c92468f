// Package hiderr defines the compact error enum shared by every layer of
// the daemon, from adapter ioctls to IPC error callbacks.
package hiderr

import (
	"errors"
	"fmt"

	"golang.org/x/sys/unix"
)

// Code is a project-specific error code. Negative values mirror the
// upstream bluectrld HIDC_EC_* constants so the IPC error-callback wire
// format stays bit-compatible with existing host-side clients.
type Code int32

const (
	Unknown                 Code = -10
	InvalidBluetoothAddress Code = -20

	PermissionDenied       Code = -51
	OperationNotPermitted  Code = -52
	NoSuchDevice           Code = -53
	NotConnected           Code = -54
	NoSuchEntry            Code = -55
	AddressInUse           Code = -56
	HostDown               Code = -57
	ConnectionRefused      Code = -58
	TimedOut               Code = -59
	AlreadyInProgress      Code = -60
	InvalidExchange        Code = -61
	ConnectionReset        Code = -62
)

// Error wraps a Code so it satisfies the standard error interface while
// still being recoverable with errors.As for callers that need the code
// value (e.g. to populate an IPC error callback).
type Error struct {
	Code Code
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%d)", e.Op, e.Err, e.Code)
	}
	return fmt.Sprintf("%s: code %d", e.Op, e.Code)
}

func (e *Error) Unwrap() error { return e.Err }

// New builds an *Error for the given operation and code.
func New(op string, code Code) *Error {
	return &Error{Op: op, Code: code}
}

// Wrap builds an *Error carrying the original error alongside the code.
func Wrap(op string, code Code, err error) *Error {
	return &Error{Op: op, Code: code, Err: err}
}

// FromErrno translates a syscall errno into a Code, the single boundary
// where OS error numbers become the project enum.
func FromErrno(op string, err error) *Error {
	if err == nil {
		return nil
	}
	var errno unix.Errno
	if !errors.As(err, &errno) {
		return Wrap(op, Unknown, err)
	}
	switch errno {
	case unix.EACCES:
		return Wrap(op, PermissionDenied, err)
	case unix.EPERM:
		return Wrap(op, OperationNotPermitted, err)
	case unix.ENODEV:
		return Wrap(op, NoSuchDevice, err)
	case unix.ENOTCONN:
		return Wrap(op, NotConnected, err)
	case unix.ENOENT:
		return Wrap(op, NoSuchEntry, err)
	case unix.EADDRINUSE:
		return Wrap(op, AddressInUse, err)
	case unix.EHOSTDOWN:
		return Wrap(op, HostDown, err)
	case unix.ECONNREFUSED:
		return Wrap(op, ConnectionRefused, err)
	case unix.ETIMEDOUT:
		return Wrap(op, TimedOut, err)
	case unix.EALREADY:
		return Wrap(op, AlreadyInProgress, err)
	case unix.EBADE:
		return Wrap(op, InvalidExchange, err)
	case unix.ECONNRESET:
		return Wrap(op, ConnectionReset, err)
	default:
		return Wrap(op, Unknown, err)
	}
}

// CodeOf extracts the Code carried by err, or Unknown if err doesn't wrap
// an *Error.
func CodeOf(err error) Code {
	if err == nil {
		return 0
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return Unknown
}
