package uefi

import (
	"fmt"
	"math/bits"
)

// Status is the result code every firmware service (and every image entry
// point) returns.  The top bit marks an error, a non-zero value without it is
// a warning.
type Status uintptr

const errorBit = Status(1) << (bits.UintSize - 1)

const (
	Success Status = 0

	WarnUnknownGlyph   Status = 1
	WarnDeleteFailure  Status = 2
	WarnWriteFailure   Status = 3
	WarnBufferTooSmall Status = 4
	WarnStaleData      Status = 5
	WarnFileSystem     Status = 6
	WarnResetRequired  Status = 7
)

const (
	LoadError Status = errorBit | (iota + 1)
	InvalidParameter
	Unsupported
	BadBufferSize
	BufferTooSmall
	NotReady
	DeviceError
	WriteProtected
	OutOfResources
	VolumeCorrupted
	VolumeFull
	NoMedia
	MediaChanged
	NotFound
	AccessDenied
	NoResponse
	NoMapping
	Timeout
	NotStarted
	AlreadyStarted
	Aborted
)

var statusNames = map[Status]string{
	Success:            "SUCCESS",
	WarnUnknownGlyph:   "WARN_UNKNOWN_GLYPH",
	WarnDeleteFailure:  "WARN_DELETE_FAILURE",
	WarnWriteFailure:   "WARN_WRITE_FAILURE",
	WarnBufferTooSmall: "WARN_BUFFER_TOO_SMALL",
	WarnStaleData:      "WARN_STALE_DATA",
	WarnFileSystem:     "WARN_FILE_SYSTEM",
	WarnResetRequired:  "WARN_RESET_REQUIRED",
	LoadError:          "LOAD_ERROR",
	InvalidParameter:   "INVALID_PARAMETER",
	Unsupported:        "UNSUPPORTED",
	BadBufferSize:      "BAD_BUFFER_SIZE",
	BufferTooSmall:     "BUFFER_TOO_SMALL",
	NotReady:           "NOT_READY",
	DeviceError:        "DEVICE_ERROR",
	WriteProtected:     "WRITE_PROTECTED",
	OutOfResources:     "OUT_OF_RESOURCES",
	VolumeCorrupted:    "VOLUME_CORRUPTED",
	VolumeFull:         "VOLUME_FULL",
	NoMedia:            "NO_MEDIA",
	MediaChanged:       "MEDIA_CHANGED",
	NotFound:           "NOT_FOUND",
	AccessDenied:       "ACCESS_DENIED",
	NoResponse:         "NO_RESPONSE",
	NoMapping:          "NO_MAPPING",
	Timeout:            "TIMEOUT",
	NotStarted:         "NOT_STARTED",
	AlreadyStarted:     "ALREADY_STARTED",
	Aborted:            "ABORTED",
}

// IsError reports whether the high bit is set.
func (s Status) IsError() bool {
	return s&errorBit != 0
}

// IsWarning reports a non-zero status that is not an error.
func (s Status) IsWarning() bool {
	return s != Success && !s.IsError()
}

func (s Status) IsSuccess() bool {
	return s == Success
}

func (s Status) String() string {
	if n, ok := statusNames[s]; ok {
		return n
	}
	if s.IsError() {
		return fmt.Sprintf("ERROR(%#x)", uintptr(s&^errorBit))
	}
	return fmt.Sprintf("WARN(%#x)", uintptr(s))
}

// Err converts an error status into a *StatusError; warnings and success
// yield nil.
func (s Status) Err() error {
	if !s.IsError() {
		return nil
	}
	return &StatusError{Status: s}
}

// StatusError carries a failing Status through Go error returns.
type StatusError struct {
	Status Status
	Op     string
}

func (e *StatusError) Error() string {
	if e.Op == "" {
		return "uefi: " + e.Status.String()
	}
	return "uefi: " + e.Op + ": " + e.Status.String()
}

// Is makes errors.Is(err, uefi.NotFound.Err()) style comparisons work.
func (e *StatusError) Is(target error) bool {
	t, ok := target.(*StatusError)
	return ok && t.Status == e.Status
}

// OpErr is Err with the name of the failing service attached.
func (s Status) OpErr(op string) error {
	if !s.IsError() {
		return nil
	}
	return &StatusError{Status: s, Op: op}
}
