package errdefs

import (
	"errors"
	"fmt"
)

// Kind enumerates the failure categories the engine can report.
type Kind int

const (
	KindContainerNotFound Kind = iota
	KindBlueprintNotFound
	KindContainerAlreadyExists
	KindContainerNotRunning
	KindContainerAlreadyRunning
	KindPermissionDenied
	KindInvalidConfiguration
	KindSystem
	KindVolume
	KindNetwork
	KindNamespace
	KindProcess
	KindIO
)

var kindPrefixes = map[Kind]string{
	KindContainerNotFound:       "Container not found",
	KindBlueprintNotFound:       "Blueprint not found",
	KindContainerAlreadyExists:  "Container already exists",
	KindContainerNotRunning:     "Container is not running",
	KindContainerAlreadyRunning: "Container is already running",
	KindPermissionDenied:        "Permission denied",
	KindInvalidConfiguration:    "Invalid configuration",
	KindSystem:                  "System error",
	KindVolume:                  "Volume error",
	KindNetwork:                 "Network error",
	KindNamespace:               "Namespace error",
	KindProcess:                 "Process error",
	KindIO:                      "IO error",
}

// Error is the single error type surfaced by cubo packages. The Kind
// classifies the failure; Msg carries the human-readable detail.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", kindPrefixes[e.Kind], e.Msg)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New constructs an Error of the given kind with a formatted message.
func New(kind Kind, format string, args ...any) error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// ContainerNotFound reports that no container matches the identifier.
func ContainerNotFound(id string) error {
	return &Error{Kind: KindContainerNotFound, Msg: id}
}

// BlueprintNotFound reports that an image reference is not in the store.
func BlueprintNotFound(ref string) error {
	return &Error{Kind: KindBlueprintNotFound, Msg: ref}
}

// ContainerAlreadyExists reports a duplicate container.
func ContainerAlreadyExists(id string) error {
	return &Error{Kind: KindContainerAlreadyExists, Msg: id}
}

// ContainerNotRunning reports an operation that requires a live container.
func ContainerNotRunning(id string) error {
	return &Error{Kind: KindContainerNotRunning, Msg: id}
}

// ContainerAlreadyRunning reports a start of a running container.
func ContainerAlreadyRunning(id string) error {
	return &Error{Kind: KindContainerAlreadyRunning, Msg: id}
}

// PermissionDenied reports an operation the caller may not perform.
func PermissionDenied(format string, args ...any) error {
	return New(KindPermissionDenied, format, args...)
}

// InvalidConfiguration reports malformed user input.
func InvalidConfiguration(format string, args ...any) error {
	return New(KindInvalidConfiguration, format, args...)
}

// System reports an OS-level failure.
func System(format string, args ...any) error {
	return New(KindSystem, format, args...)
}

// Volume reports a volume mount failure.
func Volume(format string, args ...any) error {
	return New(KindVolume, format, args...)
}

// Network reports a networking failure.
func Network(format string, args ...any) error {
	return New(KindNetwork, format, args...)
}

// Namespace reports a namespace or mount setup failure.
func Namespace(format string, args ...any) error {
	return New(KindNamespace, format, args...)
}

// Process reports a process management failure.
func Process(format string, args ...any) error {
	return New(KindProcess, format, args...)
}

// IO wraps an underlying OS error.
func IO(err error) error {
	return &Error{Kind: KindIO, Msg: err.Error(), Err: err}
}

// GetKind extracts the Kind of an error, or KindSystem for foreign errors.
func GetKind(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindSystem
}

func isKind(err error, kind Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}

func IsContainerNotFound(err error) bool       { return isKind(err, KindContainerNotFound) }
func IsBlueprintNotFound(err error) bool       { return isKind(err, KindBlueprintNotFound) }
func IsContainerAlreadyExists(err error) bool  { return isKind(err, KindContainerAlreadyExists) }
func IsContainerNotRunning(err error) bool     { return isKind(err, KindContainerNotRunning) }
func IsContainerAlreadyRunning(err error) bool { return isKind(err, KindContainerAlreadyRunning) }
func IsPermissionDenied(err error) bool        { return isKind(err, KindPermissionDenied) }
func IsInvalidConfiguration(err error) bool    { return isKind(err, KindInvalidConfiguration) }
