package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Phase indicates where in the bridge the error occurred
type Phase string

const (
	PhaseCache    Phase = "cache"    // binary resolution and fetch
	PhaseLoad     Phase = "load"     // module activation
	PhaseDispatch Phase = "dispatch" // command dispatch
	PhaseEncode   Phase = "encode"   // Go to wire
	PhaseDecode   Phase = "decode"   // wire to Go
	PhaseValidate Phase = "validate" // caller input validation
	PhaseCommand  Phase = "command"  // failure reported by the engine
	PhaseConfig   Phase = "config"   // configuration loading
)

// Kind categorizes the error
type Kind string

const (
	KindUnsupportedPlatform Kind = "unsupported_platform"
	KindSourceMissing       Kind = "source_missing"
	KindDownload            Kind = "download"
	KindPluginLoad          Kind = "plugin_load"
	KindNotInitialized      Kind = "not_initialized"
	KindInvalidIdentifier   Kind = "invalid_identifier"
	KindNativeCommand       Kind = "native_command"
	KindInvalidData         Kind = "invalid_data"
	KindInvalidInput        Kind = "invalid_input"
	KindIO                  Kind = "io"
)

// Sentinels for errors.Is. Each matches any *Error with the same phase and kind.
var (
	ErrUnsupportedPlatform = &Error{Phase: PhaseCache, Kind: KindUnsupportedPlatform}
	ErrSourceMissing       = &Error{Phase: PhaseCache, Kind: KindSourceMissing}
	ErrDownload            = &Error{Phase: PhaseCache, Kind: KindDownload}
	ErrPluginLoad          = &Error{Phase: PhaseLoad, Kind: KindPluginLoad}
	ErrNotInitialized      = &Error{Phase: PhaseDispatch, Kind: KindNotInitialized}
	ErrInvalidIdentifier   = &Error{Phase: PhaseValidate, Kind: KindInvalidIdentifier}
	ErrNativeCommand       = &Error{Phase: PhaseCommand, Kind: KindNativeCommand}
)

// Error is the structured error type used throughout the bridge
type Error struct {
	Value  any
	Cause  error
	Phase  Phase
	Kind   Kind
	Detail string
	Path   []string
	// Code carries the engine-reported error code for native command errors.
	Code int
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if len(e.Path) > 0 {
		b.WriteString(" at ")
		b.WriteString(strings.Join(e.Path, "."))
	}

	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}

	if e.Code != 0 {
		b.WriteString(fmt.Sprintf(" (code %d)", e.Code))
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Phase == t.Phase && e.Kind == t.Kind
	}
	return false
}

// IsKind reports whether any *Error in err's chain has the given kind,
// regardless of phase.
func IsKind(err error, kind Kind) bool {
	for err != nil {
		var e *Error
		if !errors.As(err, &e) {
			return false
		}
		if e.Kind == kind {
			return true
		}
		err = e.Cause
	}
	return false
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase: phase,
			Kind:  kind,
		},
	}
}

// Path sets the field path
func (b *Builder) Path(path ...string) *Builder {
	b.err.Path = path
	return b
}

// Value sets the offending value
func (b *Builder) Value(v any) *Builder {
	b.err.Value = v
	return b
}

// Code sets the engine error code
func (b *Builder) Code(code int) *Builder {
	b.err.Code = code
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// Convenience constructors for the bridge taxonomy

// UnsupportedPlatform creates an error for a platform without a binary
func UnsupportedPlatform(name, platform string) *Error {
	return &Error{
		Phase:  PhaseCache,
		Kind:   KindUnsupportedPlatform,
		Detail: fmt.Sprintf("%q does not provide binaries suitable for %s", name, platform),
		Value:  platform,
	}
}

// SourceMissing creates an error for an absent local source file
func SourceMissing(name, from string) *Error {
	return &Error{
		Phase:  PhaseCache,
		Kind:   KindSourceMissing,
		Detail: fmt.Sprintf("copy %q from %s: source does not exist", name, from),
		Value:  from,
	}
}

// Download creates a remote fetch error. status is 0 for transport failures.
func Download(name, url string, status int, cause error) *Error {
	detail := fmt.Sprintf("download %q from %s", name, url)
	if status != 0 {
		detail = fmt.Sprintf("%s: status %d", detail, status)
	}
	return &Error{
		Phase:  PhaseCache,
		Kind:   KindDownload,
		Detail: detail,
		Value:  status,
		Cause:  cause,
	}
}

// PluginLoad creates a module activation error
func PluginLoad(path string, cause error) *Error {
	return &Error{
		Phase:  PhaseLoad,
		Kind:   KindPluginLoad,
		Detail: fmt.Sprintf("load %s", path),
		Value:  path,
		Cause:  cause,
	}
}

// NotInitialized creates an error for dispatch before a module is attached
func NotInitialized(component string) *Error {
	return &Error{
		Phase:  PhaseDispatch,
		Kind:   KindNotInitialized,
		Detail: fmt.Sprintf("%s not initialized", component),
	}
}

// InvalidIdentifier creates an identifier validation error
func InvalidIdentifier(value string) *Error {
	return &Error{
		Phase:  PhaseValidate,
		Kind:   KindInvalidIdentifier,
		Detail: fmt.Sprintf("ObjectId(%q) is not legal", value),
		Value:  value,
	}
}

// NativeCommand creates an error reported inside a completion payload
func NativeCommand(command, message string, code int) *Error {
	return &Error{
		Phase:  PhaseCommand,
		Kind:   KindNativeCommand,
		Path:   []string{command},
		Detail: message,
		Code:   code,
	}
}

// InvalidInput creates an invalid input error
func InvalidInput(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidInput,
		Detail: detail,
	}
}

// InvalidData creates an invalid data error
func InvalidData(phase Phase, path []string, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidData,
		Path:   path,
		Detail: detail,
	}
}

// Wrap wraps an existing error with additional context
func Wrap(phase Phase, kind Kind, cause error, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   kind,
		Detail: detail,
		Cause:  cause,
	}
}
