package pipe

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidArgument marks caller contract violations. Input that fails
	// validation is never written to the engine.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrProtocol marks engine output that does not match the expected framing.
	ErrProtocol = errors.New("protocol error")

	// ErrLifecycle is the root of every "engine process" failure: startup,
	// unexpected exit, broken pipe, closed or dead handle.
	ErrLifecycle = errors.New("engine process error")

	// ErrResource marks failures to release pipes or the process during teardown.
	ErrResource = errors.New("resource release failed")

	ErrBrokenPipe = fmt.Errorf("%w: broken pipe", ErrLifecycle)
	ErrEOF        = fmt.Errorf("%w: engine closed its output", ErrLifecycle)
	ErrClosed     = fmt.Errorf("%w: handle closed", ErrLifecycle)
	ErrDead       = fmt.Errorf("%w: handle unusable", ErrLifecycle)
)

type invalidArgumentError struct {
	msg string
}

func (e invalidArgumentError) Error() string {
	return e.msg
}

func (e invalidArgumentError) Unwrap() error {
	return ErrInvalidArgument
}

// InvalidArgument returns an error that matches ErrInvalidArgument.
func InvalidArgument(format string, args ...any) error {
	return invalidArgumentError{msg: fmt.Sprintf(format, args...)}
}

// StartError reports an engine that could not be started.
type StartError struct {
	Argv []string
	Err  error
}

func (e *StartError) Error() string {
	return fmt.Sprintf("start engine %q: %v", strings.Join(e.Argv, " "), e.Err)
}

func (e *StartError) Unwrap() []error {
	return []error{ErrLifecycle, e.Err}
}

// ExitError reports an engine that exited while a request was outstanding.
// Err is the result of waiting on the process; nil means a zero exit status.
type ExitError struct {
	Pid int
	Err error
}

func (e *ExitError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("engine (pid %d) exited unexpectedly", e.Pid)
	}
	return fmt.Sprintf("engine (pid %d) exited unexpectedly: %v", e.Pid, e.Err)
}

func (e *ExitError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrLifecycle}
	}
	return []error{ErrLifecycle, e.Err}
}

// ProtocolError reports a framing violation. Cause, when set, is the
// transport error that interrupted the response.
type ProtocolError struct {
	Msg   string
	Cause error
}

func (e *ProtocolError) Error() string {
	if e.Cause == nil {
		return "protocol error: " + e.Msg
	}
	return fmt.Sprintf("protocol error: %s: %v", e.Msg, e.Cause)
}

func (e *ProtocolError) Unwrap() []error {
	if e.Cause == nil {
		return []error{ErrProtocol}
	}
	return []error{ErrProtocol, e.Cause}
}
