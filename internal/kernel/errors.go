package kernel

import (
	"errors"
	"fmt"
)

var (
	// ErrNoEntryPoint is returned when a kernel directory contains no main.* file.
	ErrNoEntryPoint = errors.New("kernel directory has no main file")
	// ErrUnsupportedEntry is returned when the main.* extension is not recognized.
	ErrUnsupportedEntry = errors.New("unsupported kernel entry type")
	// ErrRuntimeUnavailable is returned when the host tool required to run the
	// entry (python3 for scripts, java for bytecode) is not available.
	ErrRuntimeUnavailable = errors.New("kernel runtime unavailable")
	// ErrLaunchFailure is returned when the OS refuses to start the kernel
	// process, e.g. a missing binary or a permission problem.
	ErrLaunchFailure = errors.New("kernel launch failed")
	// ErrStillRunning is returned by Handle.Output while the process has not exited.
	ErrStillRunning = errors.New("kernel still running")
	// ErrMalformedOutput is returned when kernel output is not valid JSON.
	ErrMalformedOutput = errors.New("malformed kernel output")
	// ErrCancelled is the terminal error of a handle stopped via Cancel.
	ErrCancelled = errors.New("kernel cancelled")
)

// ExecError reports a kernel which exited with a non-zero code. The output
// of such a kernel is considered unreliable and is never returned.
type ExecError struct {
	Name     string
	ExitCode int
}

func (e *ExecError) Error() string {
	return fmt.Sprintf("kernel %s exited with code %d", e.Name, e.ExitCode)
}
