package kernel

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
)

type handleState int

const (
	stateRunning handleState = iota
	stateExited
	stateDrained
	stateCancelled
)

// Handle owns one live asynchronous kernel invocation.
//
// State machine: running -> exited -> drained, with cancelled as a separate
// terminal state reached only via Cancel. Output is a guarded transition: it
// fails with ErrStillRunning until the process has exited, reads the stream
// exactly once and serves every later call from the cached bytes.
type Handle struct {
	desc  *Descriptor
	cmd   *exec.Cmd
	done  chan struct{}
	wrote chan struct{} // closed once nothing writes to stdin anymore

	mx      sync.Mutex
	state   handleState
	raw     []byte
	readErr error
	waitErr error
}

// Start invokes the kernel asynchronously. Input is JSON encoded, terminated
// with a single newline, written to the kernel's stdin which is then closed.
// Start returns right after the write completes; it never waits for exit.
// The context bounds the lifetime of the child process.
func (d *Descriptor) Start(ctx context.Context, input any, args ...string) (*Handle, error) {
	payload, err := json.Marshal(input)
	if err != nil {
		return nil, fmt.Errorf("encoding kernel %s input: %w", d.Name, err)
	}
	payload = append(payload, '\n')

	cmd, stdin, stdout, err := d.launch(ctx, args)
	if err != nil {
		return nil, err
	}

	h := &Handle{
		desc:  d,
		cmd:   cmd,
		done:  make(chan struct{}),
		wrote: make(chan struct{}),
	}
	go h.reap(stdout)

	_, writeErr := stdin.Write(payload)
	closeErr := stdin.Close()
	close(h.wrote)
	if writeErr != nil {
		_ = h.Cancel()
		return nil, fmt.Errorf("writing kernel %s input: %w", d.Name, writeErr)
	}
	if closeErr != nil {
		_ = h.Cancel()
		return nil, fmt.Errorf("closing kernel %s input: %w", d.Name, closeErr)
	}
	return h, nil
}

// reap drains stdout and waits for the process. Draining happens regardless
// of anyone asking for output, so a kernel writing more than the pipe buffer
// can't stall and the process is always collected. Wait must not run while
// Start still writes to stdin, it would close the pipe under the writer; a
// kernel exiting early turns the write into an orderly EPIPE instead.
func (h *Handle) reap(stdout io.Reader) {
	raw, readErr := io.ReadAll(stdout)
	<-h.wrote
	waitErr := h.cmd.Wait()

	h.mx.Lock()
	defer h.mx.Unlock()
	h.raw = raw
	h.readErr = readErr
	h.waitErr = waitErr
	if h.state != stateCancelled {
		h.state = stateExited
	}
	close(h.done)
}

// Alive reports whether the process has not yet been collected.
func (h *Handle) Alive() bool {
	select {
	case <-h.done:
		return false
	default:
		return true
	}
}

// Wait blocks until the process exits and returns its terminal error:
// nil on exit 0, *ExecError on non-zero exit, ErrCancelled after Cancel.
func (h *Handle) Wait() error {
	<-h.done
	h.mx.Lock()
	defer h.mx.Unlock()
	return h.terminalErr()
}

// Cancel kills a running kernel and moves the handle to the cancelled
// terminal state. It blocks until the process is collected. Cancelling an
// already finished handle is a no-op.
func (h *Handle) Cancel() error {
	h.mx.Lock()
	if h.state != stateRunning {
		h.mx.Unlock()
		return nil
	}
	h.state = stateCancelled
	err := h.cmd.Process.Kill()
	h.mx.Unlock()

	<-h.done
	if err != nil && !errors.Is(err, os.ErrProcessDone) {
		return fmt.Errorf("killing kernel %s: %w", h.desc.Name, err)
	}
	return nil
}

// Output decodes the kernel's stdout as JSON into v. It fails with
// ErrStillRunning while the process runs, with *ExecError when it exited
// non-zero (the output of a failed kernel is discarded) and with
// ErrMalformedOutput when the bytes are not valid JSON. Repeated calls
// decode the same cached bytes and never re-read the stream.
func (h *Handle) Output(v any) error {
	h.mx.Lock()
	defer h.mx.Unlock()

	switch h.state {
	case stateRunning:
		return fmt.Errorf("kernel %s: %w", h.desc.Name, ErrStillRunning)
	case stateCancelled:
		return fmt.Errorf("kernel %s: %w", h.desc.Name, ErrCancelled)
	}

	if err := h.terminalErr(); err != nil {
		return err
	}
	if h.readErr != nil {
		return fmt.Errorf("reading kernel %s output: %w", h.desc.Name, h.readErr)
	}
	if err := json.Unmarshal(h.raw, v); err != nil {
		return fmt.Errorf("kernel %s: %w: %v", h.desc.Name, ErrMalformedOutput, err)
	}
	h.state = stateDrained
	return nil
}

// terminalErr must be called with mx held and only after done is closed.
func (h *Handle) terminalErr() error {
	if h.state == stateCancelled {
		return fmt.Errorf("kernel %s: %w", h.desc.Name, ErrCancelled)
	}
	if h.waitErr != nil {
		var exitErr *exec.ExitError
		if errors.As(h.waitErr, &exitErr) {
			return &ExecError{Name: h.desc.Name, ExitCode: exitErr.ExitCode()}
		}
		return h.waitErr
	}
	return nil
}
