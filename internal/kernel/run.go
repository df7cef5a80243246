package kernel

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os/exec"

	"golang.org/x/sync/errgroup"
)

// Run invokes the kernel synchronously with raw bytes on stdin and returns
// everything it wrote to stdout. Input is written and the stream closed
// before the wait, which is the only end-of-input signal the kernel gets.
//
// Stdout is drained concurrently with the input write. A kernel producing
// more output than the OS pipe buffer before consuming all its input would
// otherwise stall against a sequential writer forever.
func (d *Descriptor) Run(ctx context.Context, input []byte, args ...string) ([]byte, error) {
	cmd, stdin, stdout, err := d.launch(ctx, args)
	if err != nil {
		return nil, err
	}

	var output []byte
	g, _ := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer func() {
			_ = stdin.Close()
		}()
		_, err := stdin.Write(input)
		return err
	})
	g.Go(func() error {
		var err error
		output, err = io.ReadAll(stdout)
		return err
	})
	ioErr := g.Wait()

	if err := cmd.Wait(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			execErr := &ExecError{Name: d.Name, ExitCode: exitErr.ExitCode()}
			slog.ErrorContext(ctx, "kernel run failed", "kernel", d.Name, "exit_code", execErr.ExitCode)
			return nil, execErr
		}
		return nil, err
	}
	if ioErr != nil {
		return nil, ioErr
	}
	return output, nil
}
