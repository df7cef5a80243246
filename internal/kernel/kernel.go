// Package kernel invokes independently built programs as subprocesses.
//
// Every kernel is a directory with a single entry point named main.*, case
// insensitive. The extension classifies the runtime: .py needs a python3
// interpreter, .class a java VM and .out is executed directly. Input is a
// single JSON document written to stdin, which is then closed; output is a
// single JSON document read from stdout after the process exits with 0.
// Stderr is inherited, so kernel diagnostics stay visible to the operator.
//
// A Descriptor is resolved once per directory and is immutable afterwards;
// it is safe to share between concurrent invocations. Each invocation owns
// its own process: synchronous via Descriptor.Run, asynchronous via
// Descriptor.Start which returns a Handle. Pipeline code should not touch
// either directly and go through Caller instead.
package kernel

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
)

// Runtime classifies how the kernel entry point has to be executed.
type Runtime int

const (
	// RuntimeScript is a python source entry (main.py).
	RuntimeScript Runtime = iota + 1
	// RuntimeBytecode is a compiled java class entry (main.class).
	RuntimeBytecode
	// RuntimeBinary is a directly executable entry (main.out).
	RuntimeBinary
)

func (r Runtime) String() string {
	switch r {
	case RuntimeScript:
		return "script"
	case RuntimeBytecode:
		return "bytecode"
	case RuntimeBinary:
		return "binary"
	default:
		return "unknown"
	}
}

// Toolchain holds resolved paths of host tools needed to run non-binary
// kernels. It is resolved once at startup and passed into Resolve, so
// descriptor construction never queries ambient environment state.
type Toolchain struct {
	Python string
	Java   string
}

// DefaultToolchain looks up python3 and java in PATH. Missing tools leave
// the field empty; the error surfaces later as ErrRuntimeUnavailable only
// when a kernel actually needs the tool.
func DefaultToolchain() Toolchain {
	var tc Toolchain
	if p, err := exec.LookPath("python3"); err == nil {
		tc.Python = p
	}
	if j, err := exec.LookPath("java"); err == nil {
		tc.Java = j
	}
	return tc
}

// Descriptor is a resolved, validated kernel directory. Do not mutate after
// construction, it is shared read-only between invocations.
type Descriptor struct {
	Name    string
	Dir     string
	Entry   string
	Runtime Runtime

	tc Toolchain
}

// Resolve scans the immediate entries of dir for files whose name starts,
// case insensitively, with "main" and classifies the runtime by extension.
// More than one candidate is not an error: the lexicographically first one
// wins. Resolution does no I/O against the entry file itself.
func Resolve(dir string, tc Toolchain) (*Descriptor, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolving kernel directory %s: %w", dir, err)
	}

	entries, err := os.ReadDir(abs)
	if err != nil {
		return nil, fmt.Errorf("reading kernel directory %s: %w", abs, err)
	}

	var candidates []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if strings.HasPrefix(strings.ToLower(e.Name()), "main") {
			candidates = append(candidates, e.Name())
		}
	}
	if len(candidates) == 0 {
		return nil, fmt.Errorf("%s: %w", abs, ErrNoEntryPoint)
	}
	sort.Strings(candidates)
	entry := candidates[0]

	var runtime Runtime
	switch ext := filepath.Ext(entry); ext {
	case ".py":
		runtime = RuntimeScript
		if tc.Python == "" {
			return nil, fmt.Errorf("%s needs python3: %w", entry, ErrRuntimeUnavailable)
		}
	case ".class":
		runtime = RuntimeBytecode
		if tc.Java == "" {
			return nil, fmt.Errorf("%s needs java: %w", entry, ErrRuntimeUnavailable)
		}
	case ".out":
		runtime = RuntimeBinary
	default:
		return nil, fmt.Errorf("%s ending %q: %w", entry, ext, ErrUnsupportedEntry)
	}

	return &Descriptor{
		Name:    filepath.Base(abs),
		Dir:     abs,
		Entry:   filepath.Join(abs, entry),
		Runtime: runtime,
		tc:      tc,
	}, nil
}

// argv builds the OS argument vector for one invocation.
func (d *Descriptor) argv(extra []string) []string {
	var pre []string
	switch d.Runtime {
	case RuntimeScript:
		pre = []string{d.tc.Python, d.Entry}
	case RuntimeBytecode:
		// java wants a class name, not a file path
		class := strings.TrimSuffix(filepath.Base(d.Entry), ".class")
		pre = []string{d.tc.Java, class}
	default:
		pre = []string{d.Entry}
	}
	return append(pre, extra...)
}

// launch starts the kernel process with stdin and stdout piped and stderr
// inherited. The working directory is the kernel directory, so kernels can
// reference sibling resources by relative path.
func (d *Descriptor) launch(ctx context.Context, extra []string) (*exec.Cmd, io.WriteCloser, io.ReadCloser, error) {
	argv := d.argv(extra)
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Dir = d.Dir
	cmd.Stderr = os.Stderr

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("kernel %s stdin: %w", d.Name, err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("kernel %s stdout: %w", d.Name, err)
	}

	if err := cmd.Start(); err != nil {
		return nil, nil, nil, fmt.Errorf("starting kernel %s: %w: %w", d.Name, ErrLaunchFailure, err)
	}
	return cmd, stdin, stdout, nil
}
