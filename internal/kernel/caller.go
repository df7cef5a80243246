package kernel

import "context"

// Caller is the façade pipeline code talks to. It binds one descriptor and
// hides the process plumbing: Call blocks for a decoded result, Go returns a
// live Handle. Nothing is cached between calls, every invocation spawns a
// fresh process.
type Caller struct {
	desc *Descriptor
}

func NewCaller(d *Descriptor) Caller {
	return Caller{desc: d}
}

func (c Caller) Descriptor() *Descriptor {
	return c.desc
}

// Call invokes the kernel with JSON in and decodes its JSON reply into out.
func (c Caller) Call(ctx context.Context, in, out any, args ...string) error {
	h, err := c.desc.Start(ctx, in, args...)
	if err != nil {
		return err
	}
	if err := h.Wait(); err != nil {
		return err
	}
	return h.Output(out)
}

// Go invokes the kernel asynchronously. The caller owns the returned handle.
func (c Caller) Go(ctx context.Context, in any, args ...string) (*Handle, error) {
	return c.desc.Start(ctx, in, args...)
}
