package props

import (
	"fmt"
	"os"
)

// Bool is a true/false property, constant interpolation only.
type Bool struct {
	Name    string
	Desc    string
	Default bool
	Fixed   bool

	cur   *bool
	track track
}

func (p *Bool) Animatable() bool { return !p.Fixed }
func (p *Bool) Supports(i Interp) bool { return i == InterpConstant }

func (p *Bool) Verify(v any) error {
	if _, ok := v.(bool); !ok {
		return fmt.Errorf("%s: %T is not a bool: %w", p.Name, v, ErrInvalidValue)
	}
	return nil
}

func (p *Bool) Set(v any) error {
	if err := p.Verify(v); err != nil {
		return err
	}
	b := v.(bool)
	p.cur = &b
	return nil
}

func (p *Bool) Animate(kf Keyframe) error {
	if err := animatable(p, p.Name, kf); err != nil {
		return err
	}
	p.track.insert(kf)
	return nil
}

func (p *Bool) ValueAt(frame int) any {
	lo, _ := p.track.at(frame)
	if lo == nil {
		if p.cur != nil {
			return *p.cur
		}
		return p.Default
	}
	return lo.Value.(bool)
}

// Int is an integer property with optional inclusive bounds.
type Int struct {
	Name    string
	Desc    string
	Default int
	Min     *int
	Max     *int
	Fixed   bool

	cur   *int
	track track
}

func (p *Int) Animatable() bool { return !p.Fixed }
func (p *Int) Supports(i Interp) bool { return i == InterpConstant || i == InterpLinear }

func (p *Int) Verify(v any) error {
	n, err := toInt(v)
	if err != nil {
		return fmt.Errorf("%s: %w", p.Name, err)
	}
	if p.Min != nil && n < *p.Min {
		return fmt.Errorf("%s: %d below minimum %d: %w", p.Name, n, *p.Min, ErrInvalidValue)
	}
	if p.Max != nil && n > *p.Max {
		return fmt.Errorf("%s: %d above maximum %d: %w", p.Name, n, *p.Max, ErrInvalidValue)
	}
	return nil
}

func (p *Int) Set(v any) error {
	if err := p.Verify(v); err != nil {
		return err
	}
	n, _ := toInt(v)
	p.cur = &n
	return nil
}

func (p *Int) Animate(kf Keyframe) error {
	if err := animatable(p, p.Name, kf); err != nil {
		return err
	}
	n, _ := toInt(kf.Value)
	kf.Value = n
	p.track.insert(kf)
	return nil
}

func (p *Int) ValueAt(frame int) any {
	lo, hi := p.track.at(frame)
	switch {
	case lo == nil:
		if p.cur != nil {
			return *p.cur
		}
		return p.Default
	case hi == nil:
		return lo.Value.(int)
	default:
		return int(lerp(*lo, *hi, frame))
	}
}

// Float is a floating point property with optional inclusive bounds.
type Float struct {
	Name    string
	Desc    string
	Default float64
	Min     *float64
	Max     *float64
	Fixed   bool

	cur   *float64
	track track
}

func (p *Float) Animatable() bool { return !p.Fixed }
func (p *Float) Supports(i Interp) bool { return i == InterpConstant || i == InterpLinear }

func (p *Float) Verify(v any) error {
	f, err := toFloat(v)
	if err != nil {
		return fmt.Errorf("%s: %w", p.Name, err)
	}
	if p.Min != nil && f < *p.Min {
		return fmt.Errorf("%s: %g below minimum %g: %w", p.Name, f, *p.Min, ErrInvalidValue)
	}
	if p.Max != nil && f > *p.Max {
		return fmt.Errorf("%s: %g above maximum %g: %w", p.Name, f, *p.Max, ErrInvalidValue)
	}
	return nil
}

func (p *Float) Set(v any) error {
	if err := p.Verify(v); err != nil {
		return err
	}
	f, _ := toFloat(v)
	p.cur = &f
	return nil
}

func (p *Float) Animate(kf Keyframe) error {
	if err := animatable(p, p.Name, kf); err != nil {
		return err
	}
	f, _ := toFloat(kf.Value)
	kf.Value = f
	p.track.insert(kf)
	return nil
}

func (p *Float) ValueAt(frame int) any {
	lo, hi := p.track.at(frame)
	switch {
	case lo == nil:
		if p.cur != nil {
			return *p.cur
		}
		return p.Default
	case hi == nil:
		return lo.Value.(float64)
	default:
		return lerp(*lo, *hi, frame)
	}
}

// Str is a string property with optional length bounds, constant
// interpolation only.
type Str struct {
	Name    string
	Desc    string
	Default string
	MinLen  *int
	MaxLen  *int
	Fixed   bool

	cur   *string
	track track
}

func (p *Str) Animatable() bool { return !p.Fixed }
func (p *Str) Supports(i Interp) bool { return i == InterpConstant }

func (p *Str) Verify(v any) error {
	s, ok := v.(string)
	if !ok {
		return fmt.Errorf("%s: %T is not a string: %w", p.Name, v, ErrInvalidValue)
	}
	if p.MinLen != nil && len(s) < *p.MinLen {
		return fmt.Errorf("%s: length %d below minimum %d: %w", p.Name, len(s), *p.MinLen, ErrInvalidValue)
	}
	if p.MaxLen != nil && len(s) > *p.MaxLen {
		return fmt.Errorf("%s: length %d above maximum %d: %w", p.Name, len(s), *p.MaxLen, ErrInvalidValue)
	}
	return nil
}

func (p *Str) Set(v any) error {
	if err := p.Verify(v); err != nil {
		return err
	}
	s := v.(string)
	p.cur = &s
	return nil
}

func (p *Str) Animate(kf Keyframe) error {
	if err := animatable(p, p.Name, kf); err != nil {
		return err
	}
	p.track.insert(kf)
	return nil
}

func (p *Str) ValueAt(frame int) any {
	lo, _ := p.track.at(frame)
	if lo == nil {
		if p.cur != nil {
			return *p.cur
		}
		return p.Default
	}
	return lo.Value.(string)
}

// Path is a string property which can require the path to be an existing
// file or directory.
type Path struct {
	Str
	IsFile bool
	IsDir  bool
}

func (p *Path) Verify(v any) error {
	if err := p.Str.Verify(v); err != nil {
		return err
	}
	s := v.(string)
	info, err := os.Stat(s)
	if p.IsFile {
		if err != nil || !info.Mode().IsRegular() {
			return fmt.Errorf("%s: %q is not a file: %w", p.Name, s, ErrInvalidValue)
		}
	}
	if p.IsDir {
		if err != nil || !info.IsDir() {
			return fmt.Errorf("%s: %q is not a directory: %w", p.Name, s, ErrInvalidValue)
		}
	}
	return nil
}

func (p *Path) Set(v any) error {
	if err := p.Verify(v); err != nil {
		return err
	}
	s := v.(string)
	p.cur = &s
	return nil
}

// RGB is a color property, interpolated componentwise.
type RGB struct {
	Name    string
	Desc    string
	Default [3]uint8
	Fixed   bool

	cur   *[3]uint8
	track track
}

func (p *RGB) Animatable() bool { return !p.Fixed }
func (p *RGB) Supports(i Interp) bool { return i == InterpConstant || i == InterpLinear }

func (p *RGB) Verify(v any) error {
	if _, err := toRGB(v); err != nil {
		return fmt.Errorf("%s: %w", p.Name, err)
	}
	return nil
}

func (p *RGB) Set(v any) error {
	c, err := toRGB(v)
	if err != nil {
		return fmt.Errorf("%s: %w", p.Name, err)
	}
	p.cur = &c
	return nil
}

func (p *RGB) Animate(kf Keyframe) error {
	if err := animatable(p, p.Name, kf); err != nil {
		return err
	}
	c, _ := toRGB(kf.Value)
	kf.Value = c
	p.track.insert(kf)
	return nil
}

func (p *RGB) ValueAt(frame int) any {
	lo, hi := p.track.at(frame)
	switch {
	case lo == nil:
		if p.cur != nil {
			return *p.cur
		}
		return p.Default
	case hi == nil:
		return lo.Value.([3]uint8)
	default:
		a := lo.Value.([3]uint8)
		b := hi.Value.([3]uint8)
		if lo.Interp == InterpConstant {
			return a
		}
		t := float64(frame-lo.Frame) / float64(hi.Frame-lo.Frame)
		var c [3]uint8
		for i := range c {
			c[i] = uint8(float64(a[i]) + t*(float64(b[i])-float64(a[i])))
		}
		return c
	}
}

// IntVec is a fixed-size integer vector property (e.g. a resolution pair).
type IntVec struct {
	Name    string
	Desc    string
	Size    int
	Default []int
	Fixed   bool

	cur   []int
	track track
}

func (p *IntVec) Animatable() bool { return !p.Fixed }
func (p *IntVec) Supports(i Interp) bool { return i == InterpConstant }

func (p *IntVec) Verify(v any) error {
	vec, err := toIntVec(v)
	if err != nil {
		return fmt.Errorf("%s: %w", p.Name, err)
	}
	if p.Size != 0 && len(vec) != p.Size {
		return fmt.Errorf("%s: want %d elements, got %d: %w", p.Name, p.Size, len(vec), ErrInvalidValue)
	}
	return nil
}

func (p *IntVec) Set(v any) error {
	if err := p.Verify(v); err != nil {
		return err
	}
	vec, _ := toIntVec(v)
	p.cur = vec
	return nil
}

func (p *IntVec) Animate(kf Keyframe) error {
	if err := animatable(p, p.Name, kf); err != nil {
		return err
	}
	vec, _ := toIntVec(kf.Value)
	kf.Value = vec
	p.track.insert(kf)
	return nil
}

func (p *IntVec) ValueAt(frame int) any {
	lo, _ := p.track.at(frame)
	if lo == nil {
		if p.cur != nil {
			return p.cur
		}
		return p.Default
	}
	return lo.Value.([]int)
}

// animatable runs the shared Animate preconditions.
func animatable(p Property, name string, kf Keyframe) error {
	if !p.Animatable() {
		return fmt.Errorf("%s: %w", name, ErrNotAnimatable)
	}
	if !p.Supports(kf.Interp) {
		return fmt.Errorf("%s: %q: %w", name, kf.Interp, ErrUnsupportedInterp)
	}
	return p.Verify(kf.Value)
}

func toRGB(v any) ([3]uint8, error) {
	switch c := v.(type) {
	case [3]uint8:
		return c, nil
	case []int:
		if len(c) == 3 {
			return [3]uint8{uint8(c[0]), uint8(c[1]), uint8(c[2])}, nil
		}
	case []any:
		if len(c) == 3 {
			var out [3]uint8
			for i, e := range c {
				n, err := toInt(e)
				if err != nil {
					return [3]uint8{}, err
				}
				out[i] = uint8(n)
			}
			return out, nil
		}
	}
	return [3]uint8{}, fmt.Errorf("%v is not an RGB triple: %w", v, ErrInvalidValue)
}

func toIntVec(v any) ([]int, error) {
	switch vec := v.(type) {
	case []int:
		return vec, nil
	case []any:
		out := make([]int, len(vec))
		for i, e := range vec {
			n, err := toInt(e)
			if err != nil {
				return nil, err
			}
			out[i] = n
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%T is not an integer vector: %w", v, ErrInvalidValue)
	}
}
