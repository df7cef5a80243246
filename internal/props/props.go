// Package props models animatable scene properties. A property holds a
// static value or a list of keyframes and evaluates to a concrete value for
// any frame number. Groups of properties serialize into the JSON documents
// fed to render kernels.
package props

import (
	"errors"
	"fmt"
	"sort"
)

// Interp selects how a value moves between two keyframes.
type Interp string

const (
	InterpConstant Interp = "constant"
	InterpLinear   Interp = "linear"
)

// Keyframe pins a property value to a frame number.
type Keyframe struct {
	Frame  int
	Value  any
	Interp Interp
}

var (
	// ErrNotAnimatable is returned when animating a fixed property.
	ErrNotAnimatable = errors.New("property is not animatable")
	// ErrUnsupportedInterp is returned when the property cannot interpolate
	// the requested way.
	ErrUnsupportedInterp = errors.New("unsupported interpolation")
	// ErrInvalidValue is returned when a value fails the property checks.
	ErrInvalidValue = errors.New("invalid property value")
)

// Property is one animatable scene parameter.
type Property interface {
	Animatable() bool
	Supports(Interp) bool
	// Verify checks the value against the property constraints without
	// storing it.
	Verify(v any) error
	// Set verifies and stores a static value.
	Set(v any) error
	// Animate verifies and appends a keyframe.
	Animate(kf Keyframe) error
	// ValueAt evaluates the property at the frame. With no keyframes the
	// static (or default) value is returned; outside the keyframed range the
	// first/last keyframe value holds.
	ValueAt(frame int) any
}

// track keeps keyframes ordered by frame.
type track struct {
	keys []Keyframe
}

func (tr *track) insert(kf Keyframe) {
	tr.keys = append(tr.keys, kf)
	sort.SliceStable(tr.keys, func(i, j int) bool {
		return tr.keys[i].Frame < tr.keys[j].Frame
	})
}

// at locates the keyframes bracketing frame. hi == nil means lo.Value is the
// answer as-is (single key, clamped edge or exact hit); lo == nil means no
// keyframes at all.
func (tr *track) at(frame int) (lo, hi *Keyframe) {
	n := len(tr.keys)
	if n == 0 {
		return nil, nil
	}
	if n == 1 || frame <= tr.keys[0].Frame {
		return &tr.keys[0], nil
	}
	if frame >= tr.keys[n-1].Frame {
		return &tr.keys[n-1], nil
	}
	i := sort.Search(n, func(i int) bool { return tr.keys[i].Frame >= frame })
	if tr.keys[i].Frame == frame {
		return &tr.keys[i], nil
	}
	return &tr.keys[i-1], &tr.keys[i]
}

// lerp interpolates between two numeric keyframes. Constant interpolation
// holds the left value until the right keyframe.
func lerp(lo, hi Keyframe, frame int) float64 {
	a, _ := toFloat(lo.Value)
	if lo.Interp == InterpConstant {
		return a
	}
	b, _ := toFloat(hi.Value)
	t := float64(frame-lo.Frame) / float64(hi.Frame-lo.Frame)
	return a + t*(b-a)
}

func toInt(v any) (int, error) {
	switch n := v.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case float64:
		return int(n), nil
	default:
		return 0, fmt.Errorf("%T is not an integer: %w", v, ErrInvalidValue)
	}
}

func toFloat(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	default:
		return 0, fmt.Errorf("%T is not a number: %w", v, ErrInvalidValue)
	}
}
