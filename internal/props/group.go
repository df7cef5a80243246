package props

import (
	"fmt"
	"sort"
)

// Group is a named set of properties, e.g. "video" or "audio".
type Group struct {
	name  string
	props map[string]Property
	order []string
}

func NewGroup(name string, defs map[string]Property) *Group {
	order := make([]string, 0, len(defs))
	for k := range defs {
		order = append(order, k)
	}
	sort.Strings(order)
	return &Group{name: name, props: defs, order: order}
}

func (g *Group) Name() string {
	return g.name
}

func (g *Group) Prop(key string) (Property, bool) {
	p, ok := g.props[key]
	return p, ok
}

func (g *Group) Set(key string, v any) error {
	p, ok := g.props[key]
	if !ok {
		return fmt.Errorf("group %s has no property %s", g.name, key)
	}
	return p.Set(v)
}

func (g *Group) Animate(key string, kf Keyframe) error {
	p, ok := g.props[key]
	if !ok {
		return fmt.Errorf("group %s has no property %s", g.name, key)
	}
	return p.Animate(kf)
}

// ValuesAt evaluates every property of the group at the frame.
func (g *Group) ValuesAt(frame int) map[string]any {
	ret := make(map[string]any, len(g.order))
	for _, k := range g.order {
		ret[k] = g.props[k].ValueAt(frame)
	}
	return ret
}

// Scene is the full set of property groups a render works with.
type Scene struct {
	groups map[string]*Group
	order  []string
}

func NewScene(groups ...*Group) *Scene {
	s := &Scene{groups: make(map[string]*Group, len(groups))}
	for _, g := range groups {
		s.groups[g.Name()] = g
		s.order = append(s.order, g.Name())
	}
	sort.Strings(s.order)
	return s
}

func (s *Scene) Group(name string) (*Group, bool) {
	g, ok := s.groups[name]
	return g, ok
}

// ValuesAt evaluates the whole scene at the frame, keyed by group then
// property. This is the props payload render kernels receive.
func (s *Scene) ValuesAt(frame int) map[string]map[string]any {
	ret := make(map[string]map[string]any, len(s.order))
	for _, name := range s.order {
		ret[name] = s.groups[name].ValuesAt(frame)
	}
	return ret
}

func intPtr(n int) *int { return &n }
func floatPtr(f float64) *float64 { return &f }

// Default builds the scene with the stock video and audio groups.
func Default() *Scene {
	video := NewGroup("video", map[string]Property{
		"resolution": &IntVec{
			Name:    "Resolution",
			Desc:    "Output video resolution.",
			Size:    2,
			Default: []int{1920, 1080},
			Fixed:   true,
		},
		"fps": &Int{
			Name:    "FPS",
			Desc:    "Frames per second of output video.",
			Default: 30,
			Min:     intPtr(1),
			Fixed:   true,
		},
		"vcodec": &Str{
			Name:    "Video Codec",
			Desc:    "Codec for video, passed to FFmpeg.",
			Default: "libx265",
			Fixed:   true,
		},
	})

	audio := NewGroup("audio", map[string]Property{
		"file": &Str{
			Name:    "Audio File",
			Desc:    "Path to audio file.",
			Default: "",
		},
		"start": &Float{
			Name:    "Start Time",
			Desc:    "Timestamp, in seconds, of the first note.",
			Default: 0,
			Min:     floatPtr(0),
		},
	})

	return NewScene(video, audio)
}
