package model

import (
	"io"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/encoding/yaml"

	_ "embed"
)

//go:embed config.cue
var cueSource []byte

var (
	cueCtx *cue.Context
	schema cue.Value
)

func init() {
	if len(cueSource) == 0 {
		panic("variable cueSource is empty")
	}
	cueCtx = cuecontext.New()
	compiled := cueCtx.CompileBytes(cueSource)
	if compiled.Err() != nil {
		panic(compiled.Err())
	}
	if err := compiled.Validate(); err != nil {
		panic(err)
	}

	schema = compiled.LookupPath(cue.ParsePath("#Config"))
	if schema.Err() != nil {
		panic(schema.Err())
	}
	if err := schema.Validate(); err != nil {
		panic(err)
	}
}

// Config is the project file of a render, usually rollray.yaml. The yaml
// tags must omit empty optional fields: the schema treats an explicit null
// as a type conflict, so a stored default config has to leave them out.
type Config struct {
	Version int     `json:"version" yaml:"version"` // fixed 0 for now
	Kernels Kernels `json:"kernels" yaml:"kernels"`
	Render  Render  `json:"render" yaml:"render"`
	Video   *Video  `json:"video,omitempty" yaml:"video,omitempty"`
	Audio   *Audio  `json:"audio,omitempty" yaml:"audio,omitempty"`
	Output  Output  `json:"output" yaml:"output"`
	Service Service `json:"service" yaml:"service"`
}

// Kernels locates the kernel directories and optionally pins the host tools.
type Kernels struct {
	Dir    string  `json:"dir" yaml:"dir"`                           // directory with one subdirectory per kernel
	Python *string `json:"python,omitempty" yaml:"python,omitempty"` // python3 override (default: PATH lookup)
	Java   *string `json:"java,omitempty" yaml:"java,omitempty"`     // java override (default: PATH lookup)
}

// Render selects the frame range, both ends inclusive.
type Render struct {
	Start       int  `json:"start" yaml:"start"`
	End         int  `json:"end" yaml:"end"`
	Parallelism *int `json:"parallelism,omitempty" yaml:"parallelism,omitempty"` // frames rendered at once
}

// Video overrides the stock video property group.
type Video struct {
	Resolution []int   `json:"resolution,omitempty" yaml:"resolution,omitempty"` // [width, height]
	FPS        *int    `json:"fps,omitempty" yaml:"fps,omitempty"`
	VCodec     *string `json:"vcodec,omitempty" yaml:"vcodec,omitempty"`
}

// Audio names the track muxed into the final video.
type Audio struct {
	File  string   `json:"file" yaml:"file"`
	Start *float64 `json:"start,omitempty" yaml:"start,omitempty"` // seconds into the audio file
}

// Output says where frames and the final video land.
type Output struct {
	Dir  string `json:"dir" yaml:"dir"`
	File string `json:"file" yaml:"file"`
}

type Service struct {
	Verbose bool `json:"verbose" yaml:"verbose"`
}

// DefaultConfig is the configuration written on the first run.
func DefaultConfig() Config {
	return Config{
		Version: 0,
		Kernels: Kernels{Dir: "kernels"},
		Render:  Render{Start: 0, End: 0},
		Output:  Output{Dir: "out", File: "video.mp4"},
	}
}

// LoadConfig validates YAML from r against the CUE schema and decodes it.
func LoadConfig(r io.Reader) (Config, error) {
	var out Config

	yamlFile, err := yaml.Extract("config.yaml", r)
	if err != nil {
		return out, err
	}
	yamlValue := cueCtx.BuildFile(yamlFile)

	unified := schema.Unify(yamlValue)
	if err := unified.Validate(
		cue.All(),          // all constraints
		cue.Concrete(true), // no incomplete values
	); err != nil {
		return out, err
	}

	if err := unified.Decode(&out); err != nil {
		return out, err
	}
	return out, nil
}
