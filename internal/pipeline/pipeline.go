// Package pipeline drives a render: it resolves every kernel under the
// configured directory, evaluates the scene per frame, fans the frame out to
// all kernels and composites their replies into PNG frames on disk.
package pipeline

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"image"
	"image/draw"
	"image/png"
	"iter"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/rollray/rollray/internal/kernel"
	"github.com/rollray/rollray/internal/log"
	"github.com/rollray/rollray/internal/model"
	"github.com/rollray/rollray/internal/parallel"
	"github.com/rollray/rollray/internal/props"
	"github.com/rollray/rollray/internal/video"

	"github.com/google/uuid"
)

// FramePattern names the frame files inside a session directory. The video
// encoder consumes the same pattern.
const FramePattern = "frame-%06d.png"

// FrameInput is the JSON document every render kernel receives on stdin.
type FrameInput struct {
	Frame int                       `json:"frame"`
	Props map[string]map[string]any `json:"props"`
}

// FrameOutput is the JSON document every render kernel writes to stdout.
type FrameOutput struct {
	Frame int    `json:"frame"`
	Image string `json:"image"` // base64 encoded PNG
}

type Pipeline struct {
	scene   *props.Scene
	callers map[string]kernel.Caller
	order   []string // compositing order, lexicographic by kernel name

	start, end int
	limit      int
	sessionDir string
}

// Discover resolves every subdirectory of dir into a kernel caller. Any
// resolution failure aborts the whole setup, a pipeline never runs with a
// partial kernel set.
func Discover(ctx context.Context, dir string, tc kernel.Toolchain) (map[string]kernel.Caller, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading kernels directory %s: %w", dir, err)
	}

	callers := make(map[string]kernel.Caller)
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		d, err := kernel.Resolve(filepath.Join(dir, e.Name()), tc)
		if err != nil {
			return nil, fmt.Errorf("resolving kernel %s: %w", e.Name(), err)
		}
		slog.DebugContext(ctx, "kernel resolved", "kernel", d.Name, "runtime", d.Runtime.String(), "entry", d.Entry)
		callers[d.Name] = kernel.NewCaller(d)
	}
	if len(callers) == 0 {
		return nil, fmt.Errorf("no kernels in %s", dir)
	}
	return callers, nil
}

// Toolchain builds the kernel toolchain from the configuration, falling back
// to PATH lookups for tools not pinned explicitly.
func Toolchain(cfg model.Kernels) kernel.Toolchain {
	tc := kernel.DefaultToolchain()
	if cfg.Python != nil {
		tc.Python = *cfg.Python
	}
	if cfg.Java != nil {
		tc.Java = *cfg.Java
	}
	return tc
}

func New(ctx context.Context, cfg model.Config) (*Pipeline, error) {
	callers, err := Discover(ctx, cfg.Kernels.Dir, Toolchain(cfg.Kernels))
	if err != nil {
		return nil, err
	}
	order := make([]string, 0, len(callers))
	for name := range callers {
		order = append(order, name)
	}
	sort.Strings(order)

	scene := props.Default()
	if err := applyConfig(scene, cfg); err != nil {
		return nil, fmt.Errorf("applying config to scene: %w", err)
	}

	limit := 4
	if cfg.Render.Parallelism != nil {
		limit = *cfg.Render.Parallelism
	}
	if cfg.Render.End < cfg.Render.Start {
		return nil, fmt.Errorf("render range %d..%d is empty", cfg.Render.Start, cfg.Render.End)
	}

	return &Pipeline{
		scene:      scene,
		callers:    callers,
		order:      order,
		start:      cfg.Render.Start,
		end:        cfg.Render.End,
		limit:      limit,
		sessionDir: filepath.Join(cfg.Output.Dir, "frames", uuid.NewString()),
	}, nil
}

// applyConfig pushes the config file overrides into the scene properties,
// which validates them on the way in.
func applyConfig(scene *props.Scene, cfg model.Config) error {
	videoGroup, _ := scene.Group("video")
	if cfg.Video != nil {
		if cfg.Video.Resolution != nil {
			if err := videoGroup.Set("resolution", cfg.Video.Resolution); err != nil {
				return err
			}
		}
		if cfg.Video.FPS != nil {
			if err := videoGroup.Set("fps", *cfg.Video.FPS); err != nil {
				return err
			}
		}
		if cfg.Video.VCodec != nil {
			if err := videoGroup.Set("vcodec", *cfg.Video.VCodec); err != nil {
				return err
			}
		}
	}
	if cfg.Audio != nil {
		audioGroup, _ := scene.Group("audio")
		if err := audioGroup.Set("file", cfg.Audio.File); err != nil {
			return err
		}
		if cfg.Audio.Start != nil {
			if err := audioGroup.Set("start", *cfg.Audio.Start); err != nil {
				return err
			}
		}
	}
	return nil
}

// Scene exposes the scene for keyframe animation before Render is called.
func (p *Pipeline) Scene() *props.Scene {
	return p.scene
}

// Kernels lists the resolved kernel names in compositing order.
func (p *Pipeline) Kernels() []string {
	return append([]string(nil), p.order...)
}

// Encoder builds the video encoder matching the scene video group.
func (p *Pipeline) Encoder() video.Encoder {
	values := p.scene.ValuesAt(p.start)
	enc := video.Encoder{
		FPS:         values["video"]["fps"].(int),
		Codec:       values["video"]["vcodec"].(string),
		StartNumber: p.start,
	}
	if file, ok := values["audio"]["file"].(string); ok && file != "" {
		enc.AudioFile = file
		enc.AudioStart = values["audio"]["start"].(float64)
	}
	return enc
}

// Render produces one PNG per frame in a fresh session directory and
// returns its path. Frames are rendered by up to limit kernel fan-outs at
// once; the first failing frame aborts the render.
func (p *Pipeline) Render(ctx context.Context) (string, error) {
	if err := os.MkdirAll(p.sessionDir, 0o755); err != nil {
		return "", fmt.Errorf("creating session directory: %w", err)
	}
	slog.InfoContext(ctx, "render started",
		"session", p.sessionDir,
		"frames", p.end-p.start+1,
		"kernels", p.order,
	)

	m := parallel.NewMap(ctx, p.limit, p.renderFrame)
	for path, err := range m.Iter(p.frames()) {
		if err != nil {
			return "", fmt.Errorf("rendering: %w", err)
		}
		slog.DebugContext(ctx, "frame done", "path", path)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return p.sessionDir, nil
}

func (p *Pipeline) frames() iter.Seq2[int, error] {
	return func(yield func(int, error) bool) {
		for f := p.start; f <= p.end; f++ {
			if !yield(f, nil) {
				return
			}
		}
	}
}

// renderFrame fans one frame out to every kernel asynchronously, waits for
// all of them and composites the replies in kernel name order.
func (p *Pipeline) renderFrame(ctx context.Context, frame int) (string, error) {
	ctx = log.ContextAttrs(ctx, slog.Int("frame", frame))

	input := FrameInput{
		Frame: frame,
		Props: p.scene.ValuesAt(frame),
	}

	handles := make(map[string]*kernel.Handle, len(p.order))
	for _, name := range p.order {
		h, err := p.callers[name].Go(ctx, input)
		if err != nil {
			for _, started := range handles {
				_ = started.Cancel()
			}
			return "", err
		}
		handles[name] = h
	}

	canvas := p.newCanvas()
	for _, name := range p.order {
		h := handles[name]
		if err := h.Wait(); err != nil {
			return "", err
		}
		var out FrameOutput
		if err := h.Output(&out); err != nil {
			return "", err
		}
		if out.Frame != frame {
			return "", fmt.Errorf("kernel %s replied for frame %d, want %d", name, out.Frame, frame)
		}
		layer, err := decodeLayer(out.Image)
		if err != nil {
			return "", fmt.Errorf("kernel %s image: %w", name, err)
		}
		draw.Draw(canvas, layer.Bounds(), layer, image.Point{}, draw.Over)
	}

	return p.writeFrame(frame, canvas)
}

func (p *Pipeline) newCanvas() *image.RGBA {
	res := p.scene.ValuesAt(p.start)["video"]["resolution"].([]int)
	canvas := image.NewRGBA(image.Rect(0, 0, res[0], res[1]))
	draw.Draw(canvas, canvas.Bounds(), image.NewUniform(image.Black), image.Point{}, draw.Src)
	return canvas
}

func decodeLayer(b64 string) (image.Image, error) {
	raw, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return nil, fmt.Errorf("decoding base64: %w", err)
	}
	img, err := png.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("decoding png: %w", err)
	}
	return img, nil
}

func (p *Pipeline) writeFrame(frame int, canvas image.Image) (string, error) {
	path := filepath.Join(p.sessionDir, fmt.Sprintf(FramePattern, frame))
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("creating frame file: %w", err)
	}
	if err := png.Encode(f, canvas); err != nil {
		_ = f.Close()
		return "", fmt.Errorf("encoding frame: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("closing frame file: %w", err)
	}
	return path, nil
}
