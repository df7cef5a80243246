package pipeline

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/rollray/rollray/internal/kernel"
	"github.com/rollray/rollray/internal/model"

	"github.com/stretchr/testify/require"
)

func intPtr(n int) *int { return &n }
func strPtr(s string) *string { return &s }
func floatPtr(f float64) *float64 { return &f }

func testConfig(kernelsDir, outDir string, end int) model.Config {
	return model.Config{
		Kernels: model.Kernels{Dir: kernelsDir},
		Render:  model.Render{Start: 0, End: end, Parallelism: intPtr(2)},
		Video:   &model.Video{Resolution: []int{8, 8}},
		Output:  model.Output{Dir: outDir, File: "video.mp4"},
	}
}

func TestDiscover(t *testing.T) {
	t.Parallel()

	kernelsDir := t.TempDir()
	writeScriptKernel(t, kernelsDir, "beats", "#!/bin/sh\ncat\n")
	writeScriptKernel(t, kernelsDir, "glare", "#!/bin/sh\ncat\n")
	// stray files next to the kernel directories are ignored
	require.NoError(t, os.WriteFile(filepath.Join(kernelsDir, "README.md"), []byte("# kernels\n"), 0o644))

	callers, err := Discover(t.Context(), kernelsDir, kernel.Toolchain{})
	require.NoError(t, err)
	require.Len(t, callers, 2)
	require.Contains(t, callers, "beats")
	require.Contains(t, callers, "glare")
}

func TestDiscoverFail(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		scenario string
		given    func(t *testing.T, kernelsDir string)
		expect   error
	}{
		{
			scenario: "one broken kernel aborts the whole set",
			given: func(t *testing.T, kernelsDir string) {
				writeScriptKernel(t, kernelsDir, "good", "#!/bin/sh\ncat\n")
				require.NoError(t, os.Mkdir(filepath.Join(kernelsDir, "broken"), 0o755))
			},
			expect: kernel.ErrNoEntryPoint,
		},
		{
			scenario: "no kernels at all",
			given:    func(t *testing.T, kernelsDir string) {},
			expect:   nil, // matched by message below
		},
	}

	for _, tc := range testCases {
		t.Run(tc.scenario, func(t *testing.T) {
			t.Parallel()

			kernelsDir := t.TempDir()
			tc.given(t, kernelsDir)

			_, err := Discover(t.Context(), kernelsDir, kernel.Toolchain{})
			require.Error(t, err)
			if tc.expect != nil {
				require.ErrorIs(t, err, tc.expect)
			}
		})
	}
}

func TestDiscoverMissingDir(t *testing.T) {
	t.Parallel()

	_, err := Discover(t.Context(), filepath.Join(t.TempDir(), "nope"), kernel.Toolchain{})
	require.Error(t, err)
}

func TestToolchainOverrides(t *testing.T) {
	t.Parallel()

	tc := Toolchain(model.Kernels{
		Python: strPtr("/opt/python3"),
		Java:   strPtr("/opt/java"),
	})
	require.Equal(t, "/opt/python3", tc.Python)
	require.Equal(t, "/opt/java", tc.Java)
}

func TestRender(t *testing.T) {
	t.Parallel()

	red := color.RGBA{R: 255, A: 255}
	blue := color.RGBA{B: 255, A: 255}

	kernelsDir := t.TempDir()
	writeRenderKernel(t, kernelsDir, "backdrop", layerB64(t, 4, 4, red))
	writeRenderKernel(t, kernelsDir, "notes", layerB64(t, 2, 2, blue))

	cfg := testConfig(kernelsDir, t.TempDir(), 2)
	p, err := New(t.Context(), cfg)
	require.NoError(t, err)
	require.Equal(t, []string{"backdrop", "notes"}, p.Kernels())

	sessionDir, err := p.Render(t.Context())
	require.NoError(t, err)

	for frame := range 3 {
		path := filepath.Join(sessionDir, fmt.Sprintf(FramePattern, frame))
		f, err := os.Open(path)
		require.NoError(t, err)
		img, err := png.Decode(f)
		require.NoError(t, err)
		require.NoError(t, f.Close())

		require.Equal(t, 8, img.Bounds().Dx())
		require.Equal(t, 8, img.Bounds().Dy())
		// notes layer on top of backdrop on top of a black canvas
		requirePixel(t, img, 0, 0, blue)
		requirePixel(t, img, 3, 3, red)
		requirePixel(t, img, 7, 7, color.RGBA{A: 255})
	}
}

func TestRenderKernelFailure(t *testing.T) {
	t.Parallel()

	kernelsDir := t.TempDir()
	writeScriptKernel(t, kernelsDir, "doomed", "#!/bin/sh\ncat >/dev/null\nexit 7\n")

	p, err := New(t.Context(), testConfig(kernelsDir, t.TempDir(), 0))
	require.NoError(t, err)

	_, err = p.Render(t.Context())
	var execErr *kernel.ExecError
	require.ErrorAs(t, err, &execErr)
	require.Equal(t, "doomed", execErr.Name)
	require.Equal(t, 7, execErr.ExitCode)
}

func TestRenderFrameMismatch(t *testing.T) {
	t.Parallel()

	kernelsDir := t.TempDir()
	writeScriptKernel(t, kernelsDir, "stuck",
		"#!/bin/sh\ncat >/dev/null\nprintf '{\"frame\":99,\"image\":\"\"}'\n")

	p, err := New(t.Context(), testConfig(kernelsDir, t.TempDir(), 0))
	require.NoError(t, err)

	_, err = p.Render(t.Context())
	require.ErrorContains(t, err, "replied for frame 99")
}

func TestRenderBadImage(t *testing.T) {
	t.Parallel()

	kernelsDir := t.TempDir()
	writeRenderKernel(t, kernelsDir, "garbled", "not-base64!!")

	p, err := New(t.Context(), testConfig(kernelsDir, t.TempDir(), 0))
	require.NoError(t, err)

	_, err = p.Render(t.Context())
	require.ErrorContains(t, err, "kernel garbled image")
}

func TestNewFail(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		scenario string
		given    func(cfg *model.Config)
		expect   string
	}{
		{
			scenario: "fps below minimum",
			given: func(cfg *model.Config) {
				cfg.Video.FPS = intPtr(0)
			},
			expect: "applying config to scene",
		},
		{
			scenario: "wrong resolution arity",
			given: func(cfg *model.Config) {
				cfg.Video.Resolution = []int{1920}
			},
			expect: "applying config to scene",
		},
		{
			scenario: "negative audio start",
			given: func(cfg *model.Config) {
				cfg.Audio = &model.Audio{File: "song.mp3", Start: floatPtr(-1)}
			},
			expect: "applying config to scene",
		},
		{
			scenario: "empty frame range",
			given: func(cfg *model.Config) {
				cfg.Render.Start = 5
				cfg.Render.End = 4
			},
			expect: "is empty",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.scenario, func(t *testing.T) {
			t.Parallel()

			kernelsDir := t.TempDir()
			writeScriptKernel(t, kernelsDir, "noop", "#!/bin/sh\ncat\n")
			cfg := testConfig(kernelsDir, t.TempDir(), 0)
			tc.given(&cfg)

			_, err := New(t.Context(), cfg)
			require.ErrorContains(t, err, tc.expect)
		})
	}
}

func TestEncoderFromScene(t *testing.T) {
	t.Parallel()

	kernelsDir := t.TempDir()
	writeScriptKernel(t, kernelsDir, "noop", "#!/bin/sh\ncat\n")

	cfg := testConfig(kernelsDir, t.TempDir(), 0)
	cfg.Video.FPS = intPtr(24)
	cfg.Video.VCodec = strPtr("libx264")
	cfg.Audio = &model.Audio{File: "song.mp3", Start: floatPtr(2.5)}

	p, err := New(t.Context(), cfg)
	require.NoError(t, err)

	enc := p.Encoder()
	require.Equal(t, 24, enc.FPS)
	require.Equal(t, "libx264", enc.Codec)
	require.Equal(t, "song.mp3", enc.AudioFile)
	require.Equal(t, 2.5, enc.AudioStart)
}

func requirePixel(t *testing.T, img image.Image, x, y int, want color.RGBA) {
	t.Helper()
	got := color.RGBAModel.Convert(img.At(x, y)).(color.RGBA)
	require.Equal(t, want, got, "pixel (%d,%d)", x, y)
}
