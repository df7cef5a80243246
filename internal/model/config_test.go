package model_test

import (
	"strings"
	"testing"

	"github.com/rollray/rollray/internal/model"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

// The stored default config must load again: optional nil fields have to be
// omitted from the YAML, an explicit null is a type conflict for the schema.
func TestDefaultConfigRoundTrip(t *testing.T) {
	var buf strings.Builder
	enc := yaml.NewEncoder(&buf)
	require.NoError(t, enc.Encode(model.DefaultConfig()))
	require.NoError(t, enc.Close())
	require.NotContains(t, buf.String(), "null")

	cfg, err := model.LoadConfig(strings.NewReader(buf.String()))
	require.NoError(t, err)
	require.Equal(t, model.DefaultConfig(), cfg)
}

func TestLoadConfig(t *testing.T) {
	yml := `
version: 0
kernels:
  dir: ./kernels
  python: /usr/local/bin/python3
render:
  start: 10
  end: 120
  parallelism: 4
video:
  resolution: [1280, 720]
  fps: 60
audio:
  file: song.flac
  start: 1.5
`
	cfg, err := model.LoadConfig(strings.NewReader(yml))
	require.NoError(t, err)
	require.Equal(t, 0, cfg.Version)
	require.Equal(t, "./kernels", cfg.Kernels.Dir)
	require.NotNil(t, cfg.Kernels.Python)
	require.Equal(t, "/usr/local/bin/python3", *cfg.Kernels.Python)
	require.Nil(t, cfg.Kernels.Java)
	require.Equal(t, 10, cfg.Render.Start)
	require.Equal(t, 120, cfg.Render.End)
	require.NotNil(t, cfg.Render.Parallelism)
	require.Equal(t, 4, *cfg.Render.Parallelism)
	require.NotNil(t, cfg.Video)
	require.Equal(t, []int{1280, 720}, cfg.Video.Resolution)
	require.NotNil(t, cfg.Video.FPS)
	require.Equal(t, 60, *cfg.Video.FPS)
	require.NotNil(t, cfg.Audio)
	require.Equal(t, "song.flac", cfg.Audio.File)
	require.NotNil(t, cfg.Audio.Start)
	require.InDelta(t, 1.5, *cfg.Audio.Start, 1e-9)
	// defaults kick in for omitted sections
	require.Equal(t, "out", cfg.Output.Dir)
	require.Equal(t, "video.mp4", cfg.Output.File)
	require.False(t, cfg.Service.Verbose)
}

func TestLoadConfigDefaults(t *testing.T) {
	yml := `
kernels:
  dir: kernels
render:
  end: 30
`
	cfg, err := model.LoadConfig(strings.NewReader(yml))
	require.NoError(t, err)
	require.Equal(t, 0, cfg.Version)
	require.Equal(t, 0, cfg.Render.Start)
	require.Equal(t, 30, cfg.Render.End)
	require.Nil(t, cfg.Video)
	require.Nil(t, cfg.Audio)
}

func TestLoadConfigFail(t *testing.T) {
	type given struct {
		yml string
	}

	var testCases = []struct {
		scenario string
		given    given
	}{
		{
			scenario: "missing kernels dir",
			given: given{yml: `
render:
  end: 30
`},
		},
		{
			scenario: "empty kernels dir",
			given: given{yml: `
kernels:
  dir: ""
render:
  end: 30
`},
		},
		{
			scenario: "missing render end",
			given: given{yml: `
kernels:
  dir: kernels
`},
		},
		{
			scenario: "negative fps",
			given: given{yml: `
kernels:
  dir: kernels
render:
  end: 30
video:
  fps: -1
`},
		},
		{
			scenario: "unknown field",
			given: given{yml: `
kernels:
  dir: kernels
render:
  end: 30
frames: 12
`},
		},
		{
			scenario: "unsupported version",
			given: given{yml: `
version: 1
kernels:
  dir: kernels
render:
  end: 30
`},
		},
	}

	for _, tt := range testCases {
		t.Run(tt.scenario, func(t *testing.T) {
			_, err := model.LoadConfig(strings.NewReader(tt.given.yml))
			require.Error(t, err)
			require.NotEmpty(t, model.CueErrDetails(err))
		})
	}
}
