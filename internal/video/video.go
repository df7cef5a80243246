// Package video encodes a directory of PNG frames into a video file by
// driving FFmpeg as a subprocess.
package video

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"path/filepath"
	"strconv"
)

var ErrFFmpegUnavailable = errors.New("ffmpeg not found")

// framePattern matches the file names the render pipeline writes.
const framePattern = "frame-%06d.png"

// Encoder holds the FFmpeg invocation parameters. The zero value is not
// usable, FPS and Codec must be set.
type Encoder struct {
	FFmpeg      string // binary override (default: PATH lookup)
	FPS         int
	Codec       string
	StartNumber int     // number of the first frame file
	AudioFile   string  // optional audio track
	AudioStart  float64 // seconds into the audio file
}

// Args builds the FFmpeg argument vector for encoding framesDir into
// outPath. Split out from Encode so it can be inspected without a binary.
func (e Encoder) Args(framesDir, outPath string) []string {
	args := []string{
		"-y",
		"-framerate", strconv.Itoa(e.FPS),
		"-start_number", strconv.Itoa(e.StartNumber),
		"-i", filepath.Join(framesDir, framePattern),
	}
	if e.AudioFile != "" {
		args = append(args,
			"-ss", strconv.FormatFloat(e.AudioStart, 'f', -1, 64),
			"-i", e.AudioFile,
		)
	}
	args = append(args, "-c:v", e.Codec, "-pix_fmt", "yuv420p")
	if e.AudioFile != "" {
		args = append(args, "-c:a", "aac", "-shortest")
	}
	return append(args, outPath)
}

// Encode runs FFmpeg over framesDir and writes the video to outPath. FFmpeg
// stderr is forwarded line by line to the debug log.
func (e Encoder) Encode(ctx context.Context, framesDir, outPath string) error {
	ffmpeg := e.FFmpeg
	if ffmpeg == "" {
		var err error
		ffmpeg, err = exec.LookPath("ffmpeg")
		if err != nil {
			return fmt.Errorf("%w: %w", ErrFFmpegUnavailable, err)
		}
	}

	cmd := exec.CommandContext(ctx, ffmpeg, e.Args(framesDir, outPath)...)
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return err
	}

	slog.InfoContext(ctx, "encoding video", "ffmpeg", ffmpeg, "out", outPath)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("starting ffmpeg: %w", err)
	}
	processStderr(ctx, stderr)

	if err := cmd.Wait(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return fmt.Errorf("ffmpeg exited with code %d", exitErr.ExitCode())
		}
		return fmt.Errorf("waiting for ffmpeg: %w", err)
	}
	return nil
}

func processStderr(ctx context.Context, stderr io.Reader) {
	scanner := bufio.NewScanner(stderr)
	for scanner.Scan() {
		slog.DebugContext(ctx, "ffmpeg", "line", scanner.Text())
	}
	if err := scanner.Err(); err != nil && !errors.Is(err, io.EOF) {
		slog.ErrorContext(ctx, "reading ffmpeg stderr", "error", err)
	}
}
