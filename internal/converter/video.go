package converter

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/dcl-platform/metamorph/internal/domain/model"
)

// scaleFilter downscales to 512 px width with Lanczos resampling, preserving
// aspect ratio.
const scaleFilter = "scale=512:-1:flags=lanczos"

// convertVideo encodes a video source (including GIF) directly.
func (c *ToolConverter) convertVideo(ctx context.Context, inputPath, workDir string, format model.VideoFormat) (string, error) {
	outPath := filepath.Join(workDir, "out"+format.Extension())
	args := buildFFmpegArgs(inputPath, outPath, format, 0)
	if err := c.runTool(ctx, c.config.FFmpegPath, args); err != nil {
		return "", err
	}
	return outPath, nil
}

// convertAnimation handles animated images: extract every frame as a
// complete PNG (ffmpeg coalesces frame deltas), then encode the sequence
// at the configured input framerate.
func (c *ToolConverter) convertAnimation(ctx context.Context, inputPath, workDir string, format model.VideoFormat) (string, error) {
	framesDir := filepath.Join(workDir, "frames")
	if err := os.MkdirAll(framesDir, 0755); err != nil {
		return "", fmt.Errorf("create frames dir: %w", err)
	}

	framePattern := filepath.Join(framesDir, "frame_%05d.png")
	extractArgs := []string{"-i", inputPath, "-vsync", "0", "-y", framePattern}
	if err := c.runTool(ctx, c.config.FFmpegPath, extractArgs); err != nil {
		return "", fmt.Errorf("extract frames: %w", err)
	}

	outPath := filepath.Join(workDir, "out"+format.Extension())
	args := buildFFmpegArgs(framePattern, outPath, format, c.config.FrameRate)
	if err := c.runTool(ctx, c.config.FFmpegPath, args); err != nil {
		return "", err
	}
	return outPath, nil
}

// buildFFmpegArgs constructs the ffmpeg command line for a video target.
// A non-zero framerate marks the input as an image sequence.
func buildFFmpegArgs(input, output string, format model.VideoFormat, framerate int) []string {
	args := []string{}
	if framerate > 0 {
		args = append(args, "-framerate", strconv.Itoa(framerate))
	}
	args = append(args, "-i", input, "-vf", scaleFilter, "-pix_fmt", "yuv420p")

	switch format {
	case model.VideoFormatOGV:
		args = append(args,
			"-c:v", "libtheora",
			"-qscale:v", "7",
			"-an",
			"-f", "ogg",
		)
	default: // MP4
		args = append(args,
			"-c:v", "libx264",
			"-crf", "28",
			"-preset", "veryfast",
			"-movflags", "+faststart",
		)
	}

	return append(args, "-y", output)
}
