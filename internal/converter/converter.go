// Package converter invokes the external media tools (toktx, ffmpeg) that
// produce GPU-friendly texture containers and web-friendly video files.
package converter

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"

	"github.com/dcl-platform/metamorph/internal/domain/model"
	"github.com/dcl-platform/metamorph/internal/domain/repository"
)

// Config holds tool paths and encoding parameters.
type Config struct {
	// ToktxPath is the path to the toktx binary. Default "toktx".
	ToktxPath string
	// FFmpegPath is the path to the ffmpeg binary. Default "ffmpeg".
	FFmpegPath string
	// MaxImageDimension bounds static-image preprocessing. Images larger
	// than this on either axis are downscaled to fit; smaller images are
	// never upscaled. Default 1024.
	MaxImageDimension int
	// FrameRate is the input framerate applied when encoding an extracted
	// frame sequence. Default 10.
	FrameRate int
}

// DefaultConfig returns a Config with production defaults.
func DefaultConfig() Config {
	return Config{
		ToktxPath:         "toktx",
		FFmpegPath:        "ffmpeg",
		MaxImageDimension: 1024,
		FrameRate:         10,
	}
}

// Converter turns a downloaded source file into a converted artifact.
// Implementations pick the pipeline from the detected media class.
type Converter interface {
	// Convert produces the converted file for the given class and targets
	// inside workDir, returning its path and the format name that applied.
	Convert(ctx context.Context, inputPath, workDir string, class model.MediaClass, img model.ImageFormat, vid model.VideoFormat) (outPath string, formatName string, err error)
}

// ToolConverter implements Converter by shelling out to toktx and ffmpeg.
type ToolConverter struct {
	config Config
}

// Compile-time verification that ToolConverter implements Converter.
var _ Converter = (*ToolConverter)(nil)

// New creates a subprocess-backed converter.
func New(cfg Config) *ToolConverter {
	if cfg.ToktxPath == "" {
		cfg.ToktxPath = "toktx"
	}
	if cfg.FFmpegPath == "" {
		cfg.FFmpegPath = "ffmpeg"
	}
	if cfg.MaxImageDimension <= 0 {
		cfg.MaxImageDimension = 1024
	}
	if cfg.FrameRate <= 0 {
		cfg.FrameRate = 10
	}
	return &ToolConverter{config: cfg}
}

// Convert dispatches on the media class.
func (c *ToolConverter) Convert(ctx context.Context, inputPath, workDir string, class model.MediaClass, img model.ImageFormat, vid model.VideoFormat) (string, string, error) {
	switch class {
	case model.MediaClassStaticImage:
		out, err := c.convertImage(ctx, inputPath, workDir, img)
		return out, img.String(), err
	case model.MediaClassMotionImage:
		out, err := c.convertAnimation(ctx, inputPath, workDir, vid)
		return out, vid.String(), err
	case model.MediaClassMotionVideo:
		out, err := c.convertVideo(ctx, inputPath, workDir, vid)
		return out, vid.String(), err
	default:
		return "", "", repository.ErrUnknownFileType
	}
}

// runTool executes a media tool, draining combined output concurrently with
// the wait so the pipe buffer cannot deadlock. On non-zero exit the captured
// stderr tail is folded into the error.
func (c *ToolConverter) runTool(ctx context.Context, name string, args []string) error {
	cmd := exec.CommandContext(ctx, name, args...)

	var output bytes.Buffer
	cmd.Stdout = &output
	cmd.Stderr = &output

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("%s cancelled: %w", name, ctx.Err())
		}
		return fmt.Errorf("%w: %s %v: %s", repository.ErrEncodeFailed, name, err, tail(output.Bytes(), 512))
	}
	return nil
}

// tail returns at most n trailing bytes of b. Encoder diagnostics end up at
// the bottom of the output.
func tail(b []byte, n int) []byte {
	if len(b) <= n {
		return b
	}
	return b[len(b)-n:]
}
