package converter

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"io"
	"math"
	"os"
	"path/filepath"

	"github.com/nfnt/resize"
	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"

	// Register decoders for the static-image formats the detector accepts.
	_ "image/gif"
	_ "image/jpeg"

	_ "golang.org/x/image/webp"

	"github.com/dcl-platform/metamorph/internal/domain/model"
)

// svgPrefix matches the detector's SVG signature.
var svgPrefix = []byte("<svg ")

// convertImage preprocesses a static image (bounded resize, lossless PNG
// re-encode) and then encodes it into a KTX2 texture container.
func (c *ToolConverter) convertImage(ctx context.Context, inputPath, workDir string, format model.ImageFormat) (string, error) {
	pngPath, err := c.preprocessImage(inputPath, workDir)
	if err != nil {
		return "", fmt.Errorf("preprocess image: %w", err)
	}

	outPath := filepath.Join(workDir, "out.ktx2")
	args := buildToktxArgs(format, outPath, pngPath)
	if err := c.runTool(ctx, c.config.ToktxPath, args); err != nil {
		return "", err
	}
	return outPath, nil
}

// preprocessImage decodes the source (rasterizing SVG), fits it inside the
// configured bound (preserving aspect ratio, never upscaling) and writes it
// as lossless PNG.
func (c *ToolConverter) preprocessImage(inputPath, workDir string) (string, error) {
	in, err := os.Open(inputPath)
	if err != nil {
		return "", fmt.Errorf("open source: %w", err)
	}
	defer func() { _ = in.Close() }()

	header := make([]byte, len(svgPrefix))
	n, _ := io.ReadFull(in, header)
	if _, err := in.Seek(0, io.SeekStart); err != nil {
		return "", fmt.Errorf("rewind source: %w", err)
	}

	var img image.Image
	if bytes.Equal(header[:n], svgPrefix) {
		img, err = rasterizeSVG(in, c.config.MaxImageDimension)
		if err != nil {
			return "", fmt.Errorf("rasterize svg: %w", err)
		}
	} else {
		img, _, err = image.Decode(in)
		if err != nil {
			return "", fmt.Errorf("decode source: %w", err)
		}
	}

	bound := uint(c.config.MaxImageDimension)
	// Thumbnail only shrinks; an image already inside the bound passes
	// through untouched.
	img = resize.Thumbnail(bound, bound, img, resize.Lanczos3)

	outPath := filepath.Join(workDir, "preprocessed.png")
	out, err := os.Create(outPath)
	if err != nil {
		return "", fmt.Errorf("create png: %w", err)
	}

	if err := png.Encode(out, img); err != nil {
		_ = out.Close()
		return "", fmt.Errorf("encode png: %w", err)
	}
	if err := out.Close(); err != nil {
		return "", fmt.Errorf("close png: %w", err)
	}
	return outPath, nil
}

// rasterizeSVG renders an SVG at its view-box size, scaled down to fit the
// bound when the view box is larger. toktx has no vector input, so vector
// sources become pixels before the texture encode.
func rasterizeSVG(r io.Reader, bound int) (image.Image, error) {
	icon, err := oksvg.ReadIconStream(r, oksvg.IgnoreErrorMode)
	if err != nil {
		return nil, fmt.Errorf("parse svg: %w", err)
	}

	w, h := icon.ViewBox.W, icon.ViewBox.H
	if w <= 0 || h <= 0 {
		w, h = float64(bound), float64(bound)
	}
	if m := float64(bound); w > m || h > m {
		scale := math.Min(m/w, m/h)
		w, h = w*scale, h*scale
	}
	outW, outH := int(w+0.5), int(h+0.5)
	if outW < 1 {
		outW = 1
	}
	if outH < 1 {
		outH = 1
	}

	img := image.NewRGBA(image.Rect(0, 0, outW, outH))
	icon.SetTarget(0, 0, float64(outW), float64(outH))
	icon.Draw(rasterx.NewDasher(outW, outH, rasterx.NewScannerGV(outW, outH, img, img.Bounds())), 1)
	return img, nil
}

// buildToktxArgs constructs the toktx command line for an image target.
func buildToktxArgs(format model.ImageFormat, outPath, inPath string) []string {
	var flags []string
	switch format {
	case model.ImageFormatASTC:
		flags = []string{"--t2", "--encode", "astc", "--astc_blk_d", "8x8", "--genmipmap", "--assign_oetf", "srgb"}
	case model.ImageFormatASTCHigh:
		flags = []string{"--t2", "--encode", "astc", "--astc_blk_d", "4x4", "--genmipmap", "--assign_oetf", "srgb"}
	default: // UASTC
		flags = []string{"--t2", "--uastc", "--genmipmap", "--zcmp", "3", "--lower_left_maps_to_s0t0", "--assign_oetf", "srgb"}
	}
	return append(flags, outPath, inPath)
}
