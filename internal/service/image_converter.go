// Package service provides supporting services around the streaming core:
// the channel icon cache and the XMLTV guide builder.
package service

import (
	"bytes"
	"fmt"
	"image"
	"image/png"

	// Register image format decoders
	_ "image/gif"
	_ "image/jpeg"

	"golang.org/x/image/draw"

	// WebP support from x/image
	_ "golang.org/x/image/webp"
)

// ImageConverter handles image decoding, scaling and PNG encoding.
type ImageConverter struct{}

// NewImageConverter creates a new ImageConverter.
func NewImageConverter() *ImageConverter {
	return &ImageConverter{}
}

// ConvertToPNG converts image data to PNG format. If maxWidth > 0 and the
// image is wider, it is scaled down preserving aspect ratio.
// Returns the PNG data, final width, final height, and any error.
func (c *ImageConverter) ConvertToPNG(data []byte, maxWidth int) ([]byte, int, int, error) {
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, 0, 0, fmt.Errorf("decoding image (format=%s): %w", format, err)
	}

	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()

	if maxWidth > 0 && width > maxWidth {
		scaled := image.NewRGBA(image.Rect(0, 0, maxWidth, height*maxWidth/width))
		draw.CatmullRom.Scale(scaled, scaled.Bounds(), img, bounds, draw.Over, nil)
		img = scaled
		width = scaled.Bounds().Dx()
		height = scaled.Bounds().Dy()
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, 0, 0, fmt.Errorf("encoding to PNG: %w", err)
	}

	return buf.Bytes(), width, height, nil
}

// GetImageDimensions returns the width and height of an image without full conversion.
func (c *ImageConverter) GetImageDimensions(data []byte) (int, int, error) {
	config, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return 0, 0, fmt.Errorf("decoding image config: %w", err)
	}
	return config.Width, config.Height, nil
}

// IsSupportedFormat checks if the content type is a supported image format.
func (c *ImageConverter) IsSupportedFormat(contentType string) bool {
	switch contentType {
	case "image/png", "image/jpeg", "image/jpg", "image/gif", "image/webp":
		return true
	default:
		return false
	}
}
