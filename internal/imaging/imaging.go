// Package imaging renders preview thumbnails of stored instrument photos.
package imaging

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"
	"io"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
)

// DefaultThumbnailSize is the bounding box used when callers pass 0.
const DefaultThumbnailSize = 200

// JPEGQuality is the compression quality for thumbnails.
const JPEGQuality = 85

// Thumbnail decodes a PNG, JPEG or TIFF image, fits it inside a maxDim box
// and returns it encoded as JPEG. Images already within bounds are only
// re-encoded.
func Thumbnail(r io.Reader, maxDim int) ([]byte, error) {
	if maxDim <= 0 {
		maxDim = DefaultThumbnailSize
	}

	img, format, err := image.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("decoding image: %w", err)
	}

	img = downscale(img, maxDim)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: JPEGQuality}); err != nil {
		return nil, fmt.Errorf("encoding %s thumbnail: %w", format, err)
	}
	return buf.Bytes(), nil
}

// downscale resizes the image so neither dimension exceeds maxDim, keeping
// the aspect ratio. Smaller images are returned as is.
func downscale(img image.Image, maxDim int) image.Image {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()

	if w <= maxDim && h <= maxDim {
		return img
	}

	newW, newH := maxDim, maxDim
	if w > h {
		newH = h * maxDim / w
	} else {
		newW = w * maxDim / h
	}
	newW = max(newW, 1)
	newH = max(newH, 1)

	dst := image.NewRGBA(image.Rect(0, 0, newW, newH))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)
	return dst
}
