package storage

import (
	"bytes"
	"errors"
	"image"
	_ "image/gif"  // register GIF decoder
	_ "image/jpeg" // register JPEG decoder
	_ "image/png"  // register PNG decoder

	"github.com/gabriel-vasile/mimetype"
	_ "golang.org/x/image/webp" // register WebP decoder
)

// ErrUnsupportedImage is returned for content that is not one of the accepted image formats.
var ErrUnsupportedImage = errors.New("unsupported image type")

var allowedImageTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// ImageInfo is the result of sniffing an upload.
type ImageInfo struct {
	MIME      string
	Extension string
	Width     int
	Height    int
}

// DetectImage sniffs the content type from the bytes, ignoring any client
// supplied name or header, and checks that the image header decodes.
func DetectImage(data []byte) (ImageInfo, error) {
	if len(data) == 0 {
		return ImageInfo{}, ErrUnsupportedImage
	}
	mt := mimetype.Detect(data)
	ext, ok := allowedImageTypes[mt.String()]
	if !ok {
		return ImageInfo{}, ErrUnsupportedImage
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil || cfg.Width <= 0 || cfg.Height <= 0 {
		return ImageInfo{}, ErrUnsupportedImage
	}
	return ImageInfo{MIME: mt.String(), Extension: ext, Width: cfg.Width, Height: cfg.Height}, nil
}
