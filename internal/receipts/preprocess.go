package receipts

import (
	"bytes"
	"image"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
)

// Downscale shrinks the image to fit within maxDim x maxDim. Images that are
// already small enough, or that cannot be decoded, are returned unchanged.
func Downscale(upload Upload, maxDim int) Upload {
	if maxDim <= 0 || len(upload.Data) == 0 {
		return upload
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(upload.Data))
	if err != nil || (cfg.Width <= maxDim && cfg.Height <= maxDim) {
		return upload
	}
	img, err := imaging.Decode(bytes.NewReader(upload.Data), imaging.AutoOrientation(true))
	if err != nil {
		return upload
	}
	resized := imaging.Fit(img, maxDim, maxDim, imaging.Lanczos)

	format := imaging.JPEG
	contentType := "image/jpeg"
	ext := ".jpg"
	if strings.EqualFold(upload.ContentType, "image/png") {
		format, contentType, ext = imaging.PNG, "image/png", ".png"
	}
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, resized, format, imaging.JPEGQuality(85)); err != nil {
		return upload
	}

	name := upload.Filename
	if name == "" {
		name = "receipt"
	}
	return Upload{
		Filename:    strings.TrimSuffix(name, filepath.Ext(name)) + ext,
		ContentType: contentType,
		Data:        buf.Bytes(),
	}
}
