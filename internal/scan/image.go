package scan

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif" // Register GIF decoder
	"image/jpeg"
	_ "image/png" // Register PNG decoder

	"github.com/gen2brain/heic"
)

// jpegQuality is used when a captured image needs re-encoding.
const jpegQuality = 90

// PrepareJPEG normalizes captured image bytes to JPEG and probes the pixel
// dimensions. Phone captures commonly arrive as HEIC/HEIF (iPhone) or PNG;
// the storage contract is always image/jpeg. JPEG input passes through
// unchanged.
func PrepareJPEG(data []byte) ([]byte, int, int, error) {
	if isJPEGData(data) {
		cfg, err := jpeg.DecodeConfig(bytes.NewReader(data))
		if err != nil {
			return nil, 0, 0, fmt.Errorf("reading JPEG dimensions: %w", err)
		}
		return data, cfg.Width, cfg.Height, nil
	}

	var img image.Image
	var err error
	if isHEICData(data) {
		img, err = heic.Decode(bytes.NewReader(data))
		if err != nil {
			return nil, 0, 0, fmt.Errorf("decoding HEIC/HEIF image: %w", err)
		}
	} else {
		img, _, err = image.Decode(bytes.NewReader(data))
		if err != nil {
			return nil, 0, 0, fmt.Errorf("decoding image: %w", err)
		}
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, 0, 0, fmt.Errorf("encoding JPEG: %w", err)
	}
	bounds := img.Bounds()
	return buf.Bytes(), bounds.Dx(), bounds.Dy(), nil
}

// isJPEGData checks the JPEG SOI marker.
func isJPEGData(data []byte) bool {
	return len(data) >= 2 && data[0] == 0xFF && data[1] == 0xD8
}

// isHEICData checks for an ftyp box with a HEIC-related brand.
func isHEICData(data []byte) bool {
	if len(data) < 12 {
		return false
	}
	if string(data[4:8]) != "ftyp" {
		return false
	}
	brand := string(data[8:12])
	return brand == "heic" || brand == "heif" || brand == "mif1" || brand == "msf1"
}
