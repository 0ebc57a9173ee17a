package media

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"net/http"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/rwcarlsen/goexif/exif"

	_ "image/gif"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

const (
	DefaultLogoSide    = 256
	DefaultLogoQuality = 85
	maxLogoBytes       = 10 << 20
)

var (
	ErrEmptyImage   = errors.New("image is empty")
	ErrImageTooBig  = errors.New("image exceeds size limit")
	ErrVectorFormat = errors.New("vector images are not supported")
)

type LogoMeta struct {
	Width  int
	Height int
	Format string
}

func DetectContentType(data []byte) string {
	if len(data) == 0 {
		return ""
	}
	sample := data
	if len(sample) > 512 {
		sample = sample[:512]
	}
	return http.DetectContentType(sample)
}

func isSVG(data []byte) bool {
	sample := data
	if len(sample) > 512 {
		sample = sample[:512]
	}
	text := strings.ToLower(string(sample))
	return strings.Contains(text, "<svg")
}

func isHeifFamily(data []byte) bool {
	// ISO BMFF: [size:4][ftyp:4][brand:4]
	if len(data) < 12 {
		return false
	}
	if string(data[4:8]) != "ftyp" {
		return false
	}
	switch string(data[8:12]) {
	case "heic", "heix", "hevc", "hevx", "mif1", "msf1", "heif":
		return true
	default:
		return false
	}
}

func decodeAndAutoRotate(data []byte) (image.Image, string, error) {
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		if isHeifFamily(data) {
			if heicImg, heicErr := decodeHEIC(data); heicErr == nil {
				return heicImg, "heic", nil
			}
		}
		return nil, "", err
	}

	if !strings.EqualFold(format, "jpeg") {
		return img, format, nil
	}
	ex, err := exif.Decode(bytes.NewReader(data))
	if err != nil {
		return img, format, nil
	}
	tag, err := ex.Get(exif.Orientation)
	if err != nil {
		return img, format, nil
	}
	orient, err := tag.Int(0)
	if err != nil {
		return img, format, nil
	}
	switch orient {
	case 2:
		img = imaging.FlipH(img)
	case 3:
		img = imaging.Rotate180(img)
	case 4:
		img = imaging.FlipV(img)
	case 5:
		img = imaging.Transpose(img)
	case 6:
		img = imaging.Rotate270(img)
	case 7:
		img = imaging.Transverse(img)
	case 8:
		img = imaging.Rotate90(img)
	}
	return img, format, nil
}

// NormalizeLogo decodes any supported raster logo, applies EXIF orientation,
// fits it inside maxSide and re-encodes it as an opaque JPEG on white.
func NormalizeLogo(data []byte, maxSide int, quality int) ([]byte, LogoMeta, error) {
	if len(data) == 0 {
		return nil, LogoMeta{}, ErrEmptyImage
	}
	if len(data) > maxLogoBytes {
		return nil, LogoMeta{}, ErrImageTooBig
	}
	if isSVG(data) {
		return nil, LogoMeta{}, ErrVectorFormat
	}
	if maxSide <= 0 {
		maxSide = DefaultLogoSide
	}
	if quality <= 0 || quality > 100 {
		quality = DefaultLogoQuality
	}

	img, format, err := decodeAndAutoRotate(data)
	if err != nil {
		return nil, LogoMeta{}, err
	}
	b := img.Bounds()
	meta := LogoMeta{Width: b.Dx(), Height: b.Dy(), Format: format}

	fitted := imaging.Fit(img, maxSide, maxSide, imaging.Lanczos)
	fb := fitted.Bounds()
	canvas := imaging.New(fb.Dx(), fb.Dy(), color.White)
	canvas = imaging.Overlay(canvas, fitted, image.Pt(0, 0), 1.0)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, canvas, &jpeg.Options{Quality: quality}); err != nil {
		return nil, LogoMeta{}, err
	}
	return buf.Bytes(), meta, nil
}
