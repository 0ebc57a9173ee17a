package media

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"
)

func encodePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w/2; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.NRGBA{R: 200, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func TestNormalizeLogoFitsAndFlattens(t *testing.T) {
	out, meta, err := NormalizeLogo(encodePNG(t, 600, 300), 256, 90)
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if meta.Width != 600 || meta.Height != 300 || meta.Format != "png" {
		t.Fatalf("unexpected meta: %+v", meta)
	}
	if got := DetectContentType(out); got != "image/jpeg" {
		t.Fatalf("expected jpeg output, got %s", got)
	}

	img, err := jpeg.Decode(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("decode jpeg: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 256 || b.Dy() != 128 {
		t.Fatalf("expected 256x128, got %dx%d", b.Dx(), b.Dy())
	}
	r, g, b, _ := img.At(250, 64).RGBA()
	if r>>8 < 240 || g>>8 < 240 || b>>8 < 240 {
		t.Fatalf("transparent area should be white, got %d %d %d", r>>8, g>>8, b>>8)
	}
}

func TestNormalizeLogoRejects(t *testing.T) {
	cases := []struct {
		name string
		data []byte
		want error
	}{
		{name: "empty", data: nil, want: ErrEmptyImage},
		{name: "svg", data: []byte(`<?xml version="1.0"?><svg xmlns="http://www.w3.org/2000/svg"></svg>`), want: ErrVectorFormat},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, _, err := NormalizeLogo(tc.data, 0, 0); err != tc.want {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}

	if _, _, err := NormalizeLogo([]byte("definitely not an image"), 0, 0); err == nil {
		t.Fatalf("expected decode error")
	}
}

func TestIsHeifFamily(t *testing.T) {
	header := append([]byte{0, 0, 0, 24}, []byte("ftypheic")...)
	if !isHeifFamily(header) {
		t.Fatalf("expected heic brand to be detected")
	}
	if isHeifFamily([]byte("ftyp")) {
		t.Fatalf("short input must not match")
	}
}
