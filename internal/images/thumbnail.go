package images

import (
	"bytes"
	"fmt"
	"image"
	"os"
	"path/filepath"

	"github.com/HugoSmits86/nativewebp"
	"golang.org/x/image/draw"
)

// ThumbMaxSide is the longest side of a generated thumbnail in pixels.
const ThumbMaxSide = 320

// GenerateThumbnail decodes the original of ref and writes a webp thumbnail.
// Images already within ThumbMaxSide are re-encoded without scaling. Originals
// over the pixel limit are not decoded.
func (s *Store) GenerateThumbnail(ref Ref) (string, error) {
	data, err := os.ReadFile(filepath.Join(s.Dir(false), ref.FileName()))
	if err != nil {
		return "", err
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("decode %s: %w", ref.FileName(), err)
	}
	if err := s.checkPixels(cfg); err != nil {
		return "", fmt.Errorf("thumbnail %s: %w", ref.FileName(), err)
	}
	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("decode %s: %w", ref.FileName(), err)
	}

	var buf bytes.Buffer
	if err := nativewebp.Encode(&buf, scaleDown(src, ThumbMaxSide), nil); err != nil {
		return "", fmt.Errorf("encode thumbnail: %w", err)
	}

	dir := s.Dir(true)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return "", err
	}
	thumb := Ref{ID: ref.ID, Thumb: true}
	path := filepath.Join(dir, thumb.FileName())
	if err := writeFileAtomic(path, buf.Bytes()); err != nil {
		return "", err
	}
	return path, nil
}

func scaleDown(src image.Image, maxSide int) image.Image {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= maxSide && h <= maxSide {
		return src
	}
	if w >= h {
		h = max(1, h*maxSide/w)
		w = maxSide
	} else {
		w = max(1, w*maxSide/h)
		h = maxSide
	}
	dst := image.NewNRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, b, draw.Over, nil)
	return dst
}
