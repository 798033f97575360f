package file

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"
	"io"

	"golang.org/x/image/draw"
)

const (
	thumbnailMaxSide = 300
	thumbnailQuality = 80
)

var thumbnailMimeTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
}

func canThumbnail(mimeType string) bool {
	return thumbnailMimeTypes[mimeType]
}

// makeThumbnail scales the image so its longest side is at most
// thumbnailMaxSide pixels and re-encodes it as JPEG.
func makeThumbnail(r io.Reader) ([]byte, error) {
	src, _, err := image.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	if w == 0 || h == 0 {
		return nil, fmt.Errorf("image has no pixels")
	}

	tw, th := w, h
	if w > thumbnailMaxSide || h > thumbnailMaxSide {
		if w >= h {
			tw = thumbnailMaxSide
			th = max(1, h*thumbnailMaxSide/w)
		} else {
			th = thumbnailMaxSide
			tw = max(1, w*thumbnailMaxSide/h)
		}
	}

	dst := image.NewRGBA(image.Rect(0, 0, tw, th))
	draw.Draw(dst, dst.Bounds(), image.White, image.Point{}, draw.Src)
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, b, draw.Over, nil)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: thumbnailQuality}); err != nil {
		return nil, fmt.Errorf("encode thumbnail: %w", err)
	}
	return buf.Bytes(), nil
}
