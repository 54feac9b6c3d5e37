// Package preview renders low-fidelity raster thumbnails of a scene.
//
// The default BoxRenderer draws each element's bounding box as a wireframe,
// which is enough to recognise a scene in a list. Full-fidelity rendering
// belongs to the drawing surface.
package preview

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	"math"

	"github.com/dmitrijs2005/scenesync/internal/scene"
)

const (
	DefaultPadding = 100
	DefaultMaxSide = 512
	DefaultQuality = 80
)

// Options controls a single render.
type Options struct {
	Padding int
	Dark    bool
	MaxSide int
}

type Renderer interface {
	Render(elements []scene.Element, files scene.FileMap, opts Options) (image.Image, error)
}

var (
	lightBackground = color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}
	darkBackground  = color.RGBA{R: 0x12, G: 0x12, B: 0x12, A: 0xff}
	lightStroke     = color.RGBA{R: 0x1e, G: 0x1e, B: 0x1e, A: 0xff}
	darkStroke      = color.RGBA{R: 0xe3, G: 0xe3, B: 0xe3, A: 0xff}
	imageFill       = color.RGBA{R: 0x9e, G: 0x9e, B: 0x9e, A: 0xff}
)

type box struct {
	minX, minY, maxX, maxY float64
}

func (b box) width() float64  { return b.maxX - b.minX }
func (b box) height() float64 { return b.maxY - b.minY }

func elementBox(e scene.Element) (box, bool) {
	x, okX := number(e["x"])
	y, okY := number(e["y"])
	if !okX || !okY {
		return box{}, false
	}
	w, _ := number(e["width"])
	h, _ := number(e["height"])
	// lines and arrows may carry negative extents
	return box{
		minX: math.Min(x, x+w), minY: math.Min(y, y+h),
		maxX: math.Max(x, x+w), maxY: math.Max(y, y+h),
	}, true
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

// BoxRenderer draws element bounding boxes. Images whose attachment is
// available are drawn filled.
type BoxRenderer struct{}

func (BoxRenderer) Render(elements []scene.Element, files scene.FileMap, opts Options) (image.Image, error) {
	if opts.MaxSide <= 0 {
		opts.MaxSide = DefaultMaxSide
	}
	if opts.Padding < 0 {
		opts.Padding = 0
	}

	bg, stroke := lightBackground, lightStroke
	if opts.Dark {
		bg, stroke = darkBackground, darkStroke
	}

	var boxes []box
	var filled []bool
	var bounds box
	for _, e := range scene.FilterTombstones(elements) {
		b, ok := elementBox(e)
		if !ok {
			continue
		}
		if len(boxes) == 0 {
			bounds = b
		} else {
			bounds.minX = math.Min(bounds.minX, b.minX)
			bounds.minY = math.Min(bounds.minY, b.minY)
			bounds.maxX = math.Max(bounds.maxX, b.maxX)
			bounds.maxY = math.Max(bounds.maxY, b.maxY)
		}
		boxes = append(boxes, b)
		filled = append(filled, e.IsImage() && files[e.FileID()] != nil)
	}

	pad := float64(opts.Padding)
	sceneW := bounds.width() + 2*pad
	sceneH := bounds.height() + 2*pad
	scale := math.Min(1, float64(opts.MaxSide)/math.Max(sceneW, sceneH))

	imgW := max(1, int(math.Ceil(sceneW*scale)))
	imgH := max(1, int(math.Ceil(sceneH*scale)))
	img := image.NewRGBA(image.Rect(0, 0, imgW, imgH))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: bg}, image.Point{}, draw.Src)

	project := func(b box) image.Rectangle {
		return image.Rect(
			int((b.minX-bounds.minX+pad)*scale),
			int((b.minY-bounds.minY+pad)*scale),
			int((b.maxX-bounds.minX+pad)*scale),
			int((b.maxY-bounds.minY+pad)*scale),
		)
	}

	for i, b := range boxes {
		r := project(b)
		if filled[i] {
			draw.Draw(img, r, &image.Uniform{C: imageFill}, image.Point{}, draw.Src)
		}
		strokeRect(img, r, stroke)
	}
	return img, nil
}

func strokeRect(img *image.RGBA, r image.Rectangle, c color.Color) {
	r = r.Intersect(img.Bounds())
	if r.Empty() {
		if r.Min.In(img.Bounds()) {
			img.Set(r.Min.X, r.Min.Y, c)
		}
		return
	}
	for x := r.Min.X; x < r.Max.X; x++ {
		img.Set(x, r.Min.Y, c)
		img.Set(x, r.Max.Y-1, c)
	}
	for y := r.Min.Y; y < r.Max.Y; y++ {
		img.Set(r.Min.X, y, c)
		img.Set(r.Max.X-1, y, c)
	}
}

// EncodeJPEG encodes img with the given quality (1-100, 0 means default).
func EncodeJPEG(img image.Image, quality int) ([]byte, error) {
	if quality <= 0 || quality > 100 {
		quality = DefaultQuality
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("jpeg encode: %w", err)
	}
	return buf.Bytes(), nil
}
