package certificate

import (
	"fmt"
	"image"
	"image/color"
	"strings"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

// canvas draws in layout points and maps them to pixels by scale.
type canvas struct {
	img   *image.RGBA
	scale float64
}

func newCanvas(w, h int, scale float64) *canvas {
	return &canvas{
		img:   image.NewRGBA(image.Rect(0, 0, int(float64(w)*scale), int(float64(h)*scale))),
		scale: scale,
	}
}

func (c *canvas) px(v float64) int { return int(v * c.scale) }

func (c *canvas) rect(r image.Rectangle) image.Rectangle {
	return image.Rect(c.px(float64(r.Min.X)), c.px(float64(r.Min.Y)), c.px(float64(r.Max.X)), c.px(float64(r.Max.Y)))
}

func (c *canvas) fill(col color.Color) {
	draw.Draw(c.img, c.img.Bounds(), image.NewUniform(col), image.Point{}, draw.Src)
}

// frame strokes a border inset points from the edge.
func (c *canvas) frame(inset, width float64, col color.Color) {
	b := c.img.Bounds()
	in, w := c.px(inset), c.px(width)
	if w < 1 {
		w = 1
	}
	src := image.NewUniform(col)
	edges := []image.Rectangle{
		image.Rect(in, in, b.Max.X-in, in+w),
		image.Rect(in, b.Max.Y-in-w, b.Max.X-in, b.Max.Y-in),
		image.Rect(in, in, in+w, b.Max.Y-in),
		image.Rect(b.Max.X-in-w, in, b.Max.X-in, b.Max.Y-in),
	}
	for _, e := range edges {
		draw.Draw(c.img, e, src, image.Point{}, draw.Src)
	}
}

// photo scales src to fit box, preserving aspect ratio.
func (c *canvas) photo(src image.Image, box image.Rectangle) {
	dst := fitRect(src.Bounds(), c.rect(box))
	draw.CatmullRom.Scale(c.img, dst, src, src.Bounds(), draw.Over, nil)
}

// centered draws s horizontally centered with its baseline at y points.
func (c *canvas) centered(face font.Face, s string, y float64, col color.Color) {
	d := &font.Drawer{Dst: c.img, Src: image.NewUniform(col), Face: face}
	adv := d.MeasureString(s).Ceil()
	x := (c.img.Bounds().Dx() - adv) / 2
	d.Dot = fixed.P(x, c.px(y))
	d.DrawString(s)
}

// wrap breaks s into lines no wider than max pixels.
func wrap(face font.Face, s string, max float64) []string {
	words := strings.Fields(s)
	if len(words) == 0 {
		return nil
	}
	var lines []string
	line := words[0]
	for _, w := range words[1:] {
		next := line + " " + w
		if float64(font.MeasureString(face, next).Ceil()) > max {
			lines = append(lines, line)
			line = w
			continue
		}
		line = next
	}
	return append(lines, line)
}

// faceSet holds the faces for one render. Faces are not safe for
// concurrent use, so each render builds its own.
type faceSet struct {
	title, heading, heading2, body, small font.Face
}

func newFaceSet(regular, bold *opentype.Font, scale float64) (*faceSet, error) {
	mk := func(f *opentype.Font, size float64) (font.Face, error) {
		face, err := opentype.NewFace(f, &opentype.FaceOptions{
			Size:    size * scale,
			DPI:     72,
			Hinting: font.HintingFull,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create %.0fpt face: %w", size, err)
		}
		return face, nil
	}

	fs := &faceSet{}
	specs := []struct {
		dst  *font.Face
		font *opentype.Font
		size float64
	}{
		{&fs.title, bold, 34},
		{&fs.heading, bold, 30},
		{&fs.heading2, bold, 22},
		{&fs.body, regular, 18},
		{&fs.small, regular, 14},
	}
	for _, s := range specs {
		face, err := mk(s.font, s.size)
		if err != nil {
			fs.Close()
			return nil, err
		}
		*s.dst = face
	}
	return fs, nil
}

func (fs *faceSet) Close() {
	for _, f := range []font.Face{fs.title, fs.heading, fs.heading2, fs.body, fs.small} {
		if f != nil {
			f.Close()
		}
	}
}
