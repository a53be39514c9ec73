// Package certificate rasterizes an issue report into the satirical
// certificate PNG. Rendering is pure Go: fonts come from the Go font
// family and scaling uses golang.org/x/image/draw.
package certificate

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	_ "golang.org/x/image/webp"

	"github.com/fpang/civic-certificate/internal/report"
)

// DefaultScale renders at 2x pixel density.
const DefaultScale = 2.0

// maxImageryBytes caps a decorative image download.
const maxImageryBytes = 8 << 20

// Base layout size in points; the output is this times the scale.
const (
	pageWidth  = 800
	pageHeight = 1120
)

// ErrNotLoaded is returned by Render before Load has succeeded.
var ErrNotLoaded = errors.New("certificate renderer not loaded")

// Renderer draws certificates. Load must be called once before Render.
type Renderer struct {
	scale      float64
	httpClient *http.Client

	mu      sync.RWMutex
	regular *opentype.Font
	bold    *opentype.Font
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithScale sets the pixel density multiplier.
func WithScale(s float64) Option {
	return func(r *Renderer) {
		if s > 0 {
			r.scale = s
		}
	}
}

// WithHTTPClient sets the client used to fetch region imagery.
func WithHTTPClient(c *http.Client) Option {
	return func(r *Renderer) { r.httpClient = c }
}

// New creates an unloaded Renderer.
func New(opts ...Option) *Renderer {
	r := &Renderer{
		scale:      DefaultScale,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Load parses the embedded fonts.
func (r *Renderer) Load() error {
	regular, err := opentype.Parse(goregular.TTF)
	if err != nil {
		return fmt.Errorf("failed to parse regular font: %w", err)
	}
	bold, err := opentype.Parse(gobold.TTF)
	if err != nil {
		return fmt.Errorf("failed to parse bold font: %w", err)
	}

	r.mu.Lock()
	r.regular, r.bold = regular, bold
	r.mu.Unlock()

	log.Debug().Float64("scale", r.scale).Msg("Certificate renderer loaded")
	return nil
}

// Ready reports whether Load has completed.
func (r *Renderer) Ready() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.regular != nil && r.bold != nil
}

// Scale returns the pixel density multiplier.
func (r *Renderer) Scale() float64 { return r.scale }

// Render draws the certificate for rep and returns it PNG-encoded.
func (r *Renderer) Render(ctx context.Context, rep report.IssueReport) ([]byte, error) {
	r.mu.RLock()
	regular, bold := r.regular, r.bold
	r.mu.RUnlock()
	if regular == nil || bold == nil {
		return nil, ErrNotLoaded
	}
	if !rep.Renderable() {
		return nil, fmt.Errorf("report incomplete: missing %s", strings.Join(rep.Missing(), ", "))
	}

	start := time.Now()

	photo, _, err := image.Decode(bytes.NewReader(rep.CapturedImage.Data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode captured image: %w", err)
	}

	var emblem image.Image
	if rep.RegionImageRef != "" {
		emblem, err = r.fetchImagery(ctx, rep.RegionImageRef)
		if err != nil {
			return nil, err
		}
	}

	faces, err := newFaceSet(regular, bold, r.scale)
	if err != nil {
		return nil, err
	}
	defer faces.Close()

	c := newCanvas(pageWidth, pageHeight, r.scale)
	c.fill(paper)
	c.frame(24, 6, ink)
	c.frame(36, 2, gold)

	y := 100.0
	c.centered(faces.title, "CERTIFICATE OF CIVIC EXCELLENCE", y, ink)
	y += 40
	c.centered(faces.body, "This is to proudly certify the presence of a", y, muted)
	y += 46
	c.centered(faces.heading, strings.ToUpper(string(rep.IssueType)), y, accent)
	y += 24

	photoBox := image.Rect(80, int(y), pageWidth-80, int(y)+420)
	c.photo(photo, photoBox)
	if emblem != nil {
		c.photo(emblem, image.Rect(pageWidth-200, 40, pageWidth-60, 180))
	}
	y = float64(photoBox.Max.Y) + 44

	c.centered(faces.body, "lovingly preserved at", y, muted)
	y += 32
	for _, line := range wrap(faces.heading2, rep.Location.Address, float64(pageWidth-160)*r.scale) {
		c.centered(faces.heading2, line, y, ink)
		y += 30
	}
	y += 4
	c.centered(faces.small, report.CoordinatesToDMS(rep.Location.Latitude, rep.Location.Longitude), y, muted)
	y += 22
	if rep.Region != "" {
		c.centered(faces.small, rep.Region, y, muted)
		y += 22
	}
	y += 24
	for _, line := range wrap(faces.body, Citation(rep.IssueType), float64(pageWidth-160)*r.scale) {
		c.centered(faces.body, line, y, ink)
		y += 26
	}

	issued := rep.CreatedAt
	if issued.IsZero() {
		issued = time.Now()
	}
	c.centered(faces.small, "Issued "+issued.Format("2 January 2006"), pageHeight-90, muted)
	c.centered(faces.small, "Certificate No. "+shortID(rep.ID), pageHeight-66, muted)

	var buf bytes.Buffer
	if err := png.Encode(&buf, c.img); err != nil {
		return nil, fmt.Errorf("failed to encode certificate: %w", err)
	}

	log.Debug().
		Str("issue", string(rep.IssueType)).
		Bool("emblem", emblem != nil).
		Int("width", c.img.Bounds().Dx()).
		Int("height", c.img.Bounds().Dy()).
		Int("output_size", buf.Len()).
		Dur("elapsed", time.Since(start)).
		Msg("Certificate rendered")

	return buf.Bytes(), nil
}

// fetchImagery downloads and decodes a decorative region image.
func (r *Renderer) fetchImagery(ctx context.Context, ref string) (image.Image, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ref, nil)
	if err != nil {
		return nil, fmt.Errorf("invalid imagery reference %q: %w", ref, err)
	}
	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch region imagery: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("failed to fetch region imagery: HTTP %d", resp.StatusCode)
	}

	img, _, err := image.Decode(io.LimitReader(resp.Body, maxImageryBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to decode region imagery: %w", err)
	}
	return img, nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return strings.ToUpper(id[:8])
	}
	return strings.ToUpper(id)
}

var (
	paper  = color.RGBA{R: 0xfb, G: 0xf6, B: 0xe9, A: 0xff}
	ink    = color.RGBA{R: 0x1f, G: 0x2a, B: 0x44, A: 0xff}
	muted  = color.RGBA{R: 0x5c, G: 0x64, B: 0x77, A: 0xff}
	accent = color.RGBA{R: 0xb2, G: 0x22, B: 0x22, A: 0xff}
	gold   = color.RGBA{R: 0xc9, G: 0xa2, B: 0x27, A: 0xff}
)

// fitRect returns the largest rect with src's aspect ratio centered in box.
func fitRect(src image.Rectangle, box image.Rectangle) image.Rectangle {
	sw, sh := src.Dx(), src.Dy()
	bw, bh := box.Dx(), box.Dy()
	if sw == 0 || sh == 0 {
		return box
	}
	w, h := bw, sh*bw/sw
	if h > bh {
		w, h = sw*bh/sh, bh
	}
	x := box.Min.X + (bw-w)/2
	y := box.Min.Y + (bh-h)/2
	return image.Rect(x, y, x+w, y+h)
}

