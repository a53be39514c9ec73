package device

import (
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
	_ "golang.org/x/image/webp"

	"github.com/fpang/civic-certificate/internal/capture"
)

// SupportedPhotoExtensions maps decodable photo extensions to MIME types.
var SupportedPhotoExtensions = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".webp": "image/webp",
}

// IsPhoto reports whether ext can be used as a camera source.
func IsPhoto(ext string) bool {
	_, ok := SupportedPhotoExtensions[strings.ToLower(ext)]
	return ok
}

// ErrStreamStopped is returned by Frame after Stop.
var ErrStreamStopped = errors.New("camera stream stopped")

// PhotoCamera serves a still photo as the live feed.
type PhotoCamera struct {
	// Path is the photo to serve. When empty, Pick is called.
	Path string
	Pick func(ctx context.Context) (string, error)

	// Prompt gates access; nil means AllowAll.
	Prompt Prompter
}

var _ capture.Camera = (*PhotoCamera)(nil)

// Open asks for camera permission, then decodes the photo.
func (c *PhotoCamera) Open(ctx context.Context, facing capture.Facing) (capture.Stream, error) {
	prompt := c.Prompt
	if prompt == nil {
		prompt = AllowAll{}
	}
	if err := prompt.Allow(ctx, PermissionCamera); err != nil {
		return nil, err
	}

	path := c.Path
	if path == "" {
		if c.Pick == nil {
			return nil, errors.New("no photo configured")
		}
		picked, err := c.Pick(ctx)
		if err != nil {
			return nil, err
		}
		path = picked
		c.Path = picked
	}

	ext := strings.ToLower(filepath.Ext(path))
	if !IsPhoto(ext) {
		return nil, fmt.Errorf("unsupported photo format: %s", ext)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open photo: %w", err)
	}
	defer f.Close()

	img, format, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode photo: %w", err)
	}

	log.Debug().
		Str("path", path).
		Str("format", format).
		Str("facing", string(facing)).
		Int("width", img.Bounds().Dx()).
		Int("height", img.Bounds().Dy()).
		Msg("Camera opened")

	return &photoStream{img: img}, nil
}

type photoStream struct {
	mu      sync.Mutex
	img     image.Image
	stopped bool
}

func (s *photoStream) Frame() (image.Image, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return nil, ErrStreamStopped
	}
	return s.img, nil
}

func (s *photoStream) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped = true
	s.img = nil
}
