package device

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/evanoberholster/imagemeta"
	"github.com/rs/zerolog/log"

	"github.com/fpang/civic-certificate/internal/capture"
)

// FixedLocator reports a position supplied up front (e.g. --lat/--lon).
type FixedLocator struct {
	Latitude  float64
	Longitude float64
	Prompt    Prompter
}

var _ capture.Locator = (*FixedLocator)(nil)

// CurrentPosition returns the configured coordinates.
func (l *FixedLocator) CurrentPosition(ctx context.Context, opts capture.PositionOptions) (capture.Position, error) {
	if err := askLocation(ctx, l.Prompt); err != nil {
		return capture.Position{}, err
	}
	if err := validCoordinates(l.Latitude, l.Longitude); err != nil {
		return capture.Position{}, &capture.PositionError{Code: capture.PositionUnavailable, Message: err.Error()}
	}
	return capture.Position{Latitude: l.Latitude, Longitude: l.Longitude}, nil
}

// PhotoMetadata is the EXIF subset used for locating a photo.
type PhotoMetadata struct {
	Latitude  float64
	Longitude float64
	HasGPS    bool
}

// ExtractPhotoMetadata reads EXIF from a photo using imagemeta. Only the
// metadata block is read, not the pixel data.
func ExtractPhotoMetadata(path string) (*PhotoMetadata, error) {
	log.Debug().Str("path", path).Msg("Extracting EXIF metadata")

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	exifData, err := imagemeta.Decode(file)
	if err != nil {
		return nil, fmt.Errorf("failed to decode EXIF metadata: %w", err)
	}

	meta := &PhotoMetadata{}

	gps := exifData.GPS
	if gps.Latitude() != 0 || gps.Longitude() != 0 {
		meta.Latitude = gps.Latitude()
		meta.Longitude = gps.Longitude()
		meta.HasGPS = true
	}

	log.Debug().
		Str("path", path).
		Bool("has_gps", meta.HasGPS).
		Msg("EXIF metadata extracted")

	return meta, nil
}

// EXIFLocator reads the GPS position embedded in a photo. The file is
// re-read on every request, so no fix is ever cached.
type EXIFLocator struct {
	// Path returns the photo to read; it is a func so the locator follows
	// a photo picked after construction.
	Path   func() string
	Prompt Prompter
}

var _ capture.Locator = (*EXIFLocator)(nil)

// CurrentPosition extracts the photo's GPS coordinates.
func (l *EXIFLocator) CurrentPosition(ctx context.Context, opts capture.PositionOptions) (capture.Position, error) {
	if err := askLocation(ctx, l.Prompt); err != nil {
		return capture.Position{}, err
	}

	path := ""
	if l.Path != nil {
		path = l.Path()
	}
	if path == "" {
		return capture.Position{}, &capture.PositionError{Code: capture.PositionUnavailable, Message: "no photo to read a position from"}
	}

	type result struct {
		meta *PhotoMetadata
		err  error
	}
	ch := make(chan result, 1)
	go func() {
		meta, err := ExtractPhotoMetadata(path)
		ch <- result{meta, err}
	}()

	var res result
	select {
	case res = <-ch:
	case <-ctx.Done():
		return capture.Position{}, &capture.PositionError{Code: capture.Timeout, Message: ctx.Err().Error()}
	}

	if res.err != nil {
		return capture.Position{}, &capture.PositionError{Code: capture.PositionUnavailable, Message: res.err.Error()}
	}
	if !res.meta.HasGPS {
		return capture.Position{}, &capture.PositionError{Code: capture.PositionUnavailable, Message: "photo has no GPS data"}
	}
	return capture.Position{Latitude: res.meta.Latitude, Longitude: res.meta.Longitude}, nil
}

func askLocation(ctx context.Context, p Prompter) error {
	if p == nil {
		return nil
	}
	if err := p.Allow(ctx, PermissionLocation); err != nil {
		if errors.Is(err, ErrPermissionDenied) {
			return &capture.PositionError{Code: capture.PermissionDenied, Message: err.Error()}
		}
		return &capture.PositionError{Code: capture.PositionUnavailable, Message: err.Error()}
	}
	return nil
}

func validCoordinates(lat, lon float64) error {
	if lat < -90 || lat > 90 {
		return fmt.Errorf("latitude %f out of range", lat)
	}
	if lon < -180 || lon > 180 {
		return fmt.Errorf("longitude %f out of range", lon)
	}
	return nil
}
