package capture

import (
	"context"
	"fmt"
	"image"
	"time"

	"github.com/fpang/civic-certificate/internal/geocode"
	"github.com/fpang/civic-certificate/internal/report"
)

// Facing selects which camera to open.
type Facing string

const (
	FacingEnvironment Facing = "environment"
	FacingUser        Facing = "user"
)

// Camera opens a live video source.
type Camera interface {
	Open(ctx context.Context, facing Facing) (Stream, error)
}

// Stream is an acquired camera. Stop must be safe to call more than once.
type Stream interface {
	// Frame returns the current frame at the source's native resolution.
	Frame() (image.Image, error)
	Stop()
}

// PositionOptions mirror the device geolocation request options.
type PositionOptions struct {
	EnableHighAccuracy bool
	Timeout            time.Duration
	// MaximumAge is the oldest cached fix the locator may return. Zero
	// forces a fresh fix.
	MaximumAge time.Duration
}

// DefaultPositionOptions are used for every position request.
var DefaultPositionOptions = PositionOptions{
	EnableHighAccuracy: false,
	Timeout:            10 * time.Second,
	MaximumAge:         0,
}

// Position is a one-shot fix.
type Position struct {
	Latitude  float64
	Longitude float64
}

// PositionErrorCode matches the device geolocation error codes.
type PositionErrorCode int

const (
	PermissionDenied    PositionErrorCode = 1
	PositionUnavailable PositionErrorCode = 2
	Timeout             PositionErrorCode = 3
)

func (c PositionErrorCode) String() string {
	switch c {
	case PermissionDenied:
		return "PERMISSION_DENIED"
	case PositionUnavailable:
		return "POSITION_UNAVAILABLE"
	case Timeout:
		return "TIMEOUT"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", int(c))
	}
}

// PositionError is the typed failure returned by a Locator.
type PositionError struct {
	Code    PositionErrorCode
	Message string
}

func (e *PositionError) Error() string {
	if e.Message == "" {
		return "geolocation: " + e.Code.String()
	}
	return fmt.Sprintf("geolocation: %s: %s", e.Code, e.Message)
}

// Locator acquires the device position.
type Locator interface {
	CurrentPosition(ctx context.Context, opts PositionOptions) (Position, error)
}

// Geocoder resolves a coordinate to an address.
type Geocoder interface {
	Reverse(ctx context.Context, lat, lon float64) (*geocode.Place, error)
}

// RegionMatcher picks decorative imagery for a region name; "" means none.
type RegionMatcher interface {
	Lookup(name string) string
}

// Renderer rasterizes a complete report into the certificate image.
type Renderer interface {
	// Ready reports whether the renderer has finished loading.
	Ready() bool
	Render(ctx context.Context, r report.IssueReport) ([]byte, error)
}

// Sharer publishes a finished certificate and returns a shareable link.
type Sharer interface {
	Share(ctx context.Context, r report.IssueReport) (string, error)
}
