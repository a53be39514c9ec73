// Package report holds the in-memory issue report built up over one
// certificate session. Nothing in this package is persisted; a session's
// report is discarded on reset or process exit.
package report

import (
	"encoding/base64"
	"fmt"
	"strings"
	"time"
)

// AddressNotFound is the address used when reverse geocoding yields nothing.
const AddressNotFound = "Address not found"

// IssueType is one of the fixed civic issue categories.
type IssueType string

const (
	Pothole           IssueType = "Pothole"
	Waterlogging      IssueType = "Waterlogging"
	GarbageDump       IssueType = "Garbage Dump"
	BrokenStreetlight IssueType = "Broken Streetlight"
	Other             IssueType = "Other"
)

// IssueTypes lists the catalog in display order.
var IssueTypes = []IssueType{Pothole, Waterlogging, GarbageDump, BrokenStreetlight, Other}

// Valid reports whether t is in the catalog.
func (t IssueType) Valid() bool {
	for _, it := range IssueTypes {
		if it == t {
			return true
		}
	}
	return false
}

// ParseIssueType resolves user input (case-insensitive, dashes or
// underscores allowed in place of spaces) to a catalog entry.
func ParseIssueType(s string) (IssueType, error) {
	norm := strings.NewReplacer("-", " ", "_", " ").Replace(strings.TrimSpace(s))
	for _, it := range IssueTypes {
		if strings.EqualFold(string(it), norm) {
			return it, nil
		}
	}
	return "", fmt.Errorf("unknown issue type: %q", s)
}

// Location is a position fix plus its human-readable address.
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Address   string  `json:"address"`
}

// Image is a captured still frame.
type Image struct {
	Data     []byte `json:"-"`
	MIMEType string `json:"mimeType"`
	Width    int    `json:"width"`
	Height   int    `json:"height"`
}

// DataURI returns the frame as an embeddable base64 data URI.
func (i *Image) DataURI() string {
	return "data:" + i.MIMEType + ";base64," + base64.StdEncoding.EncodeToString(i.Data)
}

// IssueReport is the state accumulated over a single session.
type IssueReport struct {
	ID             string    `json:"id"`
	CreatedAt      time.Time `json:"createdAt"`
	IssueType      IssueType `json:"issueType,omitempty"`
	Location       *Location `json:"location,omitempty"`
	Region         string    `json:"region,omitempty"`
	RegionImageRef string    `json:"regionImageRef,omitempty"`
	CapturedImage  *Image    `json:"capturedImage,omitempty"`

	// RenderedArtifact is the PNG certificate.
	RenderedArtifact []byte `json:"-"`
}

// Renderable reports whether every field the certificate needs is present.
func (r *IssueReport) Renderable() bool {
	return r.IssueType != "" && r.Location != nil && r.CapturedImage != nil && len(r.CapturedImage.Data) > 0
}

// Missing names the required fields that are still unset.
func (r *IssueReport) Missing() []string {
	var missing []string
	if r.IssueType == "" {
		missing = append(missing, "issueType")
	}
	if r.Location == nil {
		missing = append(missing, "location")
	}
	if r.CapturedImage == nil || len(r.CapturedImage.Data) == 0 {
		missing = append(missing, "capturedImage")
	}
	return missing
}

// Clone returns a copy that shares no mutable pointers with r.
func (r *IssueReport) Clone() IssueReport {
	c := *r
	if r.Location != nil {
		loc := *r.Location
		c.Location = &loc
	}
	if r.CapturedImage != nil {
		img := *r.CapturedImage
		img.Data = append([]byte(nil), r.CapturedImage.Data...)
		c.CapturedImage = &img
	}
	if r.RenderedArtifact != nil {
		c.RenderedArtifact = append([]byte(nil), r.RenderedArtifact...)
	}
	return c
}

// CoordinatesToDMS converts decimal degrees to degrees, minutes, seconds format.
func CoordinatesToDMS(lat, lon float64) string {
	latDir := "N"
	if lat < 0 {
		latDir = "S"
		lat = -lat
	}

	lonDir := "E"
	if lon < 0 {
		lonDir = "W"
		lon = -lon
	}

	latDeg, latMin, latSec := splitDegrees(lat)
	lonDeg, lonMin, lonSec := splitDegrees(lon)

	return fmt.Sprintf("%d°%d'%.1f\"%s %d°%d'%.1f\"%s",
		latDeg, latMin, latSec, latDir, lonDeg, lonMin, lonSec, lonDir)
}

func splitDegrees(v float64) (int, int, float64) {
	deg := int(v)
	minutes := (v - float64(deg)) * 60
	min := int(minutes)
	sec := (minutes - float64(min)) * 60
	return deg, min, sec
}
