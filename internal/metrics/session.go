package metrics

import (
	"io"
	"time"
)

// Namespace is the CloudWatch namespace for all session metrics.
const Namespace = "CivicCertificate"

// Session outcomes.
const (
	OutcomeIssued    = "issued"
	OutcomeFailed    = "failed"
	OutcomeAbandoned = "abandoned"
)

// Session summarises one capture session.
type Session struct {
	ReportID      string
	Outcome       string
	IssueType     string
	Region        string
	RegionMatched bool
	Position      time.Duration
	Geocode       time.Duration
	Render        time.Duration
	ArtifactBytes int
	Shared        bool
}

// RecordSession writes one EMF line for s.
func RecordSession(w io.Writer, s Session) error {
	r := New(w, Namespace).
		Dimension("Outcome", s.Outcome).
		Count("Sessions").
		Property("reportId", s.ReportID).
		Property("regionMatched", s.RegionMatched)

	if s.IssueType != "" {
		r.Property("issueType", s.IssueType)
	}
	if s.Region != "" {
		r.Property("region", s.Region)
	}
	if s.Position > 0 {
		r.Duration("PositionMs", s.Position)
	}
	if s.Geocode > 0 {
		r.Duration("GeocodeMs", s.Geocode)
	}
	if s.Render > 0 {
		r.Duration("RenderMs", s.Render)
	}
	if s.ArtifactBytes > 0 {
		r.Metric("CertificateBytes", float64(s.ArtifactBytes), UnitBytes)
	}
	if s.Shared {
		r.Count("Shares")
	}
	return r.Flush()
}
