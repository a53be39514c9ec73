package report

import (
	"strings"
	"testing"
)

func TestParseIssueType(t *testing.T) {
	tests := []struct {
		in      string
		want    IssueType
		wantErr bool
	}{
		{"pothole", Pothole, false},
		{"  Garbage Dump ", GarbageDump, false},
		{"broken-streetlight", BrokenStreetlight, false},
		{"waterlogging", Waterlogging, false},
		{"OTHER", Other, false},
		{"sinkhole", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseIssueType(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseIssueType(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseIssueType(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestRenderableRequiresAllFields(t *testing.T) {
	full := IssueReport{
		IssueType:     Pothole,
		Location:      &Location{Latitude: 30.7, Longitude: 76.7, Address: "123 Main St"},
		CapturedImage: &Image{Data: []byte{0xff, 0xd8}, MIMEType: "image/jpeg"},
	}
	if !full.Renderable() {
		t.Fatalf("Renderable() = false, missing %v", full.Missing())
	}

	noIssue := full
	noIssue.IssueType = ""
	noLoc := full
	noLoc.Location = nil
	noImg := full
	noImg.CapturedImage = nil

	for name, r := range map[string]IssueReport{"issueType": noIssue, "location": noLoc, "capturedImage": noImg} {
		if r.Renderable() {
			t.Errorf("Renderable() = true without %s", name)
		}
		if m := r.Missing(); len(m) != 1 || m[0] != name {
			t.Errorf("Missing() = %v, want [%s]", m, name)
		}
	}
}

func TestCloneDoesNotAlias(t *testing.T) {
	orig := IssueReport{
		Location:      &Location{Address: "a"},
		CapturedImage: &Image{Data: []byte{1, 2, 3}},
	}
	c := orig.Clone()
	c.Location.Address = "b"
	c.CapturedImage.Data[0] = 9

	if orig.Location.Address != "a" || orig.CapturedImage.Data[0] != 1 {
		t.Error("Clone() shares state with the original")
	}
}

func TestDataURI(t *testing.T) {
	img := &Image{Data: []byte("hi"), MIMEType: "image/jpeg"}
	if got := img.DataURI(); got != "data:image/jpeg;base64,aGk=" {
		t.Errorf("DataURI() = %q", got)
	}
}

func TestCoordinatesToDMS(t *testing.T) {
	got := CoordinatesToDMS(40.7128, -74.0060)
	if !strings.HasSuffix(got, "W") || !strings.Contains(got, "40°42'") {
		t.Errorf("CoordinatesToDMS() = %q", got)
	}
}
