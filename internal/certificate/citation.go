package certificate

import "github.com/fpang/civic-certificate/internal/report"

var citations = map[report.IssueType]string{
	report.Pothole:           "for its tireless service in testing the suspension of every vehicle that dares to pass.",
	report.Waterlogging:      "for transforming an ordinary street into a seasonal water feature at no cost to the public.",
	report.GarbageDump:       "for curating an ever-growing open-air exhibit of the neighbourhood's leftovers.",
	report.BrokenStreetlight: "for preserving the natural darkness of the night sky, one street at a time.",
	report.Other:             "for its remarkable contribution to the local tradition of waiting for someone else to fix it.",
}

// Citation returns the tongue-in-cheek commendation for an issue type.
func Citation(t report.IssueType) string {
	if c, ok := citations[t]; ok {
		return c
	}
	return citations[report.Other]
}
