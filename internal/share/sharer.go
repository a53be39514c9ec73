// Package share publishes finished certificates: a presigned S3 link, an
// optional Instagram post, and an offline zip bundle.
package share

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/fpang/civic-certificate/internal/report"
)

// Captioner writes the post caption for a report.
type Captioner interface {
	Caption(ctx context.Context, rep report.IssueReport) (string, error)
}

// Sharer uploads the certificate and, when Instagram is configured,
// publishes it with a generated caption.
type Sharer struct {
	Uploader  *Uploader
	Instagram *Instagram
	Captioner Captioner
}

// Share returns the presigned link to the uploaded certificate.
func (s *Sharer) Share(ctx context.Context, rep report.IssueReport) (string, error) {
	if s.Uploader == nil {
		return "", errors.New("no upload bucket configured")
	}
	if len(rep.RenderedArtifact) == 0 {
		return "", errors.New("report has no rendered certificate")
	}

	key := fmt.Sprintf("certificates/%s/%s", rep.ID, BundleCertificate)
	link, err := s.Uploader.Upload(ctx, key, rep.RenderedArtifact, "image/png")
	if err != nil {
		return "", err
	}

	if s.Instagram == nil {
		return link, nil
	}

	caption := ""
	if s.Captioner != nil {
		caption, err = s.Captioner.Caption(ctx, rep)
		if err != nil {
			log.Warn().Err(err).Msg("Caption generation failed, posting without caption")
			caption = ""
		}
	}

	postID, err := s.Instagram.PostImage(ctx, link, caption)
	if err != nil {
		return link, fmt.Errorf("instagram publish: %w", err)
	}
	log.Info().Str("postId", postID).Str("reportId", rep.ID).Msg("Certificate shared")
	return link, nil
}
