package main

import (
	"context"
	"errors"
	"fmt"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/rs/zerolog/log"

	"github.com/fpang/civic-certificate/internal/caption"
	"github.com/fpang/civic-certificate/internal/config"
	"github.com/fpang/civic-certificate/internal/geocode"
	"github.com/fpang/civic-certificate/internal/region"
	"github.com/fpang/civic-certificate/internal/share"
)

func newGeocoder(cfg config.GeocoderConfig) *geocode.Client {
	return geocode.NewClient(
		geocode.WithBaseURL(cfg.BaseURL),
		geocode.WithUserAgent(cfg.UserAgent),
		geocode.WithTimeout(cfg.Timeout),
		geocode.WithLanguage(cfg.Language),
	)
}

// loadCatalog returns the embedded catalog, or the configured file, with
// image refs resolved against the configured base URL.
func loadCatalog(cfg config.RegionsConfig) (*region.Catalog, error) {
	catalog := region.Default()
	if cfg.Catalog != "" {
		var err error
		catalog, err = region.LoadCatalogFile(cfg.Catalog)
		if err != nil {
			return nil, err
		}
	}
	if cfg.ImageBaseURL == "" {
		return catalog, nil
	}
	return catalog.WithImageBase(cfg.ImageBaseURL)
}

// certificateRegions is the catalog handed to the capture flow. Without an
// image base the embedded refs are bare file names the renderer cannot
// fetch, so certificates are issued without region emblems instead.
func certificateRegions(cfg config.RegionsConfig) (*region.Catalog, error) {
	catalog, err := loadCatalog(cfg)
	if err != nil {
		return nil, err
	}
	if catalog.Resolvable() {
		return catalog, nil
	}
	log.Info().
		Str("imageBaseURL", cfg.ImageBaseURL).
		Msg("Region imagery is not resolvable, issuing certificates without emblems (set regions.image_base_url)")
	return catalog.WithoutImagery(), nil
}

func newCaptioner(ctx context.Context, cfg config.CaptionConfig) (*caption.Generator, error) {
	return caption.New(ctx, cfg.ResolveAPIKey(), cfg.Model)
}

// newSharer builds the S3 (and optionally Instagram) sharer from the
// default AWS credential chain.
func newSharer(ctx context.Context, cfg config.ShareConfig, instagram bool, captioner *caption.Generator) (*share.Sharer, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("share.bucket is not set (CIVIC_SHARE_BUCKET)")
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}
	log.Debug().Str("region", awsCfg.Region).Msg("AWS config loaded")

	s := &share.Sharer{Uploader: share.NewS3Uploader(awsCfg, cfg.Bucket, cfg.LinkExpiry)}
	if captioner != nil {
		s.Captioner = captioner
	}
	if !instagram {
		return s, nil
	}

	creds, err := share.LoadInstagramCredentials(ctx, ssm.NewFromConfig(awsCfg), cfg.InstagramTokenParam, cfg.InstagramUserParam)
	if err != nil {
		return nil, fmt.Errorf("instagram credentials: %w", err)
	}
	s.Instagram = share.NewInstagram(creds.AccessToken, creds.UserID)
	log.Info().Str("userId", creds.UserID).Msg("Instagram client initialized")
	return s, nil
}
