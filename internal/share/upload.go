package share

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog/log"
)

// DefaultLinkExpiry is how long a presigned certificate link stays valid.
const DefaultLinkExpiry = 24 * time.Hour

// ObjectPutter is the subset of the S3 client used for uploads.
type ObjectPutter interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// GetPresigner is the subset of the S3 presign client used for links.
type GetPresigner interface {
	PresignGetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// Uploader stores objects in one bucket and hands out presigned links.
type Uploader struct {
	client  ObjectPutter
	presign GetPresigner
	bucket  string
	expiry  time.Duration
}

// NewUploader creates an Uploader. A zero expiry uses DefaultLinkExpiry.
func NewUploader(client ObjectPutter, presign GetPresigner, bucket string, expiry time.Duration) *Uploader {
	if expiry <= 0 {
		expiry = DefaultLinkExpiry
	}
	return &Uploader{client: client, presign: presign, bucket: bucket, expiry: expiry}
}

// NewS3Uploader wires an Uploader to a real S3 client.
func NewS3Uploader(cfg aws.Config, bucket string, expiry time.Duration) *Uploader {
	client := s3.NewFromConfig(cfg)
	return NewUploader(client, s3.NewPresignClient(client), bucket, expiry)
}

// Upload puts data at key and returns a presigned GET URL for it.
func (u *Uploader) Upload(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	log.Debug().
		Str("bucket", u.bucket).
		Str("key", key).
		Int("size", len(data)).
		Msg("Uploading to S3")

	_, err := u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(u.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("S3 PutObject: %w", err)
	}

	result, err := u.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(u.bucket),
		Key:    aws.String(key),
	}, func(opts *s3.PresignOptions) {
		opts.Expires = u.expiry
	})
	if err != nil {
		return "", fmt.Errorf("presign GetObject: %w", err)
	}

	log.Info().Str("key", key).Dur("expiry", u.expiry).Msg("Certificate uploaded")
	return result.URL, nil
}
