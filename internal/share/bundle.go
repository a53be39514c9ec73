package share

import (
	"archive/zip"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/klauspost/compress/zstd"

	"github.com/fpang/civic-certificate/internal/report"
)

// Bundle entry names.
const (
	BundleCertificate = "certificate.png"
	BundlePhoto       = "photo.jpg"
	BundleReport      = "report.json"
)

// ZipMethodZstd is the zip method ID for Zstandard.
const ZipMethodZstd = zstd.ZipMethodWinZip

// WriteBundle writes a zip holding the certificate, the captured photo and
// the report as JSON. Already-compressed images are stored as-is; the
// report is Zstandard-compressed.
func WriteBundle(w io.Writer, rep report.IssueReport) error {
	if len(rep.RenderedArtifact) == 0 {
		return errors.New("report has no rendered certificate")
	}

	zw := zip.NewWriter(w)
	zw.RegisterCompressor(ZipMethodZstd, zstd.ZipCompressor(zstd.WithEncoderLevel(zstd.SpeedBestCompression)))

	modified := rep.CreatedAt
	if modified.IsZero() {
		modified = time.Now()
	}

	add := func(name string, method uint16, data []byte) error {
		header := &zip.FileHeader{Name: name, Method: method}
		header.Modified = modified
		fw, err := zw.CreateHeader(header)
		if err != nil {
			return fmt.Errorf("create zip entry for %s: %w", name, err)
		}
		if _, err := fw.Write(data); err != nil {
			return fmt.Errorf("write zip entry for %s: %w", name, err)
		}
		return nil
	}

	if err := add(BundleCertificate, zip.Store, rep.RenderedArtifact); err != nil {
		return err
	}
	if rep.CapturedImage != nil && len(rep.CapturedImage.Data) > 0 {
		if err := add(BundlePhoto, zip.Store, rep.CapturedImage.Data); err != nil {
			return err
		}
	}

	meta, err := json.MarshalIndent(rep, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	if err := add(BundleReport, ZipMethodZstd, meta); err != nil {
		return err
	}

	if err := zw.Close(); err != nil {
		return fmt.Errorf("close zip writer: %w", err)
	}
	return nil
}

// OpenBundle opens a bundle written by WriteBundle.
func OpenBundle(r io.ReaderAt, size int64) (*zip.Reader, error) {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return nil, fmt.Errorf("open bundle: %w", err)
	}
	zr.RegisterDecompressor(ZipMethodZstd, zstd.ZipDecompressor())
	return zr, nil
}
