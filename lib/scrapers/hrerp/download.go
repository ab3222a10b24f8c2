package hrerp

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"erpharvest/lib/fileutil"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

type DownloadResult struct {
	Path    string `json:"path"`
	Bytes   int64  `json:"bytes"`
	Skipped bool   `json:"skipped"`
}

// DownloadFile streams a résumé file to dest. A valid file already at
// dest is kept and reported as skipped, an invalid one is re-downloaded.
// Retries ride on the client's fetch retry policy.
func (c *Client) DownloadFile(ctx context.Context, ref string, dest string) (DownloadResult, error) {
	ctx, span := tracer.Start(ctx, "client:DownloadFile")
	defer span.End()
	span.SetAttributes(
		attribute.String("ref", ref),
		attribute.String("dest", dest),
	)

	if stat, err := os.Stat(dest); err == nil {
		if fileutil.ValidatePDF(dest) {
			span.SetStatus(codes.Ok, "already downloaded")
			return DownloadResult{Path: dest, Bytes: stat.Size(), Skipped: true}, nil
		}
		// leftover from an interrupted run
		os.Remove(dest)
	}

	err := fileutil.EnsureDir(filepath.Dir(dest))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to create destination directory")
		return DownloadResult{}, err
	}

	res, err := c.Http.R().
		SetContext(ctx).
		SetOutput(dest).
		Get(ref)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "download request failed")
		return DownloadResult{}, err
	}
	if res.StatusCode() < 200 || res.StatusCode() >= 300 {
		os.Remove(dest)
		err := fmt.Errorf("%w: %d downloading %s", ErrBadStatus, res.StatusCode(), ref)
		span.SetStatus(codes.Error, err.Error())
		return DownloadResult{}, err
	}

	if !fileutil.ValidatePDF(dest) {
		os.Remove(dest)
		err := fmt.Errorf("downloaded file is not a valid pdf: %s", ref)
		span.SetStatus(codes.Error, err.Error())
		return DownloadResult{}, err
	}

	stat, err := os.Stat(dest)
	if err != nil {
		return DownloadResult{}, err
	}
	return DownloadResult{Path: dest, Bytes: stat.Size()}, nil
}
