package s3blob

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/alanyoungcy/spreadbot/internal/domain"
	"github.com/alanyoungcy/spreadbot/internal/export"
)

// archiveBatchSize bounds how many settlements one archive pass pulls from
// the store.
const archiveBatchSize = 10000

// multipartThreshold is the rendered CSV size above which the archiver
// switches to a multipart upload.
const multipartThreshold = 8 * 1024 * 1024

// multipartPartSize is the part size used for multipart archive uploads.
const multipartPartSize int64 = 8 * 1024 * 1024

// Archiver periodically uploads CSV snapshots of settled transactions to
// blob storage and optionally deletes the archived rows from the store
// afterwards.
type Archiver struct {
	writer            domain.BlobWriter
	trades            domain.TradeStore
	retention         time.Duration
	deleteAfterUpload bool
	logger            *slog.Logger
}

// NewArchiver creates an archiver over the trade store. retentionDays sets
// the cutoff: settlements older than that many days are archived on each run.
func NewArchiver(writer domain.BlobWriter, trades domain.TradeStore, retentionDays int, deleteAfterUpload bool, logger *slog.Logger) *Archiver {
	return &Archiver{
		writer:            writer,
		trades:            trades,
		retention:         time.Duration(retentionDays) * 24 * time.Hour,
		deleteAfterUpload: deleteAfterUpload,
		logger:            logger.With(slog.String("component", "archiver")),
	}
}

// Run performs one archive pass: query settlements older than the retention
// cutoff, render them as CSV, upload the file, and (when configured) delete
// the archived rows. Returns the number of settlements archived.
func (a *Archiver) Run(ctx context.Context) (int64, error) {
	cutoff := time.Now().UTC().Add(-a.retention)

	sts, err := a.trades.ListSettledBefore(ctx, cutoff, archiveBatchSize)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive query: %w", err)
	}
	if len(sts) == 0 {
		return 0, nil
	}

	data, err := export.MarshalCSV(sts)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive marshal: %w", err)
	}

	path := archivePath(cutoff)
	if len(data) >= multipartThreshold {
		err = a.writer.PutMultipart(ctx, path, bytes.NewReader(data), "text/csv", multipartPartSize)
	} else {
		err = a.writer.Put(ctx, path, bytes.NewReader(data), "text/csv")
	}
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive upload: %w", err)
	}

	count := int64(len(sts))
	a.logger.InfoContext(ctx, "settlements archived",
		slog.String("path", path),
		slog.Int64("count", count),
	)

	if a.deleteAfterUpload {
		deleted, err := a.trades.DeleteSettledBefore(ctx, cutoff)
		if err != nil {
			return count, fmt.Errorf("s3blob: archive delete: %w", err)
		}
		a.logger.InfoContext(ctx, "archived settlements deleted",
			slog.Int64("deleted", deleted),
		)
	}
	return count, nil
}

// archivePath builds the S3 key for an archive file, partitioned by the
// year-month of the cutoff time.
//
//	archive/settlements/2025-01.csv
func archivePath(before time.Time) string {
	return fmt.Sprintf("archive/settlements/%s.csv", before.Format("2006-01"))
}
