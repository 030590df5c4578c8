package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mbelgaila/Meme-Coin-Trading-Bot/internal/domain"
)

// Narrow store interfaces required by the archiver. The archiver only needs
// the time-ranged query methods it actually calls, not the full domain store
// interfaces; the Postgres stores satisfy these implicitly.

// PositionArchiveStore provides read access to terminal positions for
// archival purposes.
type PositionArchiveStore interface {
	// ListClosedBefore returns all terminal positions closed strictly before
	// the given cutoff time.
	ListClosedBefore(ctx context.Context, before time.Time) ([]domain.Position, error)
}

// AuditArchiveStore provides read access to the audit log for archival
// purposes, plus the Log method used to record the archival event itself.
type AuditArchiveStore interface {
	Log(ctx context.Context, event string, detail map[string]any) error
	// ListBefore returns all audit entries created strictly before the given
	// cutoff time.
	ListBefore(ctx context.Context, before time.Time) ([]domain.AuditEntry, error)
}

// ArchiveImpl implements domain.Archiver by querying the stores for old
// records, serializing them to JSONL, and uploading the result to blob
// storage.
//
// Deletion of the archived records from the primary store is intentionally
// NOT performed here; that is a separate, explicit step to be executed after
// the archive has been verified.
type ArchiveImpl struct {
	writer    domain.BlobWriter
	positions PositionArchiveStore
	audit     AuditArchiveStore
}

// NewArchiver creates a new ArchiveImpl.
func NewArchiver(writer domain.BlobWriter, positions PositionArchiveStore, audit AuditArchiveStore) *ArchiveImpl {
	return &ArchiveImpl{
		writer:    writer,
		positions: positions,
		audit:     audit,
	}
}

// ArchivePositions queries all terminal positions closed before the cutoff,
// serializes them to JSONL, and uploads the file to blob storage at
// archive/positions/YYYY-MM.jsonl. The archival event is recorded in the
// audit log and the count of archived records is returned.
func (a *ArchiveImpl) ArchivePositions(ctx context.Context, before time.Time) (int64, error) {
	positions, err := a.positions.ListClosedBefore(ctx, before)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive positions query: %w", err)
	}
	if len(positions) == 0 {
		return 0, nil
	}

	buf, err := marshalJSONL(positions)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive positions marshal: %w", err)
	}

	path := archivePath("positions", before)
	if err := a.writer.Put(ctx, path, bytes.NewReader(buf), "application/x-ndjson"); err != nil {
		return 0, fmt.Errorf("s3blob: archive positions upload: %w", err)
	}

	count := int64(len(positions))

	if err := a.audit.Log(ctx, "archive.positions", map[string]any{
		"path":   path,
		"count":  count,
		"before": before.Format(time.RFC3339),
	}); err != nil {
		return count, fmt.Errorf("s3blob: archive positions audit log: %w", err)
	}

	return count, nil
}

// ArchiveAuditLog queries all audit entries created before the cutoff,
// serializes them to JSONL, and uploads the file to blob storage at
// archive/audit_log/YYYY-MM.jsonl. The count of archived records is
// returned; the archival event itself is appended to the live log so it is
// never lost to its own export.
func (a *ArchiveImpl) ArchiveAuditLog(ctx context.Context, before time.Time) (int64, error) {
	entries, err := a.audit.ListBefore(ctx, before)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive audit log query: %w", err)
	}
	if len(entries) == 0 {
		return 0, nil
	}

	buf, err := marshalJSONL(entries)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive audit log marshal: %w", err)
	}

	path := archivePath("audit_log", before)
	if err := a.writer.Put(ctx, path, bytes.NewReader(buf), "application/x-ndjson"); err != nil {
		return 0, fmt.Errorf("s3blob: archive audit log upload: %w", err)
	}

	count := int64(len(entries))

	if err := a.audit.Log(ctx, "archive.audit_log", map[string]any{
		"path":   path,
		"count":  count,
		"before": before.Format(time.RFC3339),
	}); err != nil {
		return count, fmt.Errorf("s3blob: archive audit log event: %w", err)
	}

	return count, nil
}

// archivePath builds the blob key for an archive file, partitioned by the
// year-month of the cutoff time.
//
//	archive/positions/2025-01.jsonl
//	archive/audit_log/2025-01.jsonl
func archivePath(kind string, before time.Time) string {
	return fmt.Sprintf("archive/%s/%s.jsonl", kind, before.Format("2006-01"))
}

// marshalJSONL serialises a slice of values as newline-delimited JSON.
// Each element is marshalled as a single compact JSON line followed by '\n'.
func marshalJSONL[T any](records []T) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	for i, rec := range records {
		if err := enc.Encode(rec); err != nil {
			return nil, fmt.Errorf("jsonl encode record %d: %w", i, err)
		}
	}
	return buf.Bytes(), nil
}

// Compile-time interface check.
var _ domain.Archiver = (*ArchiveImpl)(nil)
