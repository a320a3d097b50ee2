package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/zhongsurehow/crossarb/internal/domain"
)

// Archiver writes each scan pass's ranked opportunity list to cold storage
// as newline-delimited JSON, partitioned by symbol and day:
//
//	scans/BTC-USDT/2025-01-15/150405.jsonl
type Archiver struct {
	writer *Writer
}

// NewArchiver creates an Archiver over the given writer.
func NewArchiver(writer *Writer) *Archiver {
	return &Archiver{writer: writer}
}

// ArchiveScan uploads one symbol's opportunities. Empty passes are skipped.
func (a *Archiver) ArchiveScan(ctx context.Context, symbol string, scannedAt time.Time, opps []domain.Opportunity) error {
	if len(opps) == 0 {
		return nil
	}

	buf, err := marshalJSONL(opps)
	if err != nil {
		return fmt.Errorf("s3blob: archive scan marshal: %w", err)
	}

	path := scanPath(symbol, scannedAt)
	if err := a.writer.Put(ctx, path, bytes.NewReader(buf), "application/x-ndjson"); err != nil {
		return fmt.Errorf("s3blob: archive scan upload: %w", err)
	}
	return nil
}

// scanPath builds the S3 key for one scan snapshot. The symbol's slash is
// replaced so it does not add a key path level.
func scanPath(symbol string, at time.Time) string {
	safe := strings.ReplaceAll(symbol, "/", "-")
	return fmt.Sprintf("scans/%s/%s/%s.jsonl", safe, at.UTC().Format("2006-01-02"), at.UTC().Format("150405"))
}

// marshalJSONL serialises records as newline-delimited JSON.
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
