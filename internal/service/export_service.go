package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/goodjin/migratehero/internal/domain"
)

// Export formats.
const (
	ExportFormatCSV    = "csv"
	ExportFormatNDJSON = "ndjson"
)

// exportFlushEvery is the number of records written between flushes.
const exportFlushEvery = 100

// ErrUnsupportedFormat is returned for export formats other than csv and ndjson.
var ErrUnsupportedFormat = errors.New("unsupported export format")

// StreamWriter receives an export while it is produced.
type StreamWriter interface {
	Write(data []byte) error
	Flush()
}

var itemCSVHeader = []string{
	"source_id", "folder_name", "subject", "from", "sent_at",
	"size_bytes", "success", "error_message", "migrated_at",
}

// itemRecord is the NDJSON shape of one migrated item.
type itemRecord struct {
	SourceID     string  `json:"source_id"`
	FolderName   string  `json:"folder_name"`
	Subject      string  `json:"subject,omitempty"`
	From         string  `json:"from,omitempty"`
	SentAt       *string `json:"sent_at,omitempty"`
	SizeBytes    int64   `json:"size_bytes"`
	Success      bool    `json:"success"`
	ErrorMessage *string `json:"error_message,omitempty"`
	MigratedAt   *string `json:"migrated_at,omitempty"`
}

func formatExportTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func optionalTime(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := formatExportTime(t)
	return &s
}

// StreamItems writes items to w in the given format and returns how many
// records were written. It stops early when ctx is cancelled.
func StreamItems(ctx context.Context, format string, items []domain.MigratedItem, w StreamWriter) (int, error) {
	switch format {
	case ExportFormatCSV:
		return streamItemsCSV(ctx, items, w)
	case ExportFormatNDJSON:
		return streamItemsNDJSON(ctx, items, w)
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
}

func streamItemsCSV(ctx context.Context, items []domain.MigratedItem, w StreamWriter) (int, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	flush := func() error {
		writer.Flush()
		if err := writer.Error(); err != nil {
			return fmt.Errorf("write csv: %w", err)
		}
		if buf.Len() == 0 {
			return nil
		}
		if err := w.Write(buf.Bytes()); err != nil {
			return err
		}
		buf.Reset()
		w.Flush()
		return nil
	}

	if err := writer.Write(itemCSVHeader); err != nil {
		return 0, fmt.Errorf("write csv header: %w", err)
	}

	count := 0
	for _, item := range items {
		if err := ctx.Err(); err != nil {
			return count, err
		}
		errMsg := ""
		if item.ErrorMessage != nil {
			errMsg = *item.ErrorMessage
		}
		record := []string{
			item.SourceID,
			item.FolderName,
			item.Subject,
			item.From,
			formatExportTime(item.SentAt),
			strconv.FormatInt(item.SizeBytes, 10),
			strconv.FormatBool(item.Success),
			errMsg,
			formatExportTime(item.MigratedAt),
		}
		if err := writer.Write(record); err != nil {
			return count, fmt.Errorf("write csv record: %w", err)
		}
		count++
		if count%exportFlushEvery == 0 {
			if err := flush(); err != nil {
				return count, err
			}
		}
	}
	return count, flush()
}

func streamItemsNDJSON(ctx context.Context, items []domain.MigratedItem, w StreamWriter) (int, error) {
	var buf bytes.Buffer
	encoder := json.NewEncoder(&buf)

	count := 0
	for _, item := range items {
		if err := ctx.Err(); err != nil {
			return count, err
		}
		rec := itemRecord{
			SourceID:     item.SourceID,
			FolderName:   item.FolderName,
			Subject:      item.Subject,
			From:         item.From,
			SentAt:       optionalTime(item.SentAt),
			SizeBytes:    item.SizeBytes,
			Success:      item.Success,
			ErrorMessage: item.ErrorMessage,
			MigratedAt:   optionalTime(item.MigratedAt),
		}
		if err := encoder.Encode(rec); err != nil {
			return count, fmt.Errorf("encode item: %w", err)
		}
		count++
		if count%exportFlushEvery == 0 {
			if err := w.Write(buf.Bytes()); err != nil {
				return count, err
			}
			buf.Reset()
			w.Flush()
		}
	}
	if buf.Len() > 0 {
		if err := w.Write(buf.Bytes()); err != nil {
			return count, err
		}
		w.Flush()
	}
	return count, nil
}
