package handler

import (
	"fmt"
	"log/slog"
	"net/http"
	"regexp"

	"github.com/gin-gonic/gin"

	"github.com/goodjin/migratehero/internal/logger"
	"github.com/goodjin/migratehero/internal/service"
)

// ExportItemsRequest represents query parameters for the item export.
type ExportItemsRequest struct {
	Format string `form:"format" binding:"omitempty,oneof=csv ndjson"`
}

var unsafeFilename = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// ginStreamWriter wraps gin.ResponseWriter for streaming.
type ginStreamWriter struct {
	writer gin.ResponseWriter
}

func (w *ginStreamWriter) Write(data []byte) error {
	_, err := w.writer.Write(data)
	return err
}

func (w *ginStreamWriter) Flush() {
	w.writer.Flush()
}

// ExportItems handles GET /api/v1/jobs/:id/items/export?format=csv|ndjson
// and downloads the latest items of the selected folder.
func (h *JobHandler) ExportItems(c *gin.Context) {
	id, ok := h.jobID(c)
	if !ok {
		return
	}
	var req ExportItemsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "format must be csv or ndjson"})
		return
	}
	if req.Format == "" {
		req.Format = service.ExportFormatNDJSON
	}

	folder, items, err := h.tracker.Items(id)
	if err != nil {
		writeError(c, id, "export items", err)
		return
	}
	if folder == "" {
		c.JSON(http.StatusConflict, gin.H{"error": "no folder selected"})
		return
	}

	contentType := "application/x-ndjson"
	if req.Format == service.ExportFormatCSV {
		contentType = "text/csv"
	}
	filename := fmt.Sprintf("job-%s-%s-items.%s", id, unsafeFilename.ReplaceAllString(folder, "_"), req.Format)

	c.Header("Content-Type", contentType)
	c.Header("X-Content-Type-Options", "nosniff")
	c.Header("Content-Disposition", "attachment; filename=\""+filename+"\"")
	c.Status(http.StatusOK)

	log := logger.FromContext(c.Request.Context()).With(
		slog.String("job_id", id),
		slog.String("folder", folder),
		slog.String("format", req.Format),
	)
	count, err := service.StreamItems(c.Request.Context(), req.Format, items, &ginStreamWriter{writer: c.Writer})
	if err != nil {
		// Headers are already sent.
		log.Warn("item export interrupted", slog.Int("count", count), slog.String("error", err.Error()))
		return
	}
	log.Debug("item export completed", slog.Int("count", count))
}
