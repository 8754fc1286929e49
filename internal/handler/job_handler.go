package handler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/goodjin/migratehero/internal/dispatcher"
	"github.com/goodjin/migratehero/internal/domain"
	"github.com/goodjin/migratehero/internal/logger"
	"github.com/goodjin/migratehero/internal/service"
	"github.com/goodjin/migratehero/internal/store"
	"github.com/goodjin/migratehero/internal/validator"
	"github.com/goodjin/migratehero/internal/workerapi"
)

// JobHandler serves the reconciled job views and forwards control requests.
type JobHandler struct {
	tracker   service.Tracker
	validator *validator.Validator
}

// NewJobHandler creates a new JobHandler.
func NewJobHandler(tracker service.Tracker, v *validator.Validator) *JobHandler {
	return &JobHandler{tracker: tracker, validator: v}
}

// CounterResponse is one category counter in the API response.
type CounterResponse struct {
	Total           int64 `json:"total"`
	Migrated        int64 `json:"migrated"`
	Failed          int64 `json:"failed"`
	ProgressPercent int   `json:"progress_percent"`
}

// EndpointResponse describes one side of the migration.
type EndpointResponse struct {
	Email  string `json:"email,omitempty"`
	Server string `json:"server,omitempty"`
}

// JobResponse represents a reconciled job view in the API response.
type JobResponse struct {
	ID                        string                     `json:"id"`
	Source                    EndpointResponse           `json:"source"`
	Target                    EndpointResponse           `json:"target"`
	Status                    string                     `json:"status"`
	Phase                     string                     `json:"phase,omitempty"`
	ProgressPercent           int                        `json:"progress_percent"`
	Counters                  map[string]CounterResponse `json:"counters"`
	TotalFolders              int64                      `json:"total_folders"`
	MigratedFolders           int64                      `json:"migrated_folders"`
	CurrentFolder             string                     `json:"current_folder,omitempty"`
	ItemsPerSecond            float64                    `json:"items_per_second"`
	EstimatedSecondsRemaining int64                      `json:"estimated_seconds_remaining"`
	Error                     *domain.ErrorContext       `json:"error,omitempty"`
	LastFetchFailed           bool                       `json:"last_fetch_failed"`
	LastFetchError            string                     `json:"last_fetch_error,omitempty"`
	Marker                    int64                      `json:"marker"`
	CreatedAt                 *string                    `json:"created_at,omitempty"`
	StartedAt                 *string                    `json:"started_at,omitempty"`
	CompletedAt               *string                    `json:"completed_at,omitempty"`
}

// FolderResponse represents one folder in the API response.
type FolderResponse struct {
	ID              string          `json:"id"`
	Name            string          `json:"name"`
	DisplayName     string          `json:"display_name,omitempty"`
	Path            string          `json:"path,omitempty"`
	Status          string          `json:"status"`
	Counter         CounterResponse `json:"counter"`
	ProgressPercent int             `json:"progress_percent"`
	StartedAt       *string         `json:"started_at,omitempty"`
	CompletedAt     *string         `json:"completed_at,omitempty"`
}

// ItemResponse represents one migrated item in the API response.
type ItemResponse struct {
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

// ItemsResponse lists the items of the selected folder.
type ItemsResponse struct {
	Folder string         `json:"folder"`
	Items  []ItemResponse `json:"items"`
}

// SelectFolderRequest is the body of PUT /api/v1/jobs/:id/selected-folder.
type SelectFolderRequest struct {
	Folder string `json:"folder"`
}

func formatTime(t *time.Time) *string {
	s := t.Format(TimeFormat)
	return &s
}

func toCounterResponse(c domain.Counter) CounterResponse {
	return CounterResponse{Total: c.Total, Migrated: c.Migrated, Failed: c.Failed, ProgressPercent: c.Percent()}
}

func toJobResponse(v domain.JobView) JobResponse {
	resp := JobResponse{
		ID:                        v.ID,
		Source:                    EndpointResponse(v.Source),
		Target:                    EndpointResponse(v.Target),
		Status:                    string(v.Status),
		Phase:                     string(v.Phase),
		ProgressPercent:           v.ProgressPercent,
		Counters:                  make(map[string]CounterResponse, len(v.Counters)),
		TotalFolders:              v.TotalFolders,
		MigratedFolders:           v.MigratedFolders,
		CurrentFolder:             v.CurrentFolder,
		ItemsPerSecond:            v.Throughput,
		EstimatedSecondsRemaining: v.ETASeconds,
		Error:                     v.Error,
		LastFetchFailed:           v.LastFetchFailed,
		LastFetchError:            v.LastFetchError,
		Marker:                    v.Marker,
	}
	for category, c := range v.Counters {
		resp.Counters[string(category)] = toCounterResponse(c)
	}
	if v.CreatedAt != nil {
		resp.CreatedAt = formatTime(v.CreatedAt)
	}
	if v.StartedAt != nil {
		resp.StartedAt = formatTime(v.StartedAt)
	}
	if v.CompletedAt != nil {
		resp.CompletedAt = formatTime(v.CompletedAt)
	}
	return resp
}

func toFolderResponses(v domain.JobView) []FolderResponse {
	out := make([]FolderResponse, 0, len(v.Folders))
	for _, f := range v.Folders {
		r := FolderResponse{
			ID:              f.ID,
			Name:            f.Name,
			DisplayName:     f.DisplayName,
			Path:            f.Path,
			Status:          string(f.Status),
			Counter:         toCounterResponse(f.Counter),
			ProgressPercent: f.ProgressPercent,
		}
		if f.StartedAt != nil {
			r.StartedAt = formatTime(f.StartedAt)
		}
		if f.CompletedAt != nil {
			r.CompletedAt = formatTime(f.CompletedAt)
		}
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func toItemResponse(item domain.MigratedItem) ItemResponse {
	r := ItemResponse{
		SourceID:     item.SourceID,
		FolderName:   item.FolderName,
		Subject:      item.Subject,
		From:         item.From,
		SizeBytes:    item.SizeBytes,
		Success:      item.Success,
		ErrorMessage: item.ErrorMessage,
	}
	if item.SentAt != nil {
		r.SentAt = formatTime(item.SentAt)
	}
	if item.MigratedAt != nil {
		r.MigratedAt = formatTime(item.MigratedAt)
	}
	return r
}

// jobID validates the :id parameter and writes a 400 when it is malformed.
func (h *JobHandler) jobID(c *gin.Context) (string, bool) {
	id := c.Param("id")
	if err := h.validator.ValidateJobID(id); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid job id", "details": validator.FieldErrors(err)})
		return "", false
	}
	return id, true
}

// writeError maps service errors onto HTTP statuses.
func writeError(c *gin.Context, jobID, op string, err error) {
	var apiErr *workerapi.APIError
	switch {
	case errors.Is(err, service.ErrJobNotFound), errors.Is(err, workerapi.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "job not found"})
	case errors.Is(err, store.ErrUnknownJob):
		c.JSON(http.StatusNotFound, gin.H{"error": "job is not being watched"})
	case errors.Is(err, dispatcher.ErrRetryNotAllowed):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.As(err, &apiErr) && apiErr.StatusCode < http.StatusInternalServerError:
		c.JSON(http.StatusConflict, gin.H{"error": "worker rejected the request", "message": apiErr.Message})
	case errors.Is(err, service.ErrClosed):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "service is shutting down"})
	case errors.Is(err, context.DeadlineExceeded):
		c.JSON(http.StatusGatewayTimeout, gin.H{"error": "worker did not answer in time"})
	case errors.As(err, &apiErr), errors.Is(err, service.ErrSourceUnavailable):
		logger.FromContext(c.Request.Context()).Warn("worker unavailable",
			slog.String("job_id", jobID), slog.String("op", op), slog.String("error", err.Error()))
		c.JSON(http.StatusBadGateway, gin.H{"error": "worker unavailable"})
	default:
		logger.FromContext(c.Request.Context()).Error("request failed",
			slog.String("job_id", jobID), slog.String("op", op), slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to " + op})
	}
}

// GetJob handles GET /api/v1/jobs/:id. The job is watched on first access.
func (h *JobHandler) GetJob(c *gin.Context) {
	id, ok := h.jobID(c)
	if !ok {
		return
	}
	view, err := h.tracker.View(c.Request.Context(), id)
	if err != nil {
		writeError(c, id, "retrieve job", err)
		return
	}
	c.JSON(http.StatusOK, toJobResponse(view))
}

// GetFolders handles GET /api/v1/jobs/:id/folders
func (h *JobHandler) GetFolders(c *gin.Context) {
	id, ok := h.jobID(c)
	if !ok {
		return
	}
	view, err := h.tracker.View(c.Request.Context(), id)
	if err != nil {
		writeError(c, id, "retrieve folders", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"total_folders":    view.TotalFolders,
		"migrated_folders": view.MigratedFolders,
		"folders":          toFolderResponses(view),
	})
}

// SelectFolder handles PUT /api/v1/jobs/:id/selected-folder
func (h *JobHandler) SelectFolder(c *gin.Context) {
	id, ok := h.jobID(c)
	if !ok {
		return
	}
	var req SelectFolderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if _, err := h.tracker.View(c.Request.Context(), id); err != nil {
		writeError(c, id, "select folder", err)
		return
	}
	if err := h.tracker.SelectFolder(c.Request.Context(), id, req.Folder); err != nil {
		writeError(c, id, "select folder", err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"folder": req.Folder})
}

// GetItems handles GET /api/v1/jobs/:id/items
func (h *JobHandler) GetItems(c *gin.Context) {
	id, ok := h.jobID(c)
	if !ok {
		return
	}
	folder, items, err := h.tracker.Items(id)
	if err != nil {
		writeError(c, id, "retrieve items", err)
		return
	}
	resp := ItemsResponse{Folder: folder, Items: make([]ItemResponse, 0, len(items))}
	for _, item := range items {
		resp.Items = append(resp.Items, toItemResponse(item))
	}
	c.JSON(http.StatusOK, resp)
}

// Control handles POST /api/v1/jobs/:id/{start|pause|resume|cancel|retry}
func (h *JobHandler) Control(action workerapi.Action) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := h.jobID(c)
		if !ok {
			return
		}
		view, err := h.tracker.Control(c.Request.Context(), id, action)
		if err != nil {
			writeError(c, id, string(action)+" job", err)
			return
		}
		c.JSON(http.StatusOK, toJobResponse(view))
	}
}

// Unwatch handles DELETE /api/v1/jobs/:id/watch
func (h *JobHandler) Unwatch(c *gin.Context) {
	id, ok := h.jobID(c)
	if !ok {
		return
	}
	if err := h.tracker.Unwatch(id); err != nil {
		writeError(c, id, "unwatch job", err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Stream handles GET /api/v1/jobs/:id/stream. It sends the current view as a
// "view" event and then one event per applied change; "status" events mark
// status transitions. The stream ends when the job is unwatched.
func (h *JobHandler) Stream(c *gin.Context) {
	id, ok := h.jobID(c)
	if !ok {
		return
	}
	view, err := h.tracker.View(c.Request.Context(), id)
	if err != nil {
		writeError(c, id, "stream job", err)
		return
	}
	changes, cancel, err := h.tracker.Subscribe(id)
	if err != nil {
		writeError(c, id, "stream job", err)
		return
	}
	defer cancel()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	c.SSEvent("view", toJobResponse(view))
	c.Writer.Flush()

	ctx := c.Request.Context()
	c.Stream(func(w io.Writer) bool {
		select {
		case change, ok := <-changes:
			if !ok {
				return false
			}
			if change.StatusChanged() {
				c.SSEvent("status", gin.H{"from": change.PrevStatus, "to": change.View.Status})
			}
			c.SSEvent("view", toJobResponse(change.View))
			return true
		case <-ctx.Done():
			return false
		}
	})
}

// RegisterRoutes mounts the job routes on r.
func (h *JobHandler) RegisterRoutes(r gin.IRouter) {
	jobs := r.Group("/jobs/:id")
	jobs.GET("", h.GetJob)
	jobs.GET("/folders", h.GetFolders)
	jobs.PUT("/selected-folder", h.SelectFolder)
	jobs.GET("/items", h.GetItems)
	jobs.GET("/items/export", h.ExportItems)
	jobs.GET("/stream", h.Stream)
	jobs.DELETE("/watch", h.Unwatch)
	for _, action := range []workerapi.Action{
		workerapi.ActionStart,
		workerapi.ActionPause,
		workerapi.ActionResume,
		workerapi.ActionCancel,
		workerapi.ActionRetry,
	} {
		jobs.POST("/"+string(action), h.Control(action))
	}
}
