// Package workerapi is the HTTP client for the remote migration worker's
// status and control API.
package workerapi

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/tidwall/gjson"
	"golang.org/x/oauth2"

	"github.com/goodjin/migratehero/internal/domain"
	"github.com/goodjin/migratehero/internal/logger"
	"github.com/goodjin/migratehero/internal/payload"
)

// RequestIDHeader is forwarded to the worker so its logs can be correlated.
const RequestIDHeader = "X-Request-ID"

const maxErrorBody = 4 << 10

// Action is a control operation understood by the worker.
type Action string

const (
	ActionStart  Action = "start"
	ActionPause  Action = "pause"
	ActionResume Action = "resume"
	ActionCancel Action = "cancel"
	ActionRetry  Action = "retry"
)

// APIError is returned when the worker answers with a non-success response.
type APIError struct {
	Method     string
	Path       string
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("worker api %s %s: status %d: %s", e.Method, e.Path, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("worker api %s %s: status %d", e.Method, e.Path, e.StatusCode)
}

// ErrNotFound is matched by APIErrors carrying a 404.
var ErrNotFound = domain.ErrNotFound

func (e *APIError) Is(target error) bool {
	return target == ErrNotFound && e.StatusCode == http.StatusNotFound
}

// Config holds the client settings.
type Config struct {
	BaseURL      string
	Token        string
	Timeout      time.Duration
	RetryMax     int
	RetryWaitMin time.Duration
	RetryWaitMax time.Duration
}

// Client talks to the worker API. Reads are retried; control requests are not.
type Client struct {
	base    *url.URL
	fetch   *retryablehttp.Client
	control *retryablehttp.Client
	now     func() time.Time
}

// NewClient creates a client for the API rooted at cfg.BaseURL.
func NewClient(cfg Config) (*Client, error) {
	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse worker api url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("worker api url %q must be absolute", cfg.BaseURL)
	}

	httpClient := &http.Client{Timeout: cfg.Timeout}
	if cfg.Token != "" {
		httpClient.Transport = &oauth2.Transport{
			Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.Token, TokenType: "Bearer"}),
			Base:   http.DefaultTransport,
		}
	}

	fetch := retryablehttp.NewClient()
	fetch.HTTPClient = httpClient
	fetch.Logger = nil
	fetch.RetryMax = cfg.RetryMax
	if cfg.RetryWaitMin > 0 {
		fetch.RetryWaitMin = cfg.RetryWaitMin
	}
	if cfg.RetryWaitMax > 0 {
		fetch.RetryWaitMax = cfg.RetryWaitMax
	}
	fetch.ErrorHandler = retryablehttp.PassthroughErrorHandler

	control := retryablehttp.NewClient()
	control.HTTPClient = httpClient
	control.Logger = nil
	control.RetryMax = 0
	control.ErrorHandler = retryablehttp.PassthroughErrorHandler

	return &Client{base: base, fetch: fetch, control: control, now: time.Now}, nil
}

// endpoint builds {base}/tasks/{segments...}, escaping each segment so folder
// names containing slashes stay a single path element.
func (c *Client) endpoint(segments ...string) *url.URL {
	escaped := make([]string, 0, len(segments)+1)
	escaped = append(escaped, "tasks")
	for _, s := range segments {
		escaped = append(escaped, url.PathEscape(s))
	}
	return c.base.JoinPath(escaped...)
}

func (c *Client) do(ctx context.Context, hc *retryablehttp.Client, method string, target *url.URL) ([]byte, http.Header, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, method, target.String(), nil)
	if err != nil {
		return nil, nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if id := logger.RequestIDFromContext(ctx); id != "" {
		req.Header.Set(RequestIDHeader, id)
	}

	resp, err := hc.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("%s %s: %w", method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, nil, &APIError{
			Method:     method,
			Path:       req.URL.Path,
			StatusCode: resp.StatusCode,
			Message:    errorMessage(body),
		}
	}
	return body, resp.Header, nil
}

// errorMessage extracts the worker's message field, falling back to the raw body.
func errorMessage(body []byte) string {
	if gjson.ValidBytes(body) {
		if msg := gjson.GetBytes(body, "message").String(); msg != "" {
			return msg
		}
	}
	if len(body) > maxErrorBody {
		body = body[:maxErrorBody]
	}
	return string(body)
}

// FetchJob returns the authoritative snapshot of the job as a progress event.
// The recency marker is the body timestamp, else the response Date header,
// else the local time the request was sent. Date only has second precision,
// so a send time within the same second is preferred over it.
func (c *Client) FetchJob(ctx context.Context, jobID string) (domain.ProgressEvent, error) {
	sent := c.now()
	body, header, err := c.do(ctx, c.fetch, http.MethodGet, c.endpoint(jobID))
	if err != nil {
		return domain.ProgressEvent{}, err
	}

	marker := domain.MarkerAt(sent)
	if d, err := http.ParseTime(header.Get("Date")); err == nil && !sent.Truncate(time.Second).Equal(d) {
		marker = domain.MarkerAt(d)
	}
	ev, err := payload.ParseProgress(body, domain.SourcePoll, jobID, marker)
	if err != nil {
		return domain.ProgressEvent{}, fmt.Errorf("decode job %s: %w", jobID, err)
	}
	ev.JobID = jobID
	return ev, nil
}

// FetchFolders returns the per-folder progress of the job.
func (c *Client) FetchFolders(ctx context.Context, jobID string) ([]domain.FolderUpdate, error) {
	body, _, err := c.do(ctx, c.fetch, http.MethodGet, c.endpoint(jobID, "folders"))
	if err != nil {
		return nil, err
	}
	folders, err := payload.ParseFolders(body)
	if err != nil {
		return nil, fmt.Errorf("decode folders of %s: %w", jobID, err)
	}
	return folders, nil
}

// FetchItems returns the migrated item records of one folder.
func (c *Client) FetchItems(ctx context.Context, jobID, folder string) ([]domain.MigratedItem, error) {
	body, _, err := c.do(ctx, c.fetch, http.MethodGet, c.endpoint(jobID, "folders", folder, "emails"))
	if err != nil {
		return nil, err
	}
	items, err := payload.ParseItems(body)
	if err != nil {
		return nil, fmt.Errorf("decode items of %s/%s: %w", jobID, folder, err)
	}
	return items, nil
}

// Control issues a control request. A 2xx answer whose body reports
// "success": false is treated as a rejection.
func (c *Client) Control(ctx context.Context, jobID string, action Action) error {
	target := c.endpoint(jobID, string(action))
	body, _, err := c.do(ctx, c.control, http.MethodPost, target)
	if err != nil {
		return err
	}
	if gjson.ValidBytes(body) {
		if ok := gjson.GetBytes(body, "success"); ok.Exists() && !ok.Bool() {
			return &APIError{
				Method:     http.MethodPost,
				Path:       target.Path,
				StatusCode: http.StatusOK,
				Message:    gjson.GetBytes(body, "message").String(),
			}
		}
	}
	return nil
}
