// Package payload normalizes the JSON documents published and served by the
// remote migration worker into domain types.
//
// The worker emits two shapes for job progress: the task snapshot
// (taskId, totalCalendarEvents, ...) and the progress broadcast (jobId,
// totalEvents, timestamp, ...). Both are accepted. Ids may be JSON numbers or
// strings.
package payload

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/goodjin/migratehero/internal/domain"
)

// ErrInvalidJSON is returned for documents that are not valid JSON.
var ErrInvalidJSON = errors.New("invalid json payload")

// Spring serializes LocalDateTime without a zone; those are read as UTC.
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
}

type counterFields struct {
	category domain.Category
	total    []string
	migrated []string
	failed   []string
}

var counterLayout = []counterFields{
	{domain.CategoryEmails, []string{"totalEmails"}, []string{"migratedEmails"}, []string{"failedEmails"}},
	{domain.CategoryContacts, []string{"totalContacts"}, []string{"migratedContacts"}, []string{"failedContacts"}},
	{
		domain.CategoryCalendarEvents,
		[]string{"totalCalendarEvents", "totalEvents"},
		[]string{"migratedCalendarEvents", "migratedEvents"},
		[]string{"failedCalendarEvents", "failedEvents"},
	},
}

// ParseProgress converts a job document into a progress event. jobID and
// marker are used when the document does not carry them.
func ParseProgress(data []byte, source domain.EventSource, jobID string, marker int64) (domain.ProgressEvent, error) {
	if !gjson.ValidBytes(data) {
		return domain.ProgressEvent{}, ErrInvalidJSON
	}
	doc := gjson.ParseBytes(data)
	if !doc.IsObject() {
		return domain.ProgressEvent{}, fmt.Errorf("%w: expected object", ErrInvalidJSON)
	}

	ev := domain.ProgressEvent{
		JobID:  first(doc, "jobId", "taskId", "id").String(),
		Marker: marker,
		Source: source,
	}
	if ev.JobID == "" {
		ev.JobID = jobID
	}
	if ts := doc.Get("timestamp"); ts.Type == gjson.Number {
		ev.Marker = ts.Int()
	}

	if s := doc.Get("status"); s.Exists() && s.String() != "" {
		ev.Status = domain.JobStatus(strings.ToUpper(s.String()))
	}
	if p := doc.Get("phase"); p.Exists() && p.String() != "" {
		ev.Phase = domain.Phase(strings.ToUpper(p.String()))
	}

	for _, f := range counterLayout {
		total, migrated, failed := first(doc, f.total...), first(doc, f.migrated...), first(doc, f.failed...)
		if !total.Exists() && !migrated.Exists() && !failed.Exists() {
			continue
		}
		if ev.Counters == nil {
			ev.Counters = make(map[domain.Category]domain.Counter, len(counterLayout))
		}
		ev.Counters[f.category] = domain.Counter{
			Total:    total.Int(),
			Migrated: migrated.Int(),
			Failed:   failed.Int(),
		}
	}

	if v := doc.Get("totalFolders"); v.Type == gjson.Number {
		n := v.Int()
		ev.TotalFolders = &n
	}
	if v := doc.Get("migratedFolders"); v.Type == gjson.Number {
		n := v.Int()
		ev.MigratedFolders = &n
	}
	if v := first(doc, "currentFolder", "currentOperation"); v.Exists() && v.Type != gjson.Null {
		s := v.String()
		ev.CurrentFolder = &s
	}
	if msg := doc.Get("errorMessage").String(); msg != "" {
		ev.Error = &domain.ErrorContext{
			Message:        msg,
			FailedEndpoint: doc.Get("failedEndpoint").String(),
			FailedRequest:  doc.Get("failedRequest").String(),
			FailedResponse: doc.Get("failedResponse").String(),
		}
	}
	if v := doc.Get("sourceEmail").String(); v != "" {
		ev.SourceAccount = &domain.Endpoint{Email: v, Server: doc.Get("sourceEwsUrl").String()}
	}
	if v := doc.Get("targetEmail").String(); v != "" {
		ev.TargetAccount = &domain.Endpoint{Email: v, Server: doc.Get("targetImapHost").String()}
	}
	ev.CreatedAt = parseTime(doc.Get("createdAt"))
	ev.StartedAt = parseTime(doc.Get("startedAt"))
	ev.CompletedAt = parseTime(doc.Get("completedAt"))

	if v := doc.Get("folders"); v.IsArray() {
		ev.Folders = parseFolderArray(v)
	}
	return ev, nil
}

// ParseFolders converts a folder list document into folder updates.
func ParseFolders(data []byte) ([]domain.FolderUpdate, error) {
	if !gjson.ValidBytes(data) {
		return nil, ErrInvalidJSON
	}
	doc := gjson.ParseBytes(data)
	if !doc.IsArray() {
		return nil, fmt.Errorf("%w: expected array", ErrInvalidJSON)
	}
	return parseFolderArray(doc), nil
}

func parseFolderArray(arr gjson.Result) []domain.FolderUpdate {
	var folders []domain.FolderUpdate
	arr.ForEach(func(_, f gjson.Result) bool {
		name := f.Get("folderName").String()
		u := domain.FolderUpdate{
			ID:          first(f, "id", "folderId").String(),
			Name:        name,
			DisplayName: f.Get("displayName").String(),
			Path:        f.Get("folderPath").String(),
			Status:      domain.FolderStatus(strings.ToLower(f.Get("status").String())),
			StartedAt:   parseTime(f.Get("startedAt")),
			CompletedAt: parseTime(f.Get("completedAt")),
		}
		if u.ID == "" {
			u.ID = name
		}
		total, migrated, failed := f.Get("totalEmails"), f.Get("migratedEmails"), f.Get("failedEmails")
		if total.Exists() || migrated.Exists() || failed.Exists() {
			u.Counter = &domain.Counter{Total: total.Int(), Migrated: migrated.Int(), Failed: failed.Int()}
		}
		folders = append(folders, u)
		return true
	})
	return folders
}

// ParseItems converts a migrated item list document into item records.
func ParseItems(data []byte) ([]domain.MigratedItem, error) {
	if !gjson.ValidBytes(data) {
		return nil, ErrInvalidJSON
	}
	doc := gjson.ParseBytes(data)
	if !doc.IsArray() {
		return nil, fmt.Errorf("%w: expected array", ErrInvalidJSON)
	}

	items := make([]domain.MigratedItem, 0, len(doc.Array()))
	doc.ForEach(func(_, it gjson.Result) bool {
		item := domain.MigratedItem{
			SourceID:   first(it, "sourceEmailId", "sourceId", "id").String(),
			FolderName: it.Get("folderName").String(),
			Subject:    it.Get("subject").String(),
			From:       first(it, "fromAddress", "from").String(),
			SentAt:     parseTime(it.Get("sentDate")),
			SizeBytes:  it.Get("sizeBytes").Int(),
			Success:    it.Get("success").Bool(),
			MigratedAt: parseTime(it.Get("migratedAt")),
		}
		if msg := it.Get("errorMessage"); msg.Exists() && msg.Type != gjson.Null {
			s := msg.String()
			item.ErrorMessage = &s
		}
		items = append(items, item)
		return true
	})
	return items, nil
}

// first returns the first of paths present in doc.
func first(doc gjson.Result, paths ...string) gjson.Result {
	for _, p := range paths {
		if v := doc.Get(p); v.Exists() && v.Type != gjson.Null {
			return v
		}
	}
	return gjson.Result{}
}

func parseTime(v gjson.Result) *time.Time {
	switch v.Type {
	case gjson.Number:
		t := time.UnixMilli(v.Int()).UTC()
		return &t
	case gjson.String:
		for _, layout := range timeLayouts {
			if t, err := time.Parse(layout, v.String()); err == nil {
				return &t
			}
		}
	}
	return nil
}
