package payload

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goodjin/migratehero/internal/domain"
)

func TestParseProgress_TaskSnapshot(t *testing.T) {
	body := []byte(`{
		"id": 42,
		"sourceEmail": "alice@contoso.com",
		"targetEmail": "alice@example.org",
		"status": "RUNNING",
		"progressPercent": 99,
		"totalFolders": 4,
		"migratedFolders": 1,
		"totalEmails": 120, "migratedEmails": 30, "failedEmails": 2,
		"totalCalendarEvents": 10, "migratedCalendarEvents": 10, "failedCalendarEvents": 0,
		"currentFolder": "Inbox",
		"errorMessage": null,
		"createdAt": "2024-05-01T09:59:00",
		"startedAt": "2024-05-01T10:00:00.123",
		"completedAt": null
	}`)

	ev, err := ParseProgress(body, domain.SourcePoll, "", 1000)
	require.NoError(t, err)

	assert.Equal(t, "42", ev.JobID)
	assert.Equal(t, int64(1000), ev.Marker)
	assert.Equal(t, domain.SourcePoll, ev.Source)
	assert.Equal(t, domain.JobStatusRunning, ev.Status)
	assert.Equal(t, domain.Counter{Total: 120, Migrated: 30, Failed: 2}, ev.Counters[domain.CategoryEmails])
	assert.Equal(t, domain.Counter{Total: 10, Migrated: 10}, ev.Counters[domain.CategoryCalendarEvents])
	_, hasContacts := ev.Counters[domain.CategoryContacts]
	assert.False(t, hasContacts)
	require.NotNil(t, ev.TotalFolders)
	assert.Equal(t, int64(4), *ev.TotalFolders)
	require.NotNil(t, ev.CurrentFolder)
	assert.Equal(t, "Inbox", *ev.CurrentFolder)
	assert.Nil(t, ev.Error)
	require.NotNil(t, ev.SourceAccount)
	assert.Equal(t, "alice@contoso.com", ev.SourceAccount.Email)
	require.NotNil(t, ev.StartedAt)
	assert.True(t, ev.StartedAt.Equal(time.Date(2024, 5, 1, 10, 0, 0, 123000000, time.UTC)))
	assert.Nil(t, ev.CompletedAt)
}

func TestParseProgress_Broadcast(t *testing.T) {
	body := []byte(`{
		"jobId": "7",
		"phase": "INCREMENTAL_SYNC",
		"status": "FAILED",
		"totalEvents": 5, "migratedEvents": 1, "failedEvents": 1,
		"errorMessage": "ErrorQuotaExceeded",
		"failedEndpoint": "https://outlook.office365.com/EWS/Exchange.asmx",
		"failedRequest": "<FindItem/>",
		"failedResponse": "<Fault/>",
		"timestamp": 1714557600000
	}`)

	ev, err := ParseProgress(body, domain.SourcePush, "other", 1)
	require.NoError(t, err)

	assert.Equal(t, "7", ev.JobID)
	assert.Equal(t, int64(1714557600000), ev.Marker)
	assert.Equal(t, domain.PhaseIncrementalSync, ev.Phase)
	assert.Equal(t, domain.Counter{Total: 5, Migrated: 1, Failed: 1}, ev.Counters[domain.CategoryCalendarEvents])
	require.NotNil(t, ev.Error)
	assert.Equal(t, "ErrorQuotaExceeded", ev.Error.Message)
	assert.Equal(t, "<Fault/>", ev.Error.FailedResponse)
}

func TestParseProgress_StatusNotice(t *testing.T) {
	ev, err := ParseProgress([]byte(`{"status":"paused","phase":"initial_sync"}`), domain.SourcePush, "9", 55)
	require.NoError(t, err)

	assert.Equal(t, "9", ev.JobID)
	assert.Equal(t, int64(55), ev.Marker)
	assert.Equal(t, domain.JobStatusPaused, ev.Status)
	assert.Equal(t, domain.PhaseInitialSync, ev.Phase)
	assert.Nil(t, ev.Counters)
	assert.Nil(t, ev.TotalFolders)
}

func TestParseProgress_Invalid(t *testing.T) {
	_, err := ParseProgress([]byte(`{"status":`), domain.SourcePush, "1", 1)
	assert.ErrorIs(t, err, ErrInvalidJSON)

	_, err = ParseProgress([]byte(`[1,2]`), domain.SourcePush, "1", 1)
	assert.ErrorIs(t, err, ErrInvalidJSON)
}

func TestParseFolders(t *testing.T) {
	body := []byte(`[
		{"id": 1, "folderName": "INBOX", "displayName": "Inbox", "folderPath": "/Inbox",
		 "totalEmails": 10, "migratedEmails": 5, "failedEmails": 0, "status": "in_progress",
		 "startedAt": "2024-05-01T10:00:00"},
		{"folderName": "Sent", "status": "COMPLETED", "totalEmails": 3, "migratedEmails": 3}
	]`)

	folders, err := ParseFolders(body)
	require.NoError(t, err)
	require.Len(t, folders, 2)

	assert.Equal(t, "1", folders[0].ID)
	assert.Equal(t, "Inbox", folders[0].DisplayName)
	assert.Equal(t, domain.FolderStatusInProgress, folders[0].Status)
	assert.Equal(t, &domain.Counter{Total: 10, Migrated: 5}, folders[0].Counter)
	assert.NotNil(t, folders[0].StartedAt)

	assert.Equal(t, "Sent", folders[1].ID, "folder name is the fallback id")
	assert.Equal(t, domain.FolderStatusCompleted, folders[1].Status)

	_, err = ParseFolders([]byte(`{}`))
	assert.ErrorIs(t, err, ErrInvalidJSON)
}

func TestParseItems(t *testing.T) {
	body := []byte(`[
		{"id": 1, "sourceEmailId": "AAMkAD=", "folderName": "INBOX", "subject": "Hello",
		 "fromAddress": "bob@contoso.com", "sentDate": "2024-04-30T08:00:00", "sizeBytes": 2048,
		 "success": true, "errorMessage": null, "migratedAt": "2024-05-01T10:01:00"},
		{"sourceEmailId": "AAMkAE=", "folderName": "INBOX", "success": false, "errorMessage": "too large"}
	]`)

	items, err := ParseItems(body)
	require.NoError(t, err)
	require.Len(t, items, 2)

	assert.Equal(t, "AAMkAD=", items[0].SourceID)
	assert.Equal(t, "bob@contoso.com", items[0].From)
	assert.Equal(t, int64(2048), items[0].SizeBytes)
	assert.True(t, items[0].Success)
	assert.Nil(t, items[0].ErrorMessage)
	assert.NotNil(t, items[0].SentAt)

	assert.False(t, items[1].Success)
	require.NotNil(t, items[1].ErrorMessage)
	assert.Equal(t, "too large", *items[1].ErrorMessage)

	items, err = ParseItems([]byte(`[]`))
	require.NoError(t, err)
	assert.Empty(t, items)
}
