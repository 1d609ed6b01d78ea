package listing

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/cassiomorais/marketsync/internal/domain/platform"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPublishJob(t *testing.T) {
	productID := uuid.New()
	job := NewPublishJob(productID, []platform.Platform{platform.Mercari, platform.EBay, platform.Mercari})

	assert.NotEqual(t, uuid.Nil, job.ID)
	assert.Equal(t, productID, job.ProductID)
	assert.Equal(t, []platform.Platform{platform.EBay, platform.Mercari}, job.Platforms)
	assert.Equal(t, InFlight{}, job.Status)
	assert.Equal(t, 0, job.RetryCount)
	assert.Nil(t, job.LastError)
}

func TestSetStatus_FailedRecordsLastError(t *testing.T) {
	job := NewPublishJob(uuid.New(), []platform.Platform{platform.EBay})

	job.SetStatus(Failed{Reason: "http error: 500"})
	require.NotNil(t, job.LastError)
	assert.Equal(t, "http error: 500", *job.LastError)

	job.SetStatus(Succeeded{})
	assert.Nil(t, job.LastError)
}

func TestCanRetryAndIsTerminal(t *testing.T) {
	tests := []struct {
		name       string
		status     JobStatus
		retryCount int
		canRetry   bool
		terminal   bool
	}{
		{"in flight", InFlight{}, 0, false, false},
		{"succeeded", Succeeded{}, 0, false, true},
		{"failed with budget", Failed{Reason: "x"}, 1, true, false},
		{"failed at limit", Failed{Reason: "x"}, 3, false, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			job := NewPublishJob(uuid.New(), []platform.Platform{platform.EBay})
			job.SetStatus(tt.status)
			job.RetryCount = tt.retryCount
			assert.Equal(t, tt.canRetry, job.CanRetry(3))
			assert.Equal(t, tt.terminal, job.IsTerminal(3))
		})
	}
}

func TestRecordOutcome(t *testing.T) {
	job := NewPublishJob(uuid.New(), []platform.Platform{platform.EBay, platform.Facebook})
	job.RecordOutcome(platform.EBay, nil)
	job.RecordOutcome(platform.Facebook, errors.New("rate limited"))

	assert.True(t, job.Outcomes[platform.EBay].Succeeded)
	assert.False(t, job.Outcomes[platform.Facebook].Succeeded)
	assert.Equal(t, "rate limited", job.Outcomes[platform.Facebook].Error)
}

func TestClone_IsIndependent(t *testing.T) {
	job := NewPublishJob(uuid.New(), []platform.Platform{platform.EBay})
	job.SetStatus(Failed{Reason: "boom"})
	job.RecordOutcome(platform.EBay, errors.New("boom"))

	c := job.Clone()
	c.Platforms[0] = platform.Mercari
	*c.LastError = "changed"
	c.Outcomes[platform.Facebook] = PlatformOutcome{}

	assert.Equal(t, platform.EBay, job.Platforms[0])
	assert.Equal(t, "boom", *job.LastError)
	assert.Len(t, job.Outcomes, 1)
}

func TestPublishJob_JSONKeepsStatusVariant(t *testing.T) {
	for _, status := range []JobStatus{InFlight{}, Succeeded{}, Failed{Reason: "http error: 429"}} {
		t.Run(StatusName(status), func(t *testing.T) {
			job := NewPublishJob(uuid.New(), []platform.Platform{platform.EBay})
			job.SetStatus(status)

			data, err := json.Marshal(job)
			require.NoError(t, err)

			var decoded PublishJob
			require.NoError(t, json.Unmarshal(data, &decoded))
			assert.Equal(t, status, decoded.Status)
			assert.Equal(t, job.ID, decoded.ID)
		})
	}
}

func TestPublishJob_UnmarshalUnknownStatus(t *testing.T) {
	var job PublishJob
	err := json.Unmarshal([]byte(`{"status":"paused"}`), &job)
	assert.Error(t, err)
}

func TestApplyStats(t *testing.T) {
	now := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	l := NewPublished(uuid.New(), platform.EBay, "item-1", "https://example.com/item/item-1", now.Add(-time.Hour), 30*24*time.Hour)
	assert.Equal(t, StatusActive, l.Status)
	assert.Equal(t, now.Add(-time.Hour).Add(30*24*time.Hour), *l.ExpiresAt)

	l.ApplyStats(Stats{Views: 12, Active: false}, now)
	assert.Equal(t, StatusSold, l.Status)
	assert.Equal(t, 12, l.ViewCount)
	assert.Equal(t, now, l.SyncedAt)

	l.ApplyStats(Stats{Views: 13, Active: true}, now)
	assert.Equal(t, StatusActive, l.Status)
}
