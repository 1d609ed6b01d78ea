// Package telemetry keeps the process-wide sync and auth counters.
package telemetry

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/cassiomorais/marketsync/internal/domain/platform"
	"github.com/cassiomorais/marketsync/internal/infrastructure/observability"
)

// Snapshot is a consistent copy of the recorder's counters.
type Snapshot struct {
	SuccessfulSyncs          int                       `json:"successful_syncs"`
	RetryCount               int                       `json:"retry_count"`
	TokenRefreshes           int                       `json:"token_refreshes"`
	TokenRefreshesByPlatform map[platform.Platform]int `json:"token_refreshes_by_platform"`
	LastErrorReason          *string                   `json:"last_error_reason,omitempty"`
	LastSyncAt               *time.Time                `json:"last_sync_at,omitempty"`
}

// Recorder is a set of increment-only counters. All methods are safe for
// concurrent use and each increment is applied atomically with its side fields.
type Recorder struct {
	mu              sync.Mutex
	successfulSyncs int
	retryCount      int
	tokenRefreshes  int
	byPlatform      map[platform.Platform]int
	lastErrorReason *string
	lastSyncAt      *time.Time

	now    func() time.Time
	logger zerolog.Logger
}

func NewRecorder(logger zerolog.Logger) *Recorder {
	return &Recorder{
		byPlatform: make(map[platform.Platform]int),
		now:        time.Now,
		logger:     observability.Category(logger, "telemetry"),
	}
}

func (r *Recorder) RecordSyncSuccess() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.successfulSyncs++
	now := r.now()
	r.lastSyncAt = &now
	r.logger.Debug().Int("successful_syncs", r.successfulSyncs).Msg("sync succeeded")
}

// RecordRetry counts a failed sync phase and remembers reason as the last error.
func (r *Recorder) RecordRetry(reason string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.retryCount++
	r.lastErrorReason = &reason
	r.logger.Debug().Int("retry_count", r.retryCount).Str("reason", reason).Msg("retry recorded")
}

func (r *Recorder) RecordTokenRefresh(p platform.Platform) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tokenRefreshes++
	r.byPlatform[p]++
	r.logger.Debug().Str("platform", p.String()).Int("token_refreshes", r.tokenRefreshes).Msg("token refresh recorded")
}

func (r *Recorder) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := Snapshot{
		SuccessfulSyncs:          r.successfulSyncs,
		RetryCount:               r.retryCount,
		TokenRefreshes:           r.tokenRefreshes,
		TokenRefreshesByPlatform: make(map[platform.Platform]int, len(r.byPlatform)),
	}
	for p, n := range r.byPlatform {
		s.TokenRefreshesByPlatform[p] = n
	}
	if r.lastErrorReason != nil {
		reason := *r.lastErrorReason
		s.LastErrorReason = &reason
	}
	if r.lastSyncAt != nil {
		at := *r.lastSyncAt
		s.LastSyncAt = &at
	}
	return s
}
