package listing

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/cassiomorais/marketsync/internal/domain/platform"
	"github.com/google/uuid"
)

// JobStatus is a closed sum: InFlight, Succeeded or Failed.
// Consumers switch on the concrete type and must handle all three.
type JobStatus interface {
	jobStatus()
}

type InFlight struct{}

type Succeeded struct{}

type Failed struct {
	Reason string
}

func (InFlight) jobStatus()  {}
func (Succeeded) jobStatus() {}
func (Failed) jobStatus()    {}

// StatusName returns the wire name of a job status.
func StatusName(s JobStatus) string {
	switch s.(type) {
	case InFlight:
		return "in_flight"
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	default:
		panic(fmt.Sprintf("listing: unhandled job status %T", s))
	}
}

// PlatformOutcome is the result of the last publish attempt on one platform.
type PlatformOutcome struct {
	Succeeded bool      `json:"succeeded"`
	Error     string    `json:"error,omitempty"`
	At        time.Time `json:"at"`
}

// PublishJob tracks publishing one product to a set of platforms.
type PublishJob struct {
	ID         uuid.UUID
	ProductID  uuid.UUID
	Platforms  []platform.Platform
	Status     JobStatus
	RetryCount int
	LastError  *string
	Outcomes   map[platform.Platform]PlatformOutcome
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// NewPublishJob creates an in-flight job for the given target platforms.
// Duplicate platforms are collapsed.
func NewPublishJob(productID uuid.UUID, platforms []platform.Platform) *PublishJob {
	set := make(map[platform.Platform]struct{}, len(platforms))
	targets := make([]platform.Platform, 0, len(platforms))
	for _, p := range platforms {
		if _, dup := set[p]; dup {
			continue
		}
		set[p] = struct{}{}
		targets = append(targets, p)
	}
	sort.Slice(targets, func(i, j int) bool { return targets[i] < targets[j] })

	now := time.Now()
	return &PublishJob{
		ID:        uuid.New(),
		ProductID: productID,
		Platforms: targets,
		Status:    InFlight{},
		Outcomes:  make(map[platform.Platform]PlatformOutcome, len(targets)),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// SetStatus moves the job to s. Failed records its reason as the last error;
// other statuses clear it.
func (j *PublishJob) SetStatus(s JobStatus) {
	j.Status = s
	switch st := s.(type) {
	case InFlight, Succeeded:
		j.LastError = nil
	case Failed:
		reason := st.Reason
		j.LastError = &reason
	default:
		panic(fmt.Sprintf("listing: unhandled job status %T", s))
	}
	j.UpdatedAt = time.Now()
}

// RecordOutcome stores the result of publishing to one platform.
func (j *PublishJob) RecordOutcome(p platform.Platform, err error) {
	if j.Outcomes == nil {
		j.Outcomes = make(map[platform.Platform]PlatformOutcome)
	}
	outcome := PlatformOutcome{Succeeded: err == nil, At: time.Now()}
	if err != nil {
		outcome.Error = err.Error()
	}
	j.Outcomes[p] = outcome
	j.UpdatedAt = outcome.At
}

// IncrementRetry counts one failed retry attempt.
func (j *PublishJob) IncrementRetry() {
	j.RetryCount++
	j.UpdatedAt = time.Now()
}

// CanRetry reports whether the job failed and still has retry budget.
func (j *PublishJob) CanRetry(maxRetries int) bool {
	switch j.Status.(type) {
	case InFlight, Succeeded:
		return false
	case Failed:
		return j.RetryCount < maxRetries
	default:
		panic(fmt.Sprintf("listing: unhandled job status %T", j.Status))
	}
}

// IsTerminal reports whether the job will not change again.
func (j *PublishJob) IsTerminal(maxRetries int) bool {
	switch j.Status.(type) {
	case InFlight:
		return false
	case Succeeded:
		return true
	case Failed:
		return j.RetryCount >= maxRetries
	default:
		panic(fmt.Sprintf("listing: unhandled job status %T", j.Status))
	}
}

// Clone returns a deep copy safe to hand to readers.
func (j *PublishJob) Clone() *PublishJob {
	c := *j
	c.Platforms = append([]platform.Platform(nil), j.Platforms...)
	if j.LastError != nil {
		e := *j.LastError
		c.LastError = &e
	}
	c.Outcomes = make(map[platform.Platform]PlatformOutcome, len(j.Outcomes))
	for p, o := range j.Outcomes {
		c.Outcomes[p] = o
	}
	return &c
}

type jobJSON struct {
	ID           uuid.UUID                             `json:"id"`
	ProductID    uuid.UUID                             `json:"product_id"`
	Platforms    []platform.Platform                   `json:"platforms"`
	Status       string                                `json:"status"`
	FailedReason string                                `json:"failed_reason,omitempty"`
	RetryCount   int                                   `json:"retry_count"`
	LastError    *string                               `json:"last_error,omitempty"`
	Outcomes     map[platform.Platform]PlatformOutcome `json:"outcomes,omitempty"`
	CreatedAt    time.Time                             `json:"created_at"`
	UpdatedAt    time.Time                             `json:"updated_at"`
}

func (j PublishJob) MarshalJSON() ([]byte, error) {
	out := jobJSON{
		ID:         j.ID,
		ProductID:  j.ProductID,
		Platforms:  j.Platforms,
		Status:     StatusName(j.Status),
		RetryCount: j.RetryCount,
		LastError:  j.LastError,
		Outcomes:   j.Outcomes,
		CreatedAt:  j.CreatedAt,
		UpdatedAt:  j.UpdatedAt,
	}
	if f, ok := j.Status.(Failed); ok {
		out.FailedReason = f.Reason
	}
	return json.Marshal(out)
}

func (j *PublishJob) UnmarshalJSON(data []byte) error {
	var in jobJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}

	var status JobStatus
	switch in.Status {
	case "in_flight":
		status = InFlight{}
	case "succeeded":
		status = Succeeded{}
	case "failed":
		status = Failed{Reason: in.FailedReason}
	default:
		return fmt.Errorf("unknown job status %q", in.Status)
	}

	*j = PublishJob{
		ID:         in.ID,
		ProductID:  in.ProductID,
		Platforms:  in.Platforms,
		Status:     status,
		RetryCount: in.RetryCount,
		LastError:  in.LastError,
		Outcomes:   in.Outcomes,
		CreatedAt:  in.CreatedAt,
		UpdatedAt:  in.UpdatedAt,
	}
	return nil
}
