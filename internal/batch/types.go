// internal/batch/types.go - Batch processing types
package batch

import (
	"sync"
	"time"

	"github.com/paulmach/orb"

	"github.com/valpere/mapml_features/internal"
)

// Job represents a batch of documents to convert
type Job struct {
	ID          string
	Locations   []string
	Config      *JobConfig
	Status      JobStatus
	Progress    *JobProgress
	CreatedAt   time.Time
	StartedAt   *time.Time
	CompletedAt *time.Time
	Results     []*WorkResult
}

// JobConfig contains configuration for a batch job
type JobConfig struct {
	Concurrency int
	Timeout     time.Duration
	FailOnError bool
	Selection   Selection
}

// Selection chooses which decoded layers of a document are emitted
type Selection struct {
	// Zoom is the host zoom whose partition is emitted; nil means the initial zoom
	Zoom *int
	// All emits every partition instead of one
	All bool
	// BBox restricts output to layers intersecting a lon/lat box
	BBox *orb.Bound
}

// JobStatus represents the current status of a batch job
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
	JobStatusCanceled  JobStatus = "canceled"
)

// JobProgress tracks the progress of a batch job. It is safe for concurrent use.
type JobProgress struct {
	mu              sync.Mutex
	TotalDocuments  int
	ProcessedDocs   int
	SuccessDocs     int
	FailedDocs      int
	DecodedFeatures int
	DroppedFeatures int
	StartTime       time.Time
}

// WorkResult represents the result of converting one document
type WorkResult struct {
	Location string
	Output   string
	Stats    internal.DecodeStats
	Features int
	Error    error
	Duration time.Duration
}

// NewJob creates a new batch job
func NewJob(id string, locations []string, config *JobConfig) *Job {
	if config == nil {
		config = NewJobConfig()
	}
	progress := NewJobProgress()
	progress.TotalDocuments = len(locations)
	return &Job{
		ID:        id,
		Locations: locations,
		Config:    config,
		Status:    JobStatusPending,
		Progress:  progress,
		CreatedAt: time.Now(),
	}
}

// NewJobConfig creates a new job configuration with default values
func NewJobConfig() *JobConfig {
	return &JobConfig{
		Concurrency: 4,
		Timeout:     5 * time.Minute,
	}
}

// NewJobProgress creates a new job progress tracker
func NewJobProgress() *JobProgress {
	return &JobProgress{StartTime: time.Now()}
}

// IsComplete returns true if the job has finished (successfully or with error)
func (j *Job) IsComplete() bool {
	return j.Status == JobStatusCompleted || j.Status == JobStatusFailed || j.Status == JobStatusCanceled
}

// record accounts for one finished document
func (p *JobProgress) record(r *WorkResult) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ProcessedDocs++
	if r.Error != nil {
		p.FailedDocs++
		return
	}
	p.SuccessDocs++
	p.DecodedFeatures += r.Stats.DecodedFeatures
	p.DroppedFeatures += r.Stats.DroppedFeatures
}

// CalculateProgress calculates the completion percentage
func (p *JobProgress) CalculateProgress() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.TotalDocuments == 0 {
		return 0
	}
	return float64(p.ProcessedDocs) / float64(p.TotalDocuments) * 100
}

// Snapshot returns processed, succeeded and failed document counts
func (p *JobProgress) Snapshot() (processed, success, failed int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ProcessedDocs, p.SuccessDocs, p.FailedDocs
}

// String returns a string representation of the job status
func (s JobStatus) String() string {
	return string(s)
}
