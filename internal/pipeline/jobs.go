package pipeline

import (
	"crypto/sha256"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dgallion1/msgsplit/internal/doctree"
	"github.com/dgallion1/msgsplit/internal/fragmenter"
)

// JobStatus represents the state of a split job.
type JobStatus string

const (
	StatusQueued     JobStatus = "queued"
	StatusParsing    JobStatus = "parsing"
	StatusSplitting  JobStatus = "splitting"
	StatusDelivering JobStatus = "delivering"
	StatusCompleted  JobStatus = "completed"
	StatusFailed     JobStatus = "failed"
	StatusPartial    JobStatus = "partial"
)

// Job tracks the state of a single document split.
type Job struct {
	mu sync.Mutex

	ID       string    `json:"job_id"`
	Status   JobStatus `json:"status"`
	Phase    string    `json:"phase"`
	Filename string    `json:"filename"`

	// Options used for the split. Deliver sends the result to the
	// orchestrator's sink when one is configured.
	Options fragmenter.Options `json:"-"`
	Deliver bool               `json:"deliver"`

	Progress Progress `json:"progress"`

	ContentHash string    `json:"content_hash,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	// Internal: not serialized.
	fileData  []byte
	fragments doctree.Sequence
	errors    []string
}

// Progress tracks processing progress.
type Progress struct {
	Fragments int      `json:"fragments"`
	Overflows int      `json:"overflows"`
	Delivered int      `json:"delivered"`
	Errors    []string `json:"errors"`
}

// NewJob creates a queued job with a fresh ID.
func NewJob(filename string, data []byte, opts fragmenter.Options, deliver bool) *Job {
	now := time.Now()
	return &Job{
		ID:          uuid.NewString(),
		Status:      StatusQueued,
		Phase:       "queued",
		Filename:    filename,
		Options:     opts,
		Deliver:     deliver,
		ContentHash: ContentHashHex(data),
		CreatedAt:   now,
		UpdatedAt:   now,
		fileData:    data,
	}
}

// JobStore is a thread-safe in-memory job registry with TTL eviction.
type JobStore struct {
	mu   sync.Mutex
	jobs map[string]*Job
	ttl  time.Duration
}

func NewJobStore(ttl time.Duration) *JobStore {
	return &JobStore{
		jobs: make(map[string]*Job),
		ttl:  ttl,
	}
}

func (s *JobStore) Put(job *Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = job
}

func (s *JobStore) Get(id string) *Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.jobs[id]
}

// Len returns the number of tracked jobs.
func (s *JobStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.jobs)
}

// Cleanup removes expired jobs.
func (s *JobStore) Cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	for id, job := range s.jobs {
		job.mu.Lock()
		updated := job.UpdatedAt
		job.mu.Unlock()
		if now.Sub(updated) > s.ttl {
			delete(s.jobs, id)
		}
	}
}

// SetStatus updates job status atomically.
func (j *Job) SetStatus(status JobStatus, phase string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Status = status
	j.Phase = phase
	j.UpdatedAt = time.Now()
}

// AddError records an error.
func (j *Job) AddError(err string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.errors = append(j.errors, err)
	j.Progress.Errors = j.errors
	j.UpdatedAt = time.Now()
}

// SetFragments stores the split result.
func (j *Job) SetFragments(seq doctree.Sequence) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.fragments = seq
	j.Progress.Fragments = len(seq)
	j.Progress.Overflows = len(seq.Overflowed())
	j.UpdatedAt = time.Now()
}

// Fragments returns the split result, nil until splitting is done.
func (j *Job) Fragments() doctree.Sequence {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.fragments
}

// SetDelivered records how many fragments reached the sink.
func (j *Job) SetDelivered(n int) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Progress.Delivered = n
	j.UpdatedAt = time.Now()
}

// SetFileData sets the raw file bytes for processing.
func (j *Job) SetFileData(data []byte) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.fileData = data
}

// FileData returns the raw file bytes.
func (j *Job) FileData() []byte {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.fileData
}

// JobSnapshot is a read-only, JSON-safe copy of job state.
type JobSnapshot struct {
	ID          string             `json:"job_id"`
	Status      JobStatus          `json:"status"`
	Phase       string             `json:"phase"`
	Filename    string             `json:"filename"`
	ContentHash string             `json:"content_hash,omitempty"`
	Progress    Progress           `json:"progress"`
	Fragments   []doctree.Fragment `json:"fragments,omitempty"`
}

// Snapshot returns a JSON-safe copy of the job state.
func (j *Job) Snapshot() JobSnapshot {
	j.mu.Lock()
	defer j.mu.Unlock()
	errs := j.Progress.Errors
	if errs == nil {
		errs = []string{}
	}
	return JobSnapshot{
		ID:          j.ID,
		Status:      j.Status,
		Phase:       j.Phase,
		Filename:    j.Filename,
		ContentHash: j.ContentHash,
		Progress: Progress{
			Fragments: j.Progress.Fragments,
			Overflows: j.Progress.Overflows,
			Delivered: j.Progress.Delivered,
			Errors:    append([]string{}, errs...),
		},
		Fragments: append([]doctree.Fragment(nil), j.fragments...),
	}
}

// ContentHashHex computes SHA-256 of content and returns hex string.
func ContentHashHex(data []byte) string {
	h := sha256.Sum256(data)
	return fmt.Sprintf("%x", h[:])
}
