package job

import (
	"sync"

	"github.com/schedcu/v2/internal/entity"
	"github.com/schedcu/v2/internal/orchestrator"
)

// CancelRegistry tracks the live orchestrator.CancelToken for every
// in-flight job, so the cancel HTTP handler (which has no direct handle on
// the worker goroutine processing a job) can request cancellation by ID.
type CancelRegistry struct {
	mu     sync.Mutex
	tokens map[entity.JobID]*orchestrator.CancelToken
}

// NewCancelRegistry returns an empty registry.
func NewCancelRegistry() *CancelRegistry {
	return &CancelRegistry{tokens: make(map[entity.JobID]*orchestrator.CancelToken)}
}

// Register associates token with jobID for the duration of that job's solve.
func (r *CancelRegistry) Register(jobID entity.JobID, token *orchestrator.CancelToken) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tokens[jobID] = token
}

// Unregister removes jobID once its solve has finished, win or lose.
func (r *CancelRegistry) Unregister(jobID entity.JobID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.tokens, jobID)
}

// Cancel requests cancellation of jobID's in-flight solve, if any. It
// returns false if the job is not currently running (either not yet
// started or already finished), letting the caller decide how to report
// that distinction.
func (r *CancelRegistry) Cancel(jobID entity.JobID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	token, ok := r.tokens[jobID]
	if !ok {
		return false
	}
	token.Cancel()
	return true
}
