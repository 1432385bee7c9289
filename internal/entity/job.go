package entity

// JobStatus is the lifecycle state of one scheduler job, mirroring the
// reference's Literal['queued', 'processing', 'completed', 'failed',
// 'timedout', 'cancelled'].
type JobStatus string

const (
	JobStatusQueued     JobStatus = "queued"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
	JobStatusTimedOut   JobStatus = "timedout"
	JobStatusCancelled  JobStatus = "cancelled"
)

// ScheduleJob is the persisted record behind one POST /scheduler/jobs
// request: its current status, the best schedule produced so far, and
// whatever diagnostics/guidance accompany a failure.
type ScheduleJob struct {
	ID               JobID
	Status           JobStatus
	Input            ScheduleInput
	PreferredSolver  string
	Result           map[string]interface{}
	BestResult       map[string]interface{}
	Error            string
	ErrorDiagnostics map[string]interface{}
	CreatedAt        Date
	UpdatedAt        Date
}

// MarkProcessing transitions a queued job to processing.
func (j *ScheduleJob) MarkProcessing() {
	j.Status = JobStatusProcessing
	j.UpdatedAt = Now()
}

// MarkCompleted records a successful solve result.
func (j *ScheduleJob) MarkCompleted(result map[string]interface{}) {
	j.Status = JobStatusCompleted
	j.Result = result
	j.BestResult = result
	j.UpdatedAt = Now()
}

// MarkFailed records a terminal failure, optionally with diagnostics a
// caller can turn into guidance.
func (j *ScheduleJob) MarkFailed(message string, diagnostics map[string]interface{}) {
	j.Status = JobStatusFailed
	j.Error = message
	if diagnostics != nil {
		j.ErrorDiagnostics = diagnostics
	}
	j.UpdatedAt = Now()
}

// MarkTimedOut records a best-effort partial result after the solve
// pipeline exceeded its time budget.
func (j *ScheduleJob) MarkTimedOut(result map[string]interface{}, diagnostics map[string]interface{}) {
	j.Status = JobStatusTimedOut
	if result != nil {
		j.Result = result
		j.BestResult = result
	}
	j.Error = "solver timed out"
	if diagnostics != nil {
		j.ErrorDiagnostics = diagnostics
	}
	j.UpdatedAt = Now()
}

// MarkCancelled records a cooperative cancellation, keeping whatever
// partial result existed.
func (j *ScheduleJob) MarkCancelled(result map[string]interface{}) {
	j.Status = JobStatusCancelled
	if result != nil {
		j.Result = result
		j.BestResult = result
	}
	j.Error = "cancelled"
	j.UpdatedAt = Now()
}
