package job

import (
	"encoding/json"
	"fmt"
)

// ComputationResult is a tagged union: a worker either completed the job
// with stdout, or failed and explains why. Wire form is externally-tagged
// JSON, e.g. {"JobCompleted":"hello\n"} or {"JobFailed":"exit status 1"}.
type ComputationResult struct {
	Completed *string
	Failed    *string
}

// Completed builds a ComputationResult carrying the job's stdout.
func Completed(stdout string) ComputationResult {
	return ComputationResult{Completed: &stdout}
}

// Failed builds a ComputationResult carrying a failure diagnostic.
func Failed(diagnostic string) ComputationResult {
	return ComputationResult{Failed: &diagnostic}
}

// IsFailed reports whether the result is a JobFailed variant.
func (r ComputationResult) IsFailed() bool { return r.Failed != nil }

// String returns the carried payload regardless of variant, for logging.
func (r ComputationResult) String() string {
	switch {
	case r.Completed != nil:
		return *r.Completed
	case r.Failed != nil:
		return *r.Failed
	default:
		return ""
	}
}

type taggedResult struct {
	JobCompleted *string `json:"JobCompleted,omitempty"`
	JobFailed    *string `json:"JobFailed,omitempty"`
}

// MarshalJSON renders the externally-tagged representation.
func (r ComputationResult) MarshalJSON() ([]byte, error) {
	return json.Marshal(taggedResult{JobCompleted: r.Completed, JobFailed: r.Failed})
}

// UnmarshalJSON parses the externally-tagged representation.
func (r *ComputationResult) UnmarshalJSON(data []byte) error {
	var t taggedResult
	if err := json.Unmarshal(data, &t); err != nil {
		return err
	}
	if t.JobCompleted == nil && t.JobFailed == nil {
		return fmt.Errorf("job: malformed ComputationResult: neither JobCompleted nor JobFailed present")
	}
	r.Completed = t.JobCompleted
	r.Failed = t.JobFailed
	return nil
}

// Control is a tagged union of scheduler control-channel messages.
type Control struct {
	AddNode string
	Abort   bool
}

// NewAddNode builds a Control message asking the scheduler to return a
// new node into its pool.
func NewAddNode(node string) Control { return Control{AddNode: node} }

// NewAbort builds a Control message asking the scheduler to stop.
func NewAbort() Control { return Control{Abort: true} }

// IsAbort reports whether this is an Abort control message.
func (c Control) IsAbort() bool { return c.Abort }
