package dispatch

// Status is the per-subscriber outcome of a dispatched event.
type Status string

const (
	// StatusQueued means the event was handed to the durable queue and will
	// be written by a worker.
	StatusQueued Status = "queued"

	// StatusSuccess means the event was written synchronously.
	StatusSuccess Status = "success"

	// StatusError means delivery to this subscriber failed. Other
	// subscribers are unaffected.
	StatusError Status = "error"
)

// Result reports what happened to one subscriber job for one event.
type Result struct {
	JobID   int64  `json:"jobId"`
	JobName string `json:"jobName"`
	Status  Status `json:"status"`
	Error   string `json:"error,omitempty"`
}
