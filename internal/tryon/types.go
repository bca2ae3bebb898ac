package tryon

import "time"

// Status is the lifecycle stage of a try-on record.
type Status string

// Record statuses
const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Terminal reports whether no further transition is allowed out of s.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// rank orders statuses along pending -> processing -> {completed | failed}.
func (s Status) rank() int {
	switch s {
	case StatusPending:
		return 0
	case StatusProcessing:
		return 1
	case StatusCompleted, StatusFailed:
		return 2
	default:
		return -1
	}
}

// Record is one upload-to-result workflow instance for a single photo.
type Record struct {
	ID            string    `json:"id"`                     // assigned by the server on upload
	OriginalImage string    `json:"original_image"`         // uploaded photo reference
	ResultImage   string    `json:"result_image,omitempty"` // empty unless Status == completed
	Status        Status    `json:"status"`
	ProductID     string    `json:"product_id,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// normalize enforces ResultImage present iff completed.
func (r Record) normalize() Record {
	if r.Status != StatusCompleted {
		r.ResultImage = ""
	}
	return r
}
