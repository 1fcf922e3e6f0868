package audit

import "time"

// Actions recorded on the trail.
const (
	ActionRecordSubmitted = "record.submitted"
	ActionRecordDeleted   = "record.deleted"
	ActionProofRejected   = "proof.rejected"
)

// Event is emitted from the registration flow to capture who did what.
// Transport-agnostic so stores and sinks can fan out.
type Event struct {
	Timestamp time.Time
	Actor     string
	Action    string
	RecordID  int64
	Outcome   string
	Reason    string
}
