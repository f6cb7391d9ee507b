package idempotency

import "time"

// Record is the stored outcome of one idempotent request.
type Record struct {
	Id           int64
	RequestType  string
	ReferenceId  int64
	ResponseData string
	CreatedAt    time.Time
}
