package queue

import "errors"

// ErrInvalidTransition is returned when a status change is not permitted from
// the job's current status.
var ErrInvalidTransition = errors.New("invalid status transition")

// ErrJobNotFound is returned by mutating operations that target a missing job.
var ErrJobNotFound = errors.New("job not found")
