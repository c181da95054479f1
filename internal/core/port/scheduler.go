package port

import "time"

// Scheduler runs job on the event loop once d has elapsed.
type Scheduler interface {
	AfterFunc(d time.Duration, job func())
}
