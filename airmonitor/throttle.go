package airmonitor

import (
	"time"
)

// ReportThrottle gates outbound reports to at most one per MinInterval.
// Only a successful send advances it; not safe for concurrent use.
type ReportThrottle struct {
	MinInterval time.Duration
	lastSent    time.Time
}

func NewReportThrottle(minInterval time.Duration) *ReportThrottle {
	return &ReportThrottle{MinInterval: minInterval}
}

func (throttle *ReportThrottle) Due(now time.Time) bool {
	if throttle.lastSent.IsZero() {
		return true
	}
	return now.Sub(throttle.lastSent) >= throttle.MinInterval
}

func (throttle *ReportThrottle) MarkSent(now time.Time) {
	throttle.lastSent = now
}

// LastSent is the zero time until the first successful report.
func (throttle *ReportThrottle) LastSent() time.Time {
	return throttle.lastSent
}
