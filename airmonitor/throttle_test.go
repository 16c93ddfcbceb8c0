package airmonitor

import (
	"testing"
	"time"
)

func TestThrottleFirstReportIsDue(t *testing.T) {
	throttle := NewReportThrottle(30 * time.Second)
	if !throttle.Due(time.Unix(1000, 0)) {
		t.Fatalf("expected first report to be due")
	}
	if !throttle.LastSent().IsZero() {
		t.Fatalf("expected zero last-sent time")
	}
}

func TestThrottleInterval(t *testing.T) {
	base := time.Unix(1000, 0)
	throttle := NewReportThrottle(30 * time.Second)
	throttle.MarkSent(base.Add(30 * time.Second))

	for s := 35; s < 60; s += 5 {
		if throttle.Due(base.Add(time.Duration(s) * time.Second)) {
			t.Fatalf("report due too early at t=%d", s)
		}
	}
	if !throttle.Due(base.Add(60 * time.Second)) {
		t.Fatalf("expected report due at t=60")
	}
}
