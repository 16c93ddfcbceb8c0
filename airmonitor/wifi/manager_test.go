package wifi

import (
	"errors"
	"testing"
	"time"
)

type fakeLink struct {
	connected     bool
	connectAfter  int // polls of IsConnected after Connect before the link comes up
	polls         int
	connectCalls  int
	activateCalls int
	connectErr    error
	requested     bool
}

func (link *fakeLink) Activate() error {
	link.activateCalls++
	return nil
}

func (link *fakeLink) Connect(ssid, credential string) error {
	link.connectCalls++
	if link.connectErr != nil {
		return link.connectErr
	}
	link.requested = true
	return nil
}

func (link *fakeLink) IsConnected() bool {
	if link.requested && !link.connected {
		link.polls++
		if link.polls > link.connectAfter {
			link.connected = true
		}
	}
	return link.connected
}

func (link *fakeLink) LocalAddress() (string, bool) {
	if link.connected {
		return "192.168.1.20", true
	}
	return "", false
}

func newTestManager(link Link) (*Manager, *time.Duration) {
	var slept time.Duration
	manager := NewManager(link)
	manager.Sleep = func(d time.Duration) { slept += d }
	return manager, &slept
}

func TestConnectWhenAlreadyConnected(t *testing.T) {
	link := &fakeLink{connected: true}
	manager, _ := newTestManager(link)

	if !manager.Connect("home", "secret", 20*time.Second) {
		t.Fatalf("expected Connect to succeed")
	}
	if link.connectCalls != 0 {
		t.Fatalf("connect primitive invoked %d times on a connected link", link.connectCalls)
	}
	if manager.Label() != "ON" {
		t.Fatalf("label = %s", manager.Label())
	}
}

func TestConnectWaitsForLink(t *testing.T) {
	link := &fakeLink{connectAfter: 3}
	manager, slept := newTestManager(link)

	if !manager.Connect("home", "secret", 20*time.Second) {
		t.Fatalf("expected Connect to succeed")
	}
	if link.connectCalls != 1 {
		t.Fatalf("connect calls = %d", link.connectCalls)
	}
	if *slept > 5*time.Second {
		t.Fatalf("waited too long: %s", *slept)
	}
	if addr, ok := manager.LocalAddress(); !ok || addr != "192.168.1.20" {
		t.Fatalf("unexpected address %q, %v", addr, ok)
	}
}

func TestConnectTimesOut(t *testing.T) {
	link := &fakeLink{connectAfter: 1000}
	manager, slept := newTestManager(link)

	if manager.Connect("home", "secret", 20*time.Second) {
		t.Fatalf("expected Connect to time out")
	}
	// one settle step after activation plus one per second of waiting
	if *slept != 21*time.Second {
		t.Fatalf("slept %s", *slept)
	}
	if manager.Label() != "OFF" {
		t.Fatalf("label = %s", manager.Label())
	}
}

func TestConnectRequestError(t *testing.T) {
	link := &fakeLink{connectErr: errors.New("no secrets")}
	manager, _ := newTestManager(link)

	if manager.Connect("home", "secret", 20*time.Second) {
		t.Fatalf("expected Connect to fail")
	}
}
