package wifi

import (
	"time"

	log "github.com/sirupsen/logrus"
)

// Link is a station-mode network interface.
type Link interface {
	Activate() error
	Connect(ssid, credential string) error
	IsConnected() bool
	LocalAddress() (string, bool)
}

const pollStep = time.Second

// Manager runs the bounded connect-and-wait sequence on top of a Link.
// It never reconnects on its own.
type Manager struct {
	Link  Link
	Sleep func(time.Duration)
}

func NewManager(link Link) *Manager {
	return &Manager{Link: link, Sleep: time.Sleep}
}

// Connect returns true as soon as the link is up, or false once maxWait has elapsed.
// An already connected link is left alone.
func (manager *Manager) Connect(ssid, credential string, maxWait time.Duration) bool {
	if err := manager.Link.Activate(); err != nil {
		log.Errorf("failed to activate link: %s", err)
		return false
	}
	manager.Sleep(pollStep)

	if manager.Link.IsConnected() {
		log.Infof("already connected to %s", ssid)
		return true
	}

	log.Infof("connecting to %s", ssid)
	if err := manager.Link.Connect(ssid, credential); err != nil {
		log.Errorf("failed to request connection to %s: %s", ssid, err)
		return false
	}

	for remaining := maxWait; !manager.Link.IsConnected() && remaining > 0; remaining -= pollStep {
		log.Debugf("waiting for link, %s left", remaining)
		manager.Sleep(pollStep)
	}

	if !manager.Link.IsConnected() {
		log.Warnf("failed to connect to %s within %s", ssid, maxWait)
		return false
	}
	if addr, ok := manager.Link.LocalAddress(); ok {
		log.Infof("connected to %s, address %s", ssid, addr)
	} else {
		log.Infof("connected to %s", ssid)
	}
	return true
}

func (manager *Manager) IsConnected() bool {
	return manager.Link.IsConnected()
}

func (manager *Manager) LocalAddress() (string, bool) {
	return manager.Link.LocalAddress()
}

// Label is the short connectivity marker shown on the display.
func (manager *Manager) Label() string {
	if manager.IsConnected() {
		return "ON"
	}
	return "OFF"
}
