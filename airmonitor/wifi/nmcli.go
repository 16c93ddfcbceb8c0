package wifi

import (
	"context"
	"os/exec"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/shirou/gopsutil/v3/net"
	log "github.com/sirupsen/logrus"
)

// NetworkManagerLink drives a wlan interface through nmcli and reads its state
// from the kernel's interface table.
type NetworkManagerLink struct {
	Interface string
	Timeout   time.Duration

	run        func(ctx context.Context, name string, args ...string) ([]byte, error)
	interfaces func() ([]net.InterfaceStat, error)
}

func NewNetworkManagerLink(iface string, timeout time.Duration) *NetworkManagerLink {
	return &NetworkManagerLink{
		Interface:  iface,
		Timeout:    timeout,
		run:        runCommand,
		interfaces: listInterfaces,
	}
}

func (link *NetworkManagerLink) Activate() error {
	_, err := link.nmcli("radio", "wifi", "on")
	return err
}

// Connect only issues the request; callers poll IsConnected for the outcome.
func (link *NetworkManagerLink) Connect(ssid, credential string) error {
	args := []string{"--wait", "0", "device", "wifi", "connect", ssid}
	if credential != "" {
		args = append(args, "password", credential)
	}
	args = append(args, "ifname", link.Interface)
	_, err := link.nmcli(args...)
	return err
}

func (link *NetworkManagerLink) IsConnected() bool {
	_, ok := link.LocalAddress()
	return ok
}

func (link *NetworkManagerLink) LocalAddress() (string, bool) {
	stats, err := link.interfaces()
	if err != nil {
		log.Debugf("failed to list interfaces: %s", err)
		return "", false
	}
	return interfaceAddress(stats, link.Interface)
}

func (link *NetworkManagerLink) nmcli(args ...string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(context.Background(), link.Timeout)
	defer cancel()
	out, err := link.run(ctx, "nmcli", args...)
	if err != nil {
		return out, errors.Wrapf(err, "nmcli %s: %s", args[0], strings.TrimSpace(string(out)))
	}
	return out, nil
}

func listInterfaces() ([]net.InterfaceStat, error) {
	return net.Interfaces()
}

func runCommand(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

// interfaceAddress returns the first IPv4 address of an up interface.
func interfaceAddress(stats []net.InterfaceStat, name string) (string, bool) {
	for _, stat := range stats {
		if stat.Name != name || !hasFlag(stat.Flags, "up") {
			continue
		}
		for _, addr := range stat.Addrs {
			ip := addr.Addr
			if i := strings.IndexByte(ip, '/'); i >= 0 {
				ip = ip[:i]
			}
			if strings.Contains(ip, ".") {
				return ip, true
			}
		}
	}
	return "", false
}

func hasFlag(flags []string, flag string) bool {
	for _, f := range flags {
		if f == flag {
			return true
		}
	}
	return false
}
