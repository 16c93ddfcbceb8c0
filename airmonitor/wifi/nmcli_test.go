package wifi

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/shirou/gopsutil/v3/net"
)

func TestInterfaceAddress(t *testing.T) {
	stats := []net.InterfaceStat{
		{Name: "lo", Flags: []string{"up", "loopback"}, Addrs: net.InterfaceAddrList{{Addr: "127.0.0.1/8"}}},
		{Name: "wlan0", Flags: []string{"up", "broadcast"}, Addrs: net.InterfaceAddrList{
			{Addr: "fe80::1/64"},
			{Addr: "192.168.1.20/24"},
		}},
	}
	addr, ok := interfaceAddress(stats, "wlan0")
	if !ok || addr != "192.168.1.20" {
		t.Fatalf("unexpected address %q, %v", addr, ok)
	}

	stats[1].Flags = []string{"broadcast"}
	if _, ok := interfaceAddress(stats, "wlan0"); ok {
		t.Fatalf("down interface reported as connected")
	}
	if _, ok := interfaceAddress(stats, "wlan1"); ok {
		t.Fatalf("missing interface reported as connected")
	}
}

func TestNetworkManagerLinkConnect(t *testing.T) {
	var gotName string
	var gotArgs []string
	link := NewNetworkManagerLink("wlan0", time.Second)
	link.run = func(ctx context.Context, name string, args ...string) ([]byte, error) {
		gotName, gotArgs = name, args
		return nil, nil
	}

	if err := link.Connect("home", "secret"); err != nil {
		t.Fatalf("Connect returned error: %v", err)
	}
	want := []string{"--wait", "0", "device", "wifi", "connect", "home", "password", "secret", "ifname", "wlan0"}
	if gotName != "nmcli" || !reflect.DeepEqual(gotArgs, want) {
		t.Fatalf("unexpected command %s %v", gotName, gotArgs)
	}
}

func TestNetworkManagerLinkErrors(t *testing.T) {
	link := NewNetworkManagerLink("wlan0", time.Second)
	link.run = func(ctx context.Context, name string, args ...string) ([]byte, error) {
		return []byte("Error: No network with SSID 'home' found.\n"), errors.New("exit status 10")
	}
	link.interfaces = func() ([]net.InterfaceStat, error) {
		return nil, errors.New("proc unavailable")
	}

	if err := link.Activate(); err == nil {
		t.Fatalf("expected activation error")
	}
	if link.IsConnected() {
		t.Fatalf("expected disconnected when interfaces can't be listed")
	}
}
