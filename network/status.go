package network

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/vishvananda/netlink"
)

// StatusPayload reports the live Wi-Fi state in the status vocabulary:
// WIFI:CONNECTED:<ssid>[:<ipv4>] or WIFI:DISCONNECTED.
func (m *Manager) StatusPayload() string {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	out, code, err := m.run(ctx, "iwgetid", "-r")
	if err != nil || code != 0 {
		log.Printf("WIFI: iwgetid failed (code %d): %v", code, err)
		return "WIFI:DISCONNECTED"
	}

	ssid := strings.TrimSpace(out)
	if ssid == "" {
		return "WIFI:DISCONNECTED"
	}

	if ip := m.ipLookup(m.iface); ip != "" {
		return "WIFI:CONNECTED:" + ssid + ":" + ip
	}
	return "WIFI:CONNECTED:" + ssid
}

// interfaceIPv4 returns the first IPv4 address on iface, or "".
func interfaceIPv4(iface string) string {
	link, err := netlink.LinkByName(iface)
	if err != nil {
		log.Printf("WIFI: Failed to look up interface %s: %v", iface, err)
		return ""
	}

	addrs, err := netlink.AddrList(link, netlink.FAMILY_V4)
	if err != nil || len(addrs) == 0 {
		return ""
	}
	return addrs[0].IP.String()
}
